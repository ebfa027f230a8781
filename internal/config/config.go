package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration. All values are fixed at load
// time; handlers receive the struct by pointer and never mutate it.
type Config struct {
	// BaseURL is the JobNimbus API root. Defaults to the public endpoint.
	BaseURL string `json:"base_url,omitempty"`

	// APIKey authenticates against the JobNimbus API. Usually supplied via
	// the JOBNIMBUS_API_KEY environment variable rather than the file.
	APIKey string `json:"api_key,omitempty"`

	// Instance is the JobNimbus instance identifier sent on every request.
	// Overridable via JOBNIMBUS_INSTANCE.
	Instance string `json:"instance,omitempty"`

	// InlineCeilingBytes is the maximum serialized size of an inline
	// response payload. Larger results are parked behind a handle.
	InlineCeilingBytes int `json:"inline_ceiling_bytes,omitempty"`

	// DefaultVerbosity applies when a tool call carries no verbosity.
	// One of: summary, compact, detailed, raw.
	DefaultVerbosity string `json:"default_verbosity,omitempty"`

	// HandleTTLSeconds is the lifetime of an overflow result handle.
	HandleTTLSeconds int `json:"handle_ttl_seconds,omitempty"`

	// ListTTLSeconds caches entity list responses.
	ListTTLSeconds int `json:"list_ttl_seconds,omitempty"`

	// GetTTLSeconds caches single-record responses.
	GetTTLSeconds int `json:"get_ttl_seconds,omitempty"`

	// AnalyticsTTLSeconds caches computed analytics responses.
	AnalyticsTTLSeconds int `json:"analytics_ttl_seconds,omitempty"`

	// CacheBackend selects the cache store: "memory" (default) or "sqlite".
	CacheBackend string `json:"cache_backend,omitempty"`

	// DBMaxOpenConns limits open connections for the sqlite backend.
	// If set to 1, all database access is serialized.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits idle connections for the sqlite backend.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from
	// registration. Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledEntities disables every tool belonging to the named
	// entities (e.g. "invoices" removes invoices_list and invoices_get).
	DisabledEntities []string `json:"disabled_entities,omitempty"`
}

// Defaults documented in the tool-facing contract. The ceiling exists
// because the consumer is an LLM context window with a hard token budget.
const (
	DefaultBaseURL             = "https://app.jobnimbus.com"
	DefaultInlineCeilingBytes  = 25600
	DefaultVerbosity           = "compact"
	DefaultHandleTTLSeconds    = 900
	DefaultListTTLSeconds      = 120
	DefaultGetTTLSeconds       = 300
	DefaultAnalyticsTTLSeconds = 300
	DefaultCacheBackend        = "memory"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:             DefaultBaseURL,
		InlineCeilingBytes:  DefaultInlineCeilingBytes,
		DefaultVerbosity:    DefaultVerbosity,
		HandleTTLSeconds:    DefaultHandleTTLSeconds,
		ListTTLSeconds:      DefaultListTTLSeconds,
		GetTTLSeconds:       DefaultGetTTLSeconds,
		AnalyticsTTLSeconds: DefaultAnalyticsTTLSeconds,
		CacheBackend:        DefaultCacheBackend,
	}
}

// Load loads configuration from baseDir/config.json, then applies
// environment overrides. Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.jnmcp.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides secrets and connection settings from the environment.
// Environment always wins over the file so keys stay out of config.json.
func applyEnv(cfg *Config) {
	if v := os.Getenv("JOBNIMBUS_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("JOBNIMBUS_INSTANCE"); v != "" {
		cfg.Instance = v
	}
	if v := os.Getenv("JOBNIMBUS_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.BaseURL = overlayString(base.BaseURL, overlay.BaseURL)
	result.APIKey = overlayString(base.APIKey, overlay.APIKey)
	result.Instance = overlayString(base.Instance, overlay.Instance)
	result.DefaultVerbosity = overlayString(base.DefaultVerbosity, overlay.DefaultVerbosity)
	result.CacheBackend = overlayString(base.CacheBackend, overlay.CacheBackend)

	result.InlineCeilingBytes = overlayInt(base.InlineCeilingBytes, overlay.InlineCeilingBytes)
	result.HandleTTLSeconds = overlayInt(base.HandleTTLSeconds, overlay.HandleTTLSeconds)
	result.ListTTLSeconds = overlayInt(base.ListTTLSeconds, overlay.ListTTLSeconds)
	result.GetTTLSeconds = overlayInt(base.GetTTLSeconds, overlay.GetTTLSeconds)
	result.AnalyticsTTLSeconds = overlayInt(base.AnalyticsTTLSeconds, overlay.AnalyticsTTLSeconds)
	result.DBMaxOpenConns = overlayInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns)
	result.DBMaxIdleConns = overlayInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns)

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledEntities = mergeStringSlice(base.DisabledEntities, overlay.DisabledEntities)

	return result
}

// overlayString returns overlay if non-empty, else base.
func overlayString(base, overlay string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

// overlayInt returns overlay if non-zero, else base.
func overlayInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

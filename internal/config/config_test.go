package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.InlineCeilingBytes != 25600 {
		t.Errorf("InlineCeilingBytes = %d, want 25600", cfg.InlineCeilingBytes)
	}
	if cfg.DefaultVerbosity != "compact" {
		t.Errorf("DefaultVerbosity = %q, want %q", cfg.DefaultVerbosity, "compact")
	}
	if cfg.HandleTTLSeconds != 900 {
		t.Errorf("HandleTTLSeconds = %d, want 900", cfg.HandleTTLSeconds)
	}
	if cfg.CacheBackend != "memory" {
		t.Errorf("CacheBackend = %q, want %q", cfg.CacheBackend, "memory")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Missing file falls back to defaults
	if cfg.InlineCeilingBytes != DefaultInlineCeilingBytes {
		t.Errorf("InlineCeilingBytes = %d, want default %d", cfg.InlineCeilingBytes, DefaultInlineCeilingBytes)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	file := Config{
		InlineCeilingBytes: 10000,
		ListTTLSeconds:     60,
		CacheBackend:       "sqlite",
		DisabledTools:      []string{"invoices_get"},
	}
	writeConfig(t, dir, file)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.InlineCeilingBytes != 10000 {
		t.Errorf("InlineCeilingBytes = %d, want 10000", cfg.InlineCeilingBytes)
	}
	if cfg.ListTTLSeconds != 60 {
		t.Errorf("ListTTLSeconds = %d, want 60", cfg.ListTTLSeconds)
	}
	if cfg.CacheBackend != "sqlite" {
		t.Errorf("CacheBackend = %q, want %q", cfg.CacheBackend, "sqlite")
	}
	// Unset fields keep defaults
	if cfg.HandleTTLSeconds != DefaultHandleTTLSeconds {
		t.Errorf("HandleTTLSeconds = %d, want default %d", cfg.HandleTTLSeconds, DefaultHandleTTLSeconds)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "invoices_get" {
		t.Errorf("DisabledTools = %v, want [invoices_get]", cfg.DisabledTools)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Error("Load() with invalid JSON should return error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, Config{APIKey: "file-key", Instance: "file-instance"})

	t.Setenv("JOBNIMBUS_API_KEY", "env-key")
	t.Setenv("JOBNIMBUS_INSTANCE", "env-instance")
	t.Setenv("JOBNIMBUS_BASE_URL", "http://localhost:9999")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env override", cfg.APIKey)
	}
	if cfg.Instance != "env-instance" {
		t.Errorf("Instance = %q, want env override", cfg.Instance)
	}
	if cfg.BaseURL != "http://localhost:9999" {
		t.Errorf("BaseURL = %q, want env override", cfg.BaseURL)
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		base    *Config
		overlay *Config
		check   func(t *testing.T, got *Config)
	}{
		{
			name:    "overlay scalar wins",
			base:    &Config{InlineCeilingBytes: 25600, DefaultVerbosity: "compact"},
			overlay: &Config{InlineCeilingBytes: 5000},
			check: func(t *testing.T, got *Config) {
				if got.InlineCeilingBytes != 5000 {
					t.Errorf("InlineCeilingBytes = %d, want 5000", got.InlineCeilingBytes)
				}
				if got.DefaultVerbosity != "compact" {
					t.Errorf("DefaultVerbosity = %q, want base value", got.DefaultVerbosity)
				}
			},
		},
		{
			name:    "zero overlay keeps base",
			base:    &Config{GetTTLSeconds: 300},
			overlay: &Config{},
			check: func(t *testing.T, got *Config) {
				if got.GetTTLSeconds != 300 {
					t.Errorf("GetTTLSeconds = %d, want 300", got.GetTTLSeconds)
				}
			},
		},
		{
			name:    "arrays merged and deduplicated",
			base:    &Config{DisabledTools: []string{"jobs_list", "tasks_get"}},
			overlay: &Config{DisabledTools: []string{" tasks_get ", "analytics_revenue"}},
			check: func(t *testing.T, got *Config) {
				want := []string{"jobs_list", "tasks_get", "analytics_revenue"}
				if len(got.DisabledTools) != len(want) {
					t.Fatalf("DisabledTools = %v, want %v", got.DisabledTools, want)
				}
				for i, v := range want {
					if got.DisabledTools[i] != v {
						t.Errorf("DisabledTools[%d] = %q, want %q", i, got.DisabledTools[i], v)
					}
				}
			},
		},
		{
			name:    "empty arrays stay nil",
			base:    &Config{},
			overlay: &Config{DisabledEntities: []string{"  "}},
			check: func(t *testing.T, got *Config) {
				if got.DisabledEntities != nil {
					t.Errorf("DisabledEntities = %v, want nil", got.DisabledEntities)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Merge(tt.base, tt.overlay))
		})
	}
}

func writeConfig(t *testing.T, dir string, cfg Config) {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0600); err != nil {
		t.Fatal(err)
	}
}

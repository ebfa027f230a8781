package tools

import "context"

// SystemInfoOutput reports the server's governance defaults so a client
// can reason about verbosity tiers and handle lifetimes.
type SystemInfoOutput struct {
	Version            string `json:"version"`
	Instance           string `json:"instance,omitempty"`
	CacheBackend       string `json:"cache_backend"`
	InlineCeilingBytes int    `json:"inline_ceiling_bytes"`
	DefaultVerbosity   string `json:"default_verbosity"`
	HandleTTLSeconds   int    `json:"handle_ttl_seconds"`
	ListTTLSeconds     int    `json:"list_ttl_seconds"`
	GetTTLSeconds      int    `json:"get_ttl_seconds"`
}

// SystemInfo reports static server configuration. Never cached, never
// enveloped: the payload is a handful of scalars.
func SystemInfo(_ context.Context, d *Deps, version string) (*SystemInfoOutput, error) {
	return &SystemInfoOutput{
		Version:            version,
		Instance:           d.Client.Instance(),
		CacheBackend:       d.Cfg.CacheBackend,
		InlineCeilingBytes: d.Cfg.InlineCeilingBytes,
		DefaultVerbosity:   d.Cfg.DefaultVerbosity,
		HandleTTLSeconds:   d.Cfg.HandleTTLSeconds,
		ListTTLSeconds:     d.Cfg.ListTTLSeconds,
		GetTTLSeconds:      d.Cfg.GetTTLSeconds,
	}, nil
}

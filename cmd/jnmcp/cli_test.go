package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/hailworks/jnmcp/internal/cache"
	"github.com/hailworks/jnmcp/internal/config"
	"github.com/hailworks/jnmcp/internal/jobnimbus"
	"github.com/hailworks/jnmcp/internal/tools"
)

// setupApp builds a CLI app backed by a canned upstream.
func setupApp(t *testing.T, lists map[string][]map[string]any, records map[string]map[string]any) (*cli.App, *tools.Deps) {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api1/")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) == 2 {
			record, ok := records[parts[1]]
			if !ok {
				fmt.Fprint(w, "{}")
				return
			}
			json.NewEncoder(w).Encode(record)
			return
		}
		rows := lists[parts[0]]
		json.NewEncoder(w).Encode(jobnimbus.ListResponse{Count: len(rows), Results: rows})
	}))
	t.Cleanup(upstream.Close)

	cfg := config.DefaultConfig()
	cfg.BaseURL = upstream.URL
	cfg.APIKey = "k"

	deps := tools.NewDeps(jobnimbus.NewClient(cfg), cache.NewMemoryStore(), cfg)
	return newCLIApp(deps, cfg), deps
}

// runCapture runs the app with args and returns captured stdout.
func runCapture(t *testing.T, app *cli.App, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run(append([]string{"jnmcp"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

func parseEnvelope(t *testing.T, out string) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	return env
}

// TestCLIJobsList tests the jobs list command.
func TestCLIJobsList(t *testing.T) {
	app, _ := setupApp(t, map[string][]map[string]any{
		"jobs": {
			{"jnid": "j1", "display_name": "Reroof", "status_name": "Lead"},
			{"jnid": "j2", "display_name": "Repair", "status_name": "Sold"},
			{"jnid": "j3", "display_name": "Gutter", "status_name": "Lead"},
		},
	}, nil)

	out, err := runCapture(t, app, "jobs", "list")
	if err != nil {
		t.Fatalf("jobs list failed: %v", err)
	}
	env := parseEnvelope(t, out)
	if env["status"] != "ok" {
		t.Errorf("status = %v, want ok", env["status"])
	}
	if env["row_count"].(float64) != 3 {
		t.Errorf("row_count = %v, want 3", env["row_count"])
	}

	t.Run("status filter", func(t *testing.T) {
		out, err := runCapture(t, app, "jobs", "list", "--status=lead")
		if err != nil {
			t.Fatalf("jobs list failed: %v", err)
		}
		env := parseEnvelope(t, out)
		if env["total_filtered"].(float64) != 2 {
			t.Errorf("total_filtered = %v, want 2", env["total_filtered"])
		}
	})

	t.Run("fields projection", func(t *testing.T) {
		out, err := runCapture(t, app, "jobs", "list", "--fields=jnid")
		if err != nil {
			t.Fatalf("jobs list failed: %v", err)
		}
		env := parseEnvelope(t, out)
		rows := env["summary"].([]any)
		for _, row := range rows {
			if n := len(row.(map[string]any)); n != 1 {
				t.Errorf("row has %d fields, want 1", n)
			}
		}
	})
}

// TestCLIJobsGet tests the jobs get command.
func TestCLIJobsGet(t *testing.T) {
	app, _ := setupApp(t, nil, map[string]map[string]any{
		"j1": {"jnid": "j1", "display_name": "Reroof"},
	})

	out, err := runCapture(t, app, "jobs", "get", "j1")
	if err != nil {
		t.Fatalf("jobs get failed: %v", err)
	}
	env := parseEnvelope(t, out)
	record := env["summary"].(map[string]any)
	if record["display_name"] != "Reroof" {
		t.Errorf("record = %v", record)
	}

	t.Run("missing record returns error", func(t *testing.T) {
		_, err := runCapture(t, app, "jobs", "get", "nope")
		if err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("missing jnid returns error", func(t *testing.T) {
		_, err := runCapture(t, app, "jobs", "get")
		if err == nil {
			t.Error("expected error, got nil")
		}
	})
}

// TestCLIJobsSearch tests the jobs search command.
func TestCLIJobsSearch(t *testing.T) {
	app, _ := setupApp(t, map[string][]map[string]any{
		"jobs": {
			{"jnid": "j1", "display_name": "Smith reroof", "status_name": "Lead"},
			{"jnid": "j2", "display_name": "Jones repair", "status_name": "Sold"},
		},
	}, nil)

	out, err := runCapture(t, app, "jobs", "search", "smith")
	if err != nil {
		t.Fatalf("jobs search failed: %v", err)
	}
	env := parseEnvelope(t, out)
	if env["total_filtered"].(float64) != 1 {
		t.Errorf("total_filtered = %v, want 1", env["total_filtered"])
	}

	t.Run("empty query returns error", func(t *testing.T) {
		_, err := runCapture(t, app, "jobs", "search")
		if err == nil {
			t.Error("expected error, got nil")
		}
	})
}

// TestCLIFetchExpired tests fetching an unknown handle.
func TestCLIFetchExpired(t *testing.T) {
	app, _ := setupApp(t, nil, nil)

	out, err := runCapture(t, app, "fetch", "h_01ARZ3NDEKTSV4RRFFQ69G5FAV")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	env := parseEnvelope(t, out)
	if env["status"] != "expired" {
		t.Errorf("status = %v, want expired", env["status"])
	}
}

// TestCLIInfo tests the info command.
func TestCLIInfo(t *testing.T) {
	app, _ := setupApp(t, nil, nil)

	out, err := runCapture(t, app, "info")
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	var info tools.SystemInfoOutput
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if info.InlineCeilingBytes != config.DefaultInlineCeilingBytes {
		t.Errorf("InlineCeilingBytes = %d", info.InlineCeilingBytes)
	}
	if info.DefaultVerbosity != config.DefaultVerbosity {
		t.Errorf("DefaultVerbosity = %q", info.DefaultVerbosity)
	}
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{
			name:     "no args",
			args:     []string{"jnmcp"},
			expected: false,
		},
		{
			name:     "jobs command",
			args:     []string{"jnmcp", "jobs"},
			expected: true,
		},
		{
			name:     "analytics command",
			args:     []string{"jnmcp", "analytics"},
			expected: true,
		},
		{
			name:     "help flag",
			args:     []string{"jnmcp", "--help"},
			expected: true,
		},
		{
			name:     "version flag",
			args:     []string{"jnmcp", "--version"},
			expected: true,
		},
		{
			name:     "short help flag",
			args:     []string{"jnmcp", "-h"},
			expected: true,
		},
		{
			name:     "short version flag",
			args:     []string{"jnmcp", "-v"},
			expected: true,
		},
		{
			name:     "unknown arg defaults to MCP",
			args:     []string{"jnmcp", "--unknown"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Save and restore os.Args
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isCLIMode()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{
			name:     "no args",
			args:     []string{"jnmcp"},
			expected: false,
		},
		{
			name:     "help flag",
			args:     []string{"jnmcp", "--help"},
			expected: true,
		},
		{
			name:     "short help flag",
			args:     []string{"jnmcp", "-h"},
			expected: true,
		},
		{
			name:     "version flag",
			args:     []string{"jnmcp", "--version"},
			expected: true,
		},
		{
			name:     "short version flag",
			args:     []string{"jnmcp", "-v"},
			expected: true,
		},
		{
			name:     "help subcommand",
			args:     []string{"jnmcp", "help"},
			expected: true,
		},
		{
			name:     "jobs command is not help",
			args:     []string{"jnmcp", "jobs"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isHelpOrVersion()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

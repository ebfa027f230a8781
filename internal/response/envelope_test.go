package response

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hailworks/jnmcp/internal/cache"
)

func testBuilder(t *testing.T, ceiling int) (*Builder, *HandleStore) {
	t.Helper()
	handles := NewHandleStore(cache.NewMemoryStore(), 900*time.Second)
	return NewBuilder(ceiling, handles), handles
}

func TestBuild_InlineUnderCeiling(t *testing.T) {
	b, _ := testBuilder(t, 25600)

	rows := []any{
		map[string]any{"jnid": "j1", "status": "open"},
		map[string]any{"jnid": "j2", "status": "closed"},
	}

	env := b.Build(context.Background(), rows, BuildOptions{
		Tool:         "jobs_list",
		Verbosity:    VerbosityCompact,
		TotalFetched: 2,
	})

	if env.Status != StatusOK {
		t.Fatalf("Status = %q, want ok", env.Status)
	}
	if env.ResultHandle != "" {
		t.Error("inline envelope should carry no handle")
	}
	if env.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", env.RowCount)
	}
	if env.TotalFetched != 2 {
		t.Errorf("TotalFetched = %d, want 2", env.TotalFetched)
	}
	if env.SizeBytes <= 0 || env.SizeBytes > 25600 {
		t.Errorf("SizeBytes = %d", env.SizeBytes)
	}
}

func TestBuild_SizeCeilingInvariant(t *testing.T) {
	// Whatever the input size, an ok envelope's serialized summary stays
	// under the ceiling, and anything over it becomes partial + handle.
	ceiling := 2048
	b, _ := testBuilder(t, ceiling)

	for _, rowCount := range []int{1, 10, 200} {
		t.Run(fmt.Sprintf("%d_rows", rowCount), func(t *testing.T) {
			rows := make([]any, rowCount)
			for i := range rows {
				rows[i] = map[string]any{
					"jnid":  fmt.Sprintf("j%d", i),
					"notes": strings.Repeat("n", 400),
				}
			}

			env := b.Build(context.Background(), rows, BuildOptions{
				Tool:      "jobs_list",
				Verbosity: VerbosityRaw,
			})

			serialized, err := json.Marshal(env.Summary)
			if err != nil {
				t.Fatal(err)
			}

			switch env.Status {
			case StatusOK:
				if len(serialized) > ceiling {
					t.Errorf("ok summary is %d bytes, over ceiling %d", len(serialized), ceiling)
				}
			case StatusPartial:
				if env.ResultHandle == "" {
					t.Error("partial envelope missing result_handle")
				}
				if env.ExpiresInSec != 900 {
					t.Errorf("ExpiresInSec = %d, want 900", env.ExpiresInSec)
				}
				if len(serialized) > ceiling {
					t.Errorf("partial preview is %d bytes, over ceiling %d", len(serialized), ceiling)
				}
			default:
				t.Errorf("Status = %q", env.Status)
			}
		})
	}
}

func TestBuild_OverflowStoresOriginal(t *testing.T) {
	b, handles := testBuilder(t, 1024)
	ctx := context.Background()

	// 50 rows of 30 fields each: compact projection still exceeds 1 KB,
	// and the handle must hold the unprojected original.
	rows := make([]any, 50)
	for i := range rows {
		record := map[string]any{"jnid": fmt.Sprintf("j%d", i)}
		for f := 0; f < 30; f++ {
			record[fmt.Sprintf("field_%02d", f)] = strings.Repeat("v", 50)
		}
		rows[i] = record
	}

	env := b.Build(ctx, rows, BuildOptions{Tool: "jobs_list", Verbosity: VerbosityCompact})
	if env.Status != StatusPartial {
		t.Fatalf("Status = %q, want partial", env.Status)
	}

	// Preview is a leading slice of the projected data, never the full set,
	// and must itself fit the ceiling.
	preview := env.Summary.([]any)
	if len(preview) < 1 || len(preview) > previewRowCount {
		t.Errorf("preview rows = %d, want 1..%d", len(preview), previewRowCount)
	}
	if env.RowCount != len(preview) {
		t.Errorf("RowCount = %d, want preview count %d", env.RowCount, len(preview))
	}
	if serialized, _ := json.Marshal(env.Summary); len(serialized) > 1024 {
		t.Errorf("preview is %d bytes, over ceiling 1024", len(serialized))
	}
	if !env.Truncated {
		t.Error("partial envelope must report truncated")
	}

	// The stored result is the full unprojected original.
	stored, tag, err := handles.Get(ctx, env.ResultHandle, "")
	if err != nil {
		t.Fatalf("handle Get() error = %v", err)
	}
	if tag != "jobs_list" {
		t.Errorf("tag = %q", tag)
	}
	storedRows := stored.([]any)
	if len(storedRows) != 50 {
		t.Fatalf("stored rows = %d, want 50", len(storedRows))
	}
	if n := len(storedRows[0].(map[string]any)); n != 31 {
		t.Errorf("stored row fields = %d, want unprojected 31", n)
	}
}

func TestBuild_SingleOversizedRecord(t *testing.T) {
	b, handles := testBuilder(t, 25600)
	ctx := context.Background()

	// One fat record in raw: the whole projection is over the ceiling, so
	// the preview must degrade to a summary-tier cut of the record rather
	// than inlining it whole.
	record := map[string]any{}
	for f := 0; f < 60; f++ {
		record[fmt.Sprintf("field_%02d", f)] = strings.Repeat("v", 500)
	}

	env := b.Build(ctx, record, BuildOptions{
		Tool:         "jobs_get",
		Verbosity:    VerbosityRaw,
		TotalFetched: 1,
	})
	if env.Status != StatusPartial {
		t.Fatalf("Status = %q, want partial", env.Status)
	}
	if env.SizeBytes > 25600 {
		t.Errorf("SizeBytes = %d, over ceiling 25600", env.SizeBytes)
	}
	serialized, err := json.Marshal(env.Summary)
	if err != nil {
		t.Fatal(err)
	}
	if len(serialized) > 25600 {
		t.Errorf("preview is %d bytes, over ceiling 25600", len(serialized))
	}

	preview := env.Summary.(map[string]any)
	if len(preview) > 5 {
		t.Errorf("preview fields = %d, want summary-tier <= 5", len(preview))
	}

	// The handle still holds the full record.
	stored, _, err := handles.Get(ctx, env.ResultHandle, "")
	if err != nil {
		t.Fatalf("handle Get() error = %v", err)
	}
	if n := len(stored.(map[string]any)); n != 60 {
		t.Errorf("stored fields = %d, want 60", n)
	}
}

func TestBuild_PreviewDegradesToHandleOnly(t *testing.T) {
	// A ceiling so tight even a summary-tier preview cannot fit: the
	// partial envelope carries only the handle.
	b, _ := testBuilder(t, 256)

	record := map[string]any{}
	for f := 0; f < 60; f++ {
		record[fmt.Sprintf("field_%02d", f)] = strings.Repeat("v", 500)
	}

	env := b.Build(context.Background(), record, BuildOptions{
		Tool:      "jobs_get",
		Verbosity: VerbosityRaw,
	})
	if env.Status != StatusPartial {
		t.Fatalf("Status = %q, want partial", env.Status)
	}
	if env.ResultHandle == "" {
		t.Fatal("partial envelope missing result_handle")
	}
	if env.Summary != nil {
		t.Errorf("Summary = %v, want none", env.Summary)
	}
	if env.SizeBytes != 0 {
		t.Errorf("SizeBytes = %d, want 0", env.SizeBytes)
	}
}

func TestBuild_ErrorEnvelopeOnUnserializable(t *testing.T) {
	b, _ := testBuilder(t, 25600)

	// channels cannot be JSON-marshaled; the builder must convert the
	// failure into an error envelope, never propagate it.
	env := b.Build(context.Background(), map[string]any{"bad": make(chan int)}, BuildOptions{
		Tool:      "jobs_list",
		Verbosity: VerbosityRaw,
	})

	if env.Status != StatusError {
		t.Fatalf("Status = %q, want error", env.Status)
	}
	if env.Error == nil || env.Error.Code != "INTERNAL" {
		t.Errorf("Error = %+v, want INTERNAL", env.Error)
	}
	if env.ResultHandle != "" {
		t.Error("error envelope should carry no handle")
	}
}

func TestBuild_NilHandleStoreDegrades(t *testing.T) {
	b := NewBuilder(64, nil)

	rows := make([]any, 100)
	for i := range rows {
		rows[i] = map[string]any{"jnid": strings.Repeat("x", 50)}
	}

	env := b.Build(context.Background(), rows, BuildOptions{Tool: "jobs_list", Verbosity: VerbosityRaw})
	if env.Status != StatusError {
		t.Fatalf("Status = %q, want error without a handle store", env.Status)
	}
	if env.Error.Code != "RESPONSE_TOO_LARGE" {
		t.Errorf("Error.Code = %q, want RESPONSE_TOO_LARGE", env.Error.Code)
	}
}

func TestBuild_CompactScenario(t *testing.T) {
	// Scenario: no verbosity/fields against a 50-field record set with 30
	// rows: compact defaults give <= 15 fields and <= 20 rows, status ok
	// when under the ceiling.
	b, _ := testBuilder(t, 25600)

	rows := make([]any, 30)
	for i := range rows {
		record := map[string]any{}
		for f := 0; f < 50; f++ {
			record[fmt.Sprintf("f%02d", f)] = "v"
		}
		rows[i] = record
	}

	env := b.Build(context.Background(), rows, BuildOptions{Tool: "jobs_list", Verbosity: VerbosityCompact})
	if env.Status != StatusOK {
		t.Fatalf("Status = %q, want ok", env.Status)
	}
	if env.RowCount != 20 {
		t.Errorf("RowCount = %d, want 20", env.RowCount)
	}
	if env.FieldCount > 15 {
		t.Errorf("FieldCount = %d, want <= 15", env.FieldCount)
	}
}

func TestBuild_ExplicitOverrideScenario(t *testing.T) {
	// Scenario: verbosity raw with fields "jnid": only jnid survives, for
	// every row.
	b, _ := testBuilder(t, 25600)

	rows := make([]any, 40)
	for i := range rows {
		rows[i] = map[string]any{"jnid": fmt.Sprintf("j%d", i), "status": "open", "notes": "n"}
	}

	env := b.Build(context.Background(), rows, BuildOptions{
		Tool:      "jobs_list",
		Verbosity: VerbosityRaw,
		Fields:    "jnid",
	})
	if env.Status != StatusOK {
		t.Fatalf("Status = %q", env.Status)
	}
	if env.RowCount != 40 {
		t.Errorf("RowCount = %d, want all 40 rows in raw", env.RowCount)
	}
	for _, row := range env.Summary.([]any) {
		record := row.(map[string]any)
		if len(record) != 1 {
			t.Errorf("row = %#v, want only jnid", record)
		}
	}
}

func TestExpiredEnvelope(t *testing.T) {
	env := ExpiredEnvelope("h_GONE")
	if env.Status != StatusExpired {
		t.Errorf("Status = %q, want expired", env.Status)
	}
	if env.Error == nil || env.Error.Code != "HANDLE_EXPIRED" {
		t.Errorf("Error = %+v", env.Error)
	}
}

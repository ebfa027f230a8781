// Package tools implements the tool-layer operations: per-entity queries
// against JobNimbus, derived analytics, and handle retrieval. Every
// operation funnels its result through the cache wrapper and the envelope
// builder; nothing here returns an unbounded payload.
package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/hailworks/jnmcp/internal/cache"
	"github.com/hailworks/jnmcp/internal/config"
	"github.com/hailworks/jnmcp/internal/errors"
	"github.com/hailworks/jnmcp/internal/jobnimbus"
	"github.com/hailworks/jnmcp/internal/response"
)

// Pagination limits
const (
	DefaultListSize = 20
	MaxListSize     = 100
)

// Deps holds the shared collaborators every operation needs.
type Deps struct {
	Client  *jobnimbus.Client
	Store   cache.Store
	Handles *response.HandleStore
	Builder *response.Builder
	Cfg     *config.Config
}

// NewDeps wires the response-governance core onto a cache store.
func NewDeps(client *jobnimbus.Client, store cache.Store, cfg *config.Config) *Deps {
	handles := response.NewHandleStore(store, time.Duration(cfg.HandleTTLSeconds)*time.Second)
	return &Deps{
		Client:  client,
		Store:   store,
		Handles: handles,
		Builder: response.NewBuilder(cfg.InlineCeilingBytes, handles),
		Cfg:     cfg,
	}
}

func (d *Deps) listTTL() time.Duration {
	return time.Duration(d.Cfg.ListTTLSeconds) * time.Second
}

func (d *Deps) getTTL() time.Duration {
	return time.Duration(d.Cfg.GetTTLSeconds) * time.Second
}

func (d *Deps) analyticsTTL() time.Duration {
	return time.Duration(d.Cfg.AnalyticsTTLSeconds) * time.Second
}

// verbosity validates the requested tier against the configured default.
func (d *Deps) verbosity(requested string) (response.Verbosity, error) {
	fallback := response.Verbosity(d.Cfg.DefaultVerbosity)
	return response.ParseVerbosity(requested, fallback)
}

// ListInput is the common shape of every list-style tool input.
type ListInput struct {
	Size      int    `json:"size,omitempty"`
	From      int    `json:"from,omitempty"`
	Status    string `json:"status,omitempty"`
	DateFrom  string `json:"date_from,omitempty"`
	DateTo    string `json:"date_to,omitempty"`
	Query     string `json:"query,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	SortDesc  bool   `json:"sort_desc,omitempty"`
	Verbosity string `json:"verbosity,omitempty"`
	Fields    string `json:"fields,omitempty"`
}

// GetInput is the common shape of every single-record tool input.
type GetInput struct {
	JNID      string `json:"jnid"`
	Verbosity string `json:"verbosity,omitempty"`
	Fields    string `json:"fields,omitempty"`
}

// keyParams renders a list input as the parameter map for cache keying.
// Every field that affects output is present; absent optionals render as
// the null sentinel inside the key builder.
func (in ListInput) keyParams() map[string]any {
	return map[string]any{
		"size":      in.Size,
		"from":      in.From,
		"status":    orNil(in.Status),
		"date_from": orNil(in.DateFrom),
		"date_to":   orNil(in.DateTo),
		"query":     orNil(in.Query),
		"sort_by":   orNil(in.SortBy),
		"sort_desc": in.SortDesc,
		"verbosity": orNil(in.Verbosity),
		"fields":    orNil(in.Fields),
	}
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// cachedList is the cached form of a fetched-and-filtered entity list:
// pre-projection rows plus the source counts the envelope reports. The
// cache holds raw results, not envelopes, so handle TTLs advertised to a
// caller are always measured from the moment of overflow, not from an
// older cached build.
type cachedList struct {
	TotalFetched  int              `json:"total_fetched"`
	TotalFiltered int              `json:"total_filtered"`
	Rows          []map[string]any `json:"rows"`
}

// listEntity is the shared fetch → filter → sort → window → envelope path
// behind every *_list tool.
func listEntity(ctx context.Context, d *Deps, entity, tool string, in ListInput) (response.Envelope, error) {
	verbosity, err := d.verbosity(in.Verbosity)
	if err != nil {
		return response.Envelope{}, err
	}

	size := in.Size
	if size <= 0 {
		size = DefaultListSize
	}
	if size > MaxListSize {
		size = MaxListSize
	}
	from := max(in.From, 0)

	key := cache.Key(entity, "list", d.Client.Instance(), in.keyParams())

	encoded, _, err := cache.WithCache(ctx, d.Store, key, d.listTTL(), func(ctx context.Context) ([]byte, error) {
		fetched, err := d.Client.FetchAll(ctx, entity)
		if err != nil {
			return nil, err
		}

		filtered := filterRows(fetched, in)
		sortRows(filtered, in.SortBy, in.SortDesc)

		return json.Marshal(cachedList{
			TotalFetched:  len(fetched),
			TotalFiltered: len(filtered),
			Rows:          filtered,
		})
	})
	if err != nil {
		return response.Envelope{}, err
	}

	var list cachedList
	if err := json.Unmarshal(encoded, &list); err != nil {
		return response.Envelope{}, errors.NewInternal(err)
	}

	window := pageWindow(list.Rows, from, size)

	env := d.Builder.Build(ctx, rowsAny(window), response.BuildOptions{
		Tool:          tool,
		Verbosity:     verbosity,
		Fields:        in.Fields,
		TotalFetched:  list.TotalFetched,
		TotalFiltered: list.TotalFiltered,
	})
	return env, nil
}

// getEntity is the shared fetch → envelope path behind every *_get tool.
func getEntity(ctx context.Context, d *Deps, entity, tool string, in GetInput) (response.Envelope, error) {
	jnid := strings.TrimSpace(in.JNID)
	if jnid == "" {
		return response.Envelope{}, errors.NewInvalidRequest("jnid is required")
	}

	verbosity, err := d.verbosity(in.Verbosity)
	if err != nil {
		return response.Envelope{}, err
	}

	key := cache.Key(entity, "get", d.Client.Instance(), map[string]any{
		"jnid":      jnid,
		"verbosity": orNil(in.Verbosity),
		"fields":    orNil(in.Fields),
	})

	encoded, _, err := cache.WithCache(ctx, d.Store, key, d.getTTL(), func(ctx context.Context) ([]byte, error) {
		record, err := d.Client.Get(ctx, entity, jnid)
		if err != nil {
			return nil, err
		}
		return json.Marshal(record)
	})
	if err != nil {
		return response.Envelope{}, err
	}

	var record map[string]any
	if err := json.Unmarshal(encoded, &record); err != nil {
		return response.Envelope{}, errors.NewInternal(err)
	}

	env := d.Builder.Build(ctx, record, response.BuildOptions{
		Tool:         tool,
		Verbosity:    verbosity,
		Fields:       in.Fields,
		TotalFetched: 1,
	})
	return env, nil
}

// pageWindow slices rows to the requested page, clamping out-of-range
// offsets to an empty page.
func pageWindow(rows []map[string]any, from, size int) []map[string]any {
	if from >= len(rows) {
		return nil
	}
	end := from + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[from:end]
}

func rowsAny(rows []map[string]any) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// filterRows applies the list input's client-side filters: status match,
// date_created range, and free-text search over identifying fields.
func filterRows(rows []map[string]any, in ListInput) []map[string]any {
	var fromUnix, toUnix int64
	if in.DateFrom != "" {
		if t, err := time.Parse("2006-01-02", in.DateFrom); err == nil {
			fromUnix = t.Unix()
		}
	}
	if in.DateTo != "" {
		if t, err := time.Parse("2006-01-02", in.DateTo); err == nil {
			// Inclusive end of day
			toUnix = t.Add(24*time.Hour - time.Second).Unix()
		}
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if in.Status != "" && !statusMatches(row, in.Status) {
			continue
		}
		if fromUnix > 0 || toUnix > 0 {
			created := numberField(row, "date_created")
			if fromUnix > 0 && created < fromUnix {
				continue
			}
			if toUnix > 0 && created > toUnix {
				continue
			}
		}
		if in.Query != "" && !textMatches(row, in.Query) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func statusMatches(row map[string]any, status string) bool {
	for _, field := range []string{"status_name", "status"} {
		if v, ok := row[field].(string); ok && strings.EqualFold(v, status) {
			return true
		}
	}
	return false
}

// searchFields are the fields free-text search inspects.
var searchFields = []string{
	"display_name", "name", "first_name", "last_name", "company",
	"number", "email", "description", "address_line1", "city",
}

func textMatches(row map[string]any, query string) bool {
	query = strings.ToLower(query)
	for _, field := range searchFields {
		if v, ok := row[field].(string); ok && strings.Contains(strings.ToLower(v), query) {
			return true
		}
	}
	return false
}

func numberField(row map[string]any, field string) int64 {
	if v, ok := row[field].(float64); ok {
		return int64(v)
	}
	return 0
}

// sortRows orders rows by the named field, numbers before strings, stable
// for equal keys. An empty sortBy leaves the upstream order untouched.
func sortRows(rows []map[string]any, sortBy string, desc bool) {
	if sortBy == "" {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return compareField(rows[j][sortBy], rows[i][sortBy])
		}
		return compareField(rows[i][sortBy], rows[j][sortBy])
	})
}

func compareField(a, b any) bool {
	an, aIsNum := a.(float64)
	bn, bIsNum := b.(float64)
	if aIsNum && bIsNum {
		return an < bn
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as < bs
	}
	// Mixed or missing: numbers sort before strings, present before absent.
	// Uncomparable values (arrays, objects) never order before anything.
	if aIsNum != bIsNum {
		return aIsNum
	}
	return aIsStr && !bIsStr
}

package response

import (
	"sort"

	"github.com/hailworks/jnmcp/internal/errors"
)

// Verbosity selects a preset field/row budget for projected responses.
type Verbosity string

const (
	VerbositySummary  Verbosity = "summary"
	VerbosityCompact  Verbosity = "compact"
	VerbosityDetailed Verbosity = "detailed"
	VerbosityRaw      Verbosity = "raw"
)

// tierPolicy fixes the field and row caps per tier. Zero means unbounded.
type tierPolicy struct {
	fieldCap int
	rowCap   int
}

var tierPolicies = map[Verbosity]tierPolicy{
	VerbositySummary:  {fieldCap: 5, rowCap: 5},
	VerbosityCompact:  {fieldCap: 15, rowCap: 20},
	VerbosityDetailed: {fieldCap: 50, rowCap: 50},
	VerbosityRaw:      {fieldCap: 0, rowCap: 0},
}

// ParseVerbosity validates a verbosity string, substituting fallback for
// an empty value.
func ParseVerbosity(s string, fallback Verbosity) (Verbosity, error) {
	if s == "" {
		return fallback, nil
	}
	v := Verbosity(s)
	if _, ok := tierPolicies[v]; !ok {
		return "", errors.NewInvalidRequest("verbosity must be one of summary|compact|detailed|raw")
	}
	return v, nil
}

// maxStringRunes bounds any individual string value, independent of tier,
// so a single huge note field cannot blow the size budget even in raw mode.
const maxStringRunes = 500

// ellipsis marks a truncated string value.
const ellipsis = "…"

// preferredFieldOrder ranks identifying fields first so lower tiers keep
// the fields a caller most likely wants, and so lower tiers are prefixes
// of higher ones. Everything else sorts lexicographically after these.
var preferredFieldOrder = []string{
	"jnid", "number", "display_name", "name", "first_name", "last_name",
	"company", "status_name", "status", "record_type_name", "type",
	"total", "subtotal", "date_created", "date_updated", "date_status_change",
	"email", "home_phone", "mobile_phone", "sales_rep_name", "related",
}

var preferredFieldRank = func() map[string]int {
	m := make(map[string]int, len(preferredFieldOrder))
	for i, name := range preferredFieldOrder {
		m[name] = i
	}
	return m
}()

// ProjectOptions control one projection pass.
type ProjectOptions struct {
	Verbosity Verbosity
	// Fields, when non-nil, overrides the tier's default field set.
	// It never overrides the tier's row cap.
	Fields *fieldNode
	// RowCap, when positive, overrides the tier's row cap.
	RowCap int
}

// Projection is the reduced-shape result of a projection pass. Counts are
// post-projection; source totals travel separately on the envelope.
type Projection struct {
	Rows       []any
	Single     bool // input was one record, not an array
	FieldCount int
	RowCount   int
	Truncated  bool
}

// Data returns the projected payload in the caller's original shape.
func (p Projection) Data() any {
	if p.Single {
		if len(p.Rows) == 0 {
			return nil
		}
		return p.Rows[0]
	}
	return p.Rows
}

// Project reduces data (a record or array of records, as decoded JSON) to
// the requested verbosity tier or explicit field selection. Row order is
// preserved; the projector never re-sorts.
func Project(data any, opts ProjectOptions) Projection {
	policy := tierPolicies[opts.Verbosity]
	rowCap := policy.rowCap
	if opts.RowCap > 0 {
		rowCap = opts.RowCap
	}

	rows, single := asRows(data)

	truncated := false
	if rowCap > 0 && len(rows) > rowCap {
		rows = rows[:rowCap]
		truncated = true
	}

	projected := make([]any, 0, len(rows))
	fieldSet := map[string]bool{}
	for _, row := range rows {
		var out any
		var cut bool
		if opts.Fields != nil {
			out, _ = applyFields(row, opts.Fields)
		} else {
			out, cut = applyTierFields(row, policy.fieldCap)
			truncated = truncated || cut
		}
		out, cut = truncateStrings(out)
		truncated = truncated || cut
		if record, ok := out.(map[string]any); ok {
			for name := range record {
				fieldSet[name] = true
			}
		}
		projected = append(projected, out)
	}

	return Projection{
		Rows:       projected,
		Single:     single,
		FieldCount: len(fieldSet),
		RowCount:   len(projected),
		Truncated:  truncated,
	}
}

// asRows normalizes a record-or-array payload to a row slice.
func asRows(data any) (rows []any, single bool) {
	switch typed := data.(type) {
	case nil:
		return nil, false
	case []any:
		return typed, false
	case []map[string]any:
		rows = make([]any, len(typed))
		for i, r := range typed {
			rows[i] = r
		}
		return rows, false
	default:
		return []any{typed}, true
	}
}

// applyTierFields keeps the first fieldCap fields of a record in preferred
// order. Non-record rows pass through untouched.
func applyTierFields(row any, fieldCap int) (any, bool) {
	if fieldCap <= 0 {
		return row, false
	}
	record, ok := row.(map[string]any)
	if !ok {
		return row, false
	}
	if len(record) <= fieldCap {
		return record, false
	}

	names := make([]string, 0, len(record))
	for name := range record {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, iok := preferredFieldRank[names[i]]
		rj, jok := preferredFieldRank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		default:
			return names[i] < names[j]
		}
	})

	out := make(map[string]any, fieldCap)
	for _, name := range names[:fieldCap] {
		out[name] = record[name]
	}
	return out, true
}

// truncateStrings walks a projected value and cuts any string longer than
// maxStringRunes, appending an ellipsis marker. Applies in every tier,
// raw included.
func truncateStrings(value any) (any, bool) {
	switch typed := value.(type) {
	case string:
		runes := []rune(typed)
		if len(runes) <= maxStringRunes {
			return typed, false
		}
		return string(runes[:maxStringRunes]) + ellipsis, true
	case map[string]any:
		cut := false
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			nv, c := truncateStrings(v)
			out[k] = nv
			cut = cut || c
		}
		return out, cut
	case []any:
		cut := false
		out := make([]any, len(typed))
		for i, v := range typed {
			nv, c := truncateStrings(v)
			out[i] = nv
			cut = cut || c
		}
		return out, cut
	default:
		return value, false
	}
}

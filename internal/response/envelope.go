package response

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hailworks/jnmcp/internal/errors"
)

// Envelope statuses. Callers always receive a structured envelope with one
// of these; nothing in this package throws past the builder boundary.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusError   = "error"
	StatusExpired = "expired"
)

// Envelope is the unit returned by the core to a tool: status, the
// (possibly projected) payload, size metadata, and an optional handle
// reference when the full result was parked out-of-band. Never mutated
// after construction.
type Envelope struct {
	Status        string     `json:"status"`
	Summary       any        `json:"summary,omitempty"`
	SizeBytes     int        `json:"size_bytes"`
	FieldCount    int        `json:"field_count"`
	RowCount      int        `json:"row_count"`
	Truncated     bool       `json:"truncated"`
	TotalFetched  int        `json:"total_fetched,omitempty"`
	TotalFiltered int        `json:"total_filtered,omitempty"`
	ResultHandle  string     `json:"result_handle,omitempty"`
	ExpiresInSec  int        `json:"expires_in_sec,omitempty"`
	Error         *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo carries a typed error inside an envelope.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BuildOptions configure one envelope build.
type BuildOptions struct {
	// Tool tags the owning tool for handle traceability.
	Tool string
	// Verbosity tier; must already be validated via ParseVerbosity.
	Verbosity Verbosity
	// Fields is the raw comma-separated field spec, empty for tier defaults.
	Fields string
	// RowCap, when positive, overrides the tier row cap.
	RowCap int
	// TotalFetched / TotalFiltered are source counts supplied by the
	// caller (pre-projection), reported alongside post-projection counts.
	TotalFetched  int
	TotalFiltered int
}

// Builder orchestrates projection, size measurement, and the overflow
// decision. It is the last line of defense before the transport: every
// internal failure becomes an error envelope, never a panic or raw error.
type Builder struct {
	ceilingBytes int
	previewRows  int
	handles      *HandleStore
}

// previewRowCount is the number of already-projected rows inlined next to
// a result handle. Inlining is the common path; overflow is the exception.
const previewRowCount = 3

// NewBuilder creates a Builder with the configured inline ceiling. The
// handle store may be nil, in which case oversized results degrade to
// error envelopes instead of handles.
func NewBuilder(ceilingBytes int, handles *HandleStore) *Builder {
	return &Builder{
		ceilingBytes: ceilingBytes,
		previewRows:  previewRowCount,
		handles:      handles,
	}
}

// Build projects data per opts and returns an inline envelope when the
// serialized payload fits the ceiling, or a partial envelope referencing a
// stored handle when it does not.
func (b *Builder) Build(ctx context.Context, data any, opts BuildOptions) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("envelope build panic for %s: %v", opts.Tool, r)
			env = errorEnvelope(errors.NewInternal(fmt.Errorf("envelope build: %v", r)))
		}
	}()

	projection := Project(data, ProjectOptions{
		Verbosity: opts.Verbosity,
		Fields:    ParseFields(opts.Fields),
		RowCap:    opts.RowCap,
	})

	serialized, err := json.Marshal(projection.Data())
	if err != nil {
		return errorEnvelope(errors.NewInternal(err))
	}

	if len(serialized) <= b.ceilingBytes {
		return Envelope{
			Status:        StatusOK,
			Summary:       projection.Data(),
			SizeBytes:     len(serialized),
			FieldCount:    projection.FieldCount,
			RowCount:      projection.RowCount,
			Truncated:     projection.Truncated,
			TotalFetched:  opts.TotalFetched,
			TotalFiltered: opts.TotalFiltered,
		}
	}

	// Over the ceiling: park the unprojected original out-of-band and
	// inline only a preview of the already-projected rows.
	if b.handles == nil {
		return errorEnvelope(errors.NewResponseTooLarge(len(serialized), b.ceilingBytes))
	}

	handle, err := b.handles.Put(ctx, data, opts.Tool)
	if err != nil {
		log.Printf("handle store write failed for %s: %v", opts.Tool, err)
		return errorEnvelope(errors.NewResponseTooLarge(len(serialized), b.ceilingBytes))
	}

	preview, previewBytes, err := b.buildPreview(data, projection)
	if err != nil {
		return errorEnvelope(errors.NewInternal(err))
	}

	return Envelope{
		Status:        StatusPartial,
		Summary:       preview.Data(),
		SizeBytes:     len(previewBytes),
		FieldCount:    preview.FieldCount,
		RowCount:      preview.RowCount,
		Truncated:     true,
		TotalFetched:  opts.TotalFetched,
		TotalFiltered: opts.TotalFiltered,
		ResultHandle:  handle,
		ExpiresInSec:  int(b.handles.TTL().Seconds()),
	}
}

// buildPreview shapes the inline payload of a partial envelope. The ceiling
// binds the preview too: a few raw-tier rows or one parked fat record can
// exceed it on their own, so the preview degrades until it fits. First the
// leading projected rows, then a summary-tier re-projection, and as a last
// resort no inline payload at all, leaving only the handle.
func (b *Builder) buildPreview(data any, projection Projection) (Projection, []byte, error) {
	preview := projection
	if len(preview.Rows) > b.previewRows {
		preview.Rows = preview.Rows[:b.previewRows]
	}
	preview.RowCount = len(preview.Rows)
	preview.Truncated = true

	previewBytes, err := json.Marshal(preview.Data())
	if err != nil {
		return Projection{}, nil, err
	}

	for len(previewBytes) > b.ceilingBytes && len(preview.Rows) > 1 {
		preview.Rows = preview.Rows[:len(preview.Rows)/2]
		preview.RowCount = len(preview.Rows)
		if previewBytes, err = json.Marshal(preview.Data()); err != nil {
			return Projection{}, nil, err
		}
	}

	if len(previewBytes) > b.ceilingBytes {
		preview = Project(data, ProjectOptions{
			Verbosity: VerbositySummary,
			RowCap:    b.previewRows,
		})
		preview.Truncated = true
		if previewBytes, err = json.Marshal(preview.Data()); err != nil {
			return Projection{}, nil, err
		}
	}

	if len(previewBytes) > b.ceilingBytes {
		preview = Projection{Single: preview.Single, Truncated: true}
		previewBytes = nil
	}

	return preview, previewBytes, nil
}

// errorEnvelope converts a typed error into a terminal error envelope.
func errorEnvelope(err *errors.JNError) Envelope {
	return Envelope{
		Status: StatusError,
		Error: &ErrorInfo{
			Code:    string(err.Code),
			Message: err.Message,
		},
	}
}

// ExpiredEnvelope is returned by the fetch-by-handle path for a handle
// past its TTL or never issued.
func ExpiredEnvelope(handle string) Envelope {
	jnErr := errors.NewHandleExpired(handle)
	return Envelope{
		Status: StatusExpired,
		Error: &ErrorInfo{
			Code:    string(jnErr.Code),
			Message: jnErr.Message,
		},
	}
}

package tools

import (
	"context"
	"strings"

	"github.com/hailworks/jnmcp/internal/errors"
	"github.com/hailworks/jnmcp/internal/response"
)

// ResultFetchInput identifies a stored overflow result.
type ResultFetchInput struct {
	Handle    string `json:"result_handle"`
	Fields    string `json:"fields,omitempty"`
	Verbosity string `json:"verbosity,omitempty"`
}

// ResultFetch retrieves a parked result by handle, optionally narrowing
// fields on the way out. The retrieved data runs back through the envelope
// builder, so the inline ceiling holds even for a raw re-fetch: a result
// still too large comes back as a fresh partial envelope.
func ResultFetch(ctx context.Context, d *Deps, in ResultFetchInput) (response.Envelope, error) {
	handle := strings.TrimSpace(in.Handle)
	if handle == "" {
		return response.Envelope{}, errors.NewInvalidRequest("result_handle is required")
	}

	verbosity := response.VerbosityRaw
	if in.Verbosity != "" {
		parsed, err := d.verbosity(in.Verbosity)
		if err != nil {
			return response.Envelope{}, err
		}
		verbosity = parsed
	}

	data, tag, err := d.Handles.Get(ctx, handle, in.Fields)
	if err != nil {
		if errors.Is(err, errors.ErrHandleExpired) {
			return response.ExpiredEnvelope(handle), nil
		}
		return response.Envelope{}, err
	}

	env := d.Builder.Build(ctx, data, response.BuildOptions{
		Tool:      tag,
		Verbosity: verbosity,
	})
	return env, nil
}

package tools

import (
	"context"
	"strings"

	"github.com/hailworks/jnmcp/internal/errors"
	"github.com/hailworks/jnmcp/internal/response"
)

// JobsList retrieves jobs with optional status/date/text filters.
func JobsList(ctx context.Context, d *Deps, in ListInput) (response.Envelope, error) {
	return listEntity(ctx, d, "jobs", "jobs_list", in)
}

// JobsGet retrieves one job by jnid.
func JobsGet(ctx context.Context, d *Deps, in GetInput) (response.Envelope, error) {
	return getEntity(ctx, d, "jobs", "jobs_get", in)
}

// JobsSearch is JobsList with a required free-text query.
func JobsSearch(ctx context.Context, d *Deps, in ListInput) (response.Envelope, error) {
	if strings.TrimSpace(in.Query) == "" {
		return response.Envelope{}, errors.NewInvalidRequest("query is required")
	}
	return listEntity(ctx, d, "jobs", "jobs_search", in)
}

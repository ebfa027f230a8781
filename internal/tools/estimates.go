package tools

import (
	"context"

	"github.com/hailworks/jnmcp/internal/response"
)

// EstimatesList retrieves estimates with optional filters.
func EstimatesList(ctx context.Context, d *Deps, in ListInput) (response.Envelope, error) {
	return listEntity(ctx, d, "estimates", "estimates_list", in)
}

// EstimatesGet retrieves one estimate by jnid.
func EstimatesGet(ctx context.Context, d *Deps, in GetInput) (response.Envelope, error) {
	return getEntity(ctx, d, "estimates", "estimates_get", in)
}

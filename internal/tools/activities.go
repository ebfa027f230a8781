package tools

import (
	"context"

	"github.com/hailworks/jnmcp/internal/response"
)

// ActivitiesList retrieves activity records with optional filters.
func ActivitiesList(ctx context.Context, d *Deps, in ListInput) (response.Envelope, error) {
	return listEntity(ctx, d, "activities", "activities_list", in)
}

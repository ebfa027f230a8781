package tools

import (
	"context"

	"github.com/hailworks/jnmcp/internal/response"
)

// TasksList retrieves tasks with optional filters.
func TasksList(ctx context.Context, d *Deps, in ListInput) (response.Envelope, error) {
	return listEntity(ctx, d, "tasks", "tasks_list", in)
}

// TasksGet retrieves one task by jnid.
func TasksGet(ctx context.Context, d *Deps, in GetInput) (response.Envelope, error) {
	return getEntity(ctx, d, "tasks", "tasks_get", in)
}

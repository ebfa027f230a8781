package tools

import (
	"context"

	"github.com/hailworks/jnmcp/internal/response"
)

// ContactsList retrieves contacts with optional filters.
func ContactsList(ctx context.Context, d *Deps, in ListInput) (response.Envelope, error) {
	return listEntity(ctx, d, "contacts", "contacts_list", in)
}

// ContactsGet retrieves one contact by jnid.
func ContactsGet(ctx context.Context, d *Deps, in GetInput) (response.Envelope, error) {
	return getEntity(ctx, d, "contacts", "contacts_get", in)
}

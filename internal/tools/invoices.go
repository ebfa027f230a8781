package tools

import (
	"context"

	"github.com/hailworks/jnmcp/internal/response"
)

// InvoicesList retrieves invoices with optional filters.
func InvoicesList(ctx context.Context, d *Deps, in ListInput) (response.Envelope, error) {
	return listEntity(ctx, d, "invoices", "invoices_list", in)
}

// InvoicesGet retrieves one invoice by jnid.
func InvoicesGet(ctx context.Context, d *Deps, in GetInput) (response.Envelope, error) {
	return getEntity(ctx, d, "invoices", "invoices_get", in)
}

package payments

import (
	"context"

	"salesflow/internal/core/id"
)

// Repository persists the payment ledger. There is no Update or Delete:
// the ledger is append-only.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, paymentID id.ID) (*Payment, error)
	ListByInvoice(ctx context.Context, invoiceID id.ID) ([]Payment, error)
	ListByCustomer(ctx context.Context, customerID id.ID, limit, offset int) ([]Payment, error)
}

package customers

import (
	"context"

	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
)

// Repository persists customers. Update uses optimistic locking on the
// version column; AdjustOutstanding must be an atomic in-place update.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
	Get(ctx context.Context, customerID id.ID) (*Customer, error)
	GetForUpdate(ctx context.Context, customerID id.ID) (*Customer, error)
	List(ctx context.Context, limit, offset int) ([]Customer, error)

	// AdjustOutstanding adds delta (possibly negative) to the customer's
	// outstanding amount and returns the new value.
	AdjustOutstanding(ctx context.Context, customerID id.ID, delta types.Money) (types.Money, error)

	// SetOutstanding overwrites the aggregate, used by reconciliation.
	SetOutstanding(ctx context.Context, customerID id.ID, amount types.Money) error
}

// OutstandingSource computes the true unpaid balance from the invoice
// ledger. Implemented by the invoice repository; kept abstract here to
// avoid a dependency on the invoices package.
type OutstandingSource interface {
	SumOutstanding(ctx context.Context, customerID id.ID) (types.Money, error)
}

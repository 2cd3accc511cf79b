package invoices

import (
	"context"
	"time"

	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
)

// Repository persists invoices and their items. Items are written once
// at creation; Update touches only the header (paid amount, statuses).
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Update(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, invoiceID id.ID) (*Invoice, error)
	GetForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error)
	GetByOrder(ctx context.Context, orderID id.ID) (*Invoice, error)
	List(ctx context.Context, filter Filter) ([]Invoice, error)

	// SumOutstanding totals total_amount - paid_amount over the
	// customer's active invoices. Backs balance reconciliation.
	SumOutstanding(ctx context.Context, customerID id.ID) (types.Money, error)
}

// Filter narrows List results.
type Filter struct {
	CustomerID    *id.ID
	PaymentStatus *string
	FromDate      *time.Time
	ToDate        *time.Time
	Limit         int
	Offset        int
}

package returns

import (
	"context"

	"salesflow/internal/core/id"
)

// Repository persists returns together with their items.
type Repository interface {
	Create(ctx context.Context, r *ProductReturn) error
	Update(ctx context.Context, r *ProductReturn) error
	Get(ctx context.Context, returnID id.ID) (*ProductReturn, error)
	GetForUpdate(ctx context.Context, returnID id.ID) (*ProductReturn, error)
	List(ctx context.Context, filter Filter) ([]ProductReturn, error)
}

// Filter narrows List results.
type Filter struct {
	CustomerID *id.ID
	InvoiceID  *id.ID
	Status     *Status
	Limit      int
	Offset     int
}

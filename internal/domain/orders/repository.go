package orders

import (
	"context"
	"time"

	"salesflow/internal/core/id"
)

// Repository persists orders together with their items. Update replaces
// the item set and bumps the optimistic-lock version.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	Get(ctx context.Context, orderID id.ID) (*Order, error)
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)
	List(ctx context.Context, filter Filter) ([]Order, error)
}

// Filter narrows List results.
type Filter struct {
	CustomerID *id.ID
	Status     *Status
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

package transfers

import (
	"context"

	"salesflow/internal/core/id"
)

// Repository persists transfers together with their items.
type Repository interface {
	Create(ctx context.Context, t *Transfer) error
	Update(ctx context.Context, t *Transfer) error
	Get(ctx context.Context, transferID id.ID) (*Transfer, error)
	GetForUpdate(ctx context.Context, transferID id.ID) (*Transfer, error)
	List(ctx context.Context, filter Filter) ([]Transfer, error)
}

// Filter narrows List results.
type Filter struct {
	FromHubID *id.ID
	ToHubID   *id.ID
	Status    *Status
	Limit     int
	Offset    int
}

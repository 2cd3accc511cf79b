package orders

import (
	"context"
	"sort"
	"sync"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
)

// MemoryRepository is an in-memory Repository for unit tests.
type MemoryRepository struct {
	mu     sync.Mutex
	orders map[id.ID]*Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[id.ID]*Order)}
}

func (r *MemoryRepository) Create(ctx context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.ID]; ok {
		return apperror.NewDuplicate("order", "id", o.ID.String())
	}
	r.orders[o.ID] = clone(o)
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[o.ID]
	if !ok {
		return apperror.NewNotFound("order", o.ID)
	}
	if stored.Version != o.Version {
		return apperror.NewConcurrentModification("order", o.ID.String())
	}
	cp := clone(o)
	cp.Version++
	r.orders[o.ID] = cp
	o.Version = cp.Version
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, orderID id.ID) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID)
	}
	return clone(o), nil
}

func (r *MemoryRepository) GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error) {
	return r.Get(ctx, orderID)
}

func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Order
	for _, o := range r.orders {
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.FromDate != nil && o.Date.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && o.Date.After(*filter.ToDate) {
			continue
		}
		out = append(out, *clone(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })

	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func clone(o *Order) *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	return &cp
}

var _ Repository = (*MemoryRepository)(nil)

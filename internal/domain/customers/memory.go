package customers

import (
	"context"
	"sort"
	"sync"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
)

// MemoryRepository is an in-memory Repository for unit tests.
type MemoryRepository struct {
	mu        sync.Mutex
	customers map[id.ID]*Customer
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{customers: make(map[id.ID]*Customer)}
}

func (r *MemoryRepository) Create(ctx context.Context, c *Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.customers[c.ID]; ok {
		return apperror.NewDuplicate("customer", "id", c.ID.String())
	}
	cp := *c
	r.customers[c.ID] = &cp
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, c *Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.customers[c.ID]
	if !ok {
		return apperror.NewNotFound("customer", c.ID)
	}
	if stored.Version != c.Version {
		return apperror.NewConcurrentModification("customer", c.ID.String())
	}
	cp := *c
	cp.Version++
	r.customers[c.ID] = &cp
	c.Version = cp.Version
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, customerID id.ID) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(customerID)
}

func (r *MemoryRepository) GetForUpdate(ctx context.Context, customerID id.ID) (*Customer, error) {
	return r.Get(ctx, customerID)
}

func (r *MemoryRepository) List(ctx context.Context, limit, offset int) ([]Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) AdjustOutstanding(ctx context.Context, customerID id.ID, delta types.Money) (types.Money, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.get(customerID)
	if err != nil {
		return types.Zero(), err
	}
	next := c.OutstandingAmount.Add(delta)
	r.customers[customerID].OutstandingAmount = next
	return next, nil
}

func (r *MemoryRepository) SetOutstanding(ctx context.Context, customerID id.ID, amount types.Money) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.customers[customerID]; !ok {
		return apperror.NewNotFound("customer", customerID)
	}
	r.customers[customerID].OutstandingAmount = amount
	return nil
}

func (r *MemoryRepository) get(customerID id.ID) (*Customer, error) {
	c, ok := r.customers[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID)
	}
	cp := *c
	return &cp, nil
}

var _ Repository = (*MemoryRepository)(nil)

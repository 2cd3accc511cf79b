package returns

import (
	"context"
	"sort"
	"sync"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
)

// MemoryRepository is an in-memory Repository for unit tests.
type MemoryRepository struct {
	mu      sync.Mutex
	returns map[id.ID]*ProductReturn
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{returns: make(map[id.ID]*ProductReturn)}
}

func (r *MemoryRepository) Create(ctx context.Context, pr *ProductReturn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.returns[pr.ID]; ok {
		return apperror.NewDuplicate("return", "id", pr.ID.String())
	}
	r.returns[pr.ID] = cloneReturn(pr)
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, pr *ProductReturn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.returns[pr.ID]
	if !ok {
		return apperror.NewNotFound("return", pr.ID)
	}
	if stored.Version != pr.Version {
		return apperror.NewConcurrentModification("return", pr.ID.String())
	}
	cp := cloneReturn(pr)
	cp.Version++
	r.returns[pr.ID] = cp
	pr.Version = cp.Version
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, returnID id.ID) (*ProductReturn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pr, ok := r.returns[returnID]
	if !ok {
		return nil, apperror.NewNotFound("return", returnID)
	}
	return cloneReturn(pr), nil
}

func (r *MemoryRepository) GetForUpdate(ctx context.Context, returnID id.ID) (*ProductReturn, error) {
	return r.Get(ctx, returnID)
}

func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]ProductReturn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ProductReturn
	for _, pr := range r.returns {
		if filter.CustomerID != nil && pr.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.InvoiceID != nil && pr.InvoiceID != *filter.InvoiceID {
			continue
		}
		if filter.Status != nil && pr.Status != *filter.Status {
			continue
		}
		out = append(out, *cloneReturn(pr))
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

func cloneReturn(pr *ProductReturn) *ProductReturn {
	cp := *pr
	cp.Items = append([]Item(nil), pr.Items...)
	return &cp
}

var _ Repository = (*MemoryRepository)(nil)

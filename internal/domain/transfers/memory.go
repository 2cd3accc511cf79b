package transfers

import (
	"context"
	"sort"
	"sync"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
)

// MemoryRepository is an in-memory Repository for unit tests.
type MemoryRepository struct {
	mu        sync.Mutex
	transfers map[id.ID]*Transfer
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{transfers: make(map[id.ID]*Transfer)}
}

func (r *MemoryRepository) Create(ctx context.Context, t *Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.transfers[t.ID]; ok {
		return apperror.NewDuplicate("transfer", "id", t.ID.String())
	}
	r.transfers[t.ID] = cloneTransfer(t)
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, t *Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.transfers[t.ID]
	if !ok {
		return apperror.NewNotFound("transfer", t.ID)
	}
	if stored.Version != t.Version {
		return apperror.NewConcurrentModification("transfer", t.ID.String())
	}
	cp := cloneTransfer(t)
	cp.Version++
	r.transfers[t.ID] = cp
	t.Version = cp.Version
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, transferID id.ID) (*Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transfers[transferID]
	if !ok {
		return nil, apperror.NewNotFound("transfer", transferID)
	}
	return cloneTransfer(t), nil
}

func (r *MemoryRepository) GetForUpdate(ctx context.Context, transferID id.ID) (*Transfer, error) {
	return r.Get(ctx, transferID)
}

func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Transfer
	for _, t := range r.transfers {
		if filter.FromHubID != nil && t.FromHubID != *filter.FromHubID {
			continue
		}
		if filter.ToHubID != nil && t.ToHubID != *filter.ToHubID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *cloneTransfer(t))
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

func cloneTransfer(t *Transfer) *Transfer {
	cp := *t
	cp.Items = append([]Item(nil), t.Items...)
	return &cp
}

var _ Repository = (*MemoryRepository)(nil)

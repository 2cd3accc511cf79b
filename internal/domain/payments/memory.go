package payments

import (
	"context"
	"sort"
	"sync"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
)

// MemoryRepository is an in-memory Repository for unit tests.
type MemoryRepository struct {
	mu       sync.Mutex
	payments map[id.ID]*Payment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{payments: make(map[id.ID]*Payment)}
}

func (r *MemoryRepository) Create(ctx context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[p.ID]; ok {
		return apperror.NewDuplicate("payment", "id", p.ID.String())
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, paymentID id.ID) (*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[paymentID]
	if !ok {
		return nil, apperror.NewNotFound("payment", paymentID)
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Payment
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, *p)
		}
	}
	sortByNumber(out)
	return out, nil
}

func (r *MemoryRepository) ListByCustomer(ctx context.Context, customerID id.ID, limit, offset int) ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Payment
	for _, p := range r.payments {
		if p.CustomerID == customerID {
			out = append(out, *p)
		}
	}
	sortByNumber(out)

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func sortByNumber(out []Payment) {
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
}

var _ Repository = (*MemoryRepository)(nil)

package invoices

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
	mu       sync.Mutex
	invoices map[id.ID]*Invoice
	byOrder  map[id.ID]id.ID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		invoices: make(map[id.ID]*Invoice),
		byOrder:  make(map[id.ID]id.ID),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, inv *Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.invoices[inv.ID]; ok {
		return apperror.NewDuplicate("invoice", "id", inv.ID.String())
	}
	if !id.IsNil(inv.OrderID) {
		if _, ok := r.byOrder[inv.OrderID]; ok {
			return apperror.NewDuplicate("invoice", "order_id", inv.OrderID.String())
		}
		r.byOrder[inv.OrderID] = inv.ID
	}
	r.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, inv *Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.invoices[inv.ID]
	if !ok {
		return apperror.NewNotFound("invoice", inv.ID)
	}
	if stored.Version != inv.Version {
		return apperror.NewConcurrentModification("invoice", inv.ID.String())
	}
	cp := cloneInvoice(inv)
	cp.Version++
	r.invoices[inv.ID] = cp
	inv.Version = cp.Version
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invoices[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID)
	}
	return cloneInvoice(inv), nil
}

func (r *MemoryRepository) GetForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	return r.Get(ctx, invoiceID)
}

func (r *MemoryRepository) GetByOrder(ctx context.Context, orderID id.ID) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	invID, ok := r.byOrder[orderID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", orderID)
	}
	return cloneInvoice(r.invoices[invID]), nil
}

func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Invoice
	for _, inv := range r.invoices {
		if filter.CustomerID != nil && inv.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.PaymentStatus != nil && string(inv.PaymentStatus) != *filter.PaymentStatus {
			continue
		}
		if filter.FromDate != nil && inv.Date.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && inv.Date.After(*filter.ToDate) {
			continue
		}
		out = append(out, *cloneInvoice(inv))
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

func (r *MemoryRepository) SumOutstanding(ctx context.Context, customerID id.ID) (types.Money, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := types.Zero()
	for _, inv := range r.invoices {
		if inv.CustomerID != customerID || inv.Status == StatusCancelled {
			continue
		}
		sum = sum.Add(inv.TotalAmount.Sub(inv.PaidAmount))
	}
	return sum, nil
}

func cloneInvoice(inv *Invoice) *Invoice {
	cp := *inv
	cp.Items = append([]Item(nil), inv.Items...)
	return &cp
}

var _ Repository = (*MemoryRepository)(nil)

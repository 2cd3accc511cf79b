package invoices

import (
	"context"
	"sort"
	"time"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/entity"
	"salesflow/internal/core/id"
	"salesflow/internal/core/tx"
	"salesflow/internal/core/types"
	"salesflow/internal/domain/inventory"
	"salesflow/internal/domain/orders"
	"salesflow/pkg/logger"
	"salesflow/pkg/numerator"
)

// OrderSource is the slice of the order API issuance needs.
type OrderSource interface {
	Get(ctx context.Context, orderID id.ID) (*orders.Order, error)
	MarkInvoiced(ctx context.Context, orderID id.ID) (*orders.Order, error)
}

// StockConsumer burns reservations when a confirmed order is invoiced.
type StockConsumer interface {
	Consume(ctx context.Context, lotID id.ID, qty types.Quantity, rec inventory.Ref) error
}

// BalanceAdjuster moves the customer's outstanding balance.
type BalanceAdjuster interface {
	IncreaseOutstanding(ctx context.Context, customerID id.ID, amount types.Money) error
}

// NumberSource issues document numbers.
type NumberSource interface {
	GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error)
}

// Service implements invoice issuance.
type Service struct {
	repo      Repository
	orders    OrderSource
	stock     StockConsumer
	balances  BalanceAdjuster
	numbers   NumberSource
	txManager tx.Manager
}

func NewService(repo Repository, orderSrc OrderSource, stock StockConsumer, balances BalanceAdjuster, numbers NumberSource, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		orders:    orderSrc,
		stock:     stock,
		balances:  balances,
		numbers:   numbers,
		txManager: txManager,
	}
}

// Invoice numbers are a legal sequence: strict, gapless allocation.
var invoiceNumberCfg = numerator.DefaultConfig("INV")

// Issue converts a pending or confirmed order into an invoice. In one
// transaction it snapshots the order's amounts and items, assigns the
// invoice number, transitions the order to invoiced, consumes any stock
// reserved at confirmation and increments the customer's outstanding
// balance.
func (s *Service) Issue(ctx context.Context, orderID id.ID) (*Invoice, error) {
	var inv *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == orders.StatusInvoiced {
			return apperror.NewAlreadyInvoiced(orderID.String())
		}
		if existing, err := s.repo.GetByOrder(ctx, orderID); err == nil && existing != nil {
			return apperror.NewAlreadyInvoiced(orderID.String())
		} else if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if len(o.Items) == 0 {
			return apperror.NewEmptyOrder(orderID.String())
		}
		wasConfirmed := o.Status == orders.StatusConfirmed

		// The transition itself rejects draft and cancelled orders.
		if _, err := s.orders.MarkInvoiced(ctx, orderID); err != nil {
			return err
		}

		number, err := s.numbers.GetNextNumber(ctx, invoiceNumberCfg, numerator.DefaultOptions(), time.Now().UTC())
		if err != nil {
			return err
		}

		inv = snapshot(o, number)
		if err := s.repo.Create(ctx, inv); err != nil {
			return err
		}

		if wasConfirmed {
			rec := inventory.Ref{ID: inv.ID, Type: "Invoice"}
			// Lot-key order keeps lock acquisition deterministic against
			// concurrent order cancels.
			idx := make([]int, len(o.Items))
			for i := range idx {
				idx[i] = i
			}
			sort.Slice(idx, func(a, b int) bool {
				ia, ib := o.Items[idx[a]], o.Items[idx[b]]
				if ia.HubID != ib.HubID {
					return ia.HubID.String() < ib.HubID.String()
				}
				if ia.ProductID != ib.ProductID {
					return ia.ProductID.String() < ib.ProductID.String()
				}
				return ia.BatchNo < ib.BatchNo
			})
			for _, i := range idx {
				if err := s.stock.Consume(ctx, o.Items[i].LotID, o.Items[i].Quantity, rec); err != nil {
					return err
				}
			}
		}

		return s.balances.IncreaseOutstanding(ctx, o.CustomerID, inv.TotalAmount)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice issued",
		"invoice_id", inv.ID,
		"number", inv.Number,
		"order_id", orderID,
		"customer_id", inv.CustomerID,
		"total", inv.TotalAmount)
	return inv, nil
}

func (s *Service) Get(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	return s.repo.Get(ctx, invoiceID)
}

func (s *Service) GetByOrder(ctx context.Context, orderID id.ID) (*Invoice, error) {
	return s.repo.GetByOrder(ctx, orderID)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Invoice, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// MarkOverdue flags every unpaid invoice dated before the cutoff.
func (s *Service) MarkOverdue(ctx context.Context, cutoff time.Time) (int, error) {
	status := string(orders.PaymentPending)
	pending, err := s.repo.List(ctx, Filter{PaymentStatus: &status, ToDate: &cutoff, Limit: 500})
	if err != nil {
		return 0, err
	}
	status = string(orders.PaymentPartial)
	partial, err := s.repo.List(ctx, Filter{PaymentStatus: &status, ToDate: &cutoff, Limit: 500})
	if err != nil {
		return 0, err
	}

	var n int
	for _, inv := range append(pending, partial...) {
		err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			cur, err := s.repo.GetForUpdate(ctx, inv.ID)
			if err != nil {
				return err
			}
			cur.MarkOverdue()
			return s.repo.Update(ctx, cur)
		})
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// snapshot copies the order's amounts and items verbatim.
func snapshot(o *orders.Order, number string) *Invoice {
	inv := &Invoice{
		Document:       entity.NewDocument(),
		CustomerID:     o.CustomerID,
		OrderID:        o.ID,
		Status:         StatusActive,
		PaymentStatus:  orders.PaymentPending,
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		TaxAmount:      o.TaxAmount,
		TotalAmount:    o.TotalAmount,
		PaidAmount:     types.Zero(),
	}
	inv.Number = number

	inv.Items = make([]Item, len(o.Items))
	for i, it := range o.Items {
		inv.Items[i] = Item{
			ID:              id.New(),
			InvoiceID:       inv.ID,
			ProductID:       it.ProductID,
			HubID:           it.HubID,
			BatchNo:         it.BatchNo,
			LotID:           it.LotID,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			DiscountPercent: it.DiscountPercent,
			TaxRate:         it.TaxRate,
			Subtotal:        it.Subtotal,
			DiscountAmount:  it.DiscountAmount,
			TaxableAmount:   it.TaxableAmount,
			TaxAmount:       it.TaxAmount,
			LineTotal:       it.LineTotal,
		}
	}
	return inv
}

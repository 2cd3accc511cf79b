package orders

import (
	"context"
	"sort"
	"time"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/tx"
	"salesflow/internal/core/types"
	"salesflow/internal/domain/inventory"
	"salesflow/internal/domain/pricing"
	"salesflow/pkg/logger"
	"salesflow/pkg/numerator"
)

// StockReserver is the slice of the inventory API orders need:
// resolving a lot by key and moving quantity between available and
// reserved.
type StockReserver interface {
	GetLotByKey(ctx context.Context, hubID, productID id.ID, batchNo string) (*inventory.Lot, error)
	Reserve(ctx context.Context, lotID id.ID, qty types.Quantity) error
	Release(ctx context.Context, lotID id.ID, qty types.Quantity) error
}

// NumberSource issues document numbers.
type NumberSource interface {
	GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error)
}

// Service implements the order lifecycle.
type Service struct {
	repo      Repository
	stock     StockReserver
	numbers   NumberSource
	txManager tx.Manager
}

func NewService(repo Repository, stock StockReserver, numbers NumberSource, txManager tx.Manager) *Service {
	return &Service{repo: repo, stock: stock, numbers: numbers, txManager: txManager}
}

// numberOpts: order numbers are informational, a gap after rollback is
// acceptable, so ranges are cached per instance.
var orderNumberCfg = numerator.DefaultConfig("ORD")

func orderNumberOpts() *numerator.Options {
	return &numerator.Options{Strategy: numerator.StrategyCached, RangeSize: 20}
}

// ItemInput is one requested order line. The caller picks the batch; the
// (hub, product, batch) triple must resolve to an existing lot at
// confirmation time.
type ItemInput struct {
	ProductID       id.ID
	HubID           id.ID
	BatchNo         string
	Quantity        types.Quantity
	UnitPrice       types.Money
	DiscountPercent types.Money
	TaxRate         types.Money
}

// CreateInput describes a new draft order.
type CreateInput struct {
	CustomerID    id.ID
	Items         []ItemInput
	OrderDiscount types.Money
	Comment       string
}

// Create builds a draft order with priced items.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	o := NewOrder(in.CustomerID)
	o.Comment = in.Comment
	o.OrderDiscount = in.OrderDiscount
	if err := o.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.applyItems(o, in.Items, in.OrderDiscount); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numbers.GetNextNumber(ctx, orderNumberCfg, orderNumberOpts(), o.Date)
		if err != nil {
			return err
		}
		o.Number = number
		return s.repo.Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order created",
		"order_id", o.ID,
		"number", o.Number,
		"customer_id", o.CustomerID,
		"total", o.TotalAmount)
	return o, nil
}

// UpdateItems replaces the item set of an editable order and reprices it.
func (s *Service) UpdateItems(ctx context.Context, orderID id.ID, items []ItemInput, orderDiscount types.Money) (*Order, error) {
	var out *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Editable() {
			return apperror.NewIllegalStateTransition("order", string(o.Status), "edit")
		}
		o.OrderDiscount = orderDiscount
		if err := s.applyItems(o, items, orderDiscount); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	return out, err
}

// Submit moves a draft to pending, making it visible for invoicing.
func (s *Service) Submit(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.transition(ctx, orderID, StatusPending, "submit", nil)
}

// Confirm reserves stock for every line and moves the order to
// confirmed. Reservations are taken in lot-key order; if any line cannot
// be reserved the ones already taken are released and the order is left
// untouched.
func (s *Service) Confirm(ctx context.Context, orderID id.ID) (*Order, error) {
	var out *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.transition(StatusConfirmed, "confirm"); err != nil {
			return err
		}
		if len(o.Items) == 0 {
			return apperror.NewEmptyOrder(o.ID.String())
		}
		if err := s.reserveItems(ctx, o); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "order confirmed", "order_id", orderID, "number", out.Number)
	return out, nil
}

// Cancel releases any reservation and closes the order. Invoiced orders
// cannot be cancelled; corrections go through returns.
func (s *Service) Cancel(ctx context.Context, orderID id.ID) (*Order, error) {
	var out *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		wasConfirmed := o.Status == StatusConfirmed
		if err := o.transition(StatusCancelled, "cancel"); err != nil {
			return err
		}
		if wasConfirmed {
			for _, i := range sortedItemIndex(o.Items) {
				if err := s.stock.Release(ctx, o.Items[i].LotID, o.Items[i].Quantity); err != nil {
					return err
				}
			}
		}
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "order cancelled", "order_id", orderID, "number", out.Number)
	return out, nil
}

// MarkInvoiced transitions the order once its invoice is issued. Meant
// to be called inside the issuing transaction.
func (s *Service) MarkInvoiced(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.transition(ctx, orderID, StatusInvoiced, "invoice", nil)
}

// SetPaymentStatus mirrors the invoice's settlement progress onto the
// originating order.
func (s *Service) SetPaymentStatus(ctx context.Context, orderID id.ID, status PaymentStatus) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.PaymentStatus == status {
			return nil
		}
		o.PaymentStatus = status
		return s.repo.Update(ctx, o)
	})
}

func (s *Service) Get(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.Get(ctx, orderID)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Order, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) transition(ctx context.Context, orderID id.ID, to Status, action string, after func(ctx context.Context, o *Order) error) (*Order, error) {
	var out *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.transition(to, action); err != nil {
			return err
		}
		if after != nil {
			if err := after(ctx, o); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	return out, err
}

// applyItems prices the requested lines and writes them onto the order.
func (s *Service) applyItems(o *Order, items []ItemInput, orderDiscount types.Money) error {
	if len(items) == 0 {
		return apperror.NewEmptyOrder(o.ID.String())
	}

	lines := make([]pricing.LineInput, len(items))
	for i, item := range items {
		lines[i] = pricing.LineInput{
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
			TaxRate:         item.TaxRate,
		}
	}
	totals, err := pricing.ComputeOrderTotals(lines, orderDiscount)
	if err != nil {
		return err
	}

	o.Items = make([]Item, len(items))
	for i, item := range items {
		amounts := totals.Lines[i]
		o.Items[i] = Item{
			ID:              id.New(),
			OrderID:         o.ID,
			ProductID:       item.ProductID,
			HubID:           item.HubID,
			BatchNo:         item.BatchNo,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
			TaxRate:         item.TaxRate,
			Subtotal:        amounts.Subtotal,
			DiscountAmount:  amounts.DiscountAmount,
			TaxableAmount:   amounts.TaxableAmount,
			TaxAmount:       amounts.TaxAmount,
			LineTotal:       amounts.Total,
		}
	}
	o.Subtotal = totals.Subtotal
	o.DiscountAmount = totals.DiscountAmount
	o.TaxAmount = totals.TaxAmount
	o.TotalAmount = totals.Total
	return nil
}

// sortedItemIndex orders line indexes by lot key so concurrent
// confirms and cancels acquire lot locks in the same order.
func sortedItemIndex(items []Item) []int {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		ia, ib := items[idx[a]], items[idx[b]]
		if ia.HubID != ib.HubID {
			return ia.HubID.String() < ib.HubID.String()
		}
		if ia.ProductID != ib.ProductID {
			return ia.ProductID.String() < ib.ProductID.String()
		}
		return ia.BatchNo < ib.BatchNo
	})
	return idx
}

// reserveItems resolves each line's lot and takes the reservation,
// releasing on partial failure so a failed confirm is side-effect free
// even without transactional storage.
func (s *Service) reserveItems(ctx context.Context, o *Order) error {
	type taken struct {
		lotID id.ID
		qty   types.Quantity
	}
	var reserved []taken

	rollback := func() {
		for i := len(reserved) - 1; i >= 0; i-- {
			if err := s.stock.Release(ctx, reserved[i].lotID, reserved[i].qty); err != nil {
				logger.Error(ctx, "failed to roll back reservation",
					"order_id", o.ID,
					"lot_id", reserved[i].lotID,
					"error", err)
			}
		}
	}

	for _, i := range sortedItemIndex(o.Items) {
		item := &o.Items[i]
		lot, err := s.stock.GetLotByKey(ctx, item.HubID, item.ProductID, item.BatchNo)
		if err != nil {
			rollback()
			return err
		}
		if err := s.stock.Reserve(ctx, lot.ID, item.Quantity); err != nil {
			rollback()
			return err
		}
		item.LotID = lot.ID
		reserved = append(reserved, taken{lotID: lot.ID, qty: item.Quantity})
	}
	return nil
}

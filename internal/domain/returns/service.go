package returns

import (
	"context"
	"time"

	"salesflow/internal/core/entity"
	"salesflow/internal/core/id"
	"salesflow/internal/core/tx"
	"salesflow/internal/core/types"
	"salesflow/internal/domain/inventory"
	"salesflow/pkg/logger"
	"salesflow/pkg/numerator"
)

// StockReceiver books restocked items back into inventory.
type StockReceiver interface {
	Receive(ctx context.Context, in inventory.ReceiveInput) (*inventory.Lot, error)
}

// NumberSource issues document numbers.
type NumberSource interface {
	GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error)
}

// Service drives the return workflow.
type Service struct {
	repo      Repository
	stock     StockReceiver
	numbers   NumberSource
	txManager tx.Manager
}

func NewService(repo Repository, stock StockReceiver, numbers NumberSource, txManager tx.Manager) *Service {
	return &Service{repo: repo, stock: stock, numbers: numbers, txManager: txManager}
}

var returnNumberCfg = numerator.DefaultConfig("RET")

func returnNumberOpts() *numerator.Options {
	return &numerator.Options{Strategy: numerator.StrategyCached, RangeSize: 20}
}

// ItemInput is one returned line.
type ItemInput struct {
	ProductID id.ID
	BatchNo   string
	Quantity  types.Quantity
	UnitPrice types.Money
	Condition Condition
}

// CreateInput describes a new return request.
type CreateInput struct {
	CustomerID id.ID
	InvoiceID  id.ID
	HubID      id.ID
	Reason     string
	Items      []ItemInput
}

// Create stores a pending return. No inventory moves until the return is
// approved and processed.
func (s *Service) Create(ctx context.Context, in CreateInput) (*ProductReturn, error) {
	r := &ProductReturn{
		Document:   entity.NewDocument(),
		CustomerID: in.CustomerID,
		InvoiceID:  in.InvoiceID,
		HubID:      in.HubID,
		Status:     StatusPending,
		Reason:     in.Reason,
	}
	r.Items = make([]Item, len(in.Items))
	for i, item := range in.Items {
		r.Items[i] = Item{
			ID:        id.New(),
			ReturnID:  r.ID,
			ProductID: item.ProductID,
			BatchNo:   item.BatchNo,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Condition: item.Condition,
		}
	}
	if err := r.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numbers.GetNextNumber(ctx, returnNumberCfg, returnNumberOpts(), r.Date)
		if err != nil {
			return err
		}
		r.Number = number
		return s.repo.Create(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "return created",
		"return_id", r.ID,
		"number", r.Number,
		"customer_id", r.CustomerID,
		"items", len(r.Items))
	return r, nil
}

// Approve records the approver. Approval alone changes no stock, invoice
// or payment state.
func (s *Service) Approve(ctx context.Context, returnID id.ID, approver string) (*ProductReturn, error) {
	return s.mutate(ctx, returnID, func(r *ProductReturn) error {
		if err := r.transition(StatusApproved, "approve"); err != nil {
			return err
		}
		r.ApprovedBy = approver
		return nil
	}, nil)
}

// Reject closes the return without any inventory effect.
func (s *Service) Reject(ctx context.Context, returnID id.ID) (*ProductReturn, error) {
	return s.mutate(ctx, returnID, func(r *ProductReturn) error {
		return r.transition(StatusRejected, "reject")
	}, nil)
}

// Process restocks every good-condition item into the return's hub and
// completes the workflow. Damaged and expired items stay recorded for
// loss reporting but never re-enter stock.
func (s *Service) Process(ctx context.Context, returnID id.ID) (*ProductReturn, error) {
	out, err := s.mutate(ctx, returnID, func(r *ProductReturn) error {
		return r.transition(StatusProcessed, "process")
	}, func(ctx context.Context, r *ProductReturn) error {
		rec := inventory.Ref{ID: r.ID, Type: "ProductReturn"}
		for i := range r.Items {
			item := &r.Items[i]
			if item.Condition != ConditionGood {
				continue
			}
			if _, err := s.stock.Receive(ctx, inventory.ReceiveInput{
				HubID:     r.HubID,
				ProductID: item.ProductID,
				BatchNo:   item.BatchNo,
				Quantity:  item.Quantity,
				Recorder:  rec,
			}); err != nil {
				return err
			}
			item.Restocked = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "return processed",
		"return_id", returnID,
		"number", out.Number,
		"loss_value", out.LossValue())
	return out, nil
}

func (s *Service) Get(ctx context.Context, returnID id.ID) (*ProductReturn, error) {
	return s.repo.Get(ctx, returnID)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]ProductReturn, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) mutate(ctx context.Context, returnID id.ID, change func(*ProductReturn) error, apply func(context.Context, *ProductReturn) error) (*ProductReturn, error) {
	var out *ProductReturn
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.GetForUpdate(ctx, returnID)
		if err != nil {
			return err
		}
		if err := change(r); err != nil {
			return err
		}
		if apply != nil {
			if err := apply(ctx, r); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

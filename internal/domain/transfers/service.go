package transfers

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
	"salesflow/pkg/logger"
	"salesflow/pkg/numerator"
)

// StockMover is the slice of the inventory API transfers need.
type StockMover interface {
	GetLotByKey(ctx context.Context, hubID, productID id.ID, batchNo string) (*inventory.Lot, error)
	MoveOut(ctx context.Context, lotID id.ID, qty types.Quantity, rec inventory.Ref) error
	MoveIn(ctx context.Context, in inventory.ReceiveInput) (*inventory.Lot, error)
}

// NumberSource issues document numbers.
type NumberSource interface {
	GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error)
}

// Service drives the transfer workflow.
type Service struct {
	repo      Repository
	stock     StockMover
	numbers   NumberSource
	txManager tx.Manager
}

func NewService(repo Repository, stock StockMover, numbers NumberSource, txManager tx.Manager) *Service {
	return &Service{repo: repo, stock: stock, numbers: numbers, txManager: txManager}
}

var transferNumberCfg = numerator.DefaultConfig("TRF")

func transferNumberOpts() *numerator.Options {
	return &numerator.Options{Strategy: numerator.StrategyCached, RangeSize: 20}
}

// ItemInput is one requested transfer line.
type ItemInput struct {
	ProductID id.ID
	BatchNo   string
	Quantity  types.Quantity
}

// CreateInput describes a new transfer request.
type CreateInput struct {
	FromHubID    id.ID
	ToHubID      id.ID
	TransferType Type
	RequestedBy  string
	Items        []ItemInput
	Comment      string
}

// Create validates the request against current availability and stores
// the transfer as pending. The availability check is advisory: stock can
// change before dispatch, where it is enforced for real.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Transfer, error) {
	t := &Transfer{
		Document:     entity.NewDocument(),
		FromHubID:    in.FromHubID,
		ToHubID:      in.ToHubID,
		TransferType: in.TransferType,
		Status:       StatusPending,
		RequestedBy:  in.RequestedBy,
	}
	t.Comment = in.Comment

	t.Items = make([]Item, len(in.Items))
	for i, item := range in.Items {
		t.Items[i] = Item{
			ID:         id.New(),
			TransferID: t.ID,
			ProductID:  item.ProductID,
			BatchNo:    item.BatchNo,
			Quantity:   item.Quantity,
		}
	}
	if err := t.Validate(ctx); err != nil {
		return nil, err
	}

	for i := range t.Items {
		item := &t.Items[i]
		lot, err := s.stock.GetLotByKey(ctx, t.FromHubID, item.ProductID, item.BatchNo)
		if err != nil {
			return nil, err
		}
		if item.Quantity > lot.Available {
			return nil, apperror.NewInsufficientStock(
				item.ProductID.String(), item.Quantity.String(), lot.Available.String())
		}
		item.LotID = lot.ID
		item.ExpiryDate = lot.ExpiryDate
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numbers.GetNextNumber(ctx, transferNumberCfg, transferNumberOpts(), t.Date)
		if err != nil {
			return err
		}
		t.Number = number
		return s.repo.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer created",
		"transfer_id", t.ID,
		"number", t.Number,
		"from_hub", t.FromHubID,
		"to_hub", t.ToHubID,
		"items", len(t.Items))
	return t, nil
}

// Approve records the approver and moves the transfer to approved.
// No inventory moves yet.
func (s *Service) Approve(ctx context.Context, transferID id.ID, approver string) (*Transfer, error) {
	return s.mutate(ctx, transferID, func(t *Transfer) error {
		if err := t.transition(StatusApproved, "approve"); err != nil {
			return err
		}
		t.ApprovedBy = approver
		return nil
	}, nil)
}

// Dispatch moves every item out of the source hub and marks the transfer
// in transit. The move is all-or-nothing: if any line lacks stock, the
// ones already moved are put back and the transfer stays approved.
func (s *Service) Dispatch(ctx context.Context, transferID id.ID) (*Transfer, error) {
	out, err := s.mutate(ctx, transferID, func(t *Transfer) error {
		return t.transition(StatusInTransit, "dispatch")
	}, func(ctx context.Context, t *Transfer) error {
		now := time.Now().UTC()
		t.DispatchedAt = &now
		return s.moveOutAll(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "transfer dispatched", "transfer_id", transferID, "number", out.Number)
	return out, nil
}

// Receive books every item into the destination hub and completes the
// transfer.
func (s *Service) Receive(ctx context.Context, transferID id.ID) (*Transfer, error) {
	out, err := s.mutate(ctx, transferID, func(t *Transfer) error {
		return t.transition(StatusCompleted, "receive")
	}, func(ctx context.Context, t *Transfer) error {
		now := time.Now().UTC()
		t.CompletedAt = &now
		rec := inventory.Ref{ID: t.ID, Type: "StockTransfer"}
		idx := make([]int, len(t.Items))
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(a, b int) bool {
			ia, ib := t.Items[idx[a]], t.Items[idx[b]]
			if ia.ProductID != ib.ProductID {
				return ia.ProductID.String() < ib.ProductID.String()
			}
			return ia.BatchNo < ib.BatchNo
		})
		for _, i := range idx {
			item := t.Items[i]
			if _, err := s.stock.MoveIn(ctx, inventory.ReceiveInput{
				HubID:      t.ToHubID,
				ProductID:  item.ProductID,
				BatchNo:    item.BatchNo,
				Quantity:   item.Quantity,
				ExpiryDate: item.ExpiryDate,
				Recorder:   rec,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "transfer received", "transfer_id", transferID, "number", out.Number)
	return out, nil
}

// Cancel is legal only before dispatch; no inventory has moved, so it is
// a pure status change.
func (s *Service) Cancel(ctx context.Context, transferID id.ID) (*Transfer, error) {
	return s.mutate(ctx, transferID, func(t *Transfer) error {
		return t.transition(StatusCancelled, "cancel")
	}, nil)
}

func (s *Service) Get(ctx context.Context, transferID id.ID) (*Transfer, error) {
	return s.repo.Get(ctx, transferID)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Transfer, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) mutate(ctx context.Context, transferID id.ID, change func(*Transfer) error, apply func(context.Context, *Transfer) error) (*Transfer, error) {
	var out *Transfer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if err := change(t); err != nil {
			return err
		}
		if apply != nil {
			if err := apply(ctx, t); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

// moveOutAll applies the MoveOuts in lot-key order to keep lock
// acquisition deterministic, undoing on partial failure so a rejected
// dispatch leaves source stock exactly as it was.
func (s *Service) moveOutAll(ctx context.Context, t *Transfer) error {
	idx := make([]int, len(t.Items))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		ia, ib := t.Items[idx[a]], t.Items[idx[b]]
		if ia.ProductID != ib.ProductID {
			return ia.ProductID.String() < ib.ProductID.String()
		}
		return ia.BatchNo < ib.BatchNo
	})

	rec := inventory.Ref{ID: t.ID, Type: "StockTransfer"}
	var moved []Item

	rollback := func() {
		for i := len(moved) - 1; i >= 0; i-- {
			if _, err := s.stock.MoveIn(ctx, inventory.ReceiveInput{
				HubID:      t.FromHubID,
				ProductID:  moved[i].ProductID,
				BatchNo:    moved[i].BatchNo,
				Quantity:   moved[i].Quantity,
				ExpiryDate: moved[i].ExpiryDate,
				Recorder:   rec,
			}); err != nil {
				logger.Error(ctx, "failed to roll back dispatch",
					"transfer_id", t.ID,
					"lot_id", moved[i].LotID,
					"error", err)
			}
		}
	}

	for _, i := range idx {
		item := &t.Items[i]
		lot, err := s.stock.GetLotByKey(ctx, t.FromHubID, item.ProductID, item.BatchNo)
		if err != nil {
			rollback()
			return err
		}
		if err := s.stock.MoveOut(ctx, lot.ID, item.Quantity, rec); err != nil {
			rollback()
			return err
		}
		item.LotID = lot.ID
		item.ExpiryDate = lot.ExpiryDate
		moved = append(moved, *item)
	}
	return nil
}

package inventory

import (
	"context"
	"fmt"
	"time"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/tx"
	"salesflow/internal/core/types"
	"salesflow/pkg/logger"
)

// Service provides the mutation entry points of the inventory ledger.
// Every operation locks the target lot row and runs inside a transaction;
// nested calls join the caller's transaction, so workflows (dispatch,
// invoice issuance, return processing) compose their lot mutations into a
// single atomic unit.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new inventory ledger service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// ReceiveInput describes a stock receipt into a hub.
type ReceiveInput struct {
	HubID      id.ID
	ProductID  id.ID
	BatchNo    string
	Quantity   types.Quantity
	ExpiryDate *time.Time
	Recorder   Ref
}

// Receive creates or increments the lot for (hub, product, batch).
// The first receipt for a key creates the lot; an existing lot keeps its
// expiry date (first receipt wins).
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (*Lot, error) {
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewInvalidQuantity(in.Quantity.String())
	}
	if id.IsNil(in.HubID) || id.IsNil(in.ProductID) || in.BatchNo == "" {
		return nil, apperror.NewValidation("hub, product and batch are required")
	}

	var lot *Lot
	var err error
	for attempt := 0; attempt < maxLotRetries; attempt++ {
		lot, err = s.receiveOnce(ctx, in)
		// A concurrent receipt for the same new key can win the insert race;
		// retrying turns our create into an increment.
		if !apperror.IsConcurrentModification(err) && !apperror.HasCode(err, apperror.CodeDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock received",
		"lot_id", lot.ID,
		"hub_id", in.HubID,
		"product_id", in.ProductID,
		"batch_no", in.BatchNo,
		"quantity", in.Quantity,
	)
	return lot, nil
}

func (s *Service) receiveOnce(ctx context.Context, in ReceiveInput) (*Lot, error) {
	var lot *Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetLotByKeyForUpdate(ctx, in.HubID, in.ProductID, in.BatchNo)
		switch {
		case err == nil:
			lot = existing
			if err := lot.receive(in.Quantity); err != nil {
				return err
			}
			if err := s.repo.UpdateLot(ctx, lot); err != nil {
				return fmt.Errorf("update lot: %w", err)
			}
		case apperror.IsNotFound(err):
			lot = NewLot(in.HubID, in.ProductID, in.BatchNo, in.ExpiryDate)
			if err := lot.receive(in.Quantity); err != nil {
				return err
			}
			if err := s.repo.CreateLot(ctx, lot); err != nil {
				return fmt.Errorf("create lot: %w", err)
			}
		default:
			return fmt.Errorf("get lot: %w", err)
		}

		movement := NewMovement(in.Recorder, RecordTypeReceipt, in.HubID, in.ProductID, in.BatchNo, in.Quantity)
		if err := s.repo.CreateMovements(ctx, []Movement{movement}); err != nil {
			return fmt.Errorf("record movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// Reserve moves qty from available to reserved on the lot.
// Used when an order is confirmed against a specific batch.
func (s *Service) Reserve(ctx context.Context, lotID id.ID, qty types.Quantity) error {
	return s.mutateLot(ctx, lotID, func(lot *Lot) error {
		return lot.reserve(qty)
	}, nil)
}

// Release is the inverse of Reserve (order cancelled before fulfillment).
func (s *Service) Release(ctx context.Context, lotID id.ID, qty types.Quantity) error {
	return s.mutateLot(ctx, lotID, func(lot *Lot) error {
		return lot.release(qty)
	}, nil)
}

// Consume permanently removes qty from quantity and reserved
// (fulfillment completes, e.g. invoice issued).
func (s *Service) Consume(ctx context.Context, lotID id.ID, qty types.Quantity, rec Ref) error {
	return s.mutateLot(ctx, lotID, func(lot *Lot) error {
		return lot.consume(qty)
	}, func(lot *Lot) *Movement {
		m := NewMovement(rec, RecordTypeExpense, lot.HubID, lot.ProductID, lot.BatchNo, qty)
		return &m
	})
}

// MoveOut reduces available and quantity at the source hub (transfer dispatch).
func (s *Service) MoveOut(ctx context.Context, lotID id.ID, qty types.Quantity, rec Ref) error {
	return s.mutateLot(ctx, lotID, func(lot *Lot) error {
		return lot.moveOut(qty)
	}, func(lot *Lot) *Movement {
		m := NewMovement(rec, RecordTypeExpense, lot.HubID, lot.ProductID, lot.BatchNo, qty)
		return &m
	})
}

// MoveIn is the destination half of a transfer, equivalent to Receive.
func (s *Service) MoveIn(ctx context.Context, in ReceiveInput) (*Lot, error) {
	return s.Receive(ctx, in)
}

// maxLotRetries bounds optimistic-concurrency retries on a contended lot.
// The postgres repository locks the row (FOR UPDATE) so retries are rare
// there; storage without row locks relies on the version check plus retry.
const maxLotRetries = 5

// mutateLot locks the lot, applies fn, persists and journals the change.
// Retries on a concurrent version conflict.
func (s *Service) mutateLot(ctx context.Context, lotID id.ID, fn func(*Lot) error, movement func(*Lot) *Movement) error {
	var err error
	for attempt := 0; attempt < maxLotRetries; attempt++ {
		err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			lot, err := s.repo.GetLotForUpdate(ctx, lotID)
			if err != nil {
				return err
			}

			if err := fn(lot); err != nil {
				return err
			}

			if err := s.repo.UpdateLot(ctx, lot); err != nil {
				if apperror.IsConcurrentModification(err) {
					return err
				}
				return fmt.Errorf("update lot: %w", err)
			}

			if movement != nil {
				if m := movement(lot); m != nil {
					if err := s.repo.CreateMovements(ctx, []Movement{*m}); err != nil {
						return fmt.Errorf("record movement: %w", err)
					}
				}
			}
			return nil
		})
		if !apperror.IsConcurrentModification(err) {
			return err
		}
	}
	return err
}

// GetLot returns a lot by ID.
func (s *Service) GetLot(ctx context.Context, lotID id.ID) (*Lot, error) {
	return s.repo.GetLot(ctx, lotID)
}

// GetLotByKey returns a lot by its (hub, product, batch) key.
func (s *Service) GetLotByKey(ctx context.Context, hubID, productID id.ID, batchNo string) (*Lot, error) {
	return s.repo.GetLotByKey(ctx, hubID, productID, batchNo)
}

// GetHubStock returns all lots with stock in a hub.
func (s *Service) GetHubStock(ctx context.Context, hubID id.ID) ([]Lot, error) {
	return s.repo.ListLotsByHub(ctx, hubID, LotFilter{ExcludeZero: true})
}

// GetProductAvailability returns available quantity across hubs.
func (s *Service) GetProductAvailability(ctx context.Context, productID id.ID) (types.Quantity, error) {
	lots, err := s.repo.ListLotsByProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("list lots: %w", err)
	}

	var total types.Quantity
	for _, l := range lots {
		total += l.Available
	}
	return total, nil
}

// GetMovementHistory returns the journal for a product.
func (s *Service) GetMovementHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]Movement, error) {
	return s.repo.GetMovementHistory(ctx, productID, filter)
}

// VerifyLot re-checks the balance invariant on a stored lot.
func (s *Service) VerifyLot(ctx context.Context, lotID id.ID) error {
	lot, err := s.repo.GetLot(ctx, lotID)
	if err != nil {
		return err
	}
	return lot.CheckInvariant()
}

package customers

import (
	"context"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/tx"
	"salesflow/internal/core/types"
	"salesflow/pkg/logger"
)

// Service manages customers and keeps OutstandingAmount in step with the
// invoice ledger.
type Service struct {
	repo      Repository
	invoices  OutstandingSource
	txManager tx.Manager
}

func NewService(repo Repository, invoices OutstandingSource, txManager tx.Manager) *Service {
	return &Service{repo: repo, invoices: invoices, txManager: txManager}
}

func (s *Service) Create(ctx context.Context, name, email, phone string) (*Customer, error) {
	c := NewCustomer(name, email, phone)
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	logger.Info(ctx, "customer created",
		"customer_id", c.ID,
		"name", c.Name)
	return c, nil
}

func (s *Service) Get(ctx context.Context, customerID id.ID) (*Customer, error) {
	return s.repo.Get(ctx, customerID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Customer, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.List(ctx, limit, offset)
}

// IncreaseOutstanding adds a freshly issued invoice total to the balance.
// Runs inside the caller's transaction.
func (s *Service) IncreaseOutstanding(ctx context.Context, customerID id.ID, amount types.Money) error {
	if !amount.IsPositive() {
		return apperror.NewInvalidAmount(amount.String())
	}
	_, err := s.repo.AdjustOutstanding(ctx, customerID, amount)
	return err
}

// DecreaseOutstanding subtracts a recorded payment from the balance.
// Direct payments can legitimately exceed the tracked balance (the
// invoice they settle may predate balance tracking), so the result is
// floored at zero rather than rejected.
func (s *Service) DecreaseOutstanding(ctx context.Context, customerID id.ID, amount types.Money) error {
	if !amount.IsPositive() {
		return apperror.NewInvalidAmount(amount.String())
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		next := c.OutstandingAmount.Sub(amount)
		if next.IsNegative() {
			logger.Warn(ctx, "outstanding balance floored at zero",
				"customer_id", customerID,
				"balance", c.OutstandingAmount,
				"payment", amount)
			next = types.Zero()
		}
		return s.repo.SetOutstanding(ctx, customerID, next)
	})
}

// Reconcile rebuilds OutstandingAmount from the invoice ledger and
// returns the corrected value together with the drift that was found.
func (s *Service) Reconcile(ctx context.Context, customerID id.ID) (types.Money, types.Money, error) {
	var actual, drift types.Money
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		actual, err = s.invoices.SumOutstanding(ctx, customerID)
		if err != nil {
			return err
		}
		drift = actual.Sub(c.OutstandingAmount)
		if drift.IsZero() {
			return nil
		}
		logger.Warn(ctx, "outstanding balance drift corrected",
			"customer_id", customerID,
			"tracked", c.OutstandingAmount,
			"actual", actual)
		return s.repo.SetOutstanding(ctx, customerID, actual)
	})
	if err != nil {
		return types.Zero(), types.Zero(), err
	}
	return actual, drift, nil
}

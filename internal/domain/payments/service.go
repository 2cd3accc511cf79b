package payments

import (
	"context"
	"time"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/entity"
	"salesflow/internal/core/id"
	"salesflow/internal/core/tx"
	"salesflow/internal/core/types"
	"salesflow/internal/domain/invoices"
	"salesflow/internal/domain/orders"
	"salesflow/pkg/logger"
	"salesflow/pkg/numerator"
)

// InvoiceLedger is the slice of invoice persistence payment recording
// needs: lock the invoice row, write back the new paid amount.
type InvoiceLedger interface {
	GetForUpdate(ctx context.Context, invoiceID id.ID) (*invoices.Invoice, error)
	Update(ctx context.Context, inv *invoices.Invoice) error
}

// OrderMirror pushes the invoice's settlement progress back onto the
// originating order.
type OrderMirror interface {
	SetPaymentStatus(ctx context.Context, orderID id.ID, status orders.PaymentStatus) error
}

// BalanceAdjuster moves the customer's outstanding balance.
type BalanceAdjuster interface {
	DecreaseOutstanding(ctx context.Context, customerID id.ID, amount types.Money) error
}

// NumberSource issues receipt numbers.
type NumberSource interface {
	GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error)
}

// Service records payments.
type Service struct {
	repo      Repository
	invoices  InvoiceLedger
	orders    OrderMirror
	balances  BalanceAdjuster
	numbers   NumberSource
	txManager tx.Manager
}

func NewService(repo Repository, invoiceLedger InvoiceLedger, orderMirror OrderMirror, balances BalanceAdjuster, numbers NumberSource, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		invoices:  invoiceLedger,
		orders:    orderMirror,
		balances:  balances,
		numbers:   numbers,
		txManager: txManager,
	}
}

// Receipt numbers are handed to customers, so they are allocated
// strictly, same as invoice numbers.
var receiptNumberCfg = numerator.DefaultConfig("RCPT")

// RecordInput describes a payment to record. InvoiceID nil means a
// direct customer payment: only the outstanding balance moves.
type RecordInput struct {
	InvoiceID      *id.ID
	CustomerID     id.ID
	Amount         types.Money
	Mode           Mode
	TransactionRef string
	Comment        string
}

// RecordPayment appends a ledger entry and, in the same transaction,
// updates the invoice's paid amount and payment status, mirrors the
// status onto the order, and decrements the customer's outstanding
// balance.
func (s *Service) RecordPayment(ctx context.Context, in RecordInput) (*Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, apperror.NewInvalidAmount(in.Amount.String())
	}

	var p *Payment
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		customerID := in.CustomerID
		var inv *invoices.Invoice

		if in.InvoiceID != nil {
			var err error
			inv, err = s.invoices.GetForUpdate(ctx, *in.InvoiceID)
			if err != nil {
				return err
			}
			if err := inv.ApplyPayment(in.Amount); err != nil {
				return err
			}
			customerID = inv.CustomerID
		}

		p = &Payment{
			Document:       entity.NewDocument(),
			CustomerID:     customerID,
			Amount:         in.Amount,
			Mode:           in.Mode,
			TransactionRef: in.TransactionRef,
		}
		p.Comment = in.Comment
		if inv != nil {
			p.InvoiceID = inv.ID
		}
		if err := p.Validate(ctx); err != nil {
			return err
		}

		number, err := s.numbers.GetNextNumber(ctx, receiptNumberCfg, numerator.DefaultOptions(), p.Date)
		if err != nil {
			return err
		}
		p.Number = number

		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}

		if inv != nil {
			if err := s.invoices.Update(ctx, inv); err != nil {
				return err
			}
			if !id.IsNil(inv.OrderID) {
				if err := s.orders.SetPaymentStatus(ctx, inv.OrderID, inv.PaymentStatus); err != nil {
					return err
				}
			}
		}

		return s.balances.DecreaseOutstanding(ctx, customerID, in.Amount)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment recorded",
		"payment_id", p.ID,
		"receipt", p.Number,
		"customer_id", p.CustomerID,
		"amount", p.Amount,
		"mode", p.Mode)
	return p, nil
}

func (s *Service) Get(ctx context.Context, paymentID id.ID) (*Payment, error) {
	return s.repo.Get(ctx, paymentID)
}

func (s *Service) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]Payment, error) {
	return s.repo.ListByInvoice(ctx, invoiceID)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID id.ID, limit, offset int) ([]Payment, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListByCustomer(ctx, customerID, limit, offset)
}

package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"salesflow/internal/core/id"
	"salesflow/internal/domain/payments"
	"salesflow/internal/infrastructure/storage/postgres"
)

const paymentsTable = "doc_payments"

// PaymentRepo implements payments.Repository. The payment ledger is
// append-only: there is no Update or Delete.
type PaymentRepo struct {
	*BaseDocumentRepo[*payments.Payment]
}

// NewPaymentRepo creates a new payment ledger repository.
func NewPaymentRepo(txManager *postgres.TxManager) *PaymentRepo {
	return &PaymentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			paymentsTable,
			postgres.ExtractDBColumns[payments.Payment](),
			func() *payments.Payment { return &payments.Payment{} },
		),
	}
}

// Get retrieves a payment by ID.
func (r *PaymentRepo) Get(ctx context.Context, paymentID id.ID) (*payments.Payment, error) {
	return r.GetByID(ctx, paymentID)
}

// ListByInvoice retrieves all payments applied to an invoice.
func (r *PaymentRepo) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]payments.Payment, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("number")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []payments.Payment
	querier := r.TxManager().GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}

	return out, nil
}

// ListByCustomer retrieves a customer's payment history.
func (r *PaymentRepo) ListByCustomer(ctx context.Context, customerID id.ID, limit, offset int) ([]payments.Payment, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"customer_id": customerID}).
		OrderBy("number")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []payments.Payment
	querier := r.TxManager().GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}

	return out, nil
}

// Ensure interface compliance.
var _ payments.Repository = (*PaymentRepo)(nil)

package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
	"salesflow/internal/domain/invoices"
	"salesflow/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable     = "doc_invoices"
	invoiceItemsTable = "doc_invoice_items"
)

var invoiceItemColumns = []string{
	"id", "invoice_id", "product_id", "hub_id", "batch_no", "lot_id",
	"quantity", "unit_price", "discount_percent", "tax_rate",
	"subtotal", "discount_amount", "taxable_amount", "tax_amount", "line_total",
}

// InvoiceRepo implements invoices.Repository.
type InvoiceRepo struct {
	*BaseDocumentRepo[*invoices.Invoice]
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			invoicesTable,
			postgres.ExtractDBColumns[invoices.Invoice](),
			func() *invoices.Invoice { return &invoices.Invoice{} },
		),
	}
}

// Create inserts the invoice and its item snapshot atomically.
// Items are written once and never change afterwards.
func (r *InvoiceRepo) Create(ctx context.Context, inv *invoices.Invoice) error {
	return r.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.BaseDocumentRepo.Create(ctx, inv); err != nil {
			if isUniqueViolation(err) {
				return apperror.NewAlreadyInvoiced(inv.OrderID.String())
			}
			return err
		}
		return r.insertItems(ctx, inv.ID, inv.Items)
	})
}

// Get retrieves an invoice with its items.
func (r *InvoiceRepo) Get(ctx context.Context, invoiceID id.ID) (*invoices.Invoice, error) {
	inv, err := r.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Items, err = r.getItems(ctx, invoiceID); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetForUpdate retrieves an invoice with its items, locking the header row.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, invoiceID id.ID) (*invoices.Invoice, error) {
	inv, err := r.BaseDocumentRepo.GetForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Items, err = r.getItems(ctx, invoiceID); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetByOrder retrieves the invoice issued for an order.
func (r *InvoiceRepo) GetByOrder(ctx context.Context, orderID id.ID) (*invoices.Invoice, error) {
	inv := &invoices.Invoice{}
	q := r.baseSelect().
		Where(squirrel.Eq{"order_id": orderID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.TxManager().GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, inv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("invoice", orderID.String())
		}
		return nil, fmt.Errorf("get by order: %w", err)
	}

	if inv.Items, err = r.getItems(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

// List retrieves invoices matching the filter. Items are not loaded.
func (r *InvoiceRepo) List(ctx context.Context, filter invoices.Filter) ([]invoices.Invoice, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false})

	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.PaymentStatus != nil {
		q = q.Where(squirrel.Eq{"payment_status": *filter.PaymentStatus})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.ToDate})
	}

	q = q.OrderBy("number")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []invoices.Invoice
	querier := r.TxManager().GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select invoices: %w", err)
	}

	return out, nil
}

// SumOutstanding totals unpaid amounts over the customer's active invoices.
func (r *InvoiceRepo) SumOutstanding(ctx context.Context, customerID id.ID) (types.Money, error) {
	sql := `
		SELECT COALESCE(SUM(total_amount - paid_amount), 0)
		FROM doc_invoices
		WHERE customer_id = $1 AND status = $2
	`

	var total types.Money
	querier := r.TxManager().GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, customerID, invoices.StatusActive).Scan(&total)
	if err != nil && err != pgx.ErrNoRows {
		return types.Zero(), fmt.Errorf("sum outstanding: %w", err)
	}

	return total, nil
}

func (r *InvoiceRepo) getItems(ctx context.Context, invoiceID id.ID) ([]invoices.Item, error) {
	q := r.Builder().
		Select(invoiceItemColumns...).
		From(invoiceItemsTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []invoices.Item
	querier := r.TxManager().GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

func (r *InvoiceRepo) insertItems(ctx context.Context, invoiceID id.ID, items []invoices.Item) error {
	if len(items) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(invoiceItemsTable).
		Columns(invoiceItemColumns...)

	for _, it := range items {
		q = q.Values(
			it.ID, invoiceID, it.ProductID, it.HubID, it.BatchNo, it.LotID,
			it.Quantity, it.UnitPrice, it.DiscountPercent, it.TaxRate,
			it.Subtotal, it.DiscountAmount, it.TaxableAmount, it.TaxAmount, it.LineTotal,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert items: %w", err)
	}

	querier := r.TxManager().GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}

	return nil
}

// Ensure interface compliance.
var _ invoices.Repository = (*InvoiceRepo)(nil)

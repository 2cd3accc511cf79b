package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"salesflow/internal/core/id"
	"salesflow/internal/domain/orders"
	"salesflow/internal/infrastructure/storage/postgres"
)

const (
	ordersTable     = "doc_orders"
	orderItemsTable = "doc_order_items"
)

var orderItemColumns = []string{
	"id", "order_id", "product_id", "hub_id", "batch_no", "lot_id",
	"quantity", "unit_price", "discount_percent", "tax_rate",
	"subtotal", "discount_amount", "taxable_amount", "tax_amount", "line_total",
}

// OrderRepo implements orders.Repository.
type OrderRepo struct {
	*BaseDocumentRepo[*orders.Order]
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txManager *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			ordersTable,
			postgres.ExtractDBColumns[orders.Order](),
			func() *orders.Order { return &orders.Order{} },
		),
	}
}

// Create inserts the order header and its items atomically.
func (r *OrderRepo) Create(ctx context.Context, o *orders.Order) error {
	return r.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.BaseDocumentRepo.Create(ctx, o); err != nil {
			return err
		}
		return r.insertItems(ctx, o.ID, o.Items)
	})
}

// Update updates the header and replaces the item set.
func (r *OrderRepo) Update(ctx context.Context, o *orders.Order) error {
	return r.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.BaseDocumentRepo.Update(ctx, o); err != nil {
			return err
		}
		if err := r.deleteItems(ctx, o.ID); err != nil {
			return err
		}
		return r.insertItems(ctx, o.ID, o.Items)
	})
}

// Get retrieves an order with its items.
func (r *OrderRepo) Get(ctx context.Context, orderID id.ID) (*orders.Order, error) {
	o, err := r.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.getItems(ctx, orderID); err != nil {
		return nil, err
	}
	return o, nil
}

// GetForUpdate retrieves an order with its items, locking the header row.
func (r *OrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*orders.Order, error) {
	o, err := r.BaseDocumentRepo.GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.getItems(ctx, orderID); err != nil {
		return nil, err
	}
	return o, nil
}

// List retrieves orders matching the filter. Items are not loaded.
func (r *OrderRepo) List(ctx context.Context, filter orders.Filter) ([]orders.Order, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false})

	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
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

	var out []orders.Order
	querier := r.TxManager().GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	return out, nil
}

func (r *OrderRepo) getItems(ctx context.Context, orderID id.ID) ([]orders.Item, error) {
	q := r.Builder().
		Select(orderItemColumns...).
		From(orderItemsTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []orders.Item
	querier := r.TxManager().GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

func (r *OrderRepo) deleteItems(ctx context.Context, orderID id.ID) error {
	deleteSQL := "DELETE FROM " + orderItemsTable + " WHERE order_id = $1"
	querier := r.TxManager().GetQuerier(ctx)
	if _, err := querier.Exec(ctx, deleteSQL, orderID); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	return nil
}

func (r *OrderRepo) insertItems(ctx context.Context, orderID id.ID, items []orders.Item) error {
	if len(items) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(orderItemsTable).
		Columns(orderItemColumns...)

	for _, it := range items {
		q = q.Values(
			it.ID, orderID, it.ProductID, it.HubID, it.BatchNo, it.LotID,
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
var _ orders.Repository = (*OrderRepo)(nil)

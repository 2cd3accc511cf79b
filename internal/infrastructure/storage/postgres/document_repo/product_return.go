package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"salesflow/internal/core/id"
	"salesflow/internal/domain/returns"
	"salesflow/internal/infrastructure/storage/postgres"
)

const (
	returnsTable     = "doc_returns"
	returnItemsTable = "doc_return_items"
)

var returnItemColumns = []string{
	"id", "return_id", "product_id", "batch_no",
	"quantity", "unit_price", "condition", "restocked",
}

// ReturnRepo implements returns.Repository.
type ReturnRepo struct {
	*BaseDocumentRepo[*returns.ProductReturn]
}

// NewReturnRepo creates a new product return repository.
func NewReturnRepo(txManager *postgres.TxManager) *ReturnRepo {
	return &ReturnRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			returnsTable,
			postgres.ExtractDBColumns[returns.ProductReturn](),
			func() *returns.ProductReturn { return &returns.ProductReturn{} },
		),
	}
}

// Create inserts the return header and its items atomically.
func (r *ReturnRepo) Create(ctx context.Context, pr *returns.ProductReturn) error {
	return r.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.BaseDocumentRepo.Create(ctx, pr); err != nil {
			return err
		}
		return r.insertItems(ctx, pr.ID, pr.Items)
	})
}

// Update updates the header and replaces the item set.
// Processing flips the restocked flag on items, so the set is rewritten.
func (r *ReturnRepo) Update(ctx context.Context, pr *returns.ProductReturn) error {
	return r.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.BaseDocumentRepo.Update(ctx, pr); err != nil {
			return err
		}
		deleteSQL := "DELETE FROM " + returnItemsTable + " WHERE return_id = $1"
		querier := r.TxManager().GetQuerier(ctx)
		if _, err := querier.Exec(ctx, deleteSQL, pr.ID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		return r.insertItems(ctx, pr.ID, pr.Items)
	})
}

// Get retrieves a return with its items.
func (r *ReturnRepo) Get(ctx context.Context, returnID id.ID) (*returns.ProductReturn, error) {
	pr, err := r.GetByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if pr.Items, err = r.getItems(ctx, returnID); err != nil {
		return nil, err
	}
	return pr, nil
}

// GetForUpdate retrieves a return with its items, locking the header row.
func (r *ReturnRepo) GetForUpdate(ctx context.Context, returnID id.ID) (*returns.ProductReturn, error) {
	pr, err := r.BaseDocumentRepo.GetForUpdate(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if pr.Items, err = r.getItems(ctx, returnID); err != nil {
		return nil, err
	}
	return pr, nil
}

// List retrieves returns matching the filter. Items are not loaded.
func (r *ReturnRepo) List(ctx context.Context, filter returns.Filter) ([]returns.ProductReturn, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false})

	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.InvoiceID != nil {
		q = q.Where(squirrel.Eq{"invoice_id": *filter.InvoiceID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
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

	var out []returns.ProductReturn
	querier := r.TxManager().GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select returns: %w", err)
	}

	return out, nil
}

func (r *ReturnRepo) getItems(ctx context.Context, returnID id.ID) ([]returns.Item, error) {
	q := r.Builder().
		Select(returnItemColumns...).
		From(returnItemsTable).
		Where(squirrel.Eq{"return_id": returnID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []returns.Item
	querier := r.TxManager().GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

func (r *ReturnRepo) insertItems(ctx context.Context, returnID id.ID, items []returns.Item) error {
	if len(items) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(returnItemsTable).
		Columns(returnItemColumns...)

	for _, it := range items {
		q = q.Values(
			it.ID, returnID, it.ProductID, it.BatchNo,
			it.Quantity, it.UnitPrice, it.Condition, it.Restocked,
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
var _ returns.Repository = (*ReturnRepo)(nil)

package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"salesflow/internal/core/id"
	"salesflow/internal/domain/transfers"
	"salesflow/internal/infrastructure/storage/postgres"
)

const (
	transfersTable     = "doc_transfers"
	transferItemsTable = "doc_transfer_items"
)

var transferItemColumns = []string{
	"id", "transfer_id", "product_id", "batch_no", "lot_id",
	"quantity", "expiry_date",
}

// TransferRepo implements transfers.Repository.
type TransferRepo struct {
	*BaseDocumentRepo[*transfers.Transfer]
}

// NewTransferRepo creates a new stock transfer repository.
func NewTransferRepo(txManager *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			transfersTable,
			postgres.ExtractDBColumns[transfers.Transfer](),
			func() *transfers.Transfer { return &transfers.Transfer{} },
		),
	}
}

// Create inserts the transfer header and its items atomically.
func (r *TransferRepo) Create(ctx context.Context, t *transfers.Transfer) error {
	return r.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.BaseDocumentRepo.Create(ctx, t); err != nil {
			return err
		}
		return r.insertItems(ctx, t.ID, t.Items)
	})
}

// Update updates the header and replaces the item set.
// Items carry resolved lot IDs after dispatch, so the set is rewritten.
func (r *TransferRepo) Update(ctx context.Context, t *transfers.Transfer) error {
	return r.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.BaseDocumentRepo.Update(ctx, t); err != nil {
			return err
		}
		deleteSQL := "DELETE FROM " + transferItemsTable + " WHERE transfer_id = $1"
		querier := r.TxManager().GetQuerier(ctx)
		if _, err := querier.Exec(ctx, deleteSQL, t.ID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		return r.insertItems(ctx, t.ID, t.Items)
	})
}

// Get retrieves a transfer with its items.
func (r *TransferRepo) Get(ctx context.Context, transferID id.ID) (*transfers.Transfer, error) {
	t, err := r.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t.Items, err = r.getItems(ctx, transferID); err != nil {
		return nil, err
	}
	return t, nil
}

// GetForUpdate retrieves a transfer with its items, locking the header row.
func (r *TransferRepo) GetForUpdate(ctx context.Context, transferID id.ID) (*transfers.Transfer, error) {
	t, err := r.BaseDocumentRepo.GetForUpdate(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t.Items, err = r.getItems(ctx, transferID); err != nil {
		return nil, err
	}
	return t, nil
}

// List retrieves transfers matching the filter. Items are not loaded.
func (r *TransferRepo) List(ctx context.Context, filter transfers.Filter) ([]transfers.Transfer, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false})

	if filter.FromHubID != nil {
		q = q.Where(squirrel.Eq{"from_hub_id": *filter.FromHubID})
	}
	if filter.ToHubID != nil {
		q = q.Where(squirrel.Eq{"to_hub_id": *filter.ToHubID})
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

	var out []transfers.Transfer
	querier := r.TxManager().GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select transfers: %w", err)
	}

	return out, nil
}

func (r *TransferRepo) getItems(ctx context.Context, transferID id.ID) ([]transfers.Item, error) {
	q := r.Builder().
		Select(transferItemColumns...).
		From(transferItemsTable).
		Where(squirrel.Eq{"transfer_id": transferID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []transfers.Item
	querier := r.TxManager().GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

func (r *TransferRepo) insertItems(ctx context.Context, transferID id.ID, items []transfers.Item) error {
	if len(items) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(transferItemsTable).
		Columns(transferItemColumns...)

	for _, it := range items {
		q = q.Values(
			it.ID, transferID, it.ProductID, it.BatchNo, it.LotID,
			it.Quantity, it.ExpiryDate,
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
var _ transfers.Repository = (*TransferRepo)(nil)

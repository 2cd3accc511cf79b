// Package register_repo provides PostgreSQL implementations for ledger
// repositories (stock lots and the movement journal).
package register_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/domain/inventory"
	"salesflow/internal/infrastructure/storage/postgres"
)

const (
	stockLotsTable      = "reg_stock_lots"
	stockMovementsTable = "reg_stock_movements"
)

var lotColumns = []string{
	"id", "hub_id", "product_id", "batch_no",
	"quantity", "reserved_quantity", "available_quantity",
	"expiry_date", "version", "created_at", "updated_at",
}

var movementColumns = []string{
	"line_id", "recorder_id", "recorder_type", "record_type",
	"hub_id", "product_id", "batch_no", "quantity", "created_at",
}

// InventoryRepo implements inventory.Repository.
type InventoryRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewInventoryRepo creates a new inventory ledger repository.
func NewInventoryRepo(txManager *postgres.TxManager) *InventoryRepo {
	return &InventoryRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateLot inserts a new lot.
func (r *InventoryRepo) CreateLot(ctx context.Context, lot *inventory.Lot) error {
	q := r.builder.Insert(stockLotsTable).
		Columns(lotColumns...).
		Values(
			lot.ID, lot.HubID, lot.ProductID, lot.BatchNo,
			lot.Quantity, lot.Reserved, lot.Available,
			lot.ExpiryDate, lot.Version, lot.CreatedAt, lot.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("lot", "key",
				fmt.Sprintf("%s/%s/%s", lot.HubID, lot.ProductID, lot.BatchNo))
		}
		return fmt.Errorf("insert lot: %w", err)
	}

	return nil
}

// UpdateLot persists lot balances with optimistic locking.
// The lot version is bumped in place on success.
func (r *InventoryRepo) UpdateLot(ctx context.Context, lot *inventory.Lot) error {
	q := r.builder.Update(stockLotsTable).
		Set("quantity", lot.Quantity).
		Set("reserved_quantity", lot.Reserved).
		Set("available_quantity", lot.Available).
		Set("expiry_date", lot.ExpiryDate).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": lot.ID}).
		Where(squirrel.Eq{"version": lot.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("lot", lot.ID.String())
	}

	lot.Version++
	return nil
}

// GetLot retrieves a lot by ID.
func (r *InventoryRepo) GetLot(ctx context.Context, lotID id.ID) (*inventory.Lot, error) {
	return r.getLot(ctx, squirrel.Eq{"id": lotID}, lotID.String(), false)
}

// GetLotForUpdate retrieves a lot by ID with a row lock.
func (r *InventoryRepo) GetLotForUpdate(ctx context.Context, lotID id.ID) (*inventory.Lot, error) {
	return r.getLot(ctx, squirrel.Eq{"id": lotID}, lotID.String(), true)
}

// GetLotByKey retrieves a lot by its (hub, product, batch) key.
func (r *InventoryRepo) GetLotByKey(ctx context.Context, hubID, productID id.ID, batchNo string) (*inventory.Lot, error) {
	return r.getLot(ctx, squirrel.Eq{
		"hub_id":     hubID,
		"product_id": productID,
		"batch_no":   batchNo,
	}, batchNo, false)
}

// GetLotByKeyForUpdate retrieves a lot by key with a row lock.
func (r *InventoryRepo) GetLotByKeyForUpdate(ctx context.Context, hubID, productID id.ID, batchNo string) (*inventory.Lot, error) {
	return r.getLot(ctx, squirrel.Eq{
		"hub_id":     hubID,
		"product_id": productID,
		"batch_no":   batchNo,
	}, batchNo, true)
}

func (r *InventoryRepo) getLot(ctx context.Context, where squirrel.Eq, key string, forUpdate bool) (*inventory.Lot, error) {
	q := r.builder.Select(lotColumns...).
		From(stockLotsTable).
		Where(where)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lot inventory.Lot
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &lot, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("lot", key)
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}

	return &lot, nil
}

// ListLotsByHub returns lots in a hub.
func (r *InventoryRepo) ListLotsByHub(ctx context.Context, hubID id.ID, filter inventory.LotFilter) ([]inventory.Lot, error) {
	q := r.builder.Select(lotColumns...).
		From(stockLotsTable).
		Where(squirrel.Eq{"hub_id": hubID})

	if len(filter.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"product_id": filter.ProductIDs})
	}

	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"quantity": int64(0)})
	}

	if filter.ExpiringBefore != nil {
		q = q.Where(squirrel.NotEq{"expiry_date": nil}).
			Where(squirrel.Lt{"expiry_date": *filter.ExpiringBefore})
	}

	if filter.MinAvailable != nil {
		q = q.Where(squirrel.GtOrEq{"available_quantity": filter.MinAvailable.Int64Scaled()})
	}

	q = q.OrderBy("product_id", "batch_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lots []inventory.Lot
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lots, sql, args...); err != nil {
		return nil, fmt.Errorf("select lots: %w", err)
	}

	return lots, nil
}

// ListLotsByProduct returns lots across hubs for a product.
func (r *InventoryRepo) ListLotsByProduct(ctx context.Context, productID id.ID) ([]inventory.Lot, error) {
	q := r.builder.Select(lotColumns...).
		From(stockLotsTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.NotEq{"quantity": int64(0)}).
		OrderBy("hub_id", "batch_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lots []inventory.Lot
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lots, sql, args...); err != nil {
		return nil, fmt.Errorf("select lots: %w", err)
	}

	return lots, nil
}

// CreateMovements appends journal rows.
func (r *InventoryRepo) CreateMovements(ctx context.Context, movements []inventory.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, []any{
				m.LineID, m.RecorderID, m.RecorderType, m.RecordType,
				m.HubID, m.ProductID, m.BatchNo, m.Quantity, m.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, stockMovementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	// Fallback: non-transactional insert (slower). Prefer calling CreateMovements within tx.
	q := r.builder.Insert(stockMovementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(
			m.LineID, m.RecorderID, m.RecorderType, m.RecordType,
			m.HubID, m.ProductID, m.BatchNo, m.Quantity, m.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}

	return nil
}

// GetMovementsByRecorder retrieves movements caused by a document.
func (r *InventoryRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]inventory.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		OrderBy("created_at", "line_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []inventory.Movement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// GetMovementHistory returns movement history for a product.
func (r *InventoryRepo) GetMovementHistory(ctx context.Context, productID id.ID, filter inventory.MovementFilter) ([]inventory.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"product_id": productID})

	if filter.HubID != nil {
		q = q.Where(squirrel.Eq{"hub_id": *filter.HubID})
	}

	if filter.RecordType != nil {
		q = q.Where(squirrel.Eq{"record_type": *filter.RecordType})
	}

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}

	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC", "line_id DESC")

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

	var movements []inventory.Movement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}

	return movements, nil
}

// isUniqueViolation reports a PostgreSQL unique constraint error (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Ensure interface compliance.
var _ inventory.Repository = (*InventoryRepo)(nil)

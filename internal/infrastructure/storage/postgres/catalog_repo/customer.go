// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
	"salesflow/internal/domain/customers"
	"salesflow/internal/infrastructure/storage/postgres"
)

const customersTable = "cat_customers"

var customerColumns = postgres.ExtractDBColumns[customers.Customer]()

// CustomerRepo implements customers.Repository.
type CustomerRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txManager *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new customer.
func (r *CustomerRepo) Create(ctx context.Context, c *customers.Customer) error {
	data := postgres.StructToMap(c)

	filteredData := make(map[string]any, len(customerColumns))
	for _, col := range customerColumns {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.builder.Insert(customersTable).SetMap(filteredData)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate("customer", "id", c.ID.String())
		}
		return fmt.Errorf("insert customer: %w", err)
	}

	return nil
}

// Update updates customer attributes with optimistic locking.
// The outstanding aggregate is managed by AdjustOutstanding, not here.
func (r *CustomerRepo) Update(ctx context.Context, c *customers.Customer) error {
	q := r.builder.Update(customersTable).
		Set("name", c.Name).
		Set("email", c.Email).
		Set("phone", c.Phone).
		Set("deletion_mark", c.DeletionMark).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": c.ID}).
		Where(squirrel.Eq{"version": c.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("customer", c.ID.String())
	}

	c.Version++
	return nil
}

// Get retrieves a customer by ID.
func (r *CustomerRepo) Get(ctx context.Context, customerID id.ID) (*customers.Customer, error) {
	return r.get(ctx, customerID, false)
}

// GetForUpdate retrieves a customer with a row lock.
func (r *CustomerRepo) GetForUpdate(ctx context.Context, customerID id.ID) (*customers.Customer, error) {
	return r.get(ctx, customerID, true)
}

func (r *CustomerRepo) get(ctx context.Context, customerID id.ID, forUpdate bool) (*customers.Customer, error) {
	q := r.builder.Select(customerColumns...).
		From(customersTable).
		Where(squirrel.Eq{"id": customerID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c customers.Customer
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("customer", customerID.String())
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	return &c, nil
}

// List retrieves customers ordered by name.
func (r *CustomerRepo) List(ctx context.Context, limit, offset int) ([]customers.Customer, error) {
	q := r.builder.Select(customerColumns...).
		From(customersTable).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("name")

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

	var out []customers.Customer
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select customers: %w", err)
	}

	return out, nil
}

// AdjustOutstanding adds delta to the outstanding aggregate in place and
// returns the new value. A single UPDATE keeps concurrent adjustments safe
// without locking the whole row beforehand.
func (r *CustomerRepo) AdjustOutstanding(ctx context.Context, customerID id.ID, delta types.Money) (types.Money, error) {
	sql := `
		UPDATE cat_customers
		SET outstanding_amount = outstanding_amount + $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING outstanding_amount
	`

	var newValue types.Money
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, customerID, delta).Scan(&newValue); err != nil {
		if pgxscan.NotFound(err) {
			return types.Zero(), apperror.NewNotFound("customer", customerID.String())
		}
		return types.Zero(), fmt.Errorf("adjust outstanding: %w", err)
	}

	return newValue, nil
}

// SetOutstanding overwrites the aggregate, used by reconciliation.
func (r *CustomerRepo) SetOutstanding(ctx context.Context, customerID id.ID, amount types.Money) error {
	sql := `
		UPDATE cat_customers
		SET outstanding_amount = $2,
		    updated_at = NOW()
		WHERE id = $1
	`

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, customerID, amount)
	if err != nil {
		return fmt.Errorf("set outstanding: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("customer", customerID.String())
	}

	return nil
}

// Ensure interface compliance.
var _ customers.Repository = (*CustomerRepo)(nil)

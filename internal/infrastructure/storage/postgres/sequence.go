package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// SequenceQuerier routes sequence queries through the ambient
// transaction when one is present. Strict document numbers (invoices,
// receipts) must be allocated inside the issuing transaction so an
// aborted issue does not burn a number.
type SequenceQuerier struct {
	txManager *TxManager
}

// NewSequenceQuerier creates a querier for the numerator service.
func NewSequenceQuerier(txManager *TxManager) *SequenceQuerier {
	return &SequenceQuerier{txManager: txManager}
}

// QueryRow delegates to the transaction from context, or the pool.
func (q *SequenceQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...)
}

package db

import (
	"context"
	"database/sql"
)

type txKey struct{}

// WithTx stores a transaction in the context for repository methods to reuse.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns a transaction from context when available.
func TxFromContext(ctx context.Context) *sql.Tx {
	if ctx == nil {
		return nil
	}
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryerFor(ctx context.Context, db *sql.DB) querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

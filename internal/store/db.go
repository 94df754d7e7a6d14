package store

import (
	"context"
	"database/sql"
)

// DBTX abstracts the subset of database/sql the task store uses.
// Both *sql.DB and *sql.Tx satisfy it, so store methods work the same
// inside and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

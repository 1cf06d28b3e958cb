// Package database holds the shared query interface and transaction helper
// used by every repository.
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the subset of database/sql satisfied by both *sql.DB and *sql.Tx.
// Repositories are built over it so the sync engine can scope a whole
// action (ledger row plus entity mutation) to a single transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// WithinTx runs fn inside a transaction, committing on nil error and
// rolling back otherwise.
func WithinTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

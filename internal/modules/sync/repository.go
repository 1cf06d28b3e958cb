package sync

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// LedgerRepository is the idempotency ledger: a durable map from
// client action ID to processing status. CreatePending and
// MarkProcessed run inside the same transaction as the entity mutation
// they guard; MarkFailed runs in its own transaction after rollback.
type LedgerRepository interface {
	WithTx(tx *sql.Tx) LedgerRepository

	// Get returns the ledger row for an action ID, or errs.ErrNotFound.
	Get(ctx context.Context, businessID uuid.UUID, actionID string) (*Action, error)
	// CreatePending records the action as pending. Re-submitting a
	// previously failed action resets its row to pending; an already
	// processed action returns errs.ErrDuplicateAction without touching
	// the row, which makes this the race-safe duplicate gate when run
	// inside the action's transaction.
	CreatePending(ctx context.Context, a *Action) error
	MarkProcessed(ctx context.Context, businessID uuid.UUID, actionID string) error
	// MarkFailed upserts the full failed row: the pending row written in
	// the action's transaction rolled back with it.
	MarkFailed(ctx context.Context, a *Action, errMsg string) error
}

// WatermarkRepository persists per-user/device sync cursors.
type WatermarkRepository interface {
	// GetOrCreate returns the watermark, creating it on first contact.
	GetOrCreate(ctx context.Context, userID uuid.UUID, deviceID string) (*Watermark, error)
	// TouchSync advances last_sync_at to now. Called after every push
	// attempt, even a fully failed one.
	TouchSync(ctx context.Context, userID uuid.UUID, deviceID string) error
	// TouchPull advances last_pull_at to now on every pull.
	TouchPull(ctx context.Context, userID uuid.UUID, deviceID string) error
}

// ErrorRepository records sync conflicts and failures for monitoring.
// Not authoritative for retry logic.
type ErrorRepository interface {
	Log(ctx context.Context, e *SyncError) error
	ListUnresolved(ctx context.Context, businessID uuid.UUID, limit int) ([]*SyncError, error)
	Resolve(ctx context.Context, businessID uuid.UUID, id int64, resolvedBy uuid.UUID) error
}

package sync

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/suqhub/suq-backend/internal/database"
	"github.com/suqhub/suq-backend/internal/errs"
)

// ── idempotency ledger ────────────────────────────────────────────────────────

type ledgerRepo struct {
	db database.DBTX
}

// NewLedgerRepository creates the idempotency ledger over sync_actions.
func NewLedgerRepository(db *sql.DB) LedgerRepository { return &ledgerRepo{db: db} }

func (r *ledgerRepo) WithTx(tx *sql.Tx) LedgerRepository { return &ledgerRepo{db: tx} }

func (r *ledgerRepo) Get(ctx context.Context, businessID uuid.UUID, actionID string) (*Action, error) {
	a := &Action{}
	var errMsg sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, business_id, user_id, action_id, action_type, payload, status,
		       error_message, created_at, processed_at
		FROM sync_actions WHERE business_id=$1 AND action_id=$2`,
		businessID, actionID).Scan(
		&a.ID, &a.BusinessID, &a.UserID, &a.ActionID, &a.ActionType, &a.Payload,
		&a.Status, &errMsg, &a.CreatedAt, &a.ProcessedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	a.ErrorMessage = errMsg.String
	return a, nil
}

func (r *ledgerRepo) CreatePending(ctx context.Context, a *Action) error {
	// A failed action re-submitted with the same ID goes back to pending;
	// the unique key keeps one row per (business, action). A processed
	// row is left untouched and reported as a duplicate: the upsert
	// blocks on a concurrent writer's row lock, so this is the gate that
	// catches two simultaneous pushes of the same action.
	var status ActionStatus
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sync_actions (business_id, user_id, action_id, action_type, payload, status)
		VALUES ($1,$2,$3,$4,$5,'pending')
		ON CONFLICT (business_id, action_id)
		DO UPDATE SET
			status = CASE WHEN sync_actions.status='processed' THEN sync_actions.status ELSE 'pending' END,
			error_message = NULL
		RETURNING status`,
		a.BusinessID, a.UserID, a.ActionID, a.ActionType, a.Payload).Scan(&status)
	if err != nil {
		return err
	}
	if status == StatusProcessed {
		return errs.ErrDuplicateAction
	}
	return nil
}

func (r *ledgerRepo) MarkProcessed(ctx context.Context, businessID uuid.UUID, actionID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_actions SET status='processed', processed_at=now(), error_message=NULL
		WHERE business_id=$1 AND action_id=$2`, businessID, actionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *ledgerRepo) MarkFailed(ctx context.Context, a *Action, errMsg string) error {
	payload := a.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_actions (business_id, user_id, action_id, action_type, payload, status, error_message)
		VALUES ($1,$2,$3,$4,$5,'failed',$6)
		ON CONFLICT (business_id, action_id)
		DO UPDATE SET status='failed', error_message=EXCLUDED.error_message`,
		a.BusinessID, a.UserID, a.ActionID, a.ActionType, []byte(payload), errMsg)
	return err
}

// ── watermarks ────────────────────────────────────────────────────────────────

type watermarkRepo struct {
	db *sql.DB
}

// NewWatermarkRepository creates the sync cursor store.
func NewWatermarkRepository(db *sql.DB) WatermarkRepository { return &watermarkRepo{db: db} }

func (r *watermarkRepo) GetOrCreate(ctx context.Context, userID uuid.UUID, deviceID string) (*Watermark, error) {
	w := &Watermark{}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sync_states (user_id, device_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, device_id) DO UPDATE SET updated_at=sync_states.updated_at
		RETURNING id, user_id, device_id, last_sync_at, last_pull_at, sync_version, created_at, updated_at`,
		userID, deviceID).Scan(
		&w.ID, &w.UserID, &w.DeviceID, &w.LastSyncAt, &w.LastPullAt, &w.SyncVersion,
		&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *watermarkRepo) TouchSync(ctx context.Context, userID uuid.UUID, deviceID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_states (user_id, device_id, last_sync_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, device_id)
		DO UPDATE SET last_sync_at=now(), updated_at=now()`,
		userID, deviceID)
	return err
}

func (r *watermarkRepo) TouchPull(ctx context.Context, userID uuid.UUID, deviceID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_states (user_id, device_id, last_pull_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, device_id)
		DO UPDATE SET last_pull_at=now(), updated_at=now()`,
		userID, deviceID)
	return err
}

// ── sync errors ───────────────────────────────────────────────────────────────

type errorRepo struct {
	db *sql.DB
}

// NewErrorRepository creates the conflict/failure monitoring store.
func NewErrorRepository(db *sql.DB) ErrorRepository { return &errorRepo{db: db} }

func (r *errorRepo) Log(ctx context.Context, e *SyncError) error {
	var payload interface{}
	if len(e.Payload) > 0 {
		payload = []byte(e.Payload)
	}
	var device, actionID interface{}
	if e.DeviceID != "" {
		device = e.DeviceID
	}
	if e.SyncActionID != "" {
		actionID = e.SyncActionID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_errors (business_id, user_id, error_type, error_msg, payload, sync_action_id, device_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.BusinessID, e.UserID, e.ErrorType, e.ErrorMsg, payload, actionID, device)
	return err
}

func (r *errorRepo) ListUnresolved(ctx context.Context, businessID uuid.UUID, limit int) ([]*SyncError, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, business_id, user_id, error_type, error_msg, payload,
		       sync_action_id, device_id, resolved, resolved_at, created_at
		FROM sync_errors
		WHERE business_id=$1 AND resolved=false
		ORDER BY created_at DESC LIMIT $2`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SyncError
	for rows.Next() {
		e := &SyncError{}
		var actionID, device sql.NullString
		if err := rows.Scan(&e.ID, &e.BusinessID, &e.UserID, &e.ErrorType, &e.ErrorMsg,
			&e.Payload, &actionID, &device, &e.Resolved, &e.ResolvedAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.SyncActionID = actionID.String
		e.DeviceID = device.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *errorRepo) Resolve(ctx context.Context, businessID uuid.UUID, id int64, resolvedBy uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_errors SET resolved=true, resolved_at=now(), resolved_by=$3
		WHERE id=$1 AND business_id=$2`, id, businessID, resolvedBy)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

package realtime

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/suqhub/suq-backend/internal/metrics"
)

// Dispatcher drains committed-but-unpublished sync events and hands
// them to the hub. Fan-out failures never touch the write path: the
// event row is already durable by the time the dispatcher sees it.
type Dispatcher struct {
	db       *sql.DB
	hub      *Hub
	logger   *zap.Logger
	interval time.Duration
	wake     chan struct{}
}

func NewDispatcher(db *sql.DB, hub *Hub, logger *zap.Logger, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Dispatcher{
		db:       db,
		hub:      hub,
		logger:   logger,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Notify wakes the dispatcher ahead of its next poll. Called after a
// transaction that emitted events commits; safe from any goroutine.
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.wake:
		}
		if err := d.drain(ctx); err != nil {
			d.logger.Error("outbox drain", zap.Error(err))
		}
	}
}

const drainBatch = 100

func (d *Dispatcher) drain(ctx context.Context) error {
	for {
		events, err := d.fetchUnpublished(ctx, drainBatch)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		for _, e := range events {
			d.hub.BroadcastEvent(e)
			metrics.EventsPublishedTotal.Inc()
		}
		if err := d.markPublished(ctx, events[len(events)-1].ID); err != nil {
			return err
		}
		if len(events) < drainBatch {
			return nil
		}
	}
}

func (d *Dispatcher) fetchUnpublished(ctx context.Context, limit int) ([]*Event, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, business_id, branch_id, event_type, payload, user_id, device_id, created_at
		FROM sync_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e := &Event{}
		var device sql.NullString
		if err := rows.Scan(&e.ID, &e.BusinessID, &e.BranchID, &e.EventType, &e.Payload,
			&e.UserID, &device, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.DeviceID = device.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *Dispatcher) markPublished(ctx context.Context, upToID int64) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE sync_events SET published_at=now()
		WHERE published_at IS NULL AND id <= $1`, upToID)
	return err
}

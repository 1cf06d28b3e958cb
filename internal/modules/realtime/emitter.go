package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/suqhub/suq-backend/internal/database"
)

// Emitter persists sync events. Emit writes into the caller's
// transaction so the event commits or rolls back with the mutation it
// describes; delivery to live connections happens after commit via the
// outbox dispatcher, never from the write path.
type Emitter struct{}

func NewEmitter() *Emitter { return &Emitter{} }

// Emit appends a sync event row. payload must marshal to JSON.
func (e *Emitter) Emit(ctx context.Context, q database.DBTX, businessID uuid.UUID, eventType string, payload interface{}, userID *uuid.UUID, deviceID string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var dev interface{}
	if deviceID != "" {
		dev = deviceID
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO sync_events (business_id, event_type, payload, user_id, device_id)
		VALUES ($1,$2,$3,$4,$5)`,
		businessID, eventType, raw, userID, dev)
	return err
}

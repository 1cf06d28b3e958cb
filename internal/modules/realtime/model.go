package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants emitted by business actions.
const (
	EventSaleCreated    = "SALE_CREATED"
	EventStockUpdated   = "STOCK_UPDATED"
	EventProductCreated = "PRODUCT_CREATED"
	EventProductUpdated = "PRODUCT_UPDATED"
	EventProductDeleted = "PRODUCT_DELETED"
	EventCreditAdded    = "CREDIT_ADDED"
)

// Event is a durable sync event row. It is written inside the
// transaction of the mutation it describes and fanned out to live
// connections after commit by the outbox dispatcher.
type Event struct {
	ID         int64           `json:"id"`
	BusinessID uuid.UUID       `json:"business_id"`
	BranchID   *uuid.UUID      `json:"branch_id,omitempty"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	DeviceID   string          `json:"device_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Frame is a message on the realtime channel, in either direction.
type Frame struct {
	Type      string          `json:"type"`
	EventType string          `json:"event_type,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Events    []string        `json:"events,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Frame types understood by the channel.
const (
	FrameConnected  = "connected"
	FramePing       = "ping"
	FramePong       = "pong"
	FrameSyncEvent  = "sync_event"
	FrameSubscribe  = "subscribe"
	FrameSubscribed = "subscribed"
)

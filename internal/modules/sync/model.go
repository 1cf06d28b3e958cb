package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/suqhub/suq-backend/internal/errs"
	"github.com/suqhub/suq-backend/internal/modules/catalog"
	"github.com/suqhub/suq-backend/internal/modules/pos"
)

// ActionType is the closed set of client mutations the engine applies.
type ActionType string

const (
	ActionSale          ActionType = "sale"
	ActionStockUpdate   ActionType = "stock_update"
	ActionProductUpdate ActionType = "product_update"
)

// ActionStatus is the ledger state machine: pending -> processed | failed.
type ActionStatus string

const (
	StatusPending   ActionStatus = "pending"
	StatusProcessed ActionStatus = "processed"
	StatusFailed    ActionStatus = "failed"
)

// ActionIntent is one client-originated mutation in a push batch. The
// ID is client-generated and is the deduplication key for all time
// within a business.
type ActionIntent struct {
	ID        string          `json:"id"`
	Type      ActionType      `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// SalePayload is the payload of a sale action. The embedded checkout
// request's ClientRef defaults to the action ID so replaying the action
// is a natural no-op at the entity level too.
type SalePayload struct {
	pos.CheckoutRequest
}

// StockUpdatePayload overwrites a product's stock level (last-write-wins).
type StockUpdatePayload struct {
	ProductID string  `json:"product_id"`
	Stock     float64 `json:"stock"`
}

// ProductUpdatePayload patches product metadata (last-write-wins).
type ProductUpdatePayload struct {
	ProductID string               `json:"product_id"`
	Updates   catalog.ProductPatch `json:"updates"`
}

// DecodeSale parses and validates a sale payload.
func (a ActionIntent) DecodeSale() (*SalePayload, error) {
	var p SalePayload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	if p.ClientRef == "" {
		p.ClientRef = a.ID
	}
	return &p, nil
}

// DecodeStockUpdate parses and validates a stock_update payload.
func (a ActionIntent) DecodeStockUpdate() (*StockUpdatePayload, error) {
	var p StockUpdatePayload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	if p.ProductID == "" {
		return nil, fmt.Errorf("%w: product_id is required", errs.ErrValidation)
	}
	if p.Stock < 0 {
		return nil, fmt.Errorf("%w: stock cannot be negative", errs.ErrValidation)
	}
	return &p, nil
}

// DecodeProductUpdate parses and validates a product_update payload.
func (a ActionIntent) DecodeProductUpdate() (*ProductUpdatePayload, error) {
	var p ProductUpdatePayload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	if p.ProductID == "" {
		return nil, fmt.Errorf("%w: product_id is required", errs.ErrValidation)
	}
	return &p, nil
}

// Action is a ledger row: the durable record of a sync action and its
// terminal status.
type Action struct {
	ID           int64           `json:"id"`
	BusinessID   uuid.UUID       `json:"business_id"`
	UserID       uuid.UUID       `json:"user_id"`
	ActionID     string          `json:"action_id"`
	ActionType   ActionType      `json:"action_type"`
	Payload      json.RawMessage `json:"payload"`
	Status       ActionStatus    `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
}

// Watermark is the per-user (optionally per-device) sync cursor. Both
// timestamps only ever move forward.
type Watermark struct {
	ID          int64      `json:"-"`
	UserID      uuid.UUID  `json:"user_id"`
	DeviceID    string     `json:"device_id,omitempty"`
	LastSyncAt  *time.Time `json:"last_sync_at"`
	LastPullAt  *time.Time `json:"last_pull_at"`
	SyncVersion int        `json:"sync_version"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
}

// SyncError is an observability record of a conflict or failure. It is
// independent from the ledger status and never consulted for retries.
type SyncError struct {
	ID           int64           `json:"id"`
	BusinessID   uuid.UUID       `json:"business_id"`
	UserID       *uuid.UUID      `json:"user_id,omitempty"`
	ErrorType    string          `json:"error_type"` // conflict, validation, not_found, internal
	ErrorMsg     string          `json:"error_msg"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	SyncActionID string          `json:"sync_action_id,omitempty"`
	DeviceID     string          `json:"device_id,omitempty"`
	Resolved     bool            `json:"resolved"`
	ResolvedAt   *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ChangeAction classifies a pull delta entry.
type ChangeAction string

const (
	ChangeCreated ChangeAction = "created"
	ChangeUpdated ChangeAction = "updated"
	ChangeDeleted ChangeAction = "deleted"
)

// Change is one entry of a pull delta.
type Change struct {
	Type      string       `json:"type"` // product, stock, sale
	EntityID  uuid.UUID    `json:"entity_id"`
	Data      interface{}  `json:"data"`
	UpdatedAt time.Time    `json:"updated_at"`
	Action    ChangeAction `json:"action"`
}

// PushRequest is the push endpoint body.
type PushRequest struct {
	DeviceID string         `json:"device_id,omitempty"`
	Actions  []ActionIntent `json:"actions"`
}

// PushResult is the outcome of a push batch. Success is true iff no
// action failed.
type PushResult struct {
	Success      bool              `json:"success"`
	ProcessedIDs []string          `json:"processed_ids"`
	FailedIDs    []string          `json:"failed_ids"`
	Errors       map[string]string `json:"errors"`
}

// PullResult is the pull endpoint response.
type PullResult struct {
	ServerTime time.Time `json:"server_time"`
	Changes    []Change  `json:"changes"`
	HasMore    bool      `json:"has_more"`
}

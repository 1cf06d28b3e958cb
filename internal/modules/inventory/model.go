package inventory

import (
	"time"

	"github.com/google/uuid"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementPurchase   MovementType = "purchase"
	MovementAdjustment MovementType = "adjustment"
	MovementSync       MovementType = "sync"
)

// StockMovement is an append-only record of a stock change. The pull
// delta derives per-product stock changes from recent movements.
type StockMovement struct {
	ID            uuid.UUID    `json:"id"`
	BusinessID    uuid.UUID    `json:"business_id"`
	ProductID     uuid.UUID    `json:"product_id"`
	MovementType  MovementType `json:"movement_type"`
	Quantity      float64      `json:"quantity"` // negative for deductions
	ReferenceType string       `json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID   `json:"reference_id,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// StockDelta is the most recent movement timestamp per product since a
// pull cursor.
type StockDelta struct {
	ProductID uuid.UUID
	MovedAt   time.Time
}

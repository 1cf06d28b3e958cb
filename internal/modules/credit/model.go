package credit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one customer credit ledger row, typically created by a
// credit-paid checkout.
type Entry struct {
	ID            uuid.UUID  `json:"id"`
	BusinessID    uuid.UUID  `json:"business_id"`
	SaleID        *uuid.UUID `json:"sale_id,omitempty"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Amount        float64    `json:"amount"`
	Reference     string     `json:"reference,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Settled       bool       `json:"settled"`
	CreatedAt     time.Time  `json:"created_at"`
}

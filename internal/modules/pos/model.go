package pos

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is how a sale was paid.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentCard        PaymentMethod = "card"
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentCredit      PaymentMethod = "credit"
)

// Valid reports whether the payment method is one we accept.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentMobileMoney, PaymentCredit:
		return true
	}
	return false
}

// Sale is a completed checkout. Sales are monotonic appends: they are
// never updated or merged after creation.
type Sale struct {
	ID            uuid.UUID     `json:"id"`
	BusinessID    uuid.UUID     `json:"business_id"`
	UserID        uuid.UUID     `json:"user_id"`
	ClientRef     string        `json:"client_ref,omitempty"`
	Subtotal      float64       `json:"subtotal"`
	Discount      float64       `json:"discount"`
	Tax           float64       `json:"tax"`
	Total         float64       `json:"total"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus string        `json:"payment_status"`
	CustomerName  string        `json:"customer_name,omitempty"`
	CustomerPhone string        `json:"customer_phone,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	Items         []SaleItem    `json:"items,omitempty"`
}

// SaleItem is one line of a sale. UnitPrice is the price snapshot the
// client captured at cart-building time, not the live catalog price.
type SaleItem struct {
	ID          uuid.UUID `json:"id"`
	SaleID      uuid.UUID `json:"sale_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	Subtotal    float64   `json:"subtotal"`
}

// CartItem is one requested line of a checkout.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// CheckoutRequest is the payload for processing a sale, from the POS
// endpoint or from a `sale` sync action.
type CheckoutRequest struct {
	// ClientRef is the client-side sale identity used by the
	// duplicate-sale guard (cross-device double taps).
	ClientRef     string     `json:"client_ref,omitempty"`
	Items         []CartItem `json:"items"`
	PaymentMethod string     `json:"payment_method"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Discount      float64    `json:"discount,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Product is the authoritative catalog record for a business.
// CurrentStock is the only field mutated under a row lock; everything
// else is last-write-wins scalar metadata.
type Product struct {
	ID           uuid.UUID `json:"id"`
	BusinessID   uuid.UUID `json:"business_id"`
	Name         string    `json:"name"`
	SKU          string    `json:"sku,omitempty"`
	Barcode      string    `json:"barcode,omitempty"`
	Unit         string    `json:"unit"`
	SalePrice    float64   `json:"sale_price"`
	CostPrice    float64   `json:"cost_price"`
	CurrentStock float64   `json:"current_stock"`
	MinStock     float64   `json:"min_stock"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateProductRequest is the payload for adding a product.
type CreateProductRequest struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku,omitempty"`
	Barcode      string  `json:"barcode,omitempty"`
	Unit         string  `json:"unit,omitempty"`
	SalePrice    float64 `json:"sale_price"`
	CostPrice    float64 `json:"cost_price,omitempty"`
	CurrentStock float64 `json:"current_stock,omitempty"`
	MinStock     float64 `json:"min_stock,omitempty"`
}

// ProductPatch is a last-write-wins partial update. Nil fields are
// left untouched. Identity and ownership fields are not patchable.
type ProductPatch struct {
	Name      *string  `json:"name,omitempty"`
	SKU       *string  `json:"sku,omitempty"`
	Barcode   *string  `json:"barcode,omitempty"`
	Unit      *string  `json:"unit,omitempty"`
	SalePrice *float64 `json:"sale_price,omitempty"`
	CostPrice *float64 `json:"cost_price,omitempty"`
	MinStock  *float64 `json:"min_stock,omitempty"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

// IsEmpty reports whether the patch carries no changes.
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.SKU == nil && p.Barcode == nil && p.Unit == nil &&
		p.SalePrice == nil && p.CostPrice == nil && p.MinStock == nil && p.IsActive == nil
}

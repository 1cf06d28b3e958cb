package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Repository defines data access for products. Methods that take part
// in a sync action's transaction accept the transaction through WithTx.
type Repository interface {
	// WithTx returns a copy of the repository scoped to tx. The zero
	// receiver runs against the pool.
	WithTx(tx *sql.Tx) Repository

	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, businessID, id uuid.UUID) (*Product, error)
	// GetForUpdate locks the product row (SELECT ... FOR UPDATE) for the
	// remainder of the enclosing transaction. Concurrent writers to the
	// same product serialize here.
	GetForUpdate(ctx context.Context, businessID, id uuid.UUID) (*Product, error)
	List(ctx context.Context, businessID uuid.UUID) ([]*Product, error)
	// SetStock overwrites current_stock (last-write-wins stock_update).
	SetStock(ctx context.Context, businessID, id uuid.UUID, stock float64) error
	// DeductStock subtracts qty from a row already locked by GetForUpdate.
	DeductStock(ctx context.Context, businessID, id uuid.UUID, qty float64) error
	// ApplyPatch writes non-nil patch fields and bumps updated_at.
	ApplyPatch(ctx context.Context, businessID, id uuid.UUID, patch ProductPatch) error
	// ListChangedSince returns products with updated_at >= since, the
	// product portion of a pull delta.
	ListChangedSince(ctx context.Context, businessID uuid.UUID, since time.Time) ([]*Product, error)
}

package pos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Repository defines data access for sales.
type Repository interface {
	// WithTx returns a copy scoped to tx; checkout writes the sale, its
	// items, the stock deduction and the movement in one transaction.
	WithTx(tx *sql.Tx) Repository

	CreateSale(ctx context.Context, s *Sale) error
	CreateSaleItems(ctx context.Context, items []SaleItem) error
	GetByID(ctx context.Context, businessID, id uuid.UUID) (*Sale, error)
	// GetByClientRef is the duplicate-sale guard lookup.
	GetByClientRef(ctx context.Context, businessID uuid.UUID, clientRef string) (*Sale, error)
	// CreatedSince returns recent sales with items for the pull delta,
	// newest first, capped at limit.
	CreatedSince(ctx context.Context, businessID uuid.UUID, since time.Time, limit int) ([]*Sale, error)
}

package inventory

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Repository defines data access for stock movements.
type Repository interface {
	// WithTx returns a copy scoped to tx so movements land in the same
	// transaction as the stock mutation they describe.
	WithTx(tx *sql.Tx) Repository

	Record(ctx context.Context, m *StockMovement) error
	ListByProduct(ctx context.Context, businessID, productID uuid.UUID, limit int) ([]*StockMovement, error)
	// StockDeltasSince returns, per product, the latest movement time at
	// or after since. One of the three pull delta sources.
	StockDeltasSince(ctx context.Context, businessID uuid.UUID, since time.Time) ([]StockDelta, error)
}

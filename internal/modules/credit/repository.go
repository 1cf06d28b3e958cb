package credit

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Repository defines data access for credit entries.
type Repository interface {
	// WithTx returns a copy scoped to tx so a credit entry commits with
	// the sale that created it.
	WithTx(tx *sql.Tx) Repository

	Create(ctx context.Context, e *Entry) error
	ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*Entry, error)
	Settle(ctx context.Context, businessID, id uuid.UUID) error
}

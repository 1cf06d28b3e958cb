package inventory

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/suqhub/suq-backend/internal/database"
)

type postgresRepo struct {
	db database.DBTX
}

// NewPostgresRepository creates a stock movement repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) WithTx(tx *sql.Tx) Repository { return &postgresRepo{db: tx} }

func (r *postgresRepo) Record(ctx context.Context, m *StockMovement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_movements
		  (id, business_id, product_id, movement_type, quantity, reference_type, reference_id, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.ID, m.BusinessID, m.ProductID, m.MovementType, m.Quantity,
		nullString(m.ReferenceType), m.ReferenceID, nullString(m.Notes))
	return err
}

func (r *postgresRepo) ListByProduct(ctx context.Context, businessID, productID uuid.UUID, limit int) ([]*StockMovement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, business_id, product_id, movement_type, quantity,
		       reference_type, reference_id, notes, created_at
		FROM stock_movements
		WHERE business_id=$1 AND product_id=$2
		ORDER BY created_at DESC LIMIT $3`, businessID, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*StockMovement
	for rows.Next() {
		m := &StockMovement{}
		var refType, notes sql.NullString
		if err := rows.Scan(&m.ID, &m.BusinessID, &m.ProductID, &m.MovementType, &m.Quantity,
			&refType, &m.ReferenceID, &notes, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ReferenceType = refType.String
		m.Notes = notes.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *postgresRepo) StockDeltasSince(ctx context.Context, businessID uuid.UUID, since time.Time) ([]StockDelta, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, MAX(created_at)
		FROM stock_movements
		WHERE business_id=$1 AND created_at >= $2
		GROUP BY product_id`, businessID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StockDelta
	for rows.Next() {
		var d StockDelta
		if err := rows.Scan(&d.ProductID, &d.MovedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

package credit

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/suqhub/suq-backend/internal/database"
	"github.com/suqhub/suq-backend/internal/errs"
)

type postgresRepo struct {
	db database.DBTX
}

// NewPostgresRepository creates a credit entry repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) WithTx(tx *sql.Tx) Repository { return &postgresRepo{db: tx} }

func (r *postgresRepo) Create(ctx context.Context, e *Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credit_entries
		  (id, business_id, sale_id, customer_name, customer_phone, amount, reference, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.BusinessID, e.SaleID, e.CustomerName, nullString(e.CustomerPhone),
		e.Amount, nullString(e.Reference), nullString(e.Notes))
	return err
}

func (r *postgresRepo) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, business_id, sale_id, customer_name, customer_phone,
		       amount, reference, notes, settled, created_at
		FROM credit_entries WHERE business_id=$1 ORDER BY created_at DESC`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e := &Entry{}
		var phone, ref, notes sql.NullString
		if err := rows.Scan(&e.ID, &e.BusinessID, &e.SaleID, &e.CustomerName, &phone,
			&e.Amount, &ref, &notes, &e.Settled, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CustomerPhone = phone.String
		e.Reference = ref.String
		e.Notes = notes.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Settle(ctx context.Context, businessID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE credit_entries SET settled=true WHERE id=$1 AND business_id=$2`, id, businessID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

package pos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/suqhub/suq-backend/internal/database"
	"github.com/suqhub/suq-backend/internal/errs"
)

type postgresRepo struct {
	db database.DBTX
}

// NewPostgresRepository creates a sales repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) WithTx(tx *sql.Tx) Repository { return &postgresRepo{db: tx} }

func (r *postgresRepo) CreateSale(ctx context.Context, s *Sale) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sales
		  (id, business_id, user_id, client_ref, subtotal, discount, tax, total,
		   payment_method, payment_status, customer_name, customer_phone, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		s.ID, s.BusinessID, s.UserID, nullString(s.ClientRef), s.Subtotal, s.Discount,
		s.Tax, s.Total, s.PaymentMethod, s.PaymentStatus,
		nullString(s.CustomerName), nullString(s.CustomerPhone), nullString(s.Notes))
	return err
}

func (r *postgresRepo) CreateSaleItems(ctx context.Context, items []SaleItem) error {
	for i := range items {
		it := &items[i]
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, product_name, quantity, unit_price, subtotal)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			it.ID, it.SaleID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.Subtotal)
		if err != nil {
			return err
		}
	}
	return nil
}

const saleColumns = `id, business_id, user_id, client_ref, subtotal, discount, tax, total,
	       payment_method, payment_status, customer_name, customer_phone, notes, created_at`

func (r *postgresRepo) GetByID(ctx context.Context, businessID, id uuid.UUID) (*Sale, error) {
	s, err := r.scan(r.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales WHERE id=$1 AND business_id=$2`, id, businessID))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepo) GetByClientRef(ctx context.Context, businessID uuid.UUID, clientRef string) (*Sale, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales WHERE business_id=$1 AND client_ref=$2`, businessID, clientRef))
}

func (r *postgresRepo) CreatedSince(ctx context.Context, businessID uuid.UUID, since time.Time, limit int) ([]*Sale, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales WHERE business_id=$1 AND created_at >= $2
		ORDER BY created_at DESC LIMIT $3`, businessID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Sale
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, s := range out {
		if err := r.loadItems(ctx, s); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *postgresRepo) loadItems(ctx context.Context, s *Sale) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, product_name, quantity, unit_price, subtotal
		FROM sale_items WHERE sale_id=$1`, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return err
		}
		s.Items = append(s.Items, it)
	}
	return rows.Err()
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scan(row rowScanner) (*Sale, error) {
	s := &Sale{}
	var clientRef, custName, custPhone, notes sql.NullString
	err := row.Scan(&s.ID, &s.BusinessID, &s.UserID, &clientRef, &s.Subtotal, &s.Discount,
		&s.Tax, &s.Total, &s.PaymentMethod, &s.PaymentStatus, &custName, &custPhone,
		&notes, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	s.ClientRef = clientRef.String
	s.CustomerName = custName.String
	s.CustomerPhone = custPhone.String
	s.Notes = notes.String
	return s, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/suqhub/suq-backend/internal/database"
	"github.com/suqhub/suq-backend/internal/errs"
)

type postgresRepo struct {
	db database.DBTX
}

// NewPostgresRepository creates a product repository over the pool.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) WithTx(tx *sql.Tx) Repository { return &postgresRepo{db: tx} }

const productColumns = `id, business_id, name, sku, barcode, unit, sale_price, cost_price,
	       current_stock, min_stock, is_active, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products
		  (id, business_id, name, sku, barcode, unit, sale_price, cost_price,
		   current_stock, min_stock, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.BusinessID, p.Name, p.SKU, p.Barcode, p.Unit, p.SalePrice, p.CostPrice,
		p.CurrentStock, p.MinStock, p.IsActive)
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, businessID, id uuid.UUID) (*Product, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products WHERE id=$1 AND business_id=$2`, id, businessID))
}

func (r *postgresRepo) GetForUpdate(ctx context.Context, businessID, id uuid.UUID) (*Product, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products WHERE id=$1 AND business_id=$2 FOR UPDATE`, id, businessID))
}

func (r *postgresRepo) List(ctx context.Context, businessID uuid.UUID) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products WHERE business_id=$1 ORDER BY name`, businessID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *postgresRepo) SetStock(ctx context.Context, businessID, id uuid.UUID, stock float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET current_stock=$1, updated_at=now()
		WHERE id=$2 AND business_id=$3`, stock, id, businessID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *postgresRepo) DeductStock(ctx context.Context, businessID, id uuid.UUID, qty float64) error {
	// The guard repeats the floor check so a deduction outside a lock can
	// never drive stock negative.
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET current_stock=current_stock-$1, updated_at=now()
		WHERE id=$2 AND business_id=$3 AND current_stock >= $1`, qty, id, businessID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrInsufficientStock
	}
	return nil
}

func (r *postgresRepo) ApplyPatch(ctx context.Context, businessID, id uuid.UUID, patch ProductPatch) error {
	set := make([]string, 0, 8)
	args := make([]interface{}, 0, 10)
	add := func(col string, v interface{}) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.SKU != nil {
		add("sku", *patch.SKU)
	}
	if patch.Barcode != nil {
		add("barcode", *patch.Barcode)
	}
	if patch.Unit != nil {
		add("unit", *patch.Unit)
	}
	if patch.SalePrice != nil {
		add("sale_price", *patch.SalePrice)
	}
	if patch.CostPrice != nil {
		add("cost_price", *patch.CostPrice)
	}
	if patch.MinStock != nil {
		add("min_stock", *patch.MinStock)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, id, businessID)
	query := fmt.Sprintf(`UPDATE products SET %s, updated_at=now() WHERE id=$%d AND business_id=$%d`,
		joinSet(set), len(args)-1, len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *postgresRepo) ListChangedSince(ctx context.Context, businessID uuid.UUID, since time.Time) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products WHERE business_id=$1 AND updated_at >= $2
		ORDER BY updated_at`, businessID, since)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

// ── scanner ───────────────────────────────────────────────────────────────────

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scan(row rowScanner) (*Product, error) {
	p := &Product{}
	var sku, barcode sql.NullString
	err := row.Scan(&p.ID, &p.BusinessID, &p.Name, &sku, &barcode, &p.Unit,
		&p.SalePrice, &p.CostPrice, &p.CurrentStock, &p.MinStock, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	p.SKU = sku.String
	p.Barcode = barcode.String
	return p, nil
}

func (r *postgresRepo) collect(rows *sql.Rows) ([]*Product, error) {
	defer rows.Close()
	var out []*Product
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func joinSet(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

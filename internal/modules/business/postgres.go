package business

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/suqhub/suq-backend/internal/errs"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a PostgreSQL business repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateBusiness(ctx context.Context, b *Business) error {
	query := `
		INSERT INTO businesses (id, owner_user_id, name, currency)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, b.ID, b.OwnerUserID, b.Name, b.Currency)
	return err
}

func (r *postgresRepository) GetBusinessByID(ctx context.Context, id uuid.UUID) (*Business, error) {
	query := `
		SELECT id, owner_user_id, name, currency, created_at, updated_at
		FROM businesses
		WHERE id = $1
	`
	return scanBusiness(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresRepository) GetBusinessByUserID(ctx context.Context, userID uuid.UUID) (*Business, error) {
	query := `
		SELECT b.id, b.owner_user_id, b.name, b.currency, b.created_at, b.updated_at
		FROM businesses b
		JOIN users u ON u.business_id = b.id
		WHERE u.id = $1
	`
	return scanBusiness(r.db.QueryRowContext(ctx, query, userID))
}

func (r *postgresRepository) AttachUserToBusiness(ctx context.Context, userID, businessID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET business_id = $1, updated_at = now() WHERE id = $2`,
		businessID, userID)
	return err
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanBusiness(row rowScanner) (*Business, error) {
	b := &Business{}
	err := row.Scan(&b.ID, &b.OwnerUserID, &b.Name, &b.Currency, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

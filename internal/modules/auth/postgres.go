package auth

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

// NewPostgresRepository creates a PostgreSQL user repository.
func NewPostgresRepository(db *sql.DB) UserRepository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, telegram_id, business_id, name, phone, pin_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var tgID interface{}
	if u.TelegramID != 0 {
		tgID = u.TelegramID
	}
	_, err := r.db.ExecContext(ctx, query, u.ID, tgID, u.BusinessID, u.Name,
		nullString(u.Phone), nullString(u.PinHash), u.Role)
	return err
}

func (r *postgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE id = $1`, id))
}

func (r *postgresRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE telegram_id = $1`, telegramID))
}

func (r *postgresRepository) GetUserByPhone(ctx context.Context, phone string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE phone = $1`, phone))
}

const userSelect = `
	SELECT id, telegram_id, business_id, name, phone, pin_hash, role, created_at, updated_at
	FROM users`

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanUser(row rowScanner) (*User, error) {
	u := &User{}
	var tgID sql.NullInt64
	var phone, pin sql.NullString
	err := row.Scan(&u.ID, &tgID, &u.BusinessID, &u.Name, &phone, &pin, &u.Role,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	u.TelegramID = tgID.Int64
	u.Phone = phone.String
	u.PinHash = pin.String
	return u, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is a shop owner or staff member, usually identified by their
// Telegram account. Accounts are created here on first login; the
// business module attaches them to a tenant afterwards.
type User struct {
	ID         uuid.UUID  `json:"id"`
	TelegramID int64      `json:"telegram_id,omitempty"`
	BusinessID *uuid.UUID `json:"business_id,omitempty"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone,omitempty"`
	PinHash    string     `json:"-"`
	Role       string     `json:"role"` // OWNER, STAFF, CASHIER
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// UserRepository defines data access for user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	GetUserByPhone(ctx context.Context, phone string) (*User, error)
}

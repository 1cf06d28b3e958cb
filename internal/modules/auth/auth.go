// Package auth authenticates Telegram mini-app users and issues access
// tokens carrying the (business, user) identity every other module
// partitions by.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated principal attached to a request context.
type Identity struct {
	UserID     uuid.UUID
	BusinessID uuid.UUID
	Role       string
}

type ctxKey struct{}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the identity placed by the middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Service defines authentication business logic.
type Service interface {
	// TelegramLogin validates mini-app initData, creates the user on
	// first contact, and returns a signed access token.
	TelegramLogin(ctx context.Context, initData string) (*LoginResult, error)
	// PinLogin authenticates a staff member by phone and PIN.
	PinLogin(ctx context.Context, phone, pin string) (*LoginResult, error)
	// ParseToken verifies a token and returns the identity it carries.
	ParseToken(token string) (Identity, error)
	// TokenForUser reissues a token for an already authenticated user,
	// picking up claim changes such as a newly registered business.
	TokenForUser(ctx context.Context, userID uuid.UUID) (*LoginResult, error)
}

// LoginResult is returned by both login flows.
type LoginResult struct {
	Token      string     `json:"token"`
	UserID     uuid.UUID  `json:"user_id"`
	BusinessID *uuid.UUID `json:"business_id,omitempty"`
	Name       string     `json:"name"`
	Role       string     `json:"role"`
}

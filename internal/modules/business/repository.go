package business

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for tenants and their membership.
// User accounts themselves belong to the auth module.
type Repository interface {
	CreateBusiness(ctx context.Context, b *Business) error
	GetBusinessByID(ctx context.Context, id uuid.UUID) (*Business, error)
	GetBusinessByUserID(ctx context.Context, userID uuid.UUID) (*Business, error)
	AttachUserToBusiness(ctx context.Context, userID, businessID uuid.UUID) error
}

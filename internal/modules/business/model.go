package business

import (
	"time"

	"github.com/google/uuid"
)

// Business is an isolated retail tenant. Every entity in the system is
// partitioned by its id.
type Business struct {
	ID          uuid.UUID `json:"id"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	Name        string    `json:"name"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RegisterBusinessRequest is the payload for creating a tenant.
type RegisterBusinessRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency,omitempty"`
}

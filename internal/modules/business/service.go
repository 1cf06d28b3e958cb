package business

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/suqhub/suq-backend/internal/errs"
)

// Service defines tenant business logic.
type Service interface {
	Register(ctx context.Context, ownerUserID uuid.UUID, req RegisterBusinessRequest) (*Business, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Business, error)
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) Register(ctx context.Context, ownerUserID uuid.UUID, req RegisterBusinessRequest) (*Business, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", errs.ErrValidation)
	}
	currency := req.Currency
	if currency == "" {
		currency = "ETB"
	}
	now := time.Now().UTC()
	b := &Business{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		Name:        req.Name,
		Currency:    currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateBusiness(ctx, b); err != nil {
		return nil, err
	}
	if err := s.repo.AttachUserToBusiness(ctx, ownerUserID, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Business, error) {
	return s.repo.GetBusinessByUserID(ctx, userID)
}

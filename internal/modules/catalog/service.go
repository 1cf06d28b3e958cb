package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/suqhub/suq-backend/internal/database"
	"github.com/suqhub/suq-backend/internal/errs"
	"github.com/suqhub/suq-backend/internal/modules/realtime"
)

// Service defines catalog business logic.
type Service interface {
	CreateProduct(ctx context.Context, businessID uuid.UUID, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, businessID uuid.UUID, id string) (*Product, error)
	ListProducts(ctx context.Context, businessID uuid.UUID) ([]*Product, error)
	PatchProduct(ctx context.Context, businessID uuid.UUID, id string, patch ProductPatch) (*Product, error)
}

type service struct {
	db      *sql.DB
	repo    Repository
	emitter *realtime.Emitter
	notify  func()
}

// NewService wires catalog mutations against the product store. notify
// wakes the outbox dispatcher after a committed mutation; it may be nil.
func NewService(db *sql.DB, repo Repository, emitter *realtime.Emitter, notify func()) Service {
	if notify == nil {
		notify = func() {}
	}
	return &service{db: db, repo: repo, emitter: emitter, notify: notify}
}

func (s *service) CreateProduct(ctx context.Context, businessID uuid.UUID, req CreateProductRequest) (*Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", errs.ErrValidation)
	}
	if req.SalePrice < 0 || req.CurrentStock < 0 {
		return nil, fmt.Errorf("%w: price and stock cannot be negative", errs.ErrValidation)
	}
	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}
	now := time.Now().UTC()
	p := &Product{
		ID:           uuid.New(),
		BusinessID:   businessID,
		Name:         req.Name,
		SKU:          req.SKU,
		Barcode:      req.Barcode,
		Unit:         unit,
		SalePrice:    req.SalePrice,
		CostPrice:    req.CostPrice,
		CurrentStock: req.CurrentStock,
		MinStock:     req.MinStock,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := database.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.repo.WithTx(tx).Create(ctx, p); err != nil {
			return err
		}
		return s.emitter.Emit(ctx, tx, businessID, realtime.EventProductCreated, p, nil, "")
	})
	if err != nil {
		return nil, err
	}
	s.notify()
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, businessID uuid.UUID, id string) (*Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid product id", errs.ErrValidation)
	}
	return s.repo.GetByID(ctx, businessID, pid)
}

func (s *service) ListProducts(ctx context.Context, businessID uuid.UUID) ([]*Product, error) {
	return s.repo.List(ctx, businessID)
}

func (s *service) PatchProduct(ctx context.Context, businessID uuid.UUID, id string, patch ProductPatch) (*Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid product id", errs.ErrValidation)
	}
	if patch.SalePrice != nil && *patch.SalePrice < 0 {
		return nil, fmt.Errorf("%w: sale_price cannot be negative", errs.ErrValidation)
	}
	err = database.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ApplyPatch(ctx, businessID, pid, patch); err != nil {
			return err
		}
		event := realtime.EventProductUpdated
		if patch.IsActive != nil && !*patch.IsActive {
			event = realtime.EventProductDeleted
		}
		return s.emitter.Emit(ctx, tx, businessID, event, map[string]interface{}{
			"product_id": pid,
			"updates":    patch,
		}, nil, "")
	})
	if err != nil {
		return nil, err
	}
	s.notify()
	return s.repo.GetByID(ctx, businessID, pid)
}

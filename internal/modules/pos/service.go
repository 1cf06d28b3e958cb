package pos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suqhub/suq-backend/internal/database"
	"github.com/suqhub/suq-backend/internal/errs"
	"github.com/suqhub/suq-backend/internal/modules/catalog"
	"github.com/suqhub/suq-backend/internal/modules/credit"
	"github.com/suqhub/suq-backend/internal/modules/inventory"
	"github.com/suqhub/suq-backend/internal/modules/realtime"
)

// Service defines POS business logic.
type Service interface {
	// Checkout processes a sale in its own transaction and wakes the
	// event dispatcher on success.
	Checkout(ctx context.Context, businessID, userID uuid.UUID, req CheckoutRequest) (*Sale, error)
	// CheckoutTx processes a sale inside a caller-owned transaction; the
	// sync engine uses it so a whole sale action commits atomically with
	// its ledger row. The bool result reports a duplicate no-op.
	CheckoutTx(ctx context.Context, tx *sql.Tx, businessID, userID uuid.UUID, req CheckoutRequest) (*Sale, bool, error)
	GetSale(ctx context.Context, businessID uuid.UUID, id string) (*Sale, error)
	RecentSales(ctx context.Context, businessID uuid.UUID, since time.Time, limit int) ([]*Sale, error)
}

type service struct {
	db        *sql.DB
	sales     Repository
	products  catalog.Repository
	movements inventory.Repository
	credits   credit.Repository
	emitter   *realtime.Emitter
	notify    func()
	logger    *zap.Logger
}

// NewService wires checkout against the stores it mutates. notify is
// called after a committed checkout to wake the outbox dispatcher; it
// may be nil.
func NewService(db *sql.DB, sales Repository, products catalog.Repository,
	movements inventory.Repository, credits credit.Repository,
	emitter *realtime.Emitter, notify func(), logger *zap.Logger) Service {
	if notify == nil {
		notify = func() {}
	}
	return &service{
		db:        db,
		sales:     sales,
		products:  products,
		movements: movements,
		credits:   credits,
		emitter:   emitter,
		notify:    notify,
		logger:    logger,
	}
}

func (s *service) Checkout(ctx context.Context, businessID, userID uuid.UUID, req CheckoutRequest) (*Sale, error) {
	var sale *Sale
	err := database.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		sale, _, err = s.CheckoutTx(ctx, tx, businessID, userID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify()
	return sale, nil
}

func (s *service) CheckoutTx(ctx context.Context, tx *sql.Tx, businessID, userID uuid.UUID, req CheckoutRequest) (*Sale, bool, error) {
	if err := validateCheckout(req); err != nil {
		return nil, false, err
	}
	method := PaymentMethod(req.PaymentMethod)

	sales := s.sales.WithTx(tx)
	products := s.products.WithTx(tx)
	movements := s.movements.WithTx(tx)

	// Duplicate-sale guard: a sale with the same client identity is a
	// no-op success, it must not deduct stock a second time.
	if req.ClientRef != "" {
		existing, err := sales.GetByClientRef(ctx, businessID, req.ClientRef)
		if err == nil {
			s.logger.Info("duplicate sale ignored",
				zap.String("business_id", businessID.String()),
				zap.String("client_ref", req.ClientRef))
			return existing, true, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, false, err
		}
	}

	// Lock every product row first, then deduct. The locks hold until
	// the enclosing transaction commits, so two devices selling the same
	// product serialize here.
	type line struct {
		product *catalog.Product
		item    CartItem
		qty     float64
	}
	lines := make([]line, 0, len(req.Items))
	var subtotal float64
	for i, item := range req.Items {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, false, fmt.Errorf("%w: item[%d] invalid product_id", errs.ErrValidation, i)
		}
		p, err := products.GetForUpdate(ctx, businessID, pid)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return nil, false, fmt.Errorf("%w: product %s", errs.ErrNotFound, item.ProductID)
			}
			return nil, false, err
		}
		if p.CurrentStock < item.Quantity {
			return nil, false, fmt.Errorf("%w: %s has %.2f, requested %.2f",
				errs.ErrInsufficientStock, p.Name, p.CurrentStock, item.Quantity)
		}
		// Price snapshot: the client's cart price wins over the live
		// catalog price so a concurrent price edit cannot change an
		// in-flight total.
		subtotal += item.Quantity * item.UnitPrice
		lines = append(lines, line{product: p, item: item, qty: item.Quantity})
	}

	total := subtotal - req.Discount
	status := "completed"
	if method == PaymentCredit {
		status = "pending"
	}

	sale := &Sale{
		ID:            uuid.New(),
		BusinessID:    businessID,
		UserID:        userID,
		ClientRef:     req.ClientRef,
		Subtotal:      subtotal,
		Discount:      req.Discount,
		Total:         total,
		PaymentMethod: method,
		PaymentStatus: status,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
		CreatedAt:     time.Now().UTC(),
	}
	if err := sales.CreateSale(ctx, sale); err != nil {
		return nil, false, err
	}

	items := make([]SaleItem, 0, len(lines))
	for _, l := range lines {
		if err := products.DeductStock(ctx, businessID, l.product.ID, l.qty); err != nil {
			return nil, false, err
		}
		items = append(items, SaleItem{
			ID:          uuid.New(),
			SaleID:      sale.ID,
			ProductID:   l.product.ID,
			ProductName: l.product.Name,
			Quantity:    l.qty,
			UnitPrice:   l.item.UnitPrice,
			Subtotal:    l.qty * l.item.UnitPrice,
		})
		if err := movements.Record(ctx, &inventory.StockMovement{
			ID:            uuid.New(),
			BusinessID:    businessID,
			ProductID:     l.product.ID,
			MovementType:  inventory.MovementSale,
			Quantity:      -l.qty,
			ReferenceType: "sale",
			ReferenceID:   &sale.ID,
		}); err != nil {
			return nil, false, err
		}
	}
	if err := sales.CreateSaleItems(ctx, items); err != nil {
		return nil, false, err
	}
	sale.Items = items

	if method == PaymentCredit && req.CustomerName != "" {
		if err := s.credits.WithTx(tx).Create(ctx, &credit.Entry{
			ID:            uuid.New(),
			BusinessID:    businessID,
			SaleID:        &sale.ID,
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			Amount:        total,
			Reference:     req.ClientRef,
			Notes:         req.Notes,
		}); err != nil {
			return nil, false, err
		}
	}

	if err := s.emitter.Emit(ctx, tx, businessID, realtime.EventSaleCreated, map[string]interface{}{
		"sale_id":        sale.ID,
		"total":          total,
		"payment_method": method,
		"items_count":    len(items),
	}, &userID, ""); err != nil {
		return nil, false, err
	}

	return sale, false, nil
}

func (s *service) GetSale(ctx context.Context, businessID uuid.UUID, id string) (*Sale, error) {
	saleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid sale id", errs.ErrValidation)
	}
	return s.sales.GetByID(ctx, businessID, saleID)
}

func (s *service) RecentSales(ctx context.Context, businessID uuid.UUID, since time.Time, limit int) ([]*Sale, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.sales.CreatedSince(ctx, businessID, since, limit)
}

func validateCheckout(req CheckoutRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: items are required", errs.ErrValidation)
	}
	if !PaymentMethod(req.PaymentMethod).Valid() {
		return fmt.Errorf("%w: invalid payment_method %q", errs.ErrValidation, req.PaymentMethod)
	}
	if req.Discount < 0 {
		return fmt.Errorf("%w: discount cannot be negative", errs.ErrValidation)
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item[%d] quantity must be positive", errs.ErrValidation, i)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: item[%d] unit_price cannot be negative", errs.ErrValidation, i)
		}
	}
	return nil
}

package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suqhub/suq-backend/internal/database"
	"github.com/suqhub/suq-backend/internal/errs"
	"github.com/suqhub/suq-backend/internal/metrics"
	"github.com/suqhub/suq-backend/internal/modules/catalog"
	"github.com/suqhub/suq-backend/internal/modules/inventory"
	"github.com/suqhub/suq-backend/internal/modules/pos"
	"github.com/suqhub/suq-backend/internal/modules/realtime"
)

const (
	defaultPullLimit = 100
	maxPullLimit     = 500
)

// StateResult is the sync state endpoint response.
type StateResult struct {
	ServerTime       time.Time    `json:"server_time"`
	Watermark        *Watermark   `json:"watermark"`
	UnresolvedErrors []*SyncError `json:"unresolved_errors"`
}

// Service is the sync engine: it applies pushed action batches and
// computes pull deltas.
type Service interface {
	// Push applies a batch of client actions strictly in order. Each
	// action commits or rolls back on its own; one failure never blocks
	// the actions after it. Re-pushing a processed action is a no-op
	// success.
	Push(ctx context.Context, businessID, userID uuid.UUID, req PushRequest) (*PushResult, error)
	// Pull returns server-side changes at or after since, defaulting to
	// the configured window when the client sends no cursor.
	Pull(ctx context.Context, businessID, userID uuid.UUID, deviceID string, since *time.Time, limit int) (*PullResult, error)
	// State reports the caller's watermark and unresolved sync errors.
	State(ctx context.Context, businessID, userID uuid.UUID, deviceID string) (*StateResult, error)
}

type service struct {
	db         *sql.DB
	ledger     LedgerRepository
	watermarks WatermarkRepository
	errlog     ErrorRepository
	checkout   pos.Service
	sales      pos.Repository
	products   catalog.Repository
	movements  inventory.Repository
	emitter    *realtime.Emitter
	notify     func()
	pullWindow time.Duration
	maxBatch   int
	logger     *zap.Logger
}

// NewService wires the sync engine. notify wakes the outbox dispatcher
// after a batch with at least one committed action; it may be nil.
func NewService(db *sql.DB, ledger LedgerRepository, watermarks WatermarkRepository,
	errlog ErrorRepository, checkout pos.Service, sales pos.Repository,
	products catalog.Repository, movements inventory.Repository,
	emitter *realtime.Emitter, notify func(),
	pullWindow time.Duration, maxBatch int, logger *zap.Logger) Service {
	if notify == nil {
		notify = func() {}
	}
	return &service{
		db:         db,
		ledger:     ledger,
		watermarks: watermarks,
		errlog:     errlog,
		checkout:   checkout,
		sales:      sales,
		products:   products,
		movements:  movements,
		emitter:    emitter,
		notify:     notify,
		pullWindow: pullWindow,
		maxBatch:   maxBatch,
		logger:     logger,
	}
}

func (s *service) Push(ctx context.Context, businessID, userID uuid.UUID, req PushRequest) (*PushResult, error) {
	if len(req.Actions) == 0 {
		return nil, fmt.Errorf("%w: actions cannot be empty", errs.ErrValidation)
	}
	if s.maxBatch > 0 && len(req.Actions) > s.maxBatch {
		return nil, fmt.Errorf("%w: batch of %d exceeds limit of %d", errs.ErrValidation, len(req.Actions), s.maxBatch)
	}

	res := &PushResult{
		ProcessedIDs: make([]string, 0, len(req.Actions)),
		FailedIDs:    []string{},
		Errors:       map[string]string{},
	}

	committed := false
	for _, intent := range req.Actions {
		if intent.ID == "" {
			res.FailedIDs = append(res.FailedIDs, intent.ID)
			res.Errors[intent.ID] = "action id is required"
			metrics.SyncActionsTotal.WithLabelValues(string(intent.Type), "failed").Inc()
			continue
		}

		if err := s.applyOne(ctx, businessID, userID, req.DeviceID, intent); err != nil {
			if errors.Is(err, errs.ErrDuplicateAction) {
				// Already processed on a previous push: report success
				// without touching any entity.
				res.ProcessedIDs = append(res.ProcessedIDs, intent.ID)
				metrics.SyncActionsTotal.WithLabelValues(string(intent.Type), "duplicate").Inc()
				continue
			}
			s.recordFailure(ctx, businessID, userID, req.DeviceID, intent, err)
			res.FailedIDs = append(res.FailedIDs, intent.ID)
			res.Errors[intent.ID] = err.Error()
			continue
		}
		res.ProcessedIDs = append(res.ProcessedIDs, intent.ID)
		metrics.SyncActionsTotal.WithLabelValues(string(intent.Type), "processed").Inc()
		committed = true
	}

	// The watermark tracks contact, not success: it advances even when
	// every action in the batch failed, so a poisoned action cannot
	// freeze the cursor forever.
	if err := s.watermarks.TouchSync(ctx, userID, req.DeviceID); err != nil {
		s.logger.Error("advance sync watermark",
			zap.String("user_id", userID.String()), zap.Error(err))
	}
	if committed {
		s.notify()
	}

	res.Success = len(res.FailedIDs) == 0
	return res, nil
}

// applyOne runs a single action: ledger row and entity mutation commit
// in one transaction, so a crash can never record an action as
// processed without its effects or vice versa. The pre-transaction Get
// is a fast path only; CreatePending re-checks under the row lock, so
// a concurrent push of the same action rolls back instead of
// re-applying side effects.
func (s *service) applyOne(ctx context.Context, businessID, userID uuid.UUID, deviceID string, intent ActionIntent) error {
	prior, err := s.ledger.Get(ctx, businessID, intent.ID)
	if err == nil && prior.Status == StatusProcessed {
		return errs.ErrDuplicateAction
	}
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	return database.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		ledger := s.ledger.WithTx(tx)
		if err := ledger.CreatePending(ctx, &Action{
			BusinessID: businessID,
			UserID:     userID,
			ActionID:   intent.ID,
			ActionType: intent.Type,
			Payload:    intent.Payload,
		}); err != nil {
			return err
		}
		if err := s.dispatch(ctx, tx, businessID, userID, deviceID, intent); err != nil {
			return err
		}
		return ledger.MarkProcessed(ctx, businessID, intent.ID)
	})
}

func (s *service) dispatch(ctx context.Context, tx *sql.Tx, businessID, userID uuid.UUID, deviceID string, intent ActionIntent) error {
	switch intent.Type {
	case ActionSale:
		return s.applySale(ctx, tx, businessID, userID, intent)
	case ActionStockUpdate:
		return s.applyStockUpdate(ctx, tx, businessID, userID, deviceID, intent)
	case ActionProductUpdate:
		return s.applyProductUpdate(ctx, tx, businessID, userID, deviceID, intent)
	default:
		return fmt.Errorf("%w: unknown action type %q", errs.ErrValidation, intent.Type)
	}
}

func (s *service) applySale(ctx context.Context, tx *sql.Tx, businessID, userID uuid.UUID, intent ActionIntent) error {
	p, err := intent.DecodeSale()
	if err != nil {
		return err
	}
	_, duplicate, err := s.checkout.CheckoutTx(ctx, tx, businessID, userID, p.CheckoutRequest)
	if err != nil {
		return err
	}
	if duplicate {
		s.logger.Info("sale action matched existing sale",
			zap.String("business_id", businessID.String()),
			zap.String("action_id", intent.ID))
	}
	return nil
}

// applyStockUpdate overwrites the stock level. Last write wins between
// devices; the row lock only serializes the overwrite against an
// in-flight checkout on the same product.
func (s *service) applyStockUpdate(ctx context.Context, tx *sql.Tx, businessID, userID uuid.UUID, deviceID string, intent ActionIntent) error {
	p, err := intent.DecodeStockUpdate()
	if err != nil {
		return err
	}
	productID, err := uuid.Parse(p.ProductID)
	if err != nil {
		return fmt.Errorf("%w: invalid product_id", errs.ErrValidation)
	}

	products := s.products.WithTx(tx)
	before, err := products.GetForUpdate(ctx, businessID, productID)
	if err != nil {
		return err
	}
	if err := products.SetStock(ctx, businessID, productID, p.Stock); err != nil {
		return err
	}
	if err := s.movements.WithTx(tx).Record(ctx, &inventory.StockMovement{
		BusinessID:    businessID,
		ProductID:     productID,
		MovementType:  inventory.MovementSync,
		Quantity:      p.Stock - before.CurrentStock,
		ReferenceType: "sync_action",
		Notes:         intent.ID,
	}); err != nil {
		return err
	}
	return s.emitter.Emit(ctx, tx, businessID, realtime.EventStockUpdated, map[string]interface{}{
		"product_id":    productID,
		"current_stock": p.Stock,
	}, &userID, deviceID)
}

func (s *service) applyProductUpdate(ctx context.Context, tx *sql.Tx, businessID, userID uuid.UUID, deviceID string, intent ActionIntent) error {
	p, err := intent.DecodeProductUpdate()
	if err != nil {
		return err
	}
	productID, err := uuid.Parse(p.ProductID)
	if err != nil {
		return fmt.Errorf("%w: invalid product_id", errs.ErrValidation)
	}
	if p.Updates.IsEmpty() {
		return nil
	}
	if err := s.products.WithTx(tx).ApplyPatch(ctx, businessID, productID, p.Updates); err != nil {
		return err
	}
	return s.emitter.Emit(ctx, tx, businessID, realtime.EventProductUpdated, map[string]interface{}{
		"product_id": productID,
		"updates":    p.Updates,
	}, &userID, deviceID)
}

// recordFailure writes the failed ledger row and the sync_errors
// record after the action's transaction rolled back.
func (s *service) recordFailure(ctx context.Context, businessID, userID uuid.UUID, deviceID string, intent ActionIntent, cause error) {
	errorType, kind := classify(cause)
	metrics.SyncActionsTotal.WithLabelValues(string(intent.Type), "failed").Inc()
	if errorType == errTypeConflict {
		metrics.SyncConflictsTotal.WithLabelValues(kind).Inc()
	}

	if err := s.ledger.MarkFailed(ctx, &Action{
		BusinessID: businessID,
		UserID:     userID,
		ActionID:   intent.ID,
		ActionType: intent.Type,
		Payload:    intent.Payload,
	}, cause.Error()); err != nil {
		s.logger.Error("mark action failed",
			zap.String("action_id", intent.ID), zap.Error(err))
	}
	if err := s.errlog.Log(ctx, &SyncError{
		BusinessID:   businessID,
		UserID:       &userID,
		ErrorType:    errorType,
		ErrorMsg:     cause.Error(),
		Payload:      intent.Payload,
		SyncActionID: intent.ID,
		DeviceID:     deviceID,
	}); err != nil {
		s.logger.Error("log sync error",
			zap.String("action_id", intent.ID), zap.Error(err))
	}
	s.logger.Warn("sync action rejected",
		zap.String("business_id", businessID.String()),
		zap.String("action_id", intent.ID),
		zap.String("type", string(intent.Type)),
		zap.String("error_type", errorType),
		zap.Error(cause))
}

func (s *service) Pull(ctx context.Context, businessID, userID uuid.UUID, deviceID string, since *time.Time, limit int) (*PullResult, error) {
	now := time.Now().UTC()
	cursor := now.Add(-s.pullWindow)
	if since != nil && !since.IsZero() {
		cursor = since.UTC()
	}
	if limit <= 0 {
		limit = defaultPullLimit
	}
	if limit > maxPullLimit {
		limit = maxPullLimit
	}

	changes := make([]Change, 0, 32)

	products, err := s.products.ListChangedSince(ctx, businessID, cursor)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(products))
	for _, p := range products {
		seen[p.ID] = struct{}{}
		action := ChangeUpdated
		if !p.CreatedAt.Before(cursor) {
			action = ChangeCreated
		}
		if !p.IsActive {
			action = ChangeDeleted
		}
		changes = append(changes, Change{
			Type:      "product",
			EntityID:  p.ID,
			Data:      p,
			UpdatedAt: p.UpdatedAt,
			Action:    action,
		})
	}

	// Movements catch stock changes on products whose metadata row was
	// not itself rewritten in the window.
	deltas, err := s.movements.StockDeltasSince(ctx, businessID, cursor)
	if err != nil {
		return nil, err
	}
	for _, d := range deltas {
		if _, ok := seen[d.ProductID]; ok {
			continue
		}
		p, err := s.products.GetByID(ctx, businessID, d.ProductID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				continue
			}
			return nil, err
		}
		changes = append(changes, Change{
			Type:      "stock",
			EntityID:  d.ProductID,
			Data:      map[string]interface{}{"product_id": d.ProductID, "current_stock": p.CurrentStock},
			UpdatedAt: d.MovedAt,
			Action:    ChangeUpdated,
		})
	}

	sales, err := s.sales.CreatedSince(ctx, businessID, cursor, limit)
	if err != nil {
		return nil, err
	}
	for _, sale := range sales {
		changes = append(changes, Change{
			Type:      "sale",
			EntityID:  sale.ID,
			Data:      sale,
			UpdatedAt: sale.CreatedAt,
			Action:    ChangeCreated,
		})
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].UpdatedAt.Before(changes[j].UpdatedAt)
	})

	if err := s.watermarks.TouchPull(ctx, userID, deviceID); err != nil {
		s.logger.Error("advance pull watermark",
			zap.String("user_id", userID.String()), zap.Error(err))
	}
	metrics.SyncPullChanges.Observe(float64(len(changes)))

	return &PullResult{
		ServerTime: now,
		Changes:    changes,
		HasMore:    len(sales) == limit,
	}, nil
}

func (s *service) State(ctx context.Context, businessID, userID uuid.UUID, deviceID string) (*StateResult, error) {
	wm, err := s.watermarks.GetOrCreate(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	unresolved, err := s.errlog.ListUnresolved(ctx, businessID, 50)
	if err != nil {
		return nil, err
	}
	return &StateResult{
		ServerTime:       time.Now().UTC(),
		Watermark:        wm,
		UnresolvedErrors: unresolved,
	}, nil
}

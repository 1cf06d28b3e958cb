package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suqhub/suq-backend/internal/errs"
	"github.com/suqhub/suq-backend/internal/modules/catalog"
	"github.com/suqhub/suq-backend/internal/modules/inventory"
	"github.com/suqhub/suq-backend/internal/modules/pos"
	"github.com/suqhub/suq-backend/internal/modules/realtime"
)

// ── fakes ─────────────────────────────────────────────────────────────────────

type fakeLedger struct {
	mu   sync.Mutex
	rows map[string]*Action
}

func newFakeLedger() *fakeLedger { return &fakeLedger{rows: map[string]*Action{}} }

func (f *fakeLedger) WithTx(tx *sql.Tx) LedgerRepository { return f }

func (f *fakeLedger) Get(ctx context.Context, businessID uuid.UUID, actionID string) (*Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[actionID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeLedger) CreatePending(ctx context.Context, a *Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prior, ok := f.rows[a.ActionID]; ok && prior.Status == StatusProcessed {
		return errs.ErrDuplicateAction
	}
	cp := *a
	cp.Status = StatusPending
	f.rows[a.ActionID] = &cp
	return nil
}

func (f *fakeLedger) MarkProcessed(ctx context.Context, businessID uuid.UUID, actionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[actionID]
	if !ok {
		return errs.ErrNotFound
	}
	a.Status = StatusProcessed
	return nil
}

func (f *fakeLedger) MarkFailed(ctx context.Context, a *Action, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	cp.Status = StatusFailed
	cp.ErrorMessage = errMsg
	f.rows[a.ActionID] = &cp
	return nil
}

func (f *fakeLedger) status(actionID string) ActionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[actionID]
	if !ok {
		return ""
	}
	return a.Status
}

type fakeWatermarks struct {
	mu        sync.Mutex
	syncCount int
	pullCount int
}

func (f *fakeWatermarks) GetOrCreate(ctx context.Context, userID uuid.UUID, deviceID string) (*Watermark, error) {
	return &Watermark{UserID: userID, DeviceID: deviceID}, nil
}

func (f *fakeWatermarks) TouchSync(ctx context.Context, userID uuid.UUID, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCount++
	return nil
}

func (f *fakeWatermarks) TouchPull(ctx context.Context, userID uuid.UUID, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pullCount++
	return nil
}

type fakeErrorLog struct {
	mu      sync.Mutex
	entries []*SyncError
}

func (f *fakeErrorLog) Log(ctx context.Context, e *SyncError) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeErrorLog) ListUnresolved(ctx context.Context, businessID uuid.UUID, limit int) ([]*SyncError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*SyncError(nil), f.entries...), nil
}

func (f *fakeErrorLog) Resolve(ctx context.Context, businessID uuid.UUID, id int64, resolvedBy uuid.UUID) error {
	return nil
}

// fakeCheckout stands in for the POS service. Each call consumes stock
// from the shared product fake so the engine's transcript is visible.
type fakeCheckout struct {
	mu       sync.Mutex
	calls    []pos.CheckoutRequest
	fail     error
	products *fakeProducts
}

func (f *fakeCheckout) Checkout(ctx context.Context, businessID, userID uuid.UUID, req pos.CheckoutRequest) (*pos.Sale, error) {
	return nil, errors.New("not used")
}

func (f *fakeCheckout) CheckoutTx(ctx context.Context, tx *sql.Tx, businessID, userID uuid.UUID, req pos.CheckoutRequest) (*pos.Sale, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, false, f.fail
	}
	for _, c := range f.calls {
		if c.ClientRef == req.ClientRef {
			return &pos.Sale{ClientRef: req.ClientRef}, true, nil
		}
	}
	for _, item := range req.Items {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, false, fmt.Errorf("%w: bad product id", errs.ErrValidation)
		}
		p, ok := f.products.get(pid)
		if !ok {
			return nil, false, errs.ErrNotFound
		}
		if p.CurrentStock < item.Quantity {
			return nil, false, fmt.Errorf("%w: %s", errs.ErrInsufficientStock, p.Name)
		}
		f.products.adjust(pid, -item.Quantity)
	}
	f.calls = append(f.calls, req)
	return &pos.Sale{ID: uuid.New(), ClientRef: req.ClientRef}, false, nil
}

func (f *fakeCheckout) GetSale(ctx context.Context, businessID uuid.UUID, id string) (*pos.Sale, error) {
	return nil, errs.ErrNotFound
}

func (f *fakeCheckout) RecentSales(ctx context.Context, businessID uuid.UUID, since time.Time, limit int) ([]*pos.Sale, error) {
	return nil, nil
}

type fakeProducts struct {
	mu    sync.Mutex
	items map[uuid.UUID]*catalog.Product
}

func newFakeProducts(products ...*catalog.Product) *fakeProducts {
	f := &fakeProducts{items: map[uuid.UUID]*catalog.Product{}}
	for _, p := range products {
		f.items[p.ID] = p
	}
	return f
}

func (f *fakeProducts) get(id uuid.UUID) (*catalog.Product, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

func (f *fakeProducts) adjust(id uuid.UUID, delta float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.items[id]; ok {
		p.CurrentStock += delta
	}
}

func (f *fakeProducts) WithTx(tx *sql.Tx) catalog.Repository { return f }

func (f *fakeProducts) Create(ctx context.Context, p *catalog.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[p.ID] = p
	return nil
}

func (f *fakeProducts) GetByID(ctx context.Context, businessID, id uuid.UUID) (*catalog.Product, error) {
	p, ok := f.get(id)
	if !ok {
		return nil, errs.ErrNotFound
	}
	return p, nil
}

func (f *fakeProducts) GetForUpdate(ctx context.Context, businessID, id uuid.UUID) (*catalog.Product, error) {
	return f.GetByID(ctx, businessID, id)
}

func (f *fakeProducts) List(ctx context.Context, businessID uuid.UUID) ([]*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*catalog.Product, 0, len(f.items))
	for _, p := range f.items {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeProducts) SetStock(ctx context.Context, businessID, id uuid.UUID, stock float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return errs.ErrNotFound
	}
	p.CurrentStock = stock
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeProducts) DeductStock(ctx context.Context, businessID, id uuid.UUID, qty float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return errs.ErrNotFound
	}
	if p.CurrentStock < qty {
		return errs.ErrInsufficientStock
	}
	p.CurrentStock -= qty
	return nil
}

func (f *fakeProducts) ApplyPatch(ctx context.Context, businessID, id uuid.UUID, patch catalog.ProductPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return errs.ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.SalePrice != nil {
		p.SalePrice = *patch.SalePrice
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeProducts) ListChangedSince(ctx context.Context, businessID uuid.UUID, since time.Time) ([]*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*catalog.Product
	for _, p := range f.items {
		if !p.UpdatedAt.Before(since) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeMovements struct {
	mu      sync.Mutex
	records []*inventory.StockMovement
	deltas  []inventory.StockDelta
}

func (f *fakeMovements) WithTx(tx *sql.Tx) inventory.Repository { return f }

func (f *fakeMovements) Record(ctx context.Context, m *inventory.StockMovement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, m)
	return nil
}

func (f *fakeMovements) ListByProduct(ctx context.Context, businessID, productID uuid.UUID, limit int) ([]*inventory.StockMovement, error) {
	return nil, nil
}

func (f *fakeMovements) StockDeltasSince(ctx context.Context, businessID uuid.UUID, since time.Time) ([]inventory.StockDelta, error) {
	return f.deltas, nil
}

type fakeSales struct {
	sales []*pos.Sale
}

func (f *fakeSales) WithTx(tx *sql.Tx) pos.Repository                  { return f }
func (f *fakeSales) CreateSale(ctx context.Context, s *pos.Sale) error { return nil }
func (f *fakeSales) CreateSaleItems(ctx context.Context, items []pos.SaleItem) error {
	return nil
}
func (f *fakeSales) GetByID(ctx context.Context, businessID, id uuid.UUID) (*pos.Sale, error) {
	return nil, errs.ErrNotFound
}
func (f *fakeSales) GetByClientRef(ctx context.Context, businessID uuid.UUID, clientRef string) (*pos.Sale, error) {
	return nil, errs.ErrNotFound
}
func (f *fakeSales) CreatedSince(ctx context.Context, businessID uuid.UUID, since time.Time, limit int) ([]*pos.Sale, error) {
	if len(f.sales) > limit {
		return f.sales[:limit], nil
	}
	return f.sales, nil
}

// ── harness ───────────────────────────────────────────────────────────────────

type engineFixture struct {
	engine     Service
	db         *sql.DB
	mock       sqlmock.Sqlmock
	ledger     *fakeLedger
	watermarks *fakeWatermarks
	errlog     *fakeErrorLog
	checkout   *fakeCheckout
	products   *fakeProducts
	movements  *fakeMovements
	sales      *fakeSales
	businessID uuid.UUID
	userID     uuid.UUID
}

func newEngineFixture(t *testing.T, products ...*catalog.Product) *engineFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fx := &engineFixture{
		db:         db,
		mock:       mock,
		ledger:     newFakeLedger(),
		watermarks: &fakeWatermarks{},
		errlog:     &fakeErrorLog{},
		products:   newFakeProducts(products...),
		movements:  &fakeMovements{},
		sales:      &fakeSales{},
		businessID: uuid.New(),
		userID:     uuid.New(),
	}
	fx.checkout = &fakeCheckout{products: fx.products}
	fx.engine = NewService(db, fx.ledger, fx.watermarks, fx.errlog,
		fx.checkout, fx.sales, fx.products, fx.movements,
		realtime.NewEmitter(), nil, 24*time.Hour, 100, zap.NewNop())
	return fx
}

// expectTx queues the transaction expectations for one committed
// action; emits is the number of sync_events rows it writes.
func (fx *engineFixture) expectTx(emits int) {
	fx.mock.ExpectBegin()
	for i := 0; i < emits; i++ {
		fx.mock.ExpectExec("INSERT INTO sync_events").
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	fx.mock.ExpectCommit()
}

func (fx *engineFixture) expectRollback() {
	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()
}

func saleAction(id string, productID uuid.UUID, qty float64) ActionIntent {
	payload, _ := json.Marshal(map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": productID.String(), "quantity": qty, "unit_price": 10.0},
		},
		"payment_method": "cash",
	})
	return ActionIntent{ID: id, Type: ActionSale, Payload: payload, CreatedAt: time.Now()}
}

func testProduct(stock float64) *catalog.Product {
	now := time.Now().UTC().Add(-48 * time.Hour)
	return &catalog.Product{
		ID:           uuid.New(),
		Name:         "Sugar 1kg",
		Unit:         "pcs",
		SalePrice:    10,
		CurrentStock: stock,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ── push ──────────────────────────────────────────────────────────────────────

func TestPushAppliesSale(t *testing.T) {
	p := testProduct(10)
	fx := newEngineFixture(t, p)
	fx.expectTx(0)

	res, err := fx.engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{
		Actions: []ActionIntent{saleAction("a-1", p.ID, 3)},
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, []string{"a-1"}, res.ProcessedIDs)
	assert.Equal(t, StatusProcessed, fx.ledger.status("a-1"))
	got, _ := fx.products.get(p.ID)
	assert.Equal(t, 7.0, got.CurrentStock)
	assert.Equal(t, 1, fx.watermarks.syncCount)
}

func TestPushIsIdempotent(t *testing.T) {
	p := testProduct(10)
	fx := newEngineFixture(t, p)
	fx.expectTx(0)

	action := saleAction("a-1", p.ID, 3)
	_, err := fx.engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{
		Actions: []ActionIntent{action},
	})
	require.NoError(t, err)

	// Same batch replayed after a lost response: success, no second
	// deduction, no new transaction.
	res, err := fx.engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{
		Actions: []ActionIntent{action},
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, []string{"a-1"}, res.ProcessedIDs)
	got, _ := fx.products.get(p.ID)
	assert.Equal(t, 7.0, got.CurrentStock)
	assert.Len(t, fx.checkout.calls, 1)
	assert.Equal(t, 2, fx.watermarks.syncCount)
}

func TestPushPreservesOrder(t *testing.T) {
	p := testProduct(100)
	fx := newEngineFixture(t, p)
	for i := 0; i < 3; i++ {
		fx.expectTx(0)
	}

	res, err := fx.engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{
		Actions: []ActionIntent{
			saleAction("a-1", p.ID, 1),
			saleAction("a-2", p.ID, 2),
			saleAction("a-3", p.ID, 3),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a-1", "a-2", "a-3"}, res.ProcessedIDs)
	require.Len(t, fx.checkout.calls, 3)
	assert.Equal(t, 1.0, fx.checkout.calls[0].Items[0].Quantity)
	assert.Equal(t, 3.0, fx.checkout.calls[2].Items[0].Quantity)
}

func TestPushRejectsOversell(t *testing.T) {
	p := testProduct(2)
	fx := newEngineFixture(t, p)
	fx.expectRollback()

	res, err := fx.engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{
		DeviceID: "dev-1",
		Actions:  []ActionIntent{saleAction("a-1", p.ID, 5)},
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, []string{"a-1"}, res.FailedIDs)
	assert.Contains(t, res.Errors["a-1"], "insufficient stock")
	assert.Equal(t, StatusFailed, fx.ledger.status("a-1"))

	// Stock stays on the floor it had.
	got, _ := fx.products.get(p.ID)
	assert.Equal(t, 2.0, got.CurrentStock)

	// The conflict is recorded for monitoring.
	require.Len(t, fx.errlog.entries, 1)
	assert.Equal(t, "conflict", fx.errlog.entries[0].ErrorType)
	assert.Equal(t, "a-1", fx.errlog.entries[0].SyncActionID)
	assert.Equal(t, "dev-1", fx.errlog.entries[0].DeviceID)
}

func TestPushFailureDoesNotBlockRest(t *testing.T) {
	p := testProduct(4)
	fx := newEngineFixture(t, p)
	fx.expectTx(0)      // a-1 commits
	fx.expectRollback() // a-2 oversells
	fx.expectTx(0)      // a-3 commits

	res, err := fx.engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{
		Actions: []ActionIntent{
			saleAction("a-1", p.ID, 1),
			saleAction("a-2", p.ID, 50),
			saleAction("a-3", p.ID, 2),
		},
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, []string{"a-1", "a-3"}, res.ProcessedIDs)
	assert.Equal(t, []string{"a-2"}, res.FailedIDs)
	got, _ := fx.products.get(p.ID)
	assert.Equal(t, 1.0, got.CurrentStock)
}

func TestPushAdvancesWatermarkOnTotalFailure(t *testing.T) {
	p := testProduct(0)
	fx := newEngineFixture(t, p)
	fx.expectRollback()
	fx.expectRollback()

	res, err := fx.engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{
		Actions: []ActionIntent{
			saleAction("a-1", p.ID, 1),
			saleAction("a-2", p.ID, 1),
		},
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Empty(t, res.ProcessedIDs)
	// Contact still moves the cursor; a poisoned batch cannot freeze it.
	assert.Equal(t, 1, fx.watermarks.syncCount)
}

func TestPushUnknownActionType(t *testing.T) {
	fx := newEngineFixture(t)
	fx.expectRollback()

	res, err := fx.engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{
		Actions: []ActionIntent{{ID: "a-1", Type: "truncate_everything", Payload: []byte(`{}`)}},
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, StatusFailed, fx.ledger.status("a-1"))
	require.Len(t, fx.errlog.entries, 1)
	assert.Equal(t, "validation", fx.errlog.entries[0].ErrorType)
}

func TestPushEmptyBatch(t *testing.T) {
	fx := newEngineFixture(t)
	_, err := fx.engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestPushBatchOverLimit(t *testing.T) {
	fx := newEngineFixture(t)
	actions := make([]ActionIntent, 101)
	for i := range actions {
		actions[i] = ActionIntent{ID: fmt.Sprintf("a-%d", i), Type: ActionSale, Payload: []byte(`{}`)}
	}
	_, err := fx.engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{Actions: actions})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestPushStockUpdate(t *testing.T) {
	p := testProduct(5)
	fx := newEngineFixture(t, p)
	fx.expectTx(1)

	payload, _ := json.Marshal(map[string]interface{}{
		"product_id": p.ID.String(),
		"stock":      42.0,
	})
	res, err := fx.engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{
		Actions: []ActionIntent{{ID: "a-1", Type: ActionStockUpdate, Payload: payload}},
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	got, _ := fx.products.get(p.ID)
	assert.Equal(t, 42.0, got.CurrentStock)

	// The overwrite leaves an audit movement with the applied delta.
	require.Len(t, fx.movements.records, 1)
	assert.Equal(t, inventory.MovementSync, fx.movements.records[0].MovementType)
	assert.Equal(t, 37.0, fx.movements.records[0].Quantity)
}

// blindLedger never sees prior rows outside a transaction, standing in
// for a replay whose pre-transaction read raced a concurrent writer.
type blindLedger struct{ *fakeLedger }

func (b *blindLedger) Get(ctx context.Context, businessID uuid.UUID, actionID string) (*Action, error) {
	return nil, errs.ErrNotFound
}

func (b *blindLedger) WithTx(tx *sql.Tx) LedgerRepository { return b }

func TestPushStockUpdateReplayRecordsOneMovement(t *testing.T) {
	p := testProduct(5)
	fx := newEngineFixture(t, p)
	engine := NewService(fx.db, &blindLedger{fx.ledger}, fx.watermarks, fx.errlog,
		fx.checkout, fx.sales, fx.products, fx.movements,
		realtime.NewEmitter(), nil, 24*time.Hour, 100, zap.NewNop())
	fx.expectTx(1)
	fx.expectRollback()

	payload, _ := json.Marshal(map[string]interface{}{
		"product_id": p.ID.String(),
		"stock":      42.0,
	})
	action := ActionIntent{ID: "a-1", Type: ActionStockUpdate, Payload: payload}

	_, err := engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{
		Actions: []ActionIntent{action},
	})
	require.NoError(t, err)

	// The replay misses the fast path, so the in-transaction claim must
	// catch the processed row and roll back before any entity effect.
	res, err := engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{
		Actions: []ActionIntent{action},
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, []string{"a-1"}, res.ProcessedIDs)
	assert.Len(t, fx.movements.records, 1)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestPushStockUpdateRejectsNegative(t *testing.T) {
	p := testProduct(5)
	fx := newEngineFixture(t, p)
	fx.expectRollback()

	payload, _ := json.Marshal(map[string]interface{}{
		"product_id": p.ID.String(),
		"stock":      -1.0,
	})
	res, err := fx.engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{
		Actions: []ActionIntent{{ID: "a-1", Type: ActionStockUpdate, Payload: payload}},
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	got, _ := fx.products.get(p.ID)
	assert.Equal(t, 5.0, got.CurrentStock)
}

func TestPushProductUpdate(t *testing.T) {
	p := testProduct(5)
	fx := newEngineFixture(t, p)
	fx.expectTx(1)

	payload, _ := json.Marshal(map[string]interface{}{
		"product_id": p.ID.String(),
		"updates":    map[string]interface{}{"name": "Sugar 2kg", "sale_price": 18.5},
	})
	res, err := fx.engine.Push(context.Background(), fx.businessID, fx.userID, PushRequest{
		Actions: []ActionIntent{{ID: "a-1", Type: ActionProductUpdate, Payload: payload}},
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	got, _ := fx.products.get(p.ID)
	assert.Equal(t, "Sugar 2kg", got.Name)
	assert.Equal(t, 18.5, got.SalePrice)
	// Stock is not patchable through metadata updates.
	assert.Equal(t, 5.0, got.CurrentStock)
}

// ── pull ──────────────────────────────────────────────────────────────────────

func TestPullReturnsRecentChanges(t *testing.T) {
	p := testProduct(5)
	p.UpdatedAt = time.Now().UTC()
	fx := newEngineFixture(t, p)
	fx.sales.sales = []*pos.Sale{
		{ID: uuid.New(), Total: 30, CreatedAt: time.Now().UTC().Add(-time.Minute)},
	}

	res, err := fx.engine.Pull(context.Background(), fx.businessID, fx.userID, "dev-1", nil, 0)
	require.NoError(t, err)

	require.Len(t, res.Changes, 2)
	// Merged changes arrive oldest first.
	assert.Equal(t, "sale", res.Changes[0].Type)
	assert.Equal(t, "product", res.Changes[1].Type)
	assert.False(t, res.HasMore)
	assert.Equal(t, 1, fx.watermarks.pullCount)
}

func TestPullHonorsSinceCursor(t *testing.T) {
	p := testProduct(5) // updated 48h ago
	fx := newEngineFixture(t, p)

	since := time.Now().UTC().Add(-time.Hour)
	res, err := fx.engine.Pull(context.Background(), fx.businessID, fx.userID, "", &since, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
}

func TestPullClassifiesCreates(t *testing.T) {
	p := testProduct(5)
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	fx := newEngineFixture(t, p)

	since := time.Now().UTC().Add(-time.Hour)
	res, err := fx.engine.Pull(context.Background(), fx.businessID, fx.userID, "", &since, 0)
	require.NoError(t, err)

	require.Len(t, res.Changes, 1)
	assert.Equal(t, ChangeCreated, res.Changes[0].Action)
}

func TestPullClassifiesDeactivationsAsDeletes(t *testing.T) {
	p := testProduct(5)
	p.IsActive = false
	p.UpdatedAt = time.Now().UTC()
	fx := newEngineFixture(t, p)

	since := time.Now().UTC().Add(-time.Hour)
	res, err := fx.engine.Pull(context.Background(), fx.businessID, fx.userID, "", &since, 0)
	require.NoError(t, err)

	require.Len(t, res.Changes, 1)
	assert.Equal(t, ChangeDeleted, res.Changes[0].Action)
}

func TestPullIncludesStockOnlyChanges(t *testing.T) {
	p := testProduct(5) // metadata untouched in the window
	fx := newEngineFixture(t, p)
	fx.movements.deltas = []inventory.StockDelta{
		{ProductID: p.ID, MovedAt: time.Now().UTC().Add(-time.Minute)},
	}

	since := time.Now().UTC().Add(-time.Hour)
	res, err := fx.engine.Pull(context.Background(), fx.businessID, fx.userID, "", &since, 0)
	require.NoError(t, err)

	require.Len(t, res.Changes, 1)
	assert.Equal(t, "stock", res.Changes[0].Type)
	assert.Equal(t, p.ID, res.Changes[0].EntityID)
}

func TestPullReportsHasMore(t *testing.T) {
	fx := newEngineFixture(t)
	for i := 0; i < 3; i++ {
		fx.sales.sales = append(fx.sales.sales, &pos.Sale{ID: uuid.New(), CreatedAt: time.Now().UTC()})
	}

	res, err := fx.engine.Pull(context.Background(), fx.businessID, fx.userID, "", nil, 3)
	require.NoError(t, err)
	assert.True(t, res.HasMore)
}

// ── state ─────────────────────────────────────────────────────────────────────

func TestStateReportsUnresolvedErrors(t *testing.T) {
	fx := newEngineFixture(t)
	fx.errlog.entries = []*SyncError{{ErrorType: "conflict", ErrorMsg: "boom"}}

	res, err := fx.engine.State(context.Background(), fx.businessID, fx.userID, "dev-1")
	require.NoError(t, err)

	require.NotNil(t, res.Watermark)
	assert.Equal(t, fx.userID, res.Watermark.UserID)
	require.Len(t, res.UnresolvedErrors, 1)
	assert.Equal(t, "conflict", res.UnresolvedErrors[0].ErrorType)
}

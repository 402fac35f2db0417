package service

import (
	"context"
	"sync"
	"testing"

	"pos-service/internal/models"
	"pos-service/internal/store/memory"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type recordingPublisher struct {
	mu        sync.Mutex
	recorded  []*models.SaleRecordedEvent
	voided    []*models.SaleVoidedEvent
	purchases []*models.PurchaseRecordedEvent
	err       error
}

func (p *recordingPublisher) PublishSaleRecorded(ctx context.Context, e *models.SaleRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recorded = append(p.recorded, e)
	return p.err
}

func (p *recordingPublisher) PublishSaleVoided(ctx context.Context, e *models.SaleVoidedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voided = append(p.voided, e)
	return p.err
}

func (p *recordingPublisher) PublishPurchaseRecorded(ctx context.Context, e *models.PurchaseRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purchases = append(p.purchases, e)
	return p.err
}

type mapCache struct {
	mu    sync.Mutex
	stock map[int64]int
}

func newMapCache() *mapCache {
	return &mapCache{stock: make(map[int64]int)}
}

func (c *mapCache) SetStock(ctx context.Context, productID int64, stock int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stock[productID] = stock
	return nil
}

func (c *mapCache) GetStock(ctx context.Context, productID int64) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.stock[productID]
	return v, ok, nil
}

// barrierLocker passes straight through until armed. Once armed, the first
// parties callers of Acquire wait for each other before contending for the
// real lock, so racing flows all read their state before any of them locks.
type barrierLocker struct {
	inner Locker

	mu      sync.Mutex
	parties int
	arrived int
	ready   chan struct{}
}

func newBarrierLocker() *barrierLocker {
	return &barrierLocker{inner: NewLocalLocker()}
}

func (b *barrierLocker) arm(parties int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parties = parties
	b.arrived = 0
	b.ready = make(chan struct{})
}

func (b *barrierLocker) Acquire(ctx context.Context, key string) (func(), error) {
	b.mu.Lock()
	ready := b.ready
	if ready != nil {
		b.arrived++
		if b.arrived == b.parties {
			close(ready)
		}
	}
	b.mu.Unlock()

	if ready != nil {
		select {
		case <-ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return b.inner.Acquire(ctx, key)
}

type testEnv struct {
	repo      *memory.Store
	cache     *mapCache
	publisher *recordingPublisher
	stock     *StockService
	ledger    *LedgerService
	sales     *SaleService
	purchases *PurchaseService
	catalog   *CatalogService
}

func newTestEnv(t *testing.T, cfg SaleConfig) *testEnv {
	t.Helper()
	util.SetLogger(zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel)))
	return buildEnv(cfg, &recordingPublisher{}, NewLocalLocker())
}

// newRaceEnv builds an env whose locker can line racing callers up
func newRaceEnv(t *testing.T) (*testEnv, *barrierLocker) {
	t.Helper()
	util.SetLogger(zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel)))
	locker := newBarrierLocker()
	return buildEnv(SaleConfig{}, &recordingPublisher{}, locker), locker
}

func buildEnv(cfg SaleConfig, publisher *recordingPublisher, locker Locker) *testEnv {
	repo := memory.New()
	cache := newMapCache()

	stock := NewStockService(repo, cache, locker)
	ledger := NewLedgerService(repo, locker)
	return &testEnv{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		stock:     stock,
		ledger:    ledger,
		sales:     NewSaleService(repo, stock, ledger, locker, publisher, cfg),
		purchases: NewPurchaseService(repo, stock, locker, publisher),
		catalog:   NewCatalogService(repo, stock, ledger),
	}
}

func (e *testEnv) warehouse(t *testing.T, name string) *models.Warehouse {
	t.Helper()
	w := &models.Warehouse{Name: name}
	require.NoError(t, e.repo.CreateWarehouse(context.Background(), w))
	return w
}

// product creates a product of store 1 seeded with per-warehouse stock
func (e *testEnv) product(t *testing.T, name string, stock map[int64]int) *models.Product {
	t.Helper()
	ctx := context.Background()

	p := &models.Product{
		StoreID:   1,
		Name:      name,
		Barcode:   "bc-" + name,
		CostPrice: decimal.NewFromInt(3),
		SalePrice: decimal.NewFromInt(5),
	}
	require.NoError(t, e.repo.CreateProduct(ctx, p))
	for warehouseID, qty := range stock {
		e.repo.SetInventory(p.ID, warehouseID, qty)
	}
	_, err := e.repo.ReconcileProductStock(ctx, p.ID)
	require.NoError(t, err)

	p, err = e.repo.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	return p
}

func (e *testEnv) customer(t *testing.T) *models.Customer {
	t.Helper()
	c, err := e.catalog.CreateCustomer(context.Background(), &CreateCustomerRequest{StoreID: 1, Name: "Ana", Phone: "555-0100"})
	require.NoError(t, err)
	return c
}

func (e *testEnv) retailer(t *testing.T) *models.Retailer {
	t.Helper()
	r, err := e.catalog.CreateRetailer(context.Background(), &CreateRetailerRequest{StoreID: 1, Name: "Corner Shop", Contact: "555-0200"})
	require.NoError(t, err)
	return r
}

// quantities maps warehouse id to quantity for a product
func (e *testEnv) quantities(t *testing.T, productID int64) map[int64]int {
	t.Helper()
	records, err := e.repo.ListInventoryByProduct(context.Background(), productID)
	require.NoError(t, err)

	out := make(map[int64]int, len(records))
	for _, r := range records {
		out[r.WarehouseID] = r.Quantity
	}
	return out
}

// assertStockConsistent checks total_stock against the inventory records
func (e *testEnv) assertStockConsistent(t *testing.T, productID int64) int {
	t.Helper()
	p, err := e.repo.GetProductByID(context.Background(), productID)
	require.NoError(t, err)

	sum := 0
	for _, q := range e.quantities(t, productID) {
		sum += q
	}
	assert.Equal(t, sum, p.TotalStock, "total_stock must equal the sum of inventory")
	return p.TotalStock
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, money(want).Equal(got), "want %s, got %s", want, got)
}

func invoiceReq(items ...SaleItemRequest) *RecordSaleRequest {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total)
	}
	return &RecordSaleRequest{
		StoreID:     1,
		SalesmanID:  1,
		Items:       items,
		Subtotal:    total,
		TotalAmount: total,
		PaidAmount:  total,
	}
}

func line(productID int64, qty int) SaleItemRequest {
	price := decimal.NewFromInt(5)
	return SaleItemRequest{
		ProductID: productID,
		Quantity:  qty,
		Price:     price,
		Total:     price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

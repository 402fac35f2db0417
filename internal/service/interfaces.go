package service

import (
	"context"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
)

// ProductRepository persists the store-scoped catalog
type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, storeID int64) ([]models.Product, error)
	ListProductIDs(ctx context.Context) ([]int64, error)
	// UpdateProduct writes catalog fields; total_stock is left alone
	UpdateProduct(ctx context.Context, product *models.Product) error
	UpdateProductCostPrice(ctx context.Context, id int64, costPrice decimal.Decimal) error
	// ReconcileProductStock rewrites total_stock from the inventory records
	// in a single statement and returns the new value.
	ReconcileProductStock(ctx context.Context, productID int64) (int, error)
}

// WarehouseRepository persists warehouses. GetDefaultWarehouse returns
// nil without error when no warehouse exists.
type WarehouseRepository interface {
	CreateWarehouse(ctx context.Context, warehouse *models.Warehouse) error
	GetWarehouseByID(ctx context.Context, id int64) (*models.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]models.Warehouse, error)
	GetDefaultWarehouse(ctx context.Context) (*models.Warehouse, error)
}

// InventoryRepository holds per-warehouse stock
type InventoryRepository interface {
	// ListInventoryByProduct orders records by quantity desc, id asc
	ListInventoryByProduct(ctx context.Context, productID int64) ([]models.Inventory, error)
	// AdjustInventory adds delta to the (product, warehouse) record,
	// creating it when absent.
	AdjustInventory(ctx context.Context, productID, warehouseID int64, delta int) (*models.Inventory, error)
}

// SaleRepository persists sales with their items and allocations
type SaleRepository interface {
	CreateSale(ctx context.Context, sale *models.Sale) error
	GetSaleByID(ctx context.Context, id int64) (*models.Sale, error)
	// GetSaleByIdempotencyKey returns nil without error when no sale uses key
	GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error)
	ListSales(ctx context.Context, storeID int64) ([]models.Sale, error)
	SaveAllocations(ctx context.Context, saleItemID int64, allocations []models.StockAllocation) error
	// ConvertSaleToInvoice flips a non-invoice sale to invoice. It reports
	// false when the sale was already an invoice.
	ConvertSaleToInvoice(ctx context.Context, id int64, invoiceID string) (bool, error)
	UpdateSale(ctx context.Context, sale *models.Sale) error
	DeleteSale(ctx context.Context, id int64) error
}

// PurchaseRepository persists purchases and their payment history
type PurchaseRepository interface {
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
	GetPurchaseByID(ctx context.Context, id int64) (*models.Purchase, error)
	ListPurchases(ctx context.Context, storeID int64) ([]models.Purchase, error)
	// UpdatePurchase writes vendor, date and total, re-deriving the balance
	// when the total changes
	UpdatePurchase(ctx context.Context, purchase *models.Purchase) error
	AddPurchasePayment(ctx context.Context, purchaseID int64, amount decimal.Decimal) (*models.Purchase, error)
}

// PartyRepository persists customers, retailers and their ledger
type PartyRepository interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
	ListCustomers(ctx context.Context, storeID int64) ([]models.Customer, error)
	RecomputeCustomerBalance(ctx context.Context, id int64) (decimal.Decimal, error)

	CreateRetailer(ctx context.Context, retailer *models.Retailer) error
	GetRetailerByID(ctx context.Context, id int64) (*models.Retailer, error)
	ListRetailers(ctx context.Context, storeID int64) ([]models.Retailer, error)
	RecomputeRetailerBalance(ctx context.Context, id int64) (*models.RetailerTotals, error)

	AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, partyType string, partyID int64) ([]models.LedgerEntry, error)
	SumRetailerSalePayments(ctx context.Context, retailerID, saleID int64) (decimal.Decimal, error)
}

// Repository is everything the services need from persistence
type Repository interface {
	ProductRepository
	WarehouseRepository
	InventoryRepository
	SaleRepository
	PurchaseRepository
	PartyRepository
	Ping(ctx context.Context) error
}

// Locker hands out named mutual-exclusion locks. The returned func
// releases the lock and is safe to call once.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// StockCache mirrors products.total_stock for fast reads
type StockCache interface {
	SetStock(ctx context.Context, productID int64, stock int) error
	GetStock(ctx context.Context, productID int64) (int, bool, error)
}

// EventPublisher publishes domain events after their changes commit
type EventPublisher interface {
	PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error
	PublishSaleVoided(ctx context.Context, event *models.SaleVoidedEvent) error
	PublishPurchaseRecorded(ctx context.Context, event *models.PurchaseRecordedEvent) error
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishSaleRecorded(context.Context, *models.SaleRecordedEvent) error {
	return nil
}

func (NopPublisher) PublishSaleVoided(context.Context, *models.SaleVoidedEvent) error {
	return nil
}

func (NopPublisher) PublishPurchaseRecorded(context.Context, *models.PurchaseRecordedEvent) error {
	return nil
}

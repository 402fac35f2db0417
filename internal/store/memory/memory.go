// Package memory is an in-process repository with the same semantics as
// the Postgres store. It backs DATABASE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"

	"github.com/shopspring/decimal"
)

// Store keeps every table in maps guarded by one mutex. Each exported
// method is atomic, matching the single-statement guarantees of Postgres.
type Store struct {
	mu sync.Mutex

	seq int64

	products    map[int64]*models.Product
	warehouses  map[int64]*models.Warehouse
	inventory   map[int64]*models.Inventory
	sales       map[int64]*models.Sale
	purchases   map[int64]*models.Purchase
	customers   map[int64]*models.Customer
	retailers   map[int64]*models.Retailer
	ledger      []models.LedgerEntry
	processed   map[string]string
	allocations map[int64][]models.StockAllocation
}

// New creates an empty store
func New() *Store {
	return &Store{
		products:    make(map[int64]*models.Product),
		warehouses:  make(map[int64]*models.Warehouse),
		inventory:   make(map[int64]*models.Inventory),
		sales:       make(map[int64]*models.Sale),
		purchases:   make(map[int64]*models.Purchase),
		customers:   make(map[int64]*models.Customer),
		retailers:   make(map[int64]*models.Retailer),
		processed:   make(map[string]string),
		allocations: make(map[int64][]models.StockAllocation),
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.StoreID == product.StoreID && p.Barcode == product.Barcode {
			return apperr.Duplicate(fmt.Sprintf("product with barcode %s already exists", product.Barcode), nil)
		}
	}

	now := time.Now()
	product.ID = s.nextID()
	product.TotalStock = 0
	product.CreatedAt = now
	product.UpdatedAt = now
	cp := *product
	s.products[product.ID] = &cp
	return nil
}

func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, apperr.NotFound("product", id)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListProducts(ctx context.Context, storeID int64) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := []models.Product{}
	for _, p := range s.products {
		if p.StoreID == storeID {
			products = append(products, *p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *Store) ListProductIDs(ctx context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[product.ID]
	if !ok {
		return apperr.NotFound("product", product.ID)
	}
	for _, other := range s.products {
		if other.ID != p.ID && other.StoreID == p.StoreID && other.Barcode == product.Barcode {
			return apperr.Duplicate(fmt.Sprintf("product with barcode %s already exists", product.Barcode), nil)
		}
	}

	p.Name = product.Name
	p.Barcode = product.Barcode
	p.CostPrice = product.CostPrice
	p.SalePrice = product.SalePrice
	p.Discount = product.Discount
	p.Vendor = product.Vendor
	p.Category = product.Category
	p.Description = product.Description
	p.UpdatedAt = time.Now()
	return nil
}

func (s *Store) UpdateProductCostPrice(ctx context.Context, id int64, costPrice decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return apperr.NotFound("product", id)
	}
	p.CostPrice = costPrice
	p.UpdatedAt = time.Now()
	return nil
}

func (s *Store) ReconcileProductStock(ctx context.Context, productID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return 0, apperr.NotFound("product", productID)
	}
	total := 0
	for _, inv := range s.inventory {
		if inv.ProductID == productID {
			total += inv.Quantity
		}
	}
	p.TotalStock = total
	p.UpdatedAt = time.Now()
	return total, nil
}

func (s *Store) CreateWarehouse(ctx context.Context, warehouse *models.Warehouse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	warehouse.ID = s.nextID()
	warehouse.CreatedAt = time.Now()
	cp := *warehouse
	s.warehouses[warehouse.ID] = &cp
	return nil
}

func (s *Store) GetWarehouseByID(ctx context.Context, id int64) (*models.Warehouse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.warehouses[id]
	if !ok {
		return nil, apperr.NotFound("warehouse", id)
	}
	cp := *w
	return &cp, nil
}

func (s *Store) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedWarehouses(), nil
}

func (s *Store) sortedWarehouses() []models.Warehouse {
	warehouses := make([]models.Warehouse, 0, len(s.warehouses))
	for _, w := range s.warehouses {
		warehouses = append(warehouses, *w)
	}
	sort.Slice(warehouses, func(i, j int) bool { return warehouses[i].ID < warehouses[j].ID })
	return warehouses
}

func (s *Store) GetDefaultWarehouse(ctx context.Context) (*models.Warehouse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	warehouses := s.sortedWarehouses()
	if len(warehouses) == 0 {
		return nil, nil
	}
	return &warehouses[0], nil
}

func (s *Store) ListInventoryByProduct(ctx context.Context, productID int64) ([]models.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := []models.Inventory{}
	for _, inv := range s.inventory {
		if inv.ProductID == productID {
			records = append(records, *inv)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Quantity != records[j].Quantity {
			return records[i].Quantity > records[j].Quantity
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

func (s *Store) AdjustInventory(ctx context.Context, productID, warehouseID int64, delta int) (*models.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return nil, fmt.Errorf("failed to adjust inventory: %w", apperr.NotFound("product", productID))
	}
	if _, ok := s.warehouses[warehouseID]; !ok {
		return nil, fmt.Errorf("failed to adjust inventory: %w", apperr.NotFound("warehouse", warehouseID))
	}

	for _, inv := range s.inventory {
		if inv.ProductID == productID && inv.WarehouseID == warehouseID {
			inv.Quantity += delta
			inv.UpdatedAt = time.Now()
			cp := *inv
			return &cp, nil
		}
	}

	inv := &models.Inventory{
		ID:          s.nextID(),
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    delta,
		UpdatedAt:   time.Now(),
	}
	s.inventory[inv.ID] = inv
	cp := *inv
	return &cp, nil
}

// SetInventory overwrites a record, creating it if needed. Tests use it
// to seed stock without going through reconciliation.
func (s *Store) SetInventory(productID, warehouseID int64, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inv := range s.inventory {
		if inv.ProductID == productID && inv.WarehouseID == warehouseID {
			inv.Quantity = quantity
			return
		}
	}
	id := s.nextID()
	s.inventory[id] = &models.Inventory{ID: id, ProductID: productID, WarehouseID: warehouseID, Quantity: quantity, UpdatedAt: time.Now()}
}

// DeleteInventory removes a record, as an operator clean-up would
func (s *Store) DeleteInventory(productID, warehouseID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, inv := range s.inventory {
		if inv.ProductID == productID && inv.WarehouseID == warehouseID {
			delete(s.inventory, id)
		}
	}
}

func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.processed[eventID]
	return ok, nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.processed[eventID]; !ok {
		s.processed[eventID] = eventType
	}
	return nil
}

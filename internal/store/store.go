package store

import (
	"context"
	"fmt"
	"time"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Store is the Postgres repository
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection
func NewStoreWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Ping checks the connection for the readiness check
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateProduct inserts a product. total_stock starts at zero.
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (store_id, name, barcode, cost_price, sale_price, discount, vendor, category, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, total_stock, created_at, updated_at`

	err := s.db.GetContext(ctx, product, query,
		product.StoreID, product.Name, product.Barcode, product.CostPrice, product.SalePrice,
		product.Discount, product.Vendor, product.Category, product.Description)
	if err != nil {
		return duplicate(err, fmt.Sprintf("product with barcode %s already exists", product.Barcode))
	}
	return nil
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return &product, nil
}

// ListProducts retrieves the products of a store
func (s *Store) ListProducts(ctx context.Context, storeID int64) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE store_id = $1 ORDER BY id", storeID)
	return products, err
}

// ListProductIDs returns every product id across stores
func (s *Store) ListProductIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, "SELECT id FROM products ORDER BY id")
	return ids, err
}

// UpdateProduct writes the editable catalog fields. total_stock is owned by
// the reconcile statement and is never written here.
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products SET name = $1, barcode = $2, cost_price = $3, sale_price = $4, discount = $5,
			vendor = $6, category = $7, description = $8, updated_at = NOW()
		WHERE id = $9`

	res, err := s.db.ExecContext(ctx, query,
		product.Name, product.Barcode, product.CostPrice, product.SalePrice, product.Discount,
		product.Vendor, product.Category, product.Description, product.ID)
	if err != nil {
		return duplicate(err, fmt.Sprintf("product with barcode %s already exists", product.Barcode))
	}
	return requireRow(res, "product", product.ID)
}

// UpdateProductCostPrice sets the product cost price, last write wins
func (s *Store) UpdateProductCostPrice(ctx context.Context, id int64, costPrice decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET cost_price = $1, updated_at = NOW() WHERE id = $2",
		costPrice, id)
	if err != nil {
		return err
	}
	return requireRow(res, "product", id)
}

// ReconcileProductStock recomputes total_stock from the inventory table
func (s *Store) ReconcileProductStock(ctx context.Context, productID int64) (int, error) {
	query := `
		UPDATE products
		SET total_stock = (SELECT COALESCE(SUM(quantity), 0) FROM inventory WHERE product_id = $1),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING total_stock`

	var total int
	if err := s.db.GetContext(ctx, &total, query, productID); err != nil {
		return 0, notFound(err, "product", productID)
	}
	return total, nil
}

// CreateWarehouse inserts a warehouse
func (s *Store) CreateWarehouse(ctx context.Context, warehouse *models.Warehouse) error {
	query := `
		INSERT INTO warehouses (name, location, contact_person, phone, printer_enabled, printer_endpoint)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, warehouse, query,
		warehouse.Name, warehouse.Location, warehouse.ContactPerson, warehouse.Phone,
		warehouse.PrinterEnabled, warehouse.PrinterEndpoint)
}

// GetWarehouseByID retrieves a warehouse by ID
func (s *Store) GetWarehouseByID(ctx context.Context, id int64) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	err := s.db.GetContext(ctx, &warehouse, "SELECT * FROM warehouses WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "warehouse", id)
	}
	return &warehouse, nil
}

// ListWarehouses retrieves all warehouses
func (s *Store) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	warehouses := []models.Warehouse{}
	err := s.db.SelectContext(ctx, &warehouses, "SELECT * FROM warehouses ORDER BY id")
	return warehouses, err
}

// GetDefaultWarehouse returns the warehouse with the lowest id, or nil
func (s *Store) GetDefaultWarehouse(ctx context.Context) (*models.Warehouse, error) {
	warehouses := []models.Warehouse{}
	err := s.db.SelectContext(ctx, &warehouses, "SELECT * FROM warehouses ORDER BY id LIMIT 1")
	if err != nil {
		return nil, err
	}
	if len(warehouses) == 0 {
		return nil, nil
	}
	return &warehouses[0], nil
}

// ListInventoryByProduct retrieves a product's inventory records, fullest first
func (s *Store) ListInventoryByProduct(ctx context.Context, productID int64) ([]models.Inventory, error) {
	records := []models.Inventory{}
	err := s.db.SelectContext(ctx, &records,
		"SELECT * FROM inventory WHERE product_id = $1 ORDER BY quantity DESC, id ASC", productID)
	return records, err
}

// AdjustInventory applies delta to one (product, warehouse) record in a
// single upsert, so concurrent adjustments never lose updates.
func (s *Store) AdjustInventory(ctx context.Context, productID, warehouseID int64, delta int) (*models.Inventory, error) {
	query := `
		INSERT INTO inventory (product_id, warehouse_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING *`

	var inv models.Inventory
	if err := s.db.GetContext(ctx, &inv, query, productID, warehouseID, delta); err != nil {
		return nil, fmt.Errorf("failed to adjust inventory: %w", err)
	}
	return &inv, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}

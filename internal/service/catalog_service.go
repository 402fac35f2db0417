package service

import (
	"context"
	"strings"

	"pos-service/internal/apperr"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService manages products, warehouses, customers and retailers
type CatalogService struct {
	repo   Repository
	stock  *StockService
	ledger *LedgerService
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo Repository, stock *StockService, ledger *LedgerService) *CatalogService {
	return &CatalogService{
		repo:   repo,
		stock:  stock,
		ledger: ledger,
		logger: util.GetLogger(),
	}
}

// CreateProductRequest represents a new catalog entry. InitialStock goes
// into WarehouseID, or the default warehouse when it is 0.
type CreateProductRequest struct {
	StoreID      int64           `json:"-"`
	Name         string          `json:"name"`
	Barcode      string          `json:"barcode"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	Discount     decimal.Decimal `json:"discount"`
	Vendor       string          `json:"vendor"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	InitialStock int             `json:"initial_stock"`
	WarehouseID  int64           `json:"warehouse_id"`
}

// UpdateProductRequest patches catalog fields. Nil fields are left alone;
// stock only changes through sales, purchases and inventory adjustments.
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Barcode     *string          `json:"barcode"`
	CostPrice   *decimal.Decimal `json:"cost_price"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
	Discount    *decimal.Decimal `json:"discount"`
	Vendor      *string          `json:"vendor"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
}

// CreateWarehouseRequest represents a new warehouse
type CreateWarehouseRequest struct {
	Name            string `json:"name"`
	Location        string `json:"location"`
	ContactPerson   string `json:"contact_person"`
	Phone           string `json:"phone"`
	PrinterEnabled  bool   `json:"printer_enabled"`
	PrinterEndpoint string `json:"printer_endpoint"`
}

// CreateCustomerRequest represents a new customer of a store
type CreateCustomerRequest struct {
	StoreID     int64           `json:"-"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Notes       string          `json:"notes"`
}

// CreateRetailerRequest represents a new retailer account
type CreateRetailerRequest struct {
	StoreID     int64           `json:"-"`
	Name        string          `json:"name"`
	Contact     string          `json:"contact"`
	Address     string          `json:"address"`
	BankName    string          `json:"bank_name"`
	BankAccount string          `json:"bank_account"`
	InitialPay  decimal.Decimal `json:"initial_pay"`
	Notes       string          `json:"notes"`
}

// CreateProduct adds a product to a store's catalog. A non-zero initial
// stock is put into the given or default warehouse and reconciled.
func (s *CatalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Barcode) == "" {
		return nil, apperr.Validation("name and barcode are required")
	}
	if req.InitialStock < 0 {
		return nil, apperr.Validation("initial stock must not be negative")
	}

	product := &models.Product{
		StoreID:     req.StoreID,
		Name:        req.Name,
		Barcode:     req.Barcode,
		CostPrice:   req.CostPrice,
		SalePrice:   req.SalePrice,
		Discount:    req.Discount,
		Vendor:      req.Vendor,
		Category:    req.Category,
		Description: req.Description,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if apperr.KindOf(err) == apperr.KindDuplicate {
			return nil, err
		}
		return nil, apperr.ServerFault("failed to create product", err)
	}

	if req.InitialStock > 0 {
		if _, err := s.stock.AdjustInventory(ctx, product.ID, req.WarehouseID, req.InitialStock); err != nil {
			return nil, err
		}
		return s.repo.GetProductByID(ctx, product.ID)
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("barcode", product.Barcode))
	return product, nil
}

// GetProduct retrieves a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

// UpdateProduct edits a product's catalog fields. A barcode already used by
// another product of the store is a Duplicate.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, req *UpdateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, apperr.Validation("name must not be blank")
		}
		product.Name = *req.Name
	}
	if req.Barcode != nil {
		if strings.TrimSpace(*req.Barcode) == "" {
			return nil, apperr.Validation("barcode must not be blank")
		}
		product.Barcode = *req.Barcode
	}
	if req.CostPrice != nil {
		if req.CostPrice.IsNegative() {
			return nil, apperr.Validation("cost price must not be negative")
		}
		product.CostPrice = *req.CostPrice
	}
	if req.SalePrice != nil {
		if req.SalePrice.IsNegative() {
			return nil, apperr.Validation("sale price must not be negative")
		}
		product.SalePrice = *req.SalePrice
	}
	if req.Discount != nil {
		if req.Discount.IsNegative() {
			return nil, apperr.Validation("discount must not be negative")
		}
		product.Discount = *req.Discount
	}
	if req.Vendor != nil {
		product.Vendor = *req.Vendor
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Description != nil {
		product.Description = *req.Description
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindDuplicate, apperr.KindNotFound:
			return nil, err
		}
		return nil, apperr.ServerFault("failed to update product", err)
	}

	s.logger.Info("Product updated", zap.Int64("product_id", id))
	return s.repo.GetProductByID(ctx, id)
}

// ListProducts retrieves a store's products
func (s *CatalogService) ListProducts(ctx context.Context, storeID int64) ([]models.Product, error) {
	products, err := s.repo.ListProducts(ctx, storeID)
	if err != nil {
		return nil, apperr.ServerFault("failed to list products", err)
	}
	return products, nil
}

// CreateWarehouse adds a warehouse. An enabled printer needs an endpoint.
func (s *CatalogService) CreateWarehouse(ctx context.Context, req *CreateWarehouseRequest) (*models.Warehouse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation("warehouse name is required")
	}
	if req.PrinterEnabled && req.PrinterEndpoint == "" {
		return nil, apperr.Validation("printer endpoint is required when the printer is enabled")
	}

	warehouse := &models.Warehouse{
		Name:            req.Name,
		Location:        req.Location,
		ContactPerson:   req.ContactPerson,
		Phone:           req.Phone,
		PrinterEnabled:  req.PrinterEnabled,
		PrinterEndpoint: req.PrinterEndpoint,
	}
	if err := s.repo.CreateWarehouse(ctx, warehouse); err != nil {
		return nil, apperr.ServerFault("failed to create warehouse", err)
	}
	return warehouse, nil
}

// ListWarehouses retrieves every warehouse, lowest id first
func (s *CatalogService) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	warehouses, err := s.repo.ListWarehouses(ctx)
	if err != nil {
		return nil, apperr.ServerFault("failed to list warehouses", err)
	}
	return warehouses, nil
}

// CreateCustomer adds a customer. Phones are unique per store.
func (s *CatalogService) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*models.Customer, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Phone) == "" {
		return nil, apperr.Validation("name and phone are required")
	}

	customer := &models.Customer{
		StoreID:     req.StoreID,
		Name:        req.Name,
		Phone:       req.Phone,
		Address:     req.Address,
		CreditLimit: req.CreditLimit,
		Notes:       req.Notes,
		IsActive:    true,
	}
	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		if apperr.KindOf(err) == apperr.KindDuplicate {
			return nil, err
		}
		return nil, apperr.ServerFault("failed to create customer", err)
	}
	customer.Transactions = []models.LedgerEntry{}
	return customer, nil
}

// ListCustomers retrieves a store's customers
func (s *CatalogService) ListCustomers(ctx context.Context, storeID int64) ([]models.Customer, error) {
	customers, err := s.repo.ListCustomers(ctx, storeID)
	if err != nil {
		return nil, apperr.ServerFault("failed to list customers", err)
	}
	return customers, nil
}

// CreateRetailer opens a retailer account. An initial pay is posted as the
// first payment on its ledger.
func (s *CatalogService) CreateRetailer(ctx context.Context, req *CreateRetailerRequest) (*models.Retailer, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Contact) == "" {
		return nil, apperr.Validation("name and contact are required")
	}
	if req.InitialPay.IsNegative() {
		return nil, apperr.Validation("initial pay must not be negative")
	}

	retailer := &models.Retailer{
		StoreID:     req.StoreID,
		Name:        req.Name,
		Contact:     req.Contact,
		Address:     req.Address,
		BankName:    req.BankName,
		BankAccount: req.BankAccount,
		InitialPay:  req.InitialPay,
		Notes:       req.Notes,
		IsActive:    true,
	}
	if err := s.repo.CreateRetailer(ctx, retailer); err != nil {
		return nil, apperr.ServerFault("failed to create retailer", err)
	}

	if req.InitialPay.IsPositive() {
		if _, err := s.ledger.RecordRetailerPayment(ctx, retailer.ID, RetailerPaymentRequest{
			Amount:      req.InitialPay,
			Description: "Initial payment",
		}); err != nil {
			return nil, err
		}
	}

	return s.ledger.GetRetailer(ctx, retailer.ID)
}

// ListRetailers retrieves a store's retailers with their ledger totals
func (s *CatalogService) ListRetailers(ctx context.Context, storeID int64) ([]models.Retailer, error) {
	retailers, err := s.repo.ListRetailers(ctx, storeID)
	if err != nil {
		return nil, apperr.ServerFault("failed to list retailers", err)
	}
	for i := range retailers {
		if err := s.ledger.attachRetailerLedger(ctx, &retailers[i]); err != nil {
			return nil, err
		}
	}
	return retailers, nil
}

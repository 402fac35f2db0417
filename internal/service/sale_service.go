package service

import (
	"context"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleConfig holds the sale flow switches
type SaleConfig struct {
	// VoidReversesLedger appends an adjustment of -(total - paid) to the
	// linked party when an invoice is voided.
	VoidReversesLedger bool
}

// SaleService records, voids, converts and updates sales
type SaleService struct {
	repo      Repository
	stock     *StockService
	ledger    *LedgerService
	locker    Locker
	publisher EventPublisher
	invoices  *invoiceNumbers
	cfg       SaleConfig
	logger    *zap.Logger
}

// NewSaleService creates a new sale service
func NewSaleService(
	repo Repository,
	stock *StockService,
	ledger *LedgerService,
	locker Locker,
	publisher EventPublisher,
	cfg SaleConfig,
) *SaleService {
	return &SaleService{
		repo:      repo,
		stock:     stock,
		ledger:    ledger,
		locker:    locker,
		publisher: publisher,
		invoices:  newInvoiceNumbers(),
		cfg:       cfg,
		logger:    util.GetLogger(),
	}
}

// RecordSaleRequest represents a request to record a sale
type RecordSaleRequest struct {
	StoreID         int64             `json:"-"`
	SalesmanID      int64             `json:"salesman_id"`
	Type            string            `json:"type"`
	Items           []SaleItemRequest `json:"items"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	InvoiceDiscount decimal.Decimal   `json:"invoice_discount"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	PaidAmount      decimal.Decimal   `json:"paid_amount"`
	CustomerID      *int64            `json:"customer_id,omitempty"`
	RetailerID      *int64            `json:"retailer_id,omitempty"`
	CustomerName    string            `json:"customer_name"`
	CustomerPhone   string            `json:"customer_phone"`
	CustomerAddress string            `json:"customer_address"`
	ReferenceNo     string            `json:"reference_no"`
	Remarks         string            `json:"remarks"`
	DueDate         *time.Time        `json:"due_date,omitempty"`
	SaleDate        *time.Time        `json:"sale_date,omitempty"`
	IdempotencyKey  string            `json:"idempotency_key,omitempty"`
}

// SaleItemRequest represents a line of a sale
type SaleItemRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

// UpdateSaleRequest patches sale metadata. Nil fields are left alone.
type UpdateSaleRequest struct {
	ReferenceNo     *string          `json:"reference_no"`
	Remarks         *string          `json:"remarks"`
	DueDate         *time.Time       `json:"due_date"`
	CustomerName    *string          `json:"customer_name"`
	CustomerPhone   *string          `json:"customer_phone"`
	CustomerAddress *string          `json:"customer_address"`
	PaidAmount      *decimal.Decimal `json:"paid_amount"`
}

func (r *RecordSaleRequest) validate() error {
	if len(r.Items) == 0 {
		return apperr.Validation("sale must contain at least one item")
	}
	for _, item := range r.Items {
		if item.Quantity <= 0 {
			return apperr.Validation("quantity for product %d must be positive", item.ProductID)
		}
	}
	if r.CustomerID != nil && r.RetailerID != nil {
		return apperr.Validation("a sale cannot be linked to both a customer and a retailer")
	}
	if r.Type == "" {
		r.Type = models.SaleTypeInvoice
	}
	if !models.ValidSaleType(r.Type) {
		return apperr.Validation("unknown sale type %q", r.Type)
	}
	if r.PaidAmount.IsNegative() {
		return apperr.Validation("paid amount must not be negative")
	}
	return nil
}

// RecordSale records an invoice, quotation or estimate. Invoices are checked
// against total stock, decremented per the warehouse policy, reconciled and
// posted to the linked party's ledger while the product locks are held.
func (s *SaleService) RecordSale(ctx context.Context, req *RecordSaleRequest) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.RecordSale")
	defer span.End()

	if err := req.validate(); err != nil {
		util.SalesFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	if req.CustomerID != nil {
		if _, err := s.repo.GetCustomerByID(ctx, *req.CustomerID); err != nil {
			return nil, err
		}
	}
	if req.RetailerID != nil {
		if _, err := s.repo.GetRetailerByID(ctx, *req.RetailerID); err != nil {
			return nil, err
		}
	}

	isInvoice := req.Type == models.SaleTypeInvoice
	if isInvoice {
		productIDs := make([]int64, len(req.Items))
		for i, item := range req.Items {
			productIDs[i] = item.ProductID
		}
		release, err := lockProducts(ctx, s.locker, productIDs)
		if err != nil {
			util.SalesFailedTotal.WithLabelValues("lock_timeout").Inc()
			return nil, err
		}
		defer release()
	}

	// checked under the product locks so a retry racing the original sees
	// it instead of failing the stock check against its decrement
	if req.IdempotencyKey != "" {
		existing, err := s.repo.GetSaleByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, apperr.ServerFault("failed to check idempotency", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate sale request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("sale_id", existing.ID))
			return existing, nil
		}
	}

	products, err := s.loadProducts(ctx, req.Items)
	if err != nil {
		util.SalesFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}

	if isInvoice {
		if err := checkStock(req.Items, products); err != nil {
			util.SalesFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, err
		}
	}

	sale := s.buildSale(req, products)
	if err := s.repo.CreateSale(ctx, sale); err != nil {
		if apperr.KindOf(err) == apperr.KindDuplicate {
			if existing := s.lookupIdempotent(ctx, req.IdempotencyKey); existing != nil {
				return existing, nil
			}
			util.SalesFailedTotal.WithLabelValues("duplicate").Inc()
			return nil, err
		}
		util.SalesFailedTotal.WithLabelValues("db_error").Inc()
		return nil, apperr.ServerFault("failed to create sale", err)
	}

	util.SalesRecordedTotal.WithLabelValues(sale.Type).Inc()
	s.logger.Info("Sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.String("invoice_id", sale.InvoiceID),
		zap.String("type", sale.Type))

	if !isInvoice {
		return sale, nil
	}

	if err := s.applyInvoice(ctx, sale); err != nil {
		return nil, err
	}

	if sale.CustomerID != nil {
		if err := s.ledger.recordSale(ctx, models.PartyCustomer, *sale.CustomerID, sale); err != nil {
			return nil, err
		}
	}
	if sale.RetailerID != nil {
		if err := s.ledger.recordSale(ctx, models.PartyRetailer, *sale.RetailerID, sale); err != nil {
			return nil, err
		}
	}

	s.publishRecorded(ctx, sale)
	return sale, nil
}

// lookupIdempotent returns the sale that won a race on key, if any
func (s *SaleService) lookupIdempotent(ctx context.Context, key string) *models.Sale {
	if key == "" {
		return nil
	}
	existing, err := s.repo.GetSaleByIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to re-read sale by idempotency key", zap.String("idempotency_key", key), zap.Error(err))
		return nil
	}
	if existing != nil {
		s.logger.Info("Duplicate sale request detected",
			zap.String("idempotency_key", key),
			zap.Int64("sale_id", existing.ID))
	}
	return existing
}

func saleProductIDs(sale *models.Sale) []int64 {
	ids := make([]int64, len(sale.Items))
	for i, item := range sale.Items {
		ids[i] = item.ProductID
	}
	return ids
}

// loadProducts loads every distinct product named by items
func (s *SaleService) loadProducts(ctx context.Context, items []SaleItemRequest) (map[int64]*models.Product, error) {
	products := make(map[int64]*models.Product, len(items))
	for _, item := range items {
		if _, ok := products[item.ProductID]; ok {
			continue
		}
		product, err := s.repo.GetProductByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		products[item.ProductID] = product
	}
	return products, nil
}

// checkStock rejects the sale when any product's requested quantity,
// summed over its lines, exceeds its total stock
func checkStock(items []SaleItemRequest, products map[int64]*models.Product) error {
	requested := make(map[int64]int, len(items))
	for _, item := range items {
		requested[item.ProductID] += item.Quantity
	}
	for _, item := range items {
		product := products[item.ProductID]
		if want := requested[item.ProductID]; want > product.TotalStock {
			return &apperr.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.TotalStock,
				Requested:   want,
			}
		}
	}
	return nil
}

func (s *SaleService) buildSale(req *RecordSaleRequest, products map[int64]*models.Product) *models.Sale {
	saleDate := time.Now()
	if req.SaleDate != nil {
		saleDate = *req.SaleDate
	}

	sale := &models.Sale{
		StoreID:         req.StoreID,
		SalesmanID:      req.SalesmanID,
		Type:            req.Type,
		InvoiceID:       s.invoices.next(req.Type),
		Subtotal:        req.Subtotal,
		InvoiceDiscount: req.InvoiceDiscount,
		TotalAmount:     req.TotalAmount,
		PaidAmount:      req.PaidAmount,
		PaymentStatus:   models.DerivePaymentStatus(req.PaidAmount, req.TotalAmount),
		CustomerID:      req.CustomerID,
		RetailerID:      req.RetailerID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		ReferenceNo:     req.ReferenceNo,
		Remarks:         req.Remarks,
		DueDate:         req.DueDate,
		SaleDate:        saleDate,
		Items:           make([]models.SaleItem, len(req.Items)),
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		sale.IdempotencyKey = &key
	}

	for i, item := range req.Items {
		product := products[item.ProductID]
		sale.Items[i] = models.SaleItem{
			ProductID:   item.ProductID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			CostPrice:   product.CostPrice,
			Price:       item.Price,
			Discount:    item.Discount,
			Total:       item.Total,
		}
	}
	return sale
}

// applyInvoice decrements inventory for every line, records where the
// stock came from and reconciles each product. Callers hold the locks.
func (s *SaleService) applyInvoice(ctx context.Context, sale *models.Sale) error {
	for i := range sale.Items {
		item := &sale.Items[i]

		allocations, err := s.stock.decrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return err
		}
		if err := s.repo.SaveAllocations(ctx, item.ID, allocations); err != nil {
			return apperr.ServerFault("failed to save allocations", err)
		}
		item.Allocations = allocations

		if _, err := s.stock.ReconcileStock(ctx, item.ProductID); err != nil {
			return err
		}
	}
	return nil
}

// VoidSale deletes a sale. Invoices put their stock back in the warehouses
// it was taken from first; quotations and estimates never touched stock.
// The product locks are held for every sale type so a void cannot
// interleave with a conversion of the same sale, and only the caller whose
// delete removed the row restores stock.
func (s *SaleService) VoidSale(ctx context.Context, saleID int64) error {
	ctx, span := util.StartSpan(ctx, "SaleService.VoidSale")
	defer span.End()

	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return err
	}

	// items never change after creation, so the product set read here is
	// the one a concurrent conversion locks too
	release, err := lockProducts(ctx, s.locker, saleProductIDs(sale))
	if err != nil {
		return err
	}
	defer release()

	sale, err = s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteSale(ctx, saleID); err != nil {
		if apperr.IsNotFound(err) {
			return err
		}
		return apperr.ServerFault("failed to delete sale", err)
	}

	if sale.IsInvoice() {
		for _, item := range sale.Items {
			if err := s.stock.restoreStock(ctx, item); err != nil {
				return err
			}
		}
		reconciled := make(map[int64]bool, len(sale.Items))
		for _, item := range sale.Items {
			if reconciled[item.ProductID] {
				continue
			}
			reconciled[item.ProductID] = true
			if _, err := s.stock.ReconcileStock(ctx, item.ProductID); err != nil {
				return err
			}
		}
	}

	if s.cfg.VoidReversesLedger && sale.IsInvoice() {
		if sale.CustomerID != nil {
			if err := s.ledger.reverseSale(ctx, models.PartyCustomer, *sale.CustomerID, sale); err != nil {
				return err
			}
		}
		if sale.RetailerID != nil {
			if err := s.ledger.reverseSale(ctx, models.PartyRetailer, *sale.RetailerID, sale); err != nil {
				return err
			}
		}
	}

	util.SalesVoidedTotal.Inc()
	s.logger.Info("Sale voided", zap.Int64("sale_id", saleID), zap.String("invoice_id", sale.InvoiceID))

	event := &models.SaleVoidedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleVoided,
			Timestamp: time.Now(),
		},
		SaleID:    sale.ID,
		StoreID:   sale.StoreID,
		InvoiceID: sale.InvoiceID,
	}
	if err := s.publisher.PublishSaleVoided(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleVoided event", zap.Int64("sale_id", sale.ID), zap.Error(err))
	}
	return nil
}

// ConvertToInvoice turns a quotation or estimate into an invoice. The type
// flip is a compare-and-set, so only one of several racing conversions
// decrements stock. Stock sufficiency is not re-checked and retailer
// ledgers are not touched on this path.
func (s *SaleService) ConvertToInvoice(ctx context.Context, saleID int64) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.ConvertToInvoice")
	defer span.End()

	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale.IsInvoice() {
		return nil, apperr.Validation("sale %d is already an invoice", saleID)
	}

	release, err := lockProducts(ctx, s.locker, saleProductIDs(sale))
	if err != nil {
		return nil, err
	}
	defer release()

	invoiceID := s.invoices.next(models.SaleTypeInvoice)
	converted, err := s.repo.ConvertSaleToInvoice(ctx, saleID, invoiceID)
	if err != nil {
		return nil, apperr.ServerFault("failed to convert sale", err)
	}
	if !converted {
		// the row is either gone or was flipped by another caller
		if _, err := s.repo.GetSaleByID(ctx, saleID); err != nil {
			return nil, err
		}
		return nil, apperr.Validation("sale %d is already an invoice", saleID)
	}
	sale.Type = models.SaleTypeInvoice
	sale.InvoiceID = invoiceID

	if err := s.applyInvoice(ctx, sale); err != nil {
		return nil, err
	}
	if sale.CustomerID != nil {
		if err := s.ledger.recordSale(ctx, models.PartyCustomer, *sale.CustomerID, sale); err != nil {
			return nil, err
		}
	}

	util.SalesConvertedTotal.Inc()
	s.logger.Info("Sale converted to invoice",
		zap.Int64("sale_id", saleID),
		zap.String("invoice_id", invoiceID))

	s.publishRecorded(ctx, sale)
	return s.repo.GetSaleByID(ctx, saleID)
}

// UpdateSale patches metadata and the paid amount. Payment status is
// re-derived from paid vs total; line items never change.
func (s *SaleService) UpdateSale(ctx context.Context, saleID int64, req *UpdateSaleRequest) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.UpdateSale")
	defer span.End()

	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if req.ReferenceNo != nil {
		sale.ReferenceNo = *req.ReferenceNo
	}
	if req.Remarks != nil {
		sale.Remarks = *req.Remarks
	}
	if req.DueDate != nil {
		sale.DueDate = req.DueDate
	}
	if req.CustomerName != nil {
		sale.CustomerName = *req.CustomerName
	}
	if req.CustomerPhone != nil {
		sale.CustomerPhone = *req.CustomerPhone
	}
	if req.CustomerAddress != nil {
		sale.CustomerAddress = *req.CustomerAddress
	}
	if req.PaidAmount != nil {
		if req.PaidAmount.IsNegative() {
			return nil, apperr.Validation("paid amount must not be negative")
		}
		sale.PaidAmount = *req.PaidAmount
	}
	sale.PaymentStatus = models.DerivePaymentStatus(sale.PaidAmount, sale.TotalAmount)

	if err := s.repo.UpdateSale(ctx, sale); err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, apperr.ServerFault("failed to update sale", err)
	}
	return sale, nil
}

// GetSale retrieves a sale with items and allocations
func (s *SaleService) GetSale(ctx context.Context, saleID int64) (*models.Sale, error) {
	return s.repo.GetSaleByID(ctx, saleID)
}

// ListSales retrieves a store's sales
func (s *SaleService) ListSales(ctx context.Context, storeID int64) ([]models.Sale, error) {
	sales, err := s.repo.ListSales(ctx, storeID)
	if err != nil {
		return nil, apperr.ServerFault("failed to list sales", err)
	}
	return sales, nil
}

func (s *SaleService) publishRecorded(ctx context.Context, sale *models.Sale) {
	items := make([]models.SaleItemData, len(sale.Items))
	for i, item := range sale.Items {
		items[i] = models.SaleItemData{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Total:       item.Total,
			Allocations: item.Allocations,
		}
	}

	event := &models.SaleRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleRecorded,
			Timestamp: time.Now(),
		},
		SaleID:        sale.ID,
		StoreID:       sale.StoreID,
		InvoiceID:     sale.InvoiceID,
		CustomerName:  sale.CustomerName,
		CustomerPhone: sale.CustomerPhone,
		TotalAmount:   sale.TotalAmount,
		SaleDate:      sale.SaleDate,
		Items:         items,
	}

	if err := s.publisher.PublishSaleRecorded(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleRecorded event", zap.Int64("sale_id", sale.ID), zap.Error(err))
	}
}

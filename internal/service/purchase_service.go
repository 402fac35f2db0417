package service

import (
	"context"
	"strings"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PurchaseService records stock received from vendors
type PurchaseService struct {
	repo      Repository
	stock     *StockService
	locker    Locker
	publisher EventPublisher
	logger    *zap.Logger
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(repo Repository, stock *StockService, locker Locker, publisher EventPublisher) *PurchaseService {
	return &PurchaseService{
		repo:      repo,
		stock:     stock,
		locker:    locker,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// RecordPurchaseRequest represents a request to record a purchase
type RecordPurchaseRequest struct {
	StoreID      int64                 `json:"-"`
	VendorName   string                `json:"vendor_name"`
	Items        []PurchaseItemRequest `json:"items"`
	TotalAmount  decimal.Decimal       `json:"total_amount"`
	PaidAmount   decimal.Decimal       `json:"paid_amount"`
	Balance      *decimal.Decimal      `json:"balance,omitempty"`
	PurchaseDate *time.Time            `json:"purchase_date,omitempty"`
}

// PurchaseItemRequest is a received line. WarehouseID 0 means the default warehouse.
type PurchaseItemRequest struct {
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Quantity    int             `json:"quantity"`
	CostPrice   decimal.Decimal `json:"cost_price"`
}

// UpdatePurchaseRequest patches purchase metadata. Nil fields are left
// alone; the paid amount only moves through AddPayment.
type UpdatePurchaseRequest struct {
	VendorName   *string          `json:"vendor_name"`
	TotalAmount  *decimal.Decimal `json:"total_amount"`
	PurchaseDate *time.Time       `json:"purchase_date"`
}

// AddPaymentRequest is a payment against a purchase
type AddPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (r *RecordPurchaseRequest) validate() error {
	if strings.TrimSpace(r.VendorName) == "" {
		return apperr.Validation("vendor name is required")
	}
	if len(r.Items) == 0 {
		return apperr.Validation("purchase must contain at least one item")
	}
	for _, item := range r.Items {
		if item.Quantity <= 0 {
			return apperr.Validation("quantity for product %d must be positive", item.ProductID)
		}
		if item.CostPrice.IsNegative() {
			return apperr.Validation("cost price for product %d must not be negative", item.ProductID)
		}
	}
	if r.PaidAmount.IsNegative() {
		return apperr.Validation("paid amount must not be negative")
	}
	return nil
}

// RecordPurchase persists a purchase, then for each line sets the product's
// cost price, increments the chosen warehouse and reconciles the product.
func (s *PurchaseService) RecordPurchase(ctx context.Context, req *RecordPurchaseRequest) (*models.Purchase, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.RecordPurchase")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	productIDs := make([]int64, len(req.Items))
	for i, item := range req.Items {
		productIDs[i] = item.ProductID
	}
	release, err := lockProducts(ctx, s.locker, productIDs)
	if err != nil {
		return nil, err
	}
	defer release()

	items := make([]models.PurchaseItem, len(req.Items))
	itemsTotal := decimal.Zero
	for i, item := range req.Items {
		if _, err := s.repo.GetProductByID(ctx, item.ProductID); err != nil {
			return nil, err
		}
		warehouse, err := s.stock.resolveWarehouse(ctx, item.WarehouseID)
		if err != nil {
			return nil, err
		}
		total := item.CostPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		itemsTotal = itemsTotal.Add(total)
		items[i] = models.PurchaseItem{
			ProductID:   item.ProductID,
			WarehouseID: warehouse.ID,
			Quantity:    item.Quantity,
			CostPrice:   item.CostPrice,
			Total:       total,
		}
	}

	purchase := &models.Purchase{
		StoreID:      req.StoreID,
		VendorName:   req.VendorName,
		TotalAmount:  req.TotalAmount,
		PaidAmount:   req.PaidAmount,
		PurchaseDate: time.Now(),
		Items:        items,
	}
	if purchase.TotalAmount.IsZero() {
		purchase.TotalAmount = itemsTotal
	}
	if req.Balance != nil {
		purchase.Balance = *req.Balance
	} else {
		purchase.Balance = purchase.TotalAmount.Sub(purchase.PaidAmount)
	}
	if req.PurchaseDate != nil {
		purchase.PurchaseDate = *req.PurchaseDate
	}

	if err := s.repo.CreatePurchase(ctx, purchase); err != nil {
		return nil, apperr.ServerFault("failed to create purchase", err)
	}

	for _, item := range purchase.Items {
		if err := s.repo.UpdateProductCostPrice(ctx, item.ProductID, item.CostPrice); err != nil {
			return nil, apperr.ServerFault("failed to update cost price", err)
		}
		if _, err := s.repo.AdjustInventory(ctx, item.ProductID, item.WarehouseID, item.Quantity); err != nil {
			return nil, apperr.ServerFault("failed to increment inventory", err)
		}
		if _, err := s.stock.ReconcileStock(ctx, item.ProductID); err != nil {
			return nil, err
		}
	}

	util.PurchasesRecordedTotal.Inc()
	s.logger.Info("Purchase recorded",
		zap.Int64("purchase_id", purchase.ID),
		zap.String("vendor", purchase.VendorName),
		zap.Int("items", len(purchase.Items)))

	event := &models.PurchaseRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePurchaseRecorded,
			Timestamp: time.Now(),
		},
		PurchaseID:  purchase.ID,
		StoreID:     purchase.StoreID,
		VendorName:  purchase.VendorName,
		TotalAmount: purchase.TotalAmount,
	}
	if err := s.publisher.PublishPurchaseRecorded(ctx, event); err != nil {
		s.logger.Error("Failed to publish PurchaseRecorded event", zap.Int64("purchase_id", purchase.ID), zap.Error(err))
	}

	return purchase, nil
}

// AddPayment applies a payment to a purchase. Overpayment is allowed and
// leaves a negative balance.
func (s *PurchaseService) AddPayment(ctx context.Context, purchaseID int64, amount decimal.Decimal) (*models.Purchase, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.AddPayment")
	defer span.End()

	if !amount.IsPositive() {
		return nil, apperr.Validation("payment amount must be positive")
	}

	purchase, err := s.repo.AddPurchasePayment(ctx, purchaseID, amount)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, apperr.ServerFault("failed to add purchase payment", err)
	}
	return purchase, nil
}

// UpdatePurchase edits vendor, date and total. Items and received stock are
// immutable, and a new total re-derives the balance as total - paid.
func (s *PurchaseService) UpdatePurchase(ctx context.Context, purchaseID int64, req *UpdatePurchaseRequest) (*models.Purchase, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.UpdatePurchase")
	defer span.End()

	purchase, err := s.repo.GetPurchaseByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}

	if req.VendorName != nil {
		if strings.TrimSpace(*req.VendorName) == "" {
			return nil, apperr.Validation("vendor name is required")
		}
		purchase.VendorName = *req.VendorName
	}
	if req.TotalAmount != nil {
		if req.TotalAmount.IsNegative() {
			return nil, apperr.Validation("total amount must not be negative")
		}
		purchase.TotalAmount = *req.TotalAmount
	}
	if req.PurchaseDate != nil {
		purchase.PurchaseDate = *req.PurchaseDate
	}

	if err := s.repo.UpdatePurchase(ctx, purchase); err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, apperr.ServerFault("failed to update purchase", err)
	}

	s.logger.Info("Purchase updated", zap.Int64("purchase_id", purchaseID))
	return s.repo.GetPurchaseByID(ctx, purchaseID)
}

// GetPurchase retrieves a purchase with items and payment history
func (s *PurchaseService) GetPurchase(ctx context.Context, purchaseID int64) (*models.Purchase, error) {
	return s.repo.GetPurchaseByID(ctx, purchaseID)
}

// ListPurchases retrieves a store's purchases
func (s *PurchaseService) ListPurchases(ctx context.Context, storeID int64) ([]models.Purchase, error) {
	purchases, err := s.repo.ListPurchases(ctx, storeID)
	if err != nil {
		return nil, apperr.ServerFault("failed to list purchases", err)
	}
	return purchases, nil
}

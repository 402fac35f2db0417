package service

import (
	"context"
	"fmt"

	"pos-service/internal/apperr"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService appends customer and retailer ledger entries and keeps the
// stored balances equal to a full recompute of the ledger. All writes to a
// party go through its lock, so sales and manual adjustments serialize.
type LedgerService struct {
	repo   Repository
	locker Locker
	logger *zap.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(repo Repository, locker Locker) *LedgerService {
	return &LedgerService{
		repo:   repo,
		locker: locker,
		logger: util.GetLogger(),
	}
}

// BalanceAdjustment is a manual ledger entry
type BalanceAdjustment struct {
	Type        string          `json:"type" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	SaleID      *int64          `json:"sale_id,omitempty"`
	PurchaseID  *int64          `json:"purchase_id,omitempty"`
}

// RetailerPaymentRequest records money received from a retailer
type RetailerPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	SaleID      *int64          `json:"sale_id,omitempty"`
}

func validateEntry(partyType, entryType string, amount decimal.Decimal) error {
	switch entryType {
	case models.EntryTypeSale, models.EntryTypePayment:
	case models.EntryTypePurchase:
		if partyType != models.PartyRetailer {
			return apperr.Validation("purchase entries only apply to retailers")
		}
	case models.EntryTypeAdjustment:
		if amount.IsZero() {
			return apperr.Validation("adjustment amount must not be zero")
		}
		return nil
	default:
		return apperr.Validation("unknown transaction type %q", entryType)
	}

	if !amount.IsPositive() {
		return apperr.Validation("%s amount must be positive", entryType)
	}
	return nil
}

// AdjustCustomerBalance appends a manual entry and recomputes the balance
func (s *LedgerService) AdjustCustomerBalance(ctx context.Context, customerID int64, adj BalanceAdjustment) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.AdjustCustomerBalance")
	defer span.End()

	if err := validateEntry(models.PartyCustomer, adj.Type, adj.Amount); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCustomerByID(ctx, customerID); err != nil {
		return nil, err
	}

	entry := models.LedgerEntry{
		Type:        adj.Type,
		Amount:      adj.Amount,
		SaleID:      adj.SaleID,
		Description: adj.Description,
	}
	if err := s.post(ctx, models.PartyCustomer, customerID, []models.LedgerEntry{entry}); err != nil {
		return nil, err
	}

	return s.GetCustomer(ctx, customerID)
}

// AdjustRetailerBalance appends a manual entry and recomputes the totals
func (s *LedgerService) AdjustRetailerBalance(ctx context.Context, retailerID int64, adj BalanceAdjustment) (*models.Retailer, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.AdjustRetailerBalance")
	defer span.End()

	if err := validateEntry(models.PartyRetailer, adj.Type, adj.Amount); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetRetailerByID(ctx, retailerID); err != nil {
		return nil, err
	}

	entry := models.LedgerEntry{
		Type:        adj.Type,
		Amount:      adj.Amount,
		SaleID:      adj.SaleID,
		PurchaseID:  adj.PurchaseID,
		Description: adj.Description,
	}
	if err := s.post(ctx, models.PartyRetailer, retailerID, []models.LedgerEntry{entry}); err != nil {
		return nil, err
	}

	return s.GetRetailer(ctx, retailerID)
}

// RecordRetailerPayment appends a payment. When it names a sale, the sale's
// paid amount becomes the sum of the retailer payments linked to it.
func (s *LedgerService) RecordRetailerPayment(ctx context.Context, retailerID int64, req RetailerPaymentRequest) (*models.Retailer, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.RecordRetailerPayment")
	defer span.End()

	if !req.Amount.IsPositive() {
		return nil, apperr.Validation("payment amount must be positive")
	}
	if _, err := s.repo.GetRetailerByID(ctx, retailerID); err != nil {
		return nil, err
	}

	var sale *models.Sale
	if req.SaleID != nil {
		var err error
		sale, err = s.repo.GetSaleByID(ctx, *req.SaleID)
		if err != nil {
			return nil, err
		}
		if sale.RetailerID == nil || *sale.RetailerID != retailerID {
			return nil, apperr.Validation("sale %d does not belong to retailer %d", sale.ID, retailerID)
		}
	}

	release, err := acquireAll(ctx, s.locker, []string{partyLockKey(models.PartyRetailer, retailerID)})
	if err != nil {
		return nil, err
	}
	defer release()

	description := req.Description
	if description == "" {
		description = "Payment received"
	}
	entry := models.LedgerEntry{Type: models.EntryTypePayment, Amount: req.Amount, SaleID: req.SaleID, Description: description}
	if err := s.appendAndRecompute(ctx, models.PartyRetailer, retailerID, []models.LedgerEntry{entry}); err != nil {
		return nil, err
	}

	if sale != nil {
		paid, err := s.repo.SumRetailerSalePayments(ctx, retailerID, sale.ID)
		if err != nil {
			return nil, apperr.ServerFault("failed to sum sale payments", err)
		}
		sale.PaidAmount = paid
		sale.PaymentStatus = models.DerivePaymentStatus(paid, sale.TotalAmount)
		if err := s.repo.UpdateSale(ctx, sale); err != nil {
			return nil, apperr.ServerFault("failed to update sale payment", err)
		}
	}

	return s.GetRetailer(ctx, retailerID)
}

// GetCustomer returns a customer with its transactions
func (s *LedgerService) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	customer, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	customer.Transactions, err = s.repo.ListLedgerEntries(ctx, models.PartyCustomer, id)
	if err != nil {
		return nil, apperr.ServerFault("failed to load transactions", err)
	}
	return customer, nil
}

// GetRetailer returns a retailer with its transactions and ledger totals
func (s *LedgerService) GetRetailer(ctx context.Context, id int64) (*models.Retailer, error) {
	retailer, err := s.repo.GetRetailerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachRetailerLedger(ctx, retailer); err != nil {
		return nil, err
	}
	return retailer, nil
}

func (s *LedgerService) attachRetailerLedger(ctx context.Context, retailer *models.Retailer) error {
	entries, err := s.repo.ListLedgerEntries(ctx, models.PartyRetailer, retailer.ID)
	if err != nil {
		return apperr.ServerFault("failed to load transactions", err)
	}
	totals := models.SummarizeRetailerLedger(entries)
	retailer.Transactions = entries
	retailer.Totals = &totals
	return nil
}

// recordSale posts the sale total and, when something was paid, the payment
func (s *LedgerService) recordSale(ctx context.Context, partyType string, partyID int64, sale *models.Sale) error {
	saleID := sale.ID
	entries := []models.LedgerEntry{{
		Type:        models.EntryTypeSale,
		Amount:      sale.TotalAmount,
		SaleID:      &saleID,
		Description: fmt.Sprintf("Sale %s", sale.InvoiceID),
	}}
	if sale.PaidAmount.IsPositive() {
		entries = append(entries, models.LedgerEntry{
			Type:        models.EntryTypePayment,
			Amount:      sale.PaidAmount,
			SaleID:      &saleID,
			Description: fmt.Sprintf("Payment for %s", sale.InvoiceID),
		})
	}
	return s.post(ctx, partyType, partyID, entries)
}

// reverseSale posts the adjustment that cancels a voided sale's open amount
func (s *LedgerService) reverseSale(ctx context.Context, partyType string, partyID int64, sale *models.Sale) error {
	open := sale.TotalAmount.Sub(sale.PaidAmount)
	if open.IsZero() {
		return nil
	}
	saleID := sale.ID
	return s.post(ctx, partyType, partyID, []models.LedgerEntry{{
		Type:        models.EntryTypeAdjustment,
		Amount:      open.Neg(),
		SaleID:      &saleID,
		Description: fmt.Sprintf("Void of %s", sale.InvoiceID),
	}})
}

// post appends entries and recomputes under the party lock
func (s *LedgerService) post(ctx context.Context, partyType string, partyID int64, entries []models.LedgerEntry) error {
	release, err := acquireAll(ctx, s.locker, []string{partyLockKey(partyType, partyID)})
	if err != nil {
		return err
	}
	defer release()

	return s.appendAndRecompute(ctx, partyType, partyID, entries)
}

func (s *LedgerService) appendAndRecompute(ctx context.Context, partyType string, partyID int64, entries []models.LedgerEntry) error {
	for i := range entries {
		entry := &entries[i]
		entry.PartyType = partyType
		entry.PartyID = partyID
		if err := s.repo.AppendLedgerEntry(ctx, entry); err != nil {
			return apperr.ServerFault("failed to append ledger entry", err)
		}
		util.LedgerEntriesTotal.WithLabelValues(partyType, entry.Type).Inc()
	}

	switch partyType {
	case models.PartyCustomer:
		balance, err := s.repo.RecomputeCustomerBalance(ctx, partyID)
		if err != nil {
			return fmt.Errorf("failed to recompute customer balance: %w", err)
		}
		s.logger.Debug("Customer balance recomputed",
			zap.Int64("customer_id", partyID),
			zap.String("balance", balance.String()))
	case models.PartyRetailer:
		totals, err := s.repo.RecomputeRetailerBalance(ctx, partyID)
		if err != nil {
			return fmt.Errorf("failed to recompute retailer balance: %w", err)
		}
		s.logger.Debug("Retailer balance recomputed",
			zap.Int64("retailer_id", partyID),
			zap.String("balance", totals.Balance.String()))
	}
	return nil
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog entry owned by one store
type Product struct {
	ID          int64           `db:"id" json:"id"`
	StoreID     int64           `db:"store_id" json:"store_id"`
	Name        string          `db:"name" json:"name"`
	Barcode     string          `db:"barcode" json:"barcode"`
	CostPrice   decimal.Decimal `db:"cost_price" json:"cost_price"`
	SalePrice   decimal.Decimal `db:"sale_price" json:"sale_price"`
	Discount    decimal.Decimal `db:"discount" json:"discount"`
	Vendor      string          `db:"vendor" json:"vendor,omitempty"`
	Category    string          `db:"category" json:"category,omitempty"`
	Description string          `db:"description" json:"description,omitempty"`
	TotalStock  int             `db:"total_stock" json:"total_stock"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Warehouse is a stock-holding location shared across stores
type Warehouse struct {
	ID              int64     `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Location        string    `db:"location" json:"location,omitempty"`
	ContactPerson   string    `db:"contact_person" json:"contact_person,omitempty"`
	Phone           string    `db:"phone" json:"phone,omitempty"`
	PrinterEnabled  bool      `db:"printer_enabled" json:"printer_enabled"`
	PrinterEndpoint string    `db:"printer_endpoint" json:"printer_endpoint,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Inventory is the stock held for one product in one warehouse.
// Quantity is signed: oversold stock is recorded, not rejected.
type Inventory struct {
	ID          int64     `db:"id" json:"id"`
	ProductID   int64     `db:"product_id" json:"product_id"`
	WarehouseID int64     `db:"warehouse_id" json:"warehouse_id"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Sale represents an invoice, quotation or estimate
type Sale struct {
	ID              int64           `db:"id" json:"id"`
	StoreID         int64           `db:"store_id" json:"store_id"`
	SalesmanID      int64           `db:"salesman_id" json:"salesman_id"`
	Type            string          `db:"type" json:"type"`
	InvoiceID       string          `db:"invoice_id" json:"invoice_id"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	InvoiceDiscount decimal.Decimal `db:"invoice_discount" json:"invoice_discount"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaidAmount      decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	PaymentStatus   string          `db:"payment_status" json:"payment_status"`
	CustomerID      *int64          `db:"customer_id" json:"customer_id,omitempty"`
	RetailerID      *int64          `db:"retailer_id" json:"retailer_id,omitempty"`
	CustomerName    string          `db:"customer_name" json:"customer_name,omitempty"`
	CustomerPhone   string          `db:"customer_phone" json:"customer_phone,omitempty"`
	CustomerAddress string          `db:"customer_address" json:"customer_address,omitempty"`
	ReferenceNo     string          `db:"reference_no" json:"reference_no,omitempty"`
	Remarks         string          `db:"remarks" json:"remarks,omitempty"`
	DueDate         *time.Time      `db:"due_date" json:"due_date,omitempty"`
	SaleDate        time.Time       `db:"sale_date" json:"sale_date"`
	IdempotencyKey  *string         `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
	Items           []SaleItem      `db:"-" json:"items"`
}

// IsInvoice reports whether the sale commits inventory and ledger effects
func (s *Sale) IsInvoice() bool {
	return s.Type == SaleTypeInvoice
}

// SaleItem is a line of a sale. CostPrice is a snapshot taken at creation.
type SaleItem struct {
	ID          int64             `db:"id" json:"id"`
	SaleID      int64             `db:"sale_id" json:"sale_id"`
	ProductID   int64             `db:"product_id" json:"product_id"`
	ProductName string            `db:"product_name" json:"product_name"`
	Quantity    int               `db:"quantity" json:"quantity"`
	CostPrice   decimal.Decimal   `db:"cost_price" json:"cost_price"`
	Price       decimal.Decimal   `db:"price" json:"price"`
	Discount    decimal.Decimal   `db:"discount" json:"discount"`
	Total       decimal.Decimal   `db:"total" json:"total"`
	Allocations []StockAllocation `db:"-" json:"allocations,omitempty"`
}

// StockAllocation records how much of a sale item was taken from a warehouse
type StockAllocation struct {
	ID          int64 `db:"id" json:"-"`
	SaleItemID  int64 `db:"sale_item_id" json:"-"`
	WarehouseID int64 `db:"warehouse_id" json:"warehouse_id"`
	Quantity    int   `db:"quantity" json:"quantity"`
}

// Purchase is stock received from a vendor
type Purchase struct {
	ID             int64             `db:"id" json:"id"`
	StoreID        int64             `db:"store_id" json:"store_id"`
	VendorName     string            `db:"vendor_name" json:"vendor_name"`
	TotalAmount    decimal.Decimal   `db:"total_amount" json:"total_amount"`
	PaidAmount     decimal.Decimal   `db:"paid_amount" json:"paid_amount"`
	Balance        decimal.Decimal   `db:"balance" json:"balance"`
	PurchaseDate   time.Time         `db:"purchase_date" json:"purchase_date"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
	Items          []PurchaseItem    `db:"-" json:"items"`
	PaymentHistory []PurchasePayment `db:"-" json:"payment_history"`
}

// PurchaseItem is a received line of a purchase
type PurchaseItem struct {
	ID          int64           `db:"id" json:"id"`
	PurchaseID  int64           `db:"purchase_id" json:"purchase_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	WarehouseID int64           `db:"warehouse_id" json:"warehouse_id"`
	Quantity    int             `db:"quantity" json:"quantity"`
	CostPrice   decimal.Decimal `db:"cost_price" json:"cost_price"`
	Total       decimal.Decimal `db:"total" json:"total"`
}

// PurchasePayment is one entry of a purchase's append-only payment history
type PurchasePayment struct {
	ID         int64           `db:"id" json:"id"`
	PurchaseID int64           `db:"purchase_id" json:"purchase_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	PaidAt     time.Time       `db:"paid_at" json:"paid_at"`
}

// Customer is a walk-in or credit customer of a store.
// Balance is positive when the customer owes the business.
type Customer struct {
	ID           int64           `db:"id" json:"id"`
	StoreID      int64           `db:"store_id" json:"store_id"`
	Name         string          `db:"name" json:"name"`
	Phone        string          `db:"phone" json:"phone"`
	Address      string          `db:"address" json:"address,omitempty"`
	CreditLimit  decimal.Decimal `db:"credit_limit" json:"credit_limit"`
	Balance      decimal.Decimal `db:"balance" json:"balance"`
	Notes        string          `db:"notes" json:"notes,omitempty"`
	IsActive     bool            `db:"is_active" json:"is_active"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	Transactions []LedgerEntry   `db:"-" json:"transactions"`
}

// Retailer is a wholesale account of a store
type Retailer struct {
	ID               int64           `db:"id" json:"id"`
	StoreID          int64           `db:"store_id" json:"store_id"`
	Name             string          `db:"name" json:"name"`
	Contact          string          `db:"contact" json:"contact"`
	Address          string          `db:"address" json:"address,omitempty"`
	BankName         string          `db:"bank_name" json:"bank_name,omitempty"`
	BankAccount      string          `db:"bank_account" json:"bank_account,omitempty"`
	InitialPay       decimal.Decimal `db:"initial_pay" json:"initial_pay"`
	Balance          decimal.Decimal `db:"balance" json:"balance"`
	PaidAmount       decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	RemainingBalance decimal.Decimal `db:"remaining_balance" json:"remaining_balance"`
	Notes            string          `db:"notes" json:"notes,omitempty"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
	Transactions     []LedgerEntry   `db:"-" json:"transactions"`
	Totals           *RetailerTotals `db:"-" json:"totals,omitempty"`
}

// LedgerEntry is an append-only customer or retailer transaction
type LedgerEntry struct {
	ID          int64           `db:"id" json:"id"`
	PartyType   string          `db:"party_type" json:"party_type"`
	PartyID     int64           `db:"party_id" json:"party_id"`
	Type        string          `db:"type" json:"type"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	SaleID      *int64          `db:"sale_id" json:"sale_id,omitempty"`
	PurchaseID  *int64          `db:"purchase_id" json:"purchase_id,omitempty"`
	Description string          `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// RetailerTotals are the figures derived from a retailer's ledger
type RetailerTotals struct {
	TotalSales     decimal.Decimal `db:"total_sales" json:"total_sales"`
	TotalPurchases decimal.Decimal `db:"total_purchases" json:"total_purchases"`
	TotalDebit     decimal.Decimal `db:"total_debit" json:"total_debit"`
	TotalPaid      decimal.Decimal `db:"total_paid" json:"total_paid"`
	TotalAdjusted  decimal.Decimal `db:"total_adjusted" json:"total_adjusted"`
	Balance        decimal.Decimal `db:"balance" json:"remaining_balance"`
}

// SummarizeRetailerLedger folds a retailer's entries into its totals.
// Debit is sales plus purchases; the balance also carries adjustments.
func SummarizeRetailerLedger(entries []LedgerEntry) RetailerTotals {
	var t RetailerTotals
	for _, e := range entries {
		switch e.Type {
		case EntryTypeSale:
			t.TotalSales = t.TotalSales.Add(e.Amount)
		case EntryTypePurchase:
			t.TotalPurchases = t.TotalPurchases.Add(e.Amount)
		case EntryTypePayment:
			t.TotalPaid = t.TotalPaid.Add(e.Amount)
		case EntryTypeAdjustment:
			t.TotalAdjusted = t.TotalAdjusted.Add(e.Amount)
		}
	}
	t.TotalDebit = t.TotalSales.Add(t.TotalPurchases)
	t.Balance = t.TotalDebit.Sub(t.TotalPaid).Add(t.TotalAdjusted)
	return t
}

// Sale types
const (
	SaleTypeInvoice   = "invoice"
	SaleTypeQuotation = "quotation"
	SaleTypeEstimate  = "estimate"
)

// Payment statuses
const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPartial = "partial"
	PaymentStatusUnpaid  = "unpaid"
)

// Ledger parties
const (
	PartyCustomer = "customer"
	PartyRetailer = "retailer"
)

// Ledger entry types
const (
	EntryTypeSale       = "sale"
	EntryTypePayment    = "payment"
	EntryTypePurchase   = "purchase"
	EntryTypeAdjustment = "adjustment"
)

// InvoicePrefix returns the invoice id prefix for a sale type
func InvoicePrefix(saleType string) string {
	switch saleType {
	case SaleTypeQuotation:
		return "QUT"
	case SaleTypeEstimate:
		return "EST"
	default:
		return "INV"
	}
}

// ValidSaleType reports whether t is a known sale type
func ValidSaleType(t string) bool {
	return t == SaleTypeInvoice || t == SaleTypeQuotation || t == SaleTypeEstimate
}

// DerivePaymentStatus derives a sale's payment status from paid vs total
func DerivePaymentStatus(paid, total decimal.Decimal) string {
	if paid.GreaterThanOrEqual(total) {
		return PaymentStatusPaid
	}
	if paid.IsPositive() {
		return PaymentStatusPartial
	}
	return PaymentStatusUnpaid
}

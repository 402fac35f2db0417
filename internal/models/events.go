package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeSaleRecorded     = "SALE_RECORDED"
	EventTypeSaleVoided       = "SALE_VOIDED"
	EventTypePurchaseRecorded = "PURCHASE_RECORDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleRecordedEvent is published once an invoice sale has committed.
// Quotation to invoice conversions publish it as well.
type SaleRecordedEvent struct {
	BaseEvent
	SaleID        int64           `json:"sale_id"`
	StoreID       int64           `json:"store_id"`
	InvoiceID     string          `json:"invoice_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	SaleDate      time.Time       `json:"sale_date"`
	Items         []SaleItemData  `json:"items"`
}

// SaleVoidedEvent published when a sale is voided
type SaleVoidedEvent struct {
	BaseEvent
	SaleID    int64  `json:"sale_id"`
	StoreID   int64  `json:"store_id"`
	InvoiceID string `json:"invoice_id"`
}

// PurchaseRecordedEvent published when stock is received
type PurchaseRecordedEvent struct {
	BaseEvent
	PurchaseID  int64           `json:"purchase_id"`
	StoreID     int64           `json:"store_id"`
	VendorName  string          `json:"vendor_name"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// SaleItemData represents item data in events
type SaleItemData struct {
	ProductID   int64             `json:"product_id"`
	ProductName string            `json:"product_name"`
	Quantity    int               `json:"quantity"`
	Price       decimal.Decimal   `json:"price"`
	Total       decimal.Decimal   `json:"total"`
	Allocations []StockAllocation `json:"allocations"`
}

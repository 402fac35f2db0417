// Package printer sends receipts to warehouse printer endpoints over HTTP.
package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is the JSON body a warehouse printer accepts
type Receipt struct {
	InvoiceID     string          `json:"invoiceId"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	Date          time.Time       `json:"date"`
	StoreName     string          `json:"storeName"`
	Items         []ReceiptItem   `json:"items"`
	StoreTotal    decimal.Decimal `json:"storeTotal"`
}

// ReceiptItem is one printed line
type ReceiptItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

// Client posts receipts with a fixed per-request timeout
type Client struct {
	httpClient *http.Client
}

// NewClient creates a printer client
func NewClient(timeout time.Duration) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// Print posts the receipt to endpoint. Any non-2xx answer is an error.
func (c *Client) Print(ctx context.Context, endpoint string, receipt *Receipt) error {
	body, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build printer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("printer request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("printer %s answered %d", endpoint, resp.StatusCode)
	}
	return nil
}

package service

import (
	"fmt"
	"sync"
	"time"

	"pos-service/internal/models"
)

// invoiceNumbers hands out PREFIX-<unix millis> ids. Two ids issued in the
// same millisecond are pushed forward so the process never repeats one.
type invoiceNumbers struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func newInvoiceNumbers() *invoiceNumbers {
	return &invoiceNumbers{now: time.Now}
}

func (n *invoiceNumbers) next(saleType string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ms := n.now().UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	return fmt.Sprintf("%s-%d", models.InvoicePrefix(saleType), ms)
}

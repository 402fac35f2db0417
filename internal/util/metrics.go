package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_recorded_total",
		Help: "Total number of sales recorded, by sale type",
	}, []string{"type"})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of rejected or failed sales",
	}, []string{"reason"})

	SalesVoidedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_voided_total",
		Help: "Total number of voided sales",
	})

	SalesConvertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_converted_total",
		Help: "Total number of quotations and estimates converted to invoices",
	})

	PurchasesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchases_recorded_total",
		Help: "Total number of purchases recorded",
	})

	StockReconcileLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_reconcile_latency_seconds",
		Help:    "Latency of product stock reconciliation",
		Buckets: prometheus.DefBuckets,
	})

	StockCacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_cache_errors_total",
		Help: "Total number of failed stock cache operations",
	}, []string{"op"})

	LedgerEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_total",
		Help: "Total number of ledger entries appended",
	}, []string{"party", "type"})

	LockWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lock_wait_seconds",
		Help:    "Time spent waiting for product and party locks",
		Buckets: prometheus.DefBuckets,
	})

	LockFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lock_failures_total",
		Help: "Total number of lock acquisitions that gave up",
	})

	ReceiptsPrintedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receipts_printed_total",
		Help: "Total number of receipts sent to warehouse printers",
	})

	ReceiptPrintFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receipt_print_failed_total",
		Help: "Total number of receipts the printer endpoint rejected or never answered",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

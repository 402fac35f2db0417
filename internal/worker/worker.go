package worker

import (
	"context"
	"sort"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/printer"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReceiptStore is what the receipt worker reads and records
type ReceiptStore interface {
	GetWarehouseByID(ctx context.Context, id int64) (*models.Warehouse, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// ReceiptPrinter delivers a receipt to a printer endpoint
type ReceiptPrinter interface {
	Print(ctx context.Context, endpoint string, receipt *printer.Receipt) error
}

// ReceiptWorker prints a receipt per warehouse for every committed sale
type ReceiptWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        ReceiptStore
	printer      ReceiptPrinter
	logger       *zap.Logger
}

// NewReceiptWorker creates a new receipt worker
func NewReceiptWorker(consumer *broker.Consumer, store ReceiptStore, p ReceiptPrinter) *ReceiptWorker {
	w := &ReceiptWorker{
		consumer: consumer,
		store:    store,
		printer:  p,
		logger:   util.GetLogger(),
	}

	w.eventHandler = broker.NewEventHandler()
	w.eventHandler.OnSaleRecorded(w.HandleSaleRecorded)
	return w
}

// Start starts the worker
func (w *ReceiptWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting receipt worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReceiptWorker) Stop() error {
	w.logger.Info("Stopping receipt worker")
	return w.consumer.Close()
}

// HandleSaleRecorded groups the sale's lines by the warehouse stock was
// taken from and prints one receipt per printer-enabled warehouse. Printer
// failures are logged and counted; they never fail the event.
func (w *ReceiptWorker) HandleSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error {
	ctx, span := util.StartSpan(ctx, "ReceiptWorker.HandleSaleRecorded")
	defer span.End()

	done, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if done {
		w.logger.Debug("Receipt already handled", zap.String("event_id", event.EventID))
		return nil
	}

	groups := groupByWarehouse(event.Items)
	warehouseIDs := make([]int64, 0, len(groups))
	for id := range groups {
		warehouseIDs = append(warehouseIDs, id)
	}
	sort.Slice(warehouseIDs, func(i, j int) bool { return warehouseIDs[i] < warehouseIDs[j] })

	for _, warehouseID := range warehouseIDs {
		warehouse, err := w.store.GetWarehouseByID(ctx, warehouseID)
		if err != nil {
			w.logger.Warn("Skipping receipt for unknown warehouse",
				zap.Int64("warehouse_id", warehouseID),
				zap.Error(err))
			continue
		}
		if !warehouse.PrinterEnabled || warehouse.PrinterEndpoint == "" {
			continue
		}

		items := groups[warehouseID]
		receipt := &printer.Receipt{
			InvoiceID:     event.InvoiceID,
			CustomerName:  event.CustomerName,
			CustomerPhone: event.CustomerPhone,
			Date:          event.SaleDate,
			StoreName:     warehouse.Name,
			Items:         items,
			StoreTotal:    sumTotals(items),
		}

		if err := w.printer.Print(ctx, warehouse.PrinterEndpoint, receipt); err != nil {
			util.ReceiptPrintFailedTotal.Inc()
			w.logger.Error("Failed to print receipt",
				zap.Int64("sale_id", event.SaleID),
				zap.Int64("warehouse_id", warehouseID),
				zap.String("endpoint", warehouse.PrinterEndpoint),
				zap.Error(err))
			continue
		}
		util.ReceiptsPrintedTotal.Inc()
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func groupByWarehouse(items []models.SaleItemData) map[int64][]printer.ReceiptItem {
	groups := make(map[int64][]printer.ReceiptItem)
	for _, item := range items {
		for _, a := range item.Allocations {
			groups[a.WarehouseID] = append(groups[a.WarehouseID], printer.ReceiptItem{
				Name:     item.ProductName,
				Quantity: a.Quantity,
				Price:    item.Price,
				Total:    item.Price.Mul(decimal.NewFromInt(int64(a.Quantity))),
			})
		}
	}
	return groups
}

func sumTotals(items []printer.ReceiptItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total)
	}
	return total
}

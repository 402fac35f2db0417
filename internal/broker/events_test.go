package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pos-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	b, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: b}
}

func TestHandleMessageRoutesSaleRecorded(t *testing.T) {
	eh := NewEventHandler()

	var got *models.SaleRecordedEvent
	eh.OnSaleRecorded(func(ctx context.Context, e *models.SaleRecordedEvent) error {
		got = e
		return nil
	})

	event := &models.SaleRecordedEvent{
		BaseEvent:   models.BaseEvent{EventID: "e1", EventType: models.EventTypeSaleRecorded, Timestamp: time.Now()},
		SaleID:      12,
		InvoiceID:   "INV-1",
		TotalAmount: decimal.RequireFromString("99.50"),
		Items: []models.SaleItemData{
			{ProductID: 1, ProductName: "Tea", Quantity: 2, Allocations: []models.StockAllocation{{WarehouseID: 3, Quantity: 2}}},
		},
	}

	require.NoError(t, eh.HandleMessage(context.Background(), message(t, event)))
	require.NotNil(t, got)
	assert.Equal(t, int64(12), got.SaleID)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("99.5")))
	assert.Equal(t, int64(3), got.Items[0].Allocations[0].WarehouseID)
}

func TestHandleMessagePropagatesHandlerError(t *testing.T) {
	eh := NewEventHandler()
	boom := errors.New("printer offline")
	eh.OnSaleVoided(func(ctx context.Context, e *models.SaleVoidedEvent) error { return boom })

	event := &models.SaleVoidedEvent{BaseEvent: models.BaseEvent{EventType: models.EventTypeSaleVoided}, SaleID: 1}

	assert.ErrorIs(t, eh.HandleMessage(context.Background(), message(t, event)), boom)
}

func TestHandleMessageIgnoresUnknownAndUnregistered(t *testing.T) {
	eh := NewEventHandler()

	assert.NoError(t, eh.HandleMessage(context.Background(), message(t, models.BaseEvent{EventType: "SOMETHING_ELSE"})))
	assert.NoError(t, eh.HandleMessage(context.Background(), message(t, models.BaseEvent{EventType: models.EventTypeSaleRecorded})))
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	eh := NewEventHandler()
	assert.Error(t, eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")}))
}

func TestSaleKey(t *testing.T) {
	assert.Equal(t, "sale-42", saleKey(42))
}

func TestHandleWithRetry(t *testing.T) {
	boom := errors.New("database unavailable")

	tests := []struct {
		name      string
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{"succeeds first time", 0, 1, false},
		{"recovers within attempts", 2, 3, false},
		{"gives up after attempts", 5, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			handler := func(ctx context.Context, msg kafka.Message) error {
				calls++
				if calls <= tt.failures {
					return boom
				}
				return nil
			}

			err := handleWithRetry(context.Background(), kafka.Message{Key: []byte("sale-1")}, handler, 3, time.Millisecond)

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.ErrorIs(t, err, boom)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHandleWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	handler := func(ctx context.Context, msg kafka.Message) error {
		calls++
		cancel()
		return errors.New("printer offline")
	}

	err := handleWithRetry(ctx, kafka.Message{}, handler, 5, time.Hour)

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

package service

import (
	"context"
	"testing"

	"pos-service/internal/apperr"
	"pos-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanAllocation(t *testing.T) {
	tests := []struct {
		name     string
		records  []models.Inventory
		quantity int
		want     []models.StockAllocation
	}{
		{
			name:     "single record covers",
			records:  []models.Inventory{{WarehouseID: 1, Quantity: 10}},
			quantity: 4,
			want:     []models.StockAllocation{{WarehouseID: 1, Quantity: 4}},
		},
		{
			name:     "spills into next record",
			records:  []models.Inventory{{WarehouseID: 1, Quantity: 7}, {WarehouseID: 2, Quantity: 3}},
			quantity: 10,
			want:     []models.StockAllocation{{WarehouseID: 1, Quantity: 7}, {WarehouseID: 2, Quantity: 3}},
		},
		{
			name:     "skips empty and negative records",
			records:  []models.Inventory{{WarehouseID: 3, Quantity: 5}, {WarehouseID: 1, Quantity: 0}, {WarehouseID: 2, Quantity: -2}},
			quantity: 5,
			want:     []models.StockAllocation{{WarehouseID: 3, Quantity: 5}},
		},
		{
			name:     "remainder lands on first record",
			records:  []models.Inventory{{WarehouseID: 1, Quantity: 2}, {WarehouseID: 2, Quantity: 1}},
			quantity: 6,
			want:     []models.StockAllocation{{WarehouseID: 1, Quantity: 5}, {WarehouseID: 2, Quantity: 1}},
		},
		{
			name:     "nothing positive",
			records:  []models.Inventory{{WarehouseID: 4, Quantity: 0}, {WarehouseID: 5, Quantity: -1}},
			quantity: 3,
			want:     []models.StockAllocation{{WarehouseID: 4, Quantity: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, planAllocation(tt.records, tt.quantity))
		})
	}
}

func TestReconcileStock(t *testing.T) {
	env := newTestEnv(t, SaleConfig{})
	ctx := context.Background()
	w1 := env.warehouse(t, "Main")
	w2 := env.warehouse(t, "Annex")
	p := env.product(t, "nail", map[int64]int{w1.ID: 4})

	env.repo.SetInventory(p.ID, w2.ID, -6)

	total, err := env.stock.ReconcileStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, -2, total)
	assert.Equal(t, -2, env.assertStockConsistent(t, p.ID))

	cached, ok, err := env.cache.GetStock(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -2, cached)

	_, err = env.stock.ReconcileStock(ctx, p.ID+1000)
	assert.True(t, apperr.IsNotFound(err))
}

func TestReconcileStockWithoutRecords(t *testing.T) {
	env := newTestEnv(t, SaleConfig{})
	p := env.product(t, "ghost", nil)

	total, err := env.stock.ReconcileStock(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestReconcileAllRepairsDrift(t *testing.T) {
	env := newTestEnv(t, SaleConfig{})
	ctx := context.Background()
	w1 := env.warehouse(t, "Main")
	a := env.product(t, "a", map[int64]int{w1.ID: 1})
	b := env.product(t, "b", map[int64]int{w1.ID: 2})

	env.repo.SetInventory(a.ID, w1.ID, 11)
	env.repo.SetInventory(b.ID, w1.ID, 12)

	require.NoError(t, env.stock.ReconcileAll(ctx))
	assert.Equal(t, 11, env.assertStockConsistent(t, a.ID))
	assert.Equal(t, 12, env.assertStockConsistent(t, b.ID))

	stock, err := env.stock.GetStock(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, stock)
}

func TestGetStockFallsBackToDatabase(t *testing.T) {
	env := newTestEnv(t, SaleConfig{})
	ctx := context.Background()
	w1 := env.warehouse(t, "Main")
	p := env.product(t, "bolt", map[int64]int{w1.ID: 9})

	_, ok, _ := env.cache.GetStock(ctx, p.ID)
	require.False(t, ok)

	stock, err := env.stock.GetStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, stock)

	require.NoError(t, env.cache.SetStock(ctx, p.ID, 42))
	stock, err = env.stock.GetStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, stock, "cache wins when present")

	_, err = env.stock.GetStock(ctx, p.ID+1000)
	assert.True(t, apperr.IsNotFound(err))
}

func TestAdjustInventory(t *testing.T) {
	env := newTestEnv(t, SaleConfig{})
	ctx := context.Background()
	w1 := env.warehouse(t, "Main")
	w2 := env.warehouse(t, "Annex")
	p := env.product(t, "glue", nil)

	inv, err := env.stock.AdjustInventory(ctx, p.ID, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, w1.ID, inv.WarehouseID, "zero warehouse means the default one")
	assert.Equal(t, 8, inv.Quantity)

	_, err = env.stock.AdjustInventory(ctx, p.ID, w2.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{w1.ID: 8, w2.ID: -3}, env.quantities(t, p.ID))
	assert.Equal(t, 5, env.assertStockConsistent(t, p.ID))

	records, err := env.stock.GetProductInventory(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, w1.ID, records[0].WarehouseID)

	_, err = env.stock.AdjustInventory(ctx, p.ID, 0, 0)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = env.stock.AdjustInventory(ctx, p.ID+1000, 0, 1)
	assert.True(t, apperr.IsNotFound(err))

	_, err = env.stock.AdjustInventory(ctx, p.ID, w2.ID+1000, 1)
	assert.True(t, apperr.IsNotFound(err))
}

func TestAdjustInventoryWithoutWarehouse(t *testing.T) {
	env := newTestEnv(t, SaleConfig{})
	p := env.product(t, "tape", nil)

	_, err := env.stock.AdjustInventory(context.Background(), p.ID, 0, 1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

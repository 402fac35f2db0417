package service

import (
	"context"
	"testing"

	"pos-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPurchase(t *testing.T) {
	env := newTestEnv(t, SaleConfig{})
	ctx := context.Background()
	w1 := env.warehouse(t, "Main")
	w2 := env.warehouse(t, "Annex")
	a := env.product(t, "beans", map[int64]int{w1.ID: 1})
	b := env.product(t, "peas", nil)

	purchase, err := env.purchases.RecordPurchase(ctx, &RecordPurchaseRequest{
		StoreID:    1,
		VendorName: "Acme Foods",
		Items: []PurchaseItemRequest{
			{ProductID: a.ID, Quantity: 5, CostPrice: money("4")},
			{ProductID: b.ID, WarehouseID: w2.ID, Quantity: 2, CostPrice: money("2.50")},
		},
		PaidAmount: money("10"),
	})
	require.NoError(t, err)

	assertMoney(t, "25", purchase.TotalAmount)
	assertMoney(t, "15", purchase.Balance)
	assert.Equal(t, w1.ID, purchase.Items[0].WarehouseID)
	assertMoney(t, "20", purchase.Items[0].Total)
	require.Len(t, purchase.PaymentHistory, 1)

	assert.Equal(t, map[int64]int{w1.ID: 6}, env.quantities(t, a.ID))
	assert.Equal(t, map[int64]int{w2.ID: 2}, env.quantities(t, b.ID))
	assert.Equal(t, 6, env.assertStockConsistent(t, a.ID))
	assert.Equal(t, 2, env.assertStockConsistent(t, b.ID))

	product, err := env.catalog.GetProduct(ctx, a.ID)
	require.NoError(t, err)
	assertMoney(t, "4", product.CostPrice)

	require.Len(t, env.publisher.purchases, 1)
	assert.Equal(t, purchase.ID, env.publisher.purchases[0].PurchaseID)

	purchases, err := env.purchases.ListPurchases(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, purchases, 1)
}

func TestRecordPurchaseKeepsExplicitTotals(t *testing.T) {
	env := newTestEnv(t, SaleConfig{})
	w1 := env.warehouse(t, "Main")
	p := env.product(t, "oats", map[int64]int{w1.ID: 0})

	balance := money("1")
	purchase, err := env.purchases.RecordPurchase(context.Background(), &RecordPurchaseRequest{
		VendorName:  "Acme Foods",
		Items:       []PurchaseItemRequest{{ProductID: p.ID, Quantity: 3, CostPrice: money("10")}},
		TotalAmount: money("28"),
		PaidAmount:  money("27"),
		Balance:     &balance,
	})
	require.NoError(t, err)
	assertMoney(t, "28", purchase.TotalAmount)
	assertMoney(t, "1", purchase.Balance)
}

func TestRecordPurchaseErrors(t *testing.T) {
	env := newTestEnv(t, SaleConfig{})
	ctx := context.Background()
	p := env.product(t, "rye", nil)

	tests := []struct {
		name string
		req  *RecordPurchaseRequest
		kind apperr.Kind
	}{
		{"missing vendor", &RecordPurchaseRequest{Items: []PurchaseItemRequest{{ProductID: p.ID, Quantity: 1}}}, apperr.KindValidation},
		{"no items", &RecordPurchaseRequest{VendorName: "Acme"}, apperr.KindValidation},
		{"zero quantity", &RecordPurchaseRequest{VendorName: "Acme", Items: []PurchaseItemRequest{{ProductID: p.ID}}}, apperr.KindValidation},
		{"missing product", &RecordPurchaseRequest{VendorName: "Acme", Items: []PurchaseItemRequest{{ProductID: p.ID + 1000, Quantity: 1}}}, apperr.KindNotFound},
		{"no warehouse configured", &RecordPurchaseRequest{VendorName: "Acme", Items: []PurchaseItemRequest{{ProductID: p.ID, Quantity: 1}}}, apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.purchases.RecordPurchase(ctx, tt.req)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
	assert.Empty(t, env.quantities(t, p.ID))
}

func TestAddPurchasePayment(t *testing.T) {
	env := newTestEnv(t, SaleConfig{})
	ctx := context.Background()
	w1 := env.warehouse(t, "Main")
	p := env.product(t, "wheat", map[int64]int{w1.ID: 0})

	purchase, err := env.purchases.RecordPurchase(ctx, &RecordPurchaseRequest{
		VendorName: "Mill Co",
		Items:      []PurchaseItemRequest{{ProductID: p.ID, Quantity: 10, CostPrice: money("2")}},
	})
	require.NoError(t, err)
	assertMoney(t, "20", purchase.Balance)
	assert.Empty(t, purchase.PaymentHistory)

	purchase, err = env.purchases.AddPayment(ctx, purchase.ID, money("15"))
	require.NoError(t, err)
	assertMoney(t, "15", purchase.PaidAmount)
	assertMoney(t, "5", purchase.Balance)

	purchase, err = env.purchases.AddPayment(ctx, purchase.ID, money("10"))
	require.NoError(t, err)
	assertMoney(t, "-5", purchase.Balance)
	assert.Len(t, purchase.PaymentHistory, 2)

	_, err = env.purchases.AddPayment(ctx, purchase.ID, money("0"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = env.purchases.AddPayment(ctx, purchase.ID+1000, money("1"))
	assert.True(t, apperr.IsNotFound(err))

	stored, err := env.purchases.GetPurchase(ctx, purchase.ID)
	require.NoError(t, err)
	assert.Len(t, stored.PaymentHistory, 2)
}

func TestUpdatePurchase(t *testing.T) {
	env := newTestEnv(t, SaleConfig{})
	ctx := context.Background()
	w1 := env.warehouse(t, "Main")
	p := env.product(t, "rice", map[int64]int{w1.ID: 0})

	purchase, err := env.purchases.RecordPurchase(ctx, &RecordPurchaseRequest{
		StoreID:    1,
		VendorName: "Acme Foods",
		Items:      []PurchaseItemRequest{{ProductID: p.ID, Quantity: 4, CostPrice: money("5")}},
		PaidAmount: money("5"),
	})
	require.NoError(t, err)
	_, err = env.purchases.AddPayment(ctx, purchase.ID, money("3"))
	require.NoError(t, err)

	vendor := "Acme Wholesale"
	total := money("30")
	updated, err := env.purchases.UpdatePurchase(ctx, purchase.ID, &UpdatePurchaseRequest{
		VendorName:  &vendor,
		TotalAmount: &total,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Wholesale", updated.VendorName)
	assertMoney(t, "30", updated.TotalAmount)
	assertMoney(t, "8", updated.PaidAmount)
	assertMoney(t, "22", updated.Balance)
	assert.Len(t, updated.PaymentHistory, 2)
	assert.Len(t, updated.Items, 1)
	assert.Equal(t, map[int64]int{w1.ID: 4}, env.quantities(t, p.ID), "received stock is untouched")

	renamed := "Acme Ltd"
	again, err := env.purchases.UpdatePurchase(ctx, purchase.ID, &UpdatePurchaseRequest{VendorName: &renamed})
	require.NoError(t, err)
	assertMoney(t, "22", again.Balance) // balance only moves with the total

	blank := " "
	_, err = env.purchases.UpdatePurchase(ctx, purchase.ID, &UpdatePurchaseRequest{VendorName: &blank})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	negative := money("-1")
	_, err = env.purchases.UpdatePurchase(ctx, purchase.ID, &UpdatePurchaseRequest{TotalAmount: &negative})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = env.purchases.UpdatePurchase(ctx, purchase.ID+1000, &UpdatePurchaseRequest{VendorName: &vendor})
	assert.True(t, apperr.IsNotFound(err))
}

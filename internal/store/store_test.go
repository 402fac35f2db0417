package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewStoreWithDB(sqlx.NewDb(mockDB, "postgres")), mock
}

func TestReconcileProductStock(t *testing.T) {
	t.Run("returns recomputed total", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery(`UPDATE products\s+SET total_stock = \(SELECT COALESCE\(SUM\(quantity\), 0\) FROM inventory WHERE product_id = \$1\)`).
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"total_stock"}).AddRow(-3))

		total, err := s.ReconcileProductStock(context.Background(), 4)

		require.NoError(t, err)
		assert.Equal(t, -3, total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing product is not found", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery(`UPDATE products`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		_, err := s.ReconcileProductStock(context.Background(), 99)

		assert.True(t, apperr.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdjustInventory(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO inventory \(product_id, warehouse_id, quantity\).*ON CONFLICT \(product_id, warehouse_id\)`).
		WithArgs(int64(1), int64(2), -4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "warehouse_id", "quantity", "updated_at"}).
			AddRow(int64(10), int64(1), int64(2), 3, now))

	inv, err := s.AdjustInventory(context.Background(), 1, 2, -4)

	require.NoError(t, err)
	assert.Equal(t, 3, inv.Quantity)
	assert.Equal(t, int64(2), inv.WarehouseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductDuplicateBarcode(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO products`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	err := s.CreateProduct(context.Background(), &models.Product{StoreID: 1, Name: "Tea", Barcode: "123"})

	assert.Equal(t, apperr.KindDuplicate, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDefaultWarehouseEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM warehouses ORDER BY id LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	w, err := s.GetDefaultWarehouse(context.Background())

	require.NoError(t, err)
	assert.Nil(t, w)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSale(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	sale := &models.Sale{
		StoreID:       1,
		SalesmanID:    7,
		Type:          models.SaleTypeInvoice,
		InvoiceID:     "INV-1700000000000",
		TotalAmount:   decimal.NewFromInt(100),
		PaidAmount:    decimal.NewFromInt(100),
		PaymentStatus: models.PaymentStatusPaid,
		SaleDate:      now,
		Items: []models.SaleItem{
			{ProductID: 3, ProductName: "Tea", Quantity: 2, Price: decimal.NewFromInt(50), Total: decimal.NewFromInt(100)},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO sales`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(21), now, now))
	mock.ExpectQuery(`INSERT INTO sale_items`).
		WithArgs(int64(21), int64(3), "Tea", 2, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(31)))
	mock.ExpectCommit()

	err := s.CreateSale(context.Background(), sale)

	require.NoError(t, err)
	assert.Equal(t, int64(21), sale.ID)
	assert.Equal(t, int64(31), sale.Items[0].ID)
	assert.Equal(t, int64(21), sale.Items[0].SaleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSaleRollsBackOnItemFailure(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO sales`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(1), now, now))
	mock.ExpectQuery(`INSERT INTO sale_items`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := s.CreateSale(context.Background(), &models.Sale{
		Items: []models.SaleItem{{ProductID: 1, Quantity: 1}},
	})

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSaleByIdempotencyKeyMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM sales WHERE idempotency_key = \$1`).
		WithArgs("key-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	sale, err := s.GetSaleByIdempotencyKey(context.Background(), "key-1")

	require.NoError(t, err)
	assert.Nil(t, sale)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSaleByIDLoadsItemsAndAllocations(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM sales WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "invoice_id", "total_amount"}).
			AddRow(int64(5), "invoice", "INV-1", "100.00"))
	mock.ExpectQuery(`SELECT \* FROM sale_items WHERE sale_id IN \(\$1\)`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sale_id", "product_id", "quantity"}).
			AddRow(int64(8), int64(5), int64(3), 10))
	mock.ExpectQuery(`SELECT \* FROM sale_item_allocations WHERE sale_item_id IN \(\$1\)`).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sale_item_id", "warehouse_id", "quantity"}).
			AddRow(int64(1), int64(8), int64(1), 7).
			AddRow(int64(2), int64(8), int64(2), 3))

	sale, err := s.GetSaleByID(context.Background(), 5)

	require.NoError(t, err)
	assert.True(t, sale.TotalAmount.Equal(decimal.NewFromInt(100)))
	require.Len(t, sale.Items, 1)
	require.Len(t, sale.Items[0].Allocations, 2)
	assert.Equal(t, 7, sale.Items[0].Allocations[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertSaleToInvoice(t *testing.T) {
	t.Run("first conversion wins", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectExec(`UPDATE sales SET type = \$1, invoice_id = \$2, updated_at = NOW\(\) WHERE id = \$3 AND type <> \$1`).
			WithArgs("invoice", "INV-2", int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := s.ConvertSaleToInvoice(context.Background(), 3, "INV-2")

		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already invoice", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectExec(`UPDATE sales SET type`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := s.ConvertSaleToInvoice(context.Background(), 3, "INV-3")

		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteSaleNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM sales WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteSale(context.Background(), 42)

	assert.True(t, apperr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeCustomerBalance(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE customers SET balance = \(`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("600.00"))

	balance, err := s.RecomputeCustomerBalance(context.Background(), 9)

	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(600)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeRetailerBalance(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`WITH totals AS`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"total_sales", "total_purchases", "total_debit", "total_paid", "total_adjusted", "balance"}).
			AddRow("1000", "0", "1000", "400", "-50", "550"))

	totals, err := s.RecomputeRetailerBalance(context.Background(), 2)

	require.NoError(t, err)
	assert.True(t, totals.Balance.Equal(decimal.NewFromInt(550)))
	assert.True(t, totals.TotalPaid.Equal(decimal.NewFromInt(400)))
	assert.True(t, totals.TotalDebit.Equal(decimal.NewFromInt(1000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddPurchasePayment(t *testing.T) {
	t.Run("missing purchase", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM purchases WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(6)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := s.AddPurchasePayment(context.Background(), 6, decimal.NewFromInt(10))

		assert.True(t, apperr.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("updates totals and history together", func(t *testing.T) {
		s, mock := newMockStore(t)
		now := time.Now()
		amount := decimal.NewFromInt(25)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM purchases WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(6)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(6)))
		mock.ExpectExec(`UPDATE purchases SET paid_amount = paid_amount \+ \$1, balance = balance - \$1`).
			WithArgs(amount, int64(6)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO purchase_payments`).
			WithArgs(int64(6), amount).
			WillReturnRows(sqlmock.NewRows([]string{"id", "paid_at"}).AddRow(int64(1), now))
		mock.ExpectCommit()
		mock.ExpectQuery(`SELECT \* FROM purchases WHERE id = \$1`).
			WithArgs(int64(6)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "paid_amount", "balance"}).AddRow(int64(6), "25", "75"))
		mock.ExpectQuery(`SELECT \* FROM purchase_items WHERE purchase_id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`SELECT \* FROM purchase_payments WHERE purchase_id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "purchase_id", "amount", "paid_at"}).
				AddRow(int64(1), int64(6), "25", now))

		p, err := s.AddPurchasePayment(context.Background(), 6, amount)

		require.NoError(t, err)
		assert.True(t, p.Balance.Equal(decimal.NewFromInt(75)))
		assert.Len(t, p.PaymentHistory, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventProcessing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM processed_events WHERE event_id = \$1\)`).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO processed_events`).
		WithArgs("evt-1", models.EventTypeSaleRecorded).
		WillReturnResult(sqlmock.NewResult(1, 1))

	done, err := s.IsEventProcessed(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.MarkEventProcessed(context.Background(), "evt-1", models.EventTypeSaleRecorded))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProduct(t *testing.T) {
	product := &models.Product{
		ID:        3,
		Name:      "Black Tea",
		Barcode:   "890100",
		CostPrice: decimal.NewFromInt(2),
		SalePrice: decimal.NewFromInt(5),
	}

	t.Run("leaves total_stock alone", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectExec(`UPDATE products SET name = \$1, barcode = \$2`).
			WithArgs(product.Name, product.Barcode, product.CostPrice, product.SalePrice, product.Discount,
				product.Vendor, product.Category, product.Description, product.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdateProduct(context.Background(), product))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("barcode collision is a duplicate", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectExec(`UPDATE products`).
			WillReturnError(&pq.Error{Code: "23505"})

		err := s.UpdateProduct(context.Background(), product)
		assert.Equal(t, apperr.KindDuplicate, apperr.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing product", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectExec(`UPDATE products`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.UpdateProduct(context.Background(), product)
		assert.True(t, apperr.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdatePurchase(t *testing.T) {
	s, mock := newMockStore(t)
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	purchase := &models.Purchase{ID: 5, VendorName: "Acme Ltd", TotalAmount: decimal.NewFromInt(25), PurchaseDate: date}

	mock.ExpectExec(`balance = CASE WHEN total_amount <> \$3 THEN \$3 - paid_amount ELSE balance END`).
		WithArgs(purchase.VendorName, date, purchase.TotalAmount, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpdatePurchase(context.Background(), purchase))
	assert.NoError(t, mock.ExpectationsWereMet())
}

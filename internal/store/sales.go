package store

import (
	"context"
	"fmt"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateSale inserts a sale and its items in one transaction
func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sales (store_id, salesman_id, type, invoice_id, subtotal, invoice_discount,
			total_amount, paid_amount, payment_status, customer_id, retailer_id, customer_name,
			customer_phone, customer_address, reference_no, remarks, due_date, sale_date, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, sale, query,
		sale.StoreID, sale.SalesmanID, sale.Type, sale.InvoiceID, sale.Subtotal, sale.InvoiceDiscount,
		sale.TotalAmount, sale.PaidAmount, sale.PaymentStatus, sale.CustomerID, sale.RetailerID,
		sale.CustomerName, sale.CustomerPhone, sale.CustomerAddress, sale.ReferenceNo, sale.Remarks,
		sale.DueDate, sale.SaleDate, sale.IdempotencyKey)
	if err != nil {
		return duplicate(err, "sale already exists")
	}

	itemQuery := `
		INSERT INTO sale_items (sale_id, product_id, product_name, quantity, cost_price, price, discount, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		err := tx.GetContext(ctx, &item.ID, itemQuery,
			item.SaleID, item.ProductID, item.ProductName, item.Quantity,
			item.CostPrice, item.Price, item.Discount, item.Total)
		if err != nil {
			return fmt.Errorf("failed to create sale item: %w", err)
		}
	}

	return tx.Commit()
}

// GetSaleByID retrieves a sale with its items and allocations
func (s *Store) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	if err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE id = $1", id); err != nil {
		return nil, notFound(err, "sale", id)
	}
	if err := s.loadSaleItems(ctx, []*models.Sale{&sale}); err != nil {
		return nil, err
	}
	return &sale, nil
}

// GetSaleByIdempotencyKey retrieves a sale by idempotency key
func (s *Store) GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	sales := []models.Sale{}
	err := s.db.SelectContext(ctx, &sales, "SELECT * FROM sales WHERE idempotency_key = $1", key)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, nil
	}
	if err := s.loadSaleItems(ctx, []*models.Sale{&sales[0]}); err != nil {
		return nil, err
	}
	return &sales[0], nil
}

// ListSales retrieves a store's sales, newest first
func (s *Store) ListSales(ctx context.Context, storeID int64) ([]models.Sale, error) {
	sales := []models.Sale{}
	err := s.db.SelectContext(ctx, &sales,
		"SELECT * FROM sales WHERE store_id = $1 ORDER BY sale_date DESC, id DESC", storeID)
	if err != nil {
		return nil, err
	}

	ptrs := make([]*models.Sale, len(sales))
	for i := range sales {
		ptrs[i] = &sales[i]
	}
	if err := s.loadSaleItems(ctx, ptrs); err != nil {
		return nil, err
	}
	return sales, nil
}

// loadSaleItems fills Items and their Allocations for the given sales
func (s *Store) loadSaleItems(ctx context.Context, sales []*models.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	ids := make([]int64, len(sales))
	byID := make(map[int64]*models.Sale, len(sales))
	for i, sale := range sales {
		ids[i] = sale.ID
		byID[sale.ID] = sale
		sale.Items = []models.SaleItem{}
	}

	query, args, err := sqlx.In("SELECT * FROM sale_items WHERE sale_id IN (?) ORDER BY id", ids)
	if err != nil {
		return err
	}
	var items []models.SaleItem
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load sale items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	itemIDs := make([]int64, len(items))
	for i := range items {
		itemIDs[i] = items[i].ID
	}
	query, args, err = sqlx.In("SELECT * FROM sale_item_allocations WHERE sale_item_id IN (?) ORDER BY id", itemIDs)
	if err != nil {
		return err
	}
	var allocations []models.StockAllocation
	if err := s.db.SelectContext(ctx, &allocations, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load allocations: %w", err)
	}

	byItem := make(map[int64][]models.StockAllocation)
	for _, a := range allocations {
		byItem[a.SaleItemID] = append(byItem[a.SaleItemID], a)
	}
	for _, item := range items {
		item.Allocations = byItem[item.ID]
		sale := byID[item.SaleID]
		sale.Items = append(sale.Items, item)
	}
	return nil
}

// SaveAllocations records where a sale item's stock was taken from
func (s *Store) SaveAllocations(ctx context.Context, saleItemID int64, allocations []models.StockAllocation) error {
	if len(allocations) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range allocations {
		a := &allocations[i]
		a.SaleItemID = saleItemID
		err := tx.GetContext(ctx, &a.ID,
			"INSERT INTO sale_item_allocations (sale_item_id, warehouse_id, quantity) VALUES ($1, $2, $3) RETURNING id",
			a.SaleItemID, a.WarehouseID, a.Quantity)
		if err != nil {
			return fmt.Errorf("failed to save allocation: %w", err)
		}
	}

	return tx.Commit()
}

// ConvertSaleToInvoice is a compare-and-set on the sale type. Only one of
// several racing conversions sees a row updated.
func (s *Store) ConvertSaleToInvoice(ctx context.Context, id int64, invoiceID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sales SET type = $1, invoice_id = $2, updated_at = NOW() WHERE id = $3 AND type <> $1",
		models.SaleTypeInvoice, invoiceID, id)
	if err != nil {
		return false, duplicate(err, "invoice id already in use")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateSale writes the mutable metadata and payment fields
func (s *Store) UpdateSale(ctx context.Context, sale *models.Sale) error {
	query := `
		UPDATE sales SET paid_amount = $1, payment_status = $2, reference_no = $3, remarks = $4,
			due_date = $5, customer_name = $6, customer_phone = $7, customer_address = $8, updated_at = NOW()
		WHERE id = $9`

	res, err := s.db.ExecContext(ctx, query,
		sale.PaidAmount, sale.PaymentStatus, sale.ReferenceNo, sale.Remarks, sale.DueDate,
		sale.CustomerName, sale.CustomerPhone, sale.CustomerAddress, sale.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "sale", sale.ID)
}

// DeleteSale removes a sale; items and allocations cascade
func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sales WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res, "sale", id)
}

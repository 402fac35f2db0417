package store

import (
	"context"
	"fmt"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// CreatePurchase inserts a purchase, its items and the initial payment
func (s *Store) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO purchases (store_id, vendor_name, total_amount, paid_amount, balance, purchase_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, purchase, query,
		purchase.StoreID, purchase.VendorName, purchase.TotalAmount,
		purchase.PaidAmount, purchase.Balance, purchase.PurchaseDate)
	if err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	for i := range purchase.Items {
		item := &purchase.Items[i]
		item.PurchaseID = purchase.ID
		err := tx.GetContext(ctx, &item.ID, `
			INSERT INTO purchase_items (purchase_id, product_id, warehouse_id, quantity, cost_price, total)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			item.PurchaseID, item.ProductID, item.WarehouseID, item.Quantity, item.CostPrice, item.Total)
		if err != nil {
			return fmt.Errorf("failed to create purchase item: %w", err)
		}
	}

	purchase.PaymentHistory = []models.PurchasePayment{}
	if purchase.PaidAmount.IsPositive() {
		payment, err := insertPurchasePayment(ctx, tx, purchase.ID, purchase.PaidAmount)
		if err != nil {
			return err
		}
		purchase.PaymentHistory = append(purchase.PaymentHistory, *payment)
	}

	return tx.Commit()
}

func insertPurchasePayment(ctx context.Context, tx *sqlx.Tx, purchaseID int64, amount decimal.Decimal) (*models.PurchasePayment, error) {
	payment := &models.PurchasePayment{PurchaseID: purchaseID, Amount: amount}
	err := tx.GetContext(ctx, payment,
		"INSERT INTO purchase_payments (purchase_id, amount) VALUES ($1, $2) RETURNING id, paid_at",
		purchaseID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to record purchase payment: %w", err)
	}
	return payment, nil
}

// GetPurchaseByID retrieves a purchase with items and payment history
func (s *Store) GetPurchaseByID(ctx context.Context, id int64) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := s.db.GetContext(ctx, &purchase, "SELECT * FROM purchases WHERE id = $1", id); err != nil {
		return nil, notFound(err, "purchase", id)
	}

	purchase.Items = []models.PurchaseItem{}
	if err := s.db.SelectContext(ctx, &purchase.Items,
		"SELECT * FROM purchase_items WHERE purchase_id = $1 ORDER BY id", id); err != nil {
		return nil, fmt.Errorf("failed to load purchase items: %w", err)
	}

	purchase.PaymentHistory = []models.PurchasePayment{}
	if err := s.db.SelectContext(ctx, &purchase.PaymentHistory,
		"SELECT * FROM purchase_payments WHERE purchase_id = $1 ORDER BY id", id); err != nil {
		return nil, fmt.Errorf("failed to load purchase payments: %w", err)
	}

	return &purchase, nil
}

// ListPurchases retrieves a store's purchases with their items
func (s *Store) ListPurchases(ctx context.Context, storeID int64) ([]models.Purchase, error) {
	purchases := []models.Purchase{}
	err := s.db.SelectContext(ctx, &purchases,
		"SELECT * FROM purchases WHERE store_id = $1 ORDER BY purchase_date DESC, id DESC", storeID)
	if err != nil || len(purchases) == 0 {
		return purchases, err
	}

	ids := make([]int64, len(purchases))
	index := make(map[int64]int, len(purchases))
	for i := range purchases {
		ids[i] = purchases[i].ID
		index[purchases[i].ID] = i
		purchases[i].Items = []models.PurchaseItem{}
	}

	query, args, err := sqlx.In("SELECT * FROM purchase_items WHERE purchase_id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, err
	}
	var items []models.PurchaseItem
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load purchase items: %w", err)
	}
	for _, item := range items {
		p := &purchases[index[item.PurchaseID]]
		p.Items = append(p.Items, item)
	}

	return purchases, nil
}

// UpdatePurchase writes vendor, date and total. A changed total re-derives
// the balance from the paid amount in the same statement.
func (s *Store) UpdatePurchase(ctx context.Context, purchase *models.Purchase) error {
	query := `
		UPDATE purchases SET
			vendor_name = $1,
			purchase_date = $2,
			balance = CASE WHEN total_amount <> $3 THEN $3 - paid_amount ELSE balance END,
			total_amount = $3,
			updated_at = NOW()
		WHERE id = $4`

	res, err := s.db.ExecContext(ctx, query,
		purchase.VendorName, purchase.PurchaseDate, purchase.TotalAmount, purchase.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "purchase", purchase.ID)
}

// AddPurchasePayment applies a payment to a purchase. The row is locked
// so paid, balance and history move together.
func (s *Store) AddPurchasePayment(ctx context.Context, purchaseID int64, amount decimal.Decimal) (*models.Purchase, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.GetContext(ctx, &id, "SELECT id FROM purchases WHERE id = $1 FOR UPDATE", purchaseID)
	if err != nil {
		return nil, notFound(err, "purchase", purchaseID)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE purchases SET paid_amount = paid_amount + $1, balance = balance - $1, updated_at = NOW() WHERE id = $2",
		amount, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to update purchase: %w", err)
	}

	if _, err := insertPurchasePayment(ctx, tx, purchaseID, amount); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetPurchaseByID(ctx, purchaseID)
}

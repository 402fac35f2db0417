package store

import (
	"context"
	"fmt"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
)

// CreateCustomer inserts a customer. Phone numbers are unique per store.
func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (store_id, name, phone, address, credit_limit, notes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, balance, created_at, updated_at`

	err := s.db.GetContext(ctx, customer, query,
		customer.StoreID, customer.Name, customer.Phone, customer.Address,
		customer.CreditLimit, customer.Notes, customer.IsActive)
	if err != nil {
		return duplicate(err, fmt.Sprintf("customer with phone %s already exists", customer.Phone))
	}
	return nil
}

// GetCustomerByID retrieves a customer by ID
func (s *Store) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.GetContext(ctx, &customer, "SELECT * FROM customers WHERE id = $1", id); err != nil {
		return nil, notFound(err, "customer", id)
	}
	return &customer, nil
}

// ListCustomers retrieves the customers of a store
func (s *Store) ListCustomers(ctx context.Context, storeID int64) ([]models.Customer, error) {
	customers := []models.Customer{}
	err := s.db.SelectContext(ctx, &customers,
		"SELECT * FROM customers WHERE store_id = $1 ORDER BY id", storeID)
	return customers, err
}

// RecomputeCustomerBalance rewrites the balance from the full ledger:
// sales minus payments plus signed adjustments.
func (s *Store) RecomputeCustomerBalance(ctx context.Context, id int64) (decimal.Decimal, error) {
	query := `
		UPDATE customers SET balance = (
			SELECT COALESCE(SUM(CASE type
				WHEN 'sale' THEN amount
				WHEN 'payment' THEN -amount
				WHEN 'adjustment' THEN amount
				ELSE 0 END), 0)
			FROM ledger_entries
			WHERE party_type = 'customer' AND party_id = $1
		), updated_at = NOW()
		WHERE id = $1
		RETURNING balance`

	var balance decimal.Decimal
	if err := s.db.GetContext(ctx, &balance, query, id); err != nil {
		return decimal.Zero, notFound(err, "customer", id)
	}
	return balance, nil
}

// CreateRetailer inserts a retailer
func (s *Store) CreateRetailer(ctx context.Context, retailer *models.Retailer) error {
	query := `
		INSERT INTO retailers (store_id, name, contact, address, bank_name, bank_account, initial_pay, notes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, balance, paid_amount, remaining_balance, created_at, updated_at`

	return s.db.GetContext(ctx, retailer, query,
		retailer.StoreID, retailer.Name, retailer.Contact, retailer.Address, retailer.BankName,
		retailer.BankAccount, retailer.InitialPay, retailer.Notes, retailer.IsActive)
}

// GetRetailerByID retrieves a retailer by ID
func (s *Store) GetRetailerByID(ctx context.Context, id int64) (*models.Retailer, error) {
	var retailer models.Retailer
	if err := s.db.GetContext(ctx, &retailer, "SELECT * FROM retailers WHERE id = $1", id); err != nil {
		return nil, notFound(err, "retailer", id)
	}
	return &retailer, nil
}

// ListRetailers retrieves the retailers of a store
func (s *Store) ListRetailers(ctx context.Context, storeID int64) ([]models.Retailer, error) {
	retailers := []models.Retailer{}
	err := s.db.SelectContext(ctx, &retailers,
		"SELECT * FROM retailers WHERE store_id = $1 ORDER BY id", storeID)
	return retailers, err
}

// RecomputeRetailerBalance derives the retailer's totals from the ledger and
// stores balance, paid amount and remaining balance in one statement.
func (s *Store) RecomputeRetailerBalance(ctx context.Context, id int64) (*models.RetailerTotals, error) {
	query := `
		WITH totals AS (
			SELECT
				COALESCE(SUM(amount) FILTER (WHERE type = 'sale'), 0)       AS total_sales,
				COALESCE(SUM(amount) FILTER (WHERE type = 'purchase'), 0)   AS total_purchases,
				COALESCE(SUM(amount) FILTER (WHERE type = 'payment'), 0)    AS total_paid,
				COALESCE(SUM(amount) FILTER (WHERE type = 'adjustment'), 0) AS total_adjusted
			FROM ledger_entries
			WHERE party_type = 'retailer' AND party_id = $1
		)
		UPDATE retailers r SET
			balance = t.total_sales + t.total_purchases - t.total_paid + t.total_adjusted,
			paid_amount = t.total_paid,
			remaining_balance = t.total_sales + t.total_purchases - t.total_paid + t.total_adjusted,
			updated_at = NOW()
		FROM totals t
		WHERE r.id = $1
		RETURNING t.total_sales, t.total_purchases, t.total_sales + t.total_purchases AS total_debit,
			t.total_paid, t.total_adjusted, r.balance`

	var totals models.RetailerTotals
	if err := s.db.GetContext(ctx, &totals, query, id); err != nil {
		return nil, notFound(err, "retailer", id)
	}
	return &totals, nil
}

// AppendLedgerEntry appends an entry to a party's ledger
func (s *Store) AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (party_type, party_id, type, amount, sale_id, purchase_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, entry, query,
		entry.PartyType, entry.PartyID, entry.Type, entry.Amount,
		entry.SaleID, entry.PurchaseID, entry.Description)
}

// ListLedgerEntries retrieves a party's ledger in insertion order
func (s *Store) ListLedgerEntries(ctx context.Context, partyType string, partyID int64) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM ledger_entries WHERE party_type = $1 AND party_id = $2 ORDER BY id",
		partyType, partyID)
	return entries, err
}

// SumRetailerSalePayments totals the retailer payments linked to a sale
func (s *Store) SumRetailerSalePayments(ctx context.Context, retailerID, saleID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
		WHERE party_type = 'retailer' AND party_id = $1 AND sale_id = $2 AND type = 'payment'`,
		retailerID, saleID)
	return total, err
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"

	"github.com/shopspring/decimal"
)

func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.customers {
		if c.StoreID == customer.StoreID && c.Phone == customer.Phone {
			return apperr.Duplicate(fmt.Sprintf("customer with phone %s already exists", customer.Phone), nil)
		}
	}

	now := time.Now()
	customer.ID = s.nextID()
	customer.Balance = decimal.Zero
	customer.CreatedAt = now
	customer.UpdatedAt = now
	cp := *customer
	cp.Transactions = nil
	s.customers[customer.ID] = &cp
	return nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, apperr.NotFound("customer", id)
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCustomers(ctx context.Context, storeID int64) ([]models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customers := []models.Customer{}
	for _, c := range s.customers {
		if c.StoreID == storeID {
			customers = append(customers, *c)
		}
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].ID < customers[j].ID })
	return customers, nil
}

func (s *Store) RecomputeCustomerBalance(ctx context.Context, id int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return decimal.Zero, apperr.NotFound("customer", id)
	}

	balance := decimal.Zero
	for _, e := range s.ledger {
		if e.PartyType != models.PartyCustomer || e.PartyID != id {
			continue
		}
		switch e.Type {
		case models.EntryTypeSale, models.EntryTypeAdjustment:
			balance = balance.Add(e.Amount)
		case models.EntryTypePayment:
			balance = balance.Sub(e.Amount)
		}
	}
	c.Balance = balance
	c.UpdatedAt = time.Now()
	return balance, nil
}

func (s *Store) CreateRetailer(ctx context.Context, retailer *models.Retailer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	retailer.ID = s.nextID()
	retailer.Balance = decimal.Zero
	retailer.PaidAmount = decimal.Zero
	retailer.RemainingBalance = decimal.Zero
	retailer.CreatedAt = now
	retailer.UpdatedAt = now
	cp := *retailer
	cp.Transactions = nil
	s.retailers[retailer.ID] = &cp
	return nil
}

func (s *Store) GetRetailerByID(ctx context.Context, id int64) (*models.Retailer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.retailers[id]
	if !ok {
		return nil, apperr.NotFound("retailer", id)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListRetailers(ctx context.Context, storeID int64) ([]models.Retailer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	retailers := []models.Retailer{}
	for _, r := range s.retailers {
		if r.StoreID == storeID {
			retailers = append(retailers, *r)
		}
	}
	sort.Slice(retailers, func(i, j int) bool { return retailers[i].ID < retailers[j].ID })
	return retailers, nil
}

func (s *Store) RecomputeRetailerBalance(ctx context.Context, id int64) (*models.RetailerTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.retailers[id]
	if !ok {
		return nil, apperr.NotFound("retailer", id)
	}

	var entries []models.LedgerEntry
	for _, e := range s.ledger {
		if e.PartyType == models.PartyRetailer && e.PartyID == id {
			entries = append(entries, e)
		}
	}
	totals := models.SummarizeRetailerLedger(entries)

	r.Balance = totals.Balance
	r.PaidAmount = totals.TotalPaid
	r.RemainingBalance = totals.Balance
	r.UpdatedAt = time.Now()
	return &totals, nil
}

func (s *Store) AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.nextID()
	entry.CreatedAt = time.Now()
	s.ledger = append(s.ledger, *entry)
	return nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, partyType string, partyID int64) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := []models.LedgerEntry{}
	for _, e := range s.ledger {
		if e.PartyType == partyType && e.PartyID == partyID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *Store) SumRetailerSalePayments(ctx context.Context, retailerID, saleID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, e := range s.ledger {
		if e.PartyType == models.PartyRetailer && e.PartyID == retailerID &&
			e.Type == models.EntryTypePayment && e.SaleID != nil && *e.SaleID == saleID {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

package memory

import (
	"context"
	"sort"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"
)

// copySale returns a deep copy with allocations attached to each item
func (s *Store) copySale(sale *models.Sale) models.Sale {
	cp := *sale
	cp.Items = make([]models.SaleItem, len(sale.Items))
	for i, item := range sale.Items {
		item.Allocations = append([]models.StockAllocation(nil), s.allocations[item.ID]...)
		cp.Items[i] = item
	}
	return cp
}

func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sales {
		if existing.InvoiceID == sale.InvoiceID {
			return apperr.Duplicate("sale already exists", nil)
		}
		if sale.IdempotencyKey != nil && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *sale.IdempotencyKey {
			return apperr.Duplicate("sale already exists", nil)
		}
	}

	now := time.Now()
	sale.ID = s.nextID()
	sale.CreatedAt = now
	sale.UpdatedAt = now
	for i := range sale.Items {
		sale.Items[i].ID = s.nextID()
		sale.Items[i].SaleID = sale.ID
	}

	stored := *sale
	stored.Items = make([]models.SaleItem, len(sale.Items))
	for i, item := range sale.Items {
		item.Allocations = nil
		stored.Items[i] = item
	}
	s.sales[sale.ID] = &stored
	return nil
}

func (s *Store) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, apperr.NotFound("sale", id)
	}
	cp := s.copySale(sale)
	return &cp, nil
}

func (s *Store) GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sale := range s.sales {
		if sale.IdempotencyKey != nil && *sale.IdempotencyKey == key {
			cp := s.copySale(sale)
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListSales(ctx context.Context, storeID int64) ([]models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sales := []models.Sale{}
	for _, sale := range s.sales {
		if sale.StoreID == storeID {
			sales = append(sales, s.copySale(sale))
		}
	}
	sort.Slice(sales, func(i, j int) bool {
		if !sales[i].SaleDate.Equal(sales[j].SaleDate) {
			return sales[i].SaleDate.After(sales[j].SaleDate)
		}
		return sales[i].ID > sales[j].ID
	})
	return sales, nil
}

func (s *Store) SaveAllocations(ctx context.Context, saleItemID int64, allocations []models.StockAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range allocations {
		allocations[i].ID = s.nextID()
		allocations[i].SaleItemID = saleItemID
		s.allocations[saleItemID] = append(s.allocations[saleItemID], allocations[i])
	}
	return nil
}

func (s *Store) ConvertSaleToInvoice(ctx context.Context, id int64, invoiceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok || sale.Type == models.SaleTypeInvoice {
		return false, nil
	}
	sale.Type = models.SaleTypeInvoice
	sale.InvoiceID = invoiceID
	sale.UpdatedAt = time.Now()
	return true, nil
}

func (s *Store) UpdateSale(ctx context.Context, sale *models.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sales[sale.ID]
	if !ok {
		return apperr.NotFound("sale", sale.ID)
	}
	stored.PaidAmount = sale.PaidAmount
	stored.PaymentStatus = sale.PaymentStatus
	stored.ReferenceNo = sale.ReferenceNo
	stored.Remarks = sale.Remarks
	stored.DueDate = sale.DueDate
	stored.CustomerName = sale.CustomerName
	stored.CustomerPhone = sale.CustomerPhone
	stored.CustomerAddress = sale.CustomerAddress
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return apperr.NotFound("sale", id)
	}
	for _, item := range sale.Items {
		delete(s.allocations, item.ID)
	}
	delete(s.sales, id)
	return nil
}

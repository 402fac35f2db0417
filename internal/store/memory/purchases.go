package memory

import (
	"context"
	"sort"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"

	"github.com/shopspring/decimal"
)

func copyPurchase(p *models.Purchase) models.Purchase {
	cp := *p
	cp.Items = append([]models.PurchaseItem{}, p.Items...)
	cp.PaymentHistory = append([]models.PurchasePayment{}, p.PaymentHistory...)
	return cp
}

func (s *Store) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	purchase.ID = s.nextID()
	purchase.CreatedAt = now
	purchase.UpdatedAt = now
	for i := range purchase.Items {
		purchase.Items[i].ID = s.nextID()
		purchase.Items[i].PurchaseID = purchase.ID
	}
	purchase.PaymentHistory = []models.PurchasePayment{}
	if purchase.PaidAmount.IsPositive() {
		purchase.PaymentHistory = append(purchase.PaymentHistory, models.PurchasePayment{
			ID: s.nextID(), PurchaseID: purchase.ID, Amount: purchase.PaidAmount, PaidAt: now,
		})
	}

	stored := copyPurchase(purchase)
	s.purchases[purchase.ID] = &stored
	return nil
}

func (s *Store) GetPurchaseByID(ctx context.Context, id int64) (*models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.purchases[id]
	if !ok {
		return nil, apperr.NotFound("purchase", id)
	}
	cp := copyPurchase(p)
	return &cp, nil
}

func (s *Store) ListPurchases(ctx context.Context, storeID int64) ([]models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchases := []models.Purchase{}
	for _, p := range s.purchases {
		if p.StoreID == storeID {
			purchases = append(purchases, copyPurchase(p))
		}
	}
	sort.Slice(purchases, func(i, j int) bool { return purchases[i].ID > purchases[j].ID })
	return purchases, nil
}

func (s *Store) UpdatePurchase(ctx context.Context, purchase *models.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.purchases[purchase.ID]
	if !ok {
		return apperr.NotFound("purchase", purchase.ID)
	}
	if !p.TotalAmount.Equal(purchase.TotalAmount) {
		p.Balance = purchase.TotalAmount.Sub(p.PaidAmount)
	}
	p.TotalAmount = purchase.TotalAmount
	p.VendorName = purchase.VendorName
	p.PurchaseDate = purchase.PurchaseDate
	p.UpdatedAt = time.Now()
	return nil
}

func (s *Store) AddPurchasePayment(ctx context.Context, purchaseID int64, amount decimal.Decimal) (*models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.purchases[purchaseID]
	if !ok {
		return nil, apperr.NotFound("purchase", purchaseID)
	}
	now := time.Now()
	p.PaidAmount = p.PaidAmount.Add(amount)
	p.Balance = p.Balance.Sub(amount)
	p.UpdatedAt = now
	p.PaymentHistory = append(p.PaymentHistory, models.PurchasePayment{
		ID: s.nextID(), PurchaseID: purchaseID, Amount: amount, PaidAt: now,
	})

	cp := copyPurchase(p)
	return &cp, nil
}

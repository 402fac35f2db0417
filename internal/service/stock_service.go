package service

import (
	"context"
	"fmt"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// StockService keeps products.total_stock equal to the sum of a product's
// inventory records and owns the warehouse selection policy.
type StockService struct {
	repo   Repository
	cache  StockCache
	locker Locker
	logger *zap.Logger
}

// NewStockService creates a new stock service. cache may be nil.
func NewStockService(repo Repository, cache StockCache, locker Locker) *StockService {
	return &StockService{
		repo:   repo,
		cache:  cache,
		locker: locker,
		logger: util.GetLogger(),
	}
}

// ReconcileStock recomputes a product's total stock from its inventory
// records and refreshes the cache. Cache failures are logged only.
func (s *StockService) ReconcileStock(ctx context.Context, productID int64) (int, error) {
	ctx, span := util.StartSpan(ctx, "StockService.ReconcileStock")
	defer span.End()

	start := time.Now()
	total, err := s.repo.ReconcileProductStock(ctx, productID)
	util.StockReconcileLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile product %d: %w", productID, err)
	}

	if s.cache != nil {
		if err := s.cache.SetStock(ctx, productID, total); err != nil {
			util.StockCacheErrorsTotal.WithLabelValues("set").Inc()
			s.logger.Warn("Failed to cache product stock",
				zap.Int64("product_id", productID),
				zap.Error(err))
		}
	}

	return total, nil
}

// ReconcileAll reconciles every product and warms the cache. It keeps
// going past individual failures.
func (s *StockService) ReconcileAll(ctx context.Context) error {
	s.logger.Info("Starting stock reconciliation")

	ids, err := s.repo.ListProductIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	failed := 0
	for _, id := range ids {
		if _, err := s.ReconcileStock(ctx, id); err != nil {
			failed++
			s.logger.Error("Failed to reconcile product", zap.Int64("product_id", id), zap.Error(err))
		}
	}

	s.logger.Info("Stock reconciliation completed",
		zap.Int("count", len(ids)),
		zap.Int("failed", failed))
	return nil
}

// GetStock returns a product's total stock, from cache when possible
func (s *StockService) GetStock(ctx context.Context, productID int64) (int, error) {
	if s.cache != nil {
		stock, ok, err := s.cache.GetStock(ctx, productID)
		if err != nil {
			util.StockCacheErrorsTotal.WithLabelValues("get").Inc()
			s.logger.Warn("Stock cache read failed, using database",
				zap.Int64("product_id", productID),
				zap.Error(err))
		} else if ok {
			return stock, nil
		}
	}

	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	return product.TotalStock, nil
}

// AdjustInventory applies a manual stock movement to one warehouse and
// reconciles. warehouseID 0 means the default warehouse.
func (s *StockService) AdjustInventory(ctx context.Context, productID, warehouseID int64, delta int) (*models.Inventory, error) {
	ctx, span := util.StartSpan(ctx, "StockService.AdjustInventory")
	defer span.End()

	if delta == 0 {
		return nil, apperr.Validation("quantity must not be zero")
	}
	if _, err := s.repo.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}
	warehouse, err := s.resolveWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	release, err := lockProducts(ctx, s.locker, []int64{productID})
	if err != nil {
		return nil, err
	}
	defer release()

	inv, err := s.repo.AdjustInventory(ctx, productID, warehouse.ID, delta)
	if err != nil {
		return nil, apperr.ServerFault("failed to adjust inventory", err)
	}
	if _, err := s.ReconcileStock(ctx, productID); err != nil {
		return nil, err
	}

	s.logger.Info("Inventory adjusted",
		zap.Int64("product_id", productID),
		zap.Int64("warehouse_id", warehouse.ID),
		zap.Int("delta", delta),
		zap.Int("quantity", inv.Quantity))
	return inv, nil
}

// GetProductInventory lists a product's per-warehouse records
func (s *StockService) GetProductInventory(ctx context.Context, productID int64) ([]models.Inventory, error) {
	if _, err := s.repo.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListInventoryByProduct(ctx, productID)
}

// resolveWarehouse returns the given warehouse, or the default one for 0
func (s *StockService) resolveWarehouse(ctx context.Context, warehouseID int64) (*models.Warehouse, error) {
	if warehouseID != 0 {
		return s.repo.GetWarehouseByID(ctx, warehouseID)
	}
	warehouse, err := s.repo.GetDefaultWarehouse(ctx)
	if err != nil {
		return nil, apperr.ServerFault("failed to load default warehouse", err)
	}
	if warehouse == nil {
		return nil, apperr.Validation("no warehouse configured")
	}
	return warehouse, nil
}

// planAllocation applies the warehouse selection policy to records
// ordered by quantity desc, id asc: take from positive records first,
// then put any remainder on the first record.
func planAllocation(records []models.Inventory, quantity int) []models.StockAllocation {
	var allocations []models.StockAllocation
	remaining := quantity

	for _, rec := range records {
		if remaining == 0 {
			break
		}
		if rec.Quantity <= 0 {
			continue
		}
		take := rec.Quantity
		if take > remaining {
			take = remaining
		}
		allocations = append(allocations, models.StockAllocation{WarehouseID: rec.WarehouseID, Quantity: take})
		remaining -= take
	}

	if remaining > 0 && len(records) > 0 {
		first := records[0].WarehouseID
		merged := false
		for i := range allocations {
			if allocations[i].WarehouseID == first {
				allocations[i].Quantity += remaining
				merged = true
				break
			}
		}
		if !merged {
			allocations = append(allocations, models.StockAllocation{WarehouseID: first, Quantity: remaining})
		}
	}

	return allocations
}

// decrementStock takes quantity of a product out of inventory according
// to the selection policy and returns where it came from. Callers hold the
// product lock and reconcile afterwards.
func (s *StockService) decrementStock(ctx context.Context, productID int64, quantity int) ([]models.StockAllocation, error) {
	records, err := s.repo.ListInventoryByProduct(ctx, productID)
	if err != nil {
		return nil, apperr.ServerFault("failed to load inventory", err)
	}

	var allocations []models.StockAllocation
	if len(records) == 0 {
		warehouse, err := s.resolveWarehouse(ctx, 0)
		if err != nil {
			return nil, err
		}
		allocations = []models.StockAllocation{{WarehouseID: warehouse.ID, Quantity: quantity}}
	} else {
		allocations = planAllocation(records, quantity)
	}

	for _, a := range allocations {
		if _, err := s.repo.AdjustInventory(ctx, productID, a.WarehouseID, -a.Quantity); err != nil {
			return nil, apperr.ServerFault("failed to decrement inventory", err)
		}
	}
	return allocations, nil
}

// restoreStock puts a sale item's quantity back where it was taken from.
// Items without recorded allocations go to the first existing record, or
// the default warehouse.
func (s *StockService) restoreStock(ctx context.Context, item models.SaleItem) error {
	allocations := item.Allocations
	if len(allocations) == 0 {
		records, err := s.repo.ListInventoryByProduct(ctx, item.ProductID)
		if err != nil {
			return apperr.ServerFault("failed to load inventory", err)
		}
		warehouseID := int64(0)
		if len(records) > 0 {
			warehouseID = records[0].WarehouseID
		}
		warehouse, err := s.resolveWarehouse(ctx, warehouseID)
		if err != nil {
			return err
		}
		allocations = []models.StockAllocation{{WarehouseID: warehouse.ID, Quantity: item.Quantity}}
	}

	for _, a := range allocations {
		if _, err := s.repo.AdjustInventory(ctx, item.ProductID, a.WarehouseID, a.Quantity); err != nil {
			return apperr.ServerFault("failed to restore inventory", err)
		}
	}
	return nil
}

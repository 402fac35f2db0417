package api

import (
	"net/http"

	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
)

// AdjustInventoryRequest is a manual stock movement. WarehouseID 0 means
// the default warehouse; Quantity is a signed delta.
type AdjustInventoryRequest struct {
	ProductID   int64 `json:"product_id" binding:"required"`
	WarehouseID int64 `json:"warehouse_id"`
	Quantity    int   `json:"quantity" binding:"required"`
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	req.StoreID = storeID(c)

	product, err := h.catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context(), storeID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c, "product")
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "product")
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// getProductStock serves total stock from the cache when it can
func (h *Handler) getProductStock(c *gin.Context) {
	id, ok := pathID(c, "product")
	if !ok {
		return
	}

	stock, err := h.stock.GetStock(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": id, "total_stock": stock})
}

func (h *Handler) getProductInventory(c *gin.Context) {
	id, ok := pathID(c, "product")
	if !ok {
		return
	}

	records, err := h.stock.GetProductInventory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": id, "inventory": records})
}

func (h *Handler) reconcileProduct(c *gin.Context) {
	id, ok := pathID(c, "product")
	if !ok {
		return
	}

	total, err := h.stock.ReconcileStock(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": id, "total_stock": total})
}

func (h *Handler) adjustInventory(c *gin.Context) {
	var req AdjustInventoryRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.stock.AdjustInventory(c.Request.Context(), req.ProductID, req.WarehouseID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) createWarehouse(c *gin.Context) {
	var req service.CreateWarehouseRequest
	if !bindJSON(c, &req) {
		return
	}

	warehouse, err := h.catalog.CreateWarehouse(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, warehouse)
}

func (h *Handler) listWarehouses(c *gin.Context) {
	warehouses, err := h.catalog.ListWarehouses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warehouses": warehouses})
}

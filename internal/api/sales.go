package api

import (
	"net/http"

	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
)

// recordSale handles sale creation
func (h *Handler) recordSale(c *gin.Context) {
	var req service.RecordSaleRequest
	if !bindJSON(c, &req) {
		return
	}
	req.StoreID = storeID(c)

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(idempotencyHeader)
	}

	sale, err := h.sales.RecordSale(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sale)
}

func (h *Handler) listSales(c *gin.Context) {
	sales, err := h.sales.ListSales(c.Request.Context(), storeID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales})
}

func (h *Handler) getSale(c *gin.Context) {
	id, ok := pathID(c, "sale")
	if !ok {
		return
	}

	sale, err := h.sales.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// updateSale patches sale metadata and the paid amount
func (h *Handler) updateSale(c *gin.Context) {
	id, ok := pathID(c, "sale")
	if !ok {
		return
	}
	var req service.UpdateSaleRequest
	if !bindJSON(c, &req) {
		return
	}

	sale, err := h.sales.UpdateSale(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// voidSale deletes a sale and restores its stock
func (h *Handler) voidSale(c *gin.Context) {
	id, ok := pathID(c, "sale")
	if !ok {
		return
	}

	if err := h.sales.VoidSale(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sale voided", "id": id})
}

func (h *Handler) convertSale(c *gin.Context) {
	id, ok := pathID(c, "sale")
	if !ok {
		return
	}

	sale, err := h.sales.ConvertToInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

package api

import (
	"net/http"

	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) recordPurchase(c *gin.Context) {
	var req service.RecordPurchaseRequest
	if !bindJSON(c, &req) {
		return
	}
	req.StoreID = storeID(c)

	purchase, err := h.purchases.RecordPurchase(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, purchase)
}

func (h *Handler) listPurchases(c *gin.Context) {
	purchases, err := h.purchases.ListPurchases(c.Request.Context(), storeID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}

func (h *Handler) getPurchase(c *gin.Context) {
	id, ok := pathID(c, "purchase")
	if !ok {
		return
	}

	purchase, err := h.purchases.GetPurchase(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

// updatePurchase patches vendor, date and total
func (h *Handler) updatePurchase(c *gin.Context) {
	id, ok := pathID(c, "purchase")
	if !ok {
		return
	}
	var req service.UpdatePurchaseRequest
	if !bindJSON(c, &req) {
		return
	}

	purchase, err := h.purchases.UpdatePurchase(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

// addPurchasePayment appends to a purchase's payment history
func (h *Handler) addPurchasePayment(c *gin.Context) {
	id, ok := pathID(c, "purchase")
	if !ok {
		return
	}
	var req service.AddPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	purchase, err := h.purchases.AddPayment(c.Request.Context(), id, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

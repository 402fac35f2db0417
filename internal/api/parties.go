package api

import (
	"net/http"

	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createCustomer(c *gin.Context) {
	var req service.CreateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	req.StoreID = storeID(c)

	customer, err := h.catalog.CreateCustomer(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) listCustomers(c *gin.Context) {
	customers, err := h.catalog.ListCustomers(c.Request.Context(), storeID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

func (h *Handler) getCustomer(c *gin.Context) {
	id, ok := pathID(c, "customer")
	if !ok {
		return
	}

	customer, err := h.ledger.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// adjustCustomerBalance appends a manual ledger entry
func (h *Handler) adjustCustomerBalance(c *gin.Context) {
	id, ok := pathID(c, "customer")
	if !ok {
		return
	}
	var req service.BalanceAdjustment
	if !bindJSON(c, &req) {
		return
	}

	customer, err := h.ledger.AdjustCustomerBalance(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) createRetailer(c *gin.Context) {
	var req service.CreateRetailerRequest
	if !bindJSON(c, &req) {
		return
	}
	req.StoreID = storeID(c)

	retailer, err := h.catalog.CreateRetailer(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, retailer)
}

func (h *Handler) listRetailers(c *gin.Context) {
	retailers, err := h.catalog.ListRetailers(c.Request.Context(), storeID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"retailers": retailers})
}

func (h *Handler) getRetailer(c *gin.Context) {
	id, ok := pathID(c, "retailer")
	if !ok {
		return
	}

	retailer, err := h.ledger.GetRetailer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, retailer)
}

func (h *Handler) adjustRetailerBalance(c *gin.Context) {
	id, ok := pathID(c, "retailer")
	if !ok {
		return
	}
	var req service.BalanceAdjustment
	if !bindJSON(c, &req) {
		return
	}

	retailer, err := h.ledger.AdjustRetailerBalance(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, retailer)
}

// recordRetailerPayment records money received, optionally against a sale
func (h *Handler) recordRetailerPayment(c *gin.Context) {
	id, ok := pathID(c, "retailer")
	if !ok {
		return
	}
	var req service.RetailerPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	retailer, err := h.ledger.RecordRetailerPayment(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, retailer)
}

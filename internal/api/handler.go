package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"pos-service/internal/service"
	"pos-service/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	storeHeader       = "X-Store-ID"
	idempotencyHeader = "Idempotency-Key"
	storeIDKey        = "storeID"
)

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	sales     *service.SaleService
	purchases *service.PurchaseService
	stock     *service.StockService
	ledger    *service.LedgerService
	catalog   *service.CatalogService
	db        Pinger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	sales *service.SaleService,
	purchases *service.PurchaseService,
	stock *service.StockService,
	ledger *service.LedgerService,
	catalog *service.CatalogService,
	db Pinger,
) *Handler {
	return &Handler{
		sales:     sales,
		purchases: purchases,
		stock:     stock,
		ledger:    ledger,
		catalog:   catalog,
		db:        db,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine, allowedOrigins []string) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(cors.New(corsConfig(allowedOrigins)))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	scoped := v1.Group("", storeScope())
	{
		scoped.POST("/sales", h.recordSale)
		scoped.GET("/sales", h.listSales)
		v1.GET("/sales/:id", h.getSale)
		v1.PATCH("/sales/:id", h.updateSale)
		v1.DELETE("/sales/:id", h.voidSale)
		v1.POST("/sales/:id/convert", h.convertSale)

		scoped.POST("/purchases", h.recordPurchase)
		scoped.GET("/purchases", h.listPurchases)
		v1.GET("/purchases/:id", h.getPurchase)
		v1.PATCH("/purchases/:id", h.updatePurchase)
		v1.POST("/purchases/:id/payments", h.addPurchasePayment)

		scoped.POST("/products", h.createProduct)
		scoped.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.PATCH("/products/:id", h.updateProduct)
		v1.GET("/products/:id/stock", h.getProductStock)
		v1.GET("/products/:id/inventory", h.getProductInventory)
		v1.POST("/products/:id/reconcile", h.reconcileProduct)
		v1.POST("/inventory", h.adjustInventory)

		v1.POST("/warehouses", h.createWarehouse)
		v1.GET("/warehouses", h.listWarehouses)

		scoped.POST("/customers", h.createCustomer)
		scoped.GET("/customers", h.listCustomers)
		v1.GET("/customers/:id", h.getCustomer)
		v1.PUT("/customers/:id/balance", h.adjustCustomerBalance)

		scoped.POST("/retailers", h.createRetailer)
		scoped.GET("/retailers", h.listRetailers)
		v1.GET("/retailers/:id", h.getRetailer)
		v1.POST("/retailers/:id/balance", h.adjustRetailerBalance)
		v1.POST("/retailers/:id/payments", h.recordRetailerPayment)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the database answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// corsConfig allows the configured origins, or any origin without
// credentials when none are configured
func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", storeHeader, idempotencyHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	return cfg
}

// storeScope reads the tenant from the X-Store-ID header
func storeScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID, err := strconv.ParseInt(c.GetHeader(storeHeader), 10, 64)
		if err != nil || storeID <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Missing or invalid " + storeHeader + " header",
				"code":  "VALIDATION_ERROR",
			})
			return
		}
		c.Set(storeIDKey, storeID)
		c.Next()
	}
}

func storeID(c *gin.Context) int64 {
	return c.GetInt64(storeIDKey)
}

// pathID parses the :id param, answering 400 when it is not a positive integer
func pathID(c *gin.Context, entity string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + entity + " ID",
			"code":  "VALIDATION_ERROR",
		})
		return 0, false
	}
	return id, true
}

// bindJSON binds the request body, answering 400 on malformed input
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"code":    "VALIDATION_ERROR",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

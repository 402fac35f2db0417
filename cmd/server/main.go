package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-service/config"
	"pos-service/internal/api"
	"pos-service/internal/broker"
	"pos-service/internal/printer"
	"pos-service/internal/redisclient"
	"pos-service/internal/service"
	"pos-service/internal/store"
	"pos-service/internal/store/memory"
	"pos-service/internal/util"
	"pos-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// repository is everything the services and the receipt worker need
type repository interface {
	service.Repository
	worker.ReceiptStore
	Close() error
}

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting POS service")

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	repo, err := openRepository(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open repository", zap.Error(err))
	}
	defer repo.Close()

	var (
		locker service.Locker = service.NewLocalLocker()
		cache  service.StockCache
	)
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisclient.LockOptions{
			TTL:           cfg.Business.LockTTL(),
			RetryAttempts: cfg.Business.LockRetryAttempts,
			RetryDelay:    cfg.Business.LockRetryDelay(),
		})
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		locker = redisClient
		cache = redisClient
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Warn("Redis not configured, using in-process locks")
	}

	var publisher service.EventPublisher = service.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicSales))
	}

	stockService := service.NewStockService(repo, cache, locker)
	ledgerService := service.NewLedgerService(repo, locker)
	saleService := service.NewSaleService(repo, stockService, ledgerService, locker, publisher, service.SaleConfig{
		VoidReversesLedger: cfg.Business.VoidReversesLedger,
	})
	purchaseService := service.NewPurchaseService(repo, stockService, locker, publisher)
	catalogService := service.NewCatalogService(repo, stockService, ledgerService)

	ctx := context.Background()
	if err := stockService.ReconcileAll(ctx); err != nil {
		logger.Error("Failed to reconcile stock at startup", zap.Error(err))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var receiptWorker *worker.ReceiptWorker
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales, cfg.Kafka.ConsumerGroup)
		receiptWorker = worker.NewReceiptWorker(consumer, repo, printer.NewClient(cfg.Business.PrinterTimeout()))
		go func() {
			if err := receiptWorker.Start(workerCtx); err != nil {
				logger.Error("Receipt worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	handler := api.NewHandler(saleService, purchaseService, stockService, ledgerService, catalogService, repo)
	handler.SetupRoutes(router, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if receiptWorker != nil {
		if err := receiptWorker.Stop(); err != nil {
			logger.Error("Failed to stop receipt worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

// openRepository connects the configured backend. The memory driver keeps
// everything in process and is lost on exit.
func openRepository(cfg *config.Config, logger *zap.Logger) (repository, error) {
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory repository, data will not survive a restart")
		return memory.New(), nil
	case "postgres":
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("Database connected")

		if cfg.Database.AutoMigrate {
			migrator, err := store.NewMigrator(db.GetDB().DB, logger)
			if err != nil {
				db.Close()
				return nil, err
			}
			if err := migrator.Up(); err != nil {
				db.Close()
				return nil, err
			}
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

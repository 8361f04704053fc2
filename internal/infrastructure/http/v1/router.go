// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockforge/internal/domain/adjustment"
	"stockforge/internal/domain/alerts"
	"stockforge/internal/domain/catalogs/product"
	"stockforge/internal/domain/catalogs/warehouse"
	"stockforge/internal/domain/ledger"
	"stockforge/internal/domain/valuation"
	"stockforge/internal/infrastructure/http/v1/handlers"
	"stockforge/internal/infrastructure/http/v1/middleware"
	"stockforge/internal/infrastructure/storage/postgres"
	"stockforge/internal/infrastructure/storage/postgres/adjustment_repo"
	"stockforge/internal/infrastructure/storage/postgres/alert_repo"
	"stockforge/internal/infrastructure/storage/postgres/catalog_repo"
	"stockforge/internal/infrastructure/storage/postgres/ledger_repo"
	"stockforge/internal/infrastructure/storage/postgres/valuation_repo"
	"stockforge/pkg/logger"
	"stockforge/pkg/numerator"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (health checks, numbering).
	Pool *postgres.Pool

	// TxManager coordinates transactions for all repositories.
	TxManager *postgres.TxManager

	// Logger for request logging.
	Logger *logger.Logger

	// Auditor records document changes. May be nil to disable the trail.
	Auditor *postgres.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.UserContext())

	// Health endpoints (no identity required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Shared services
	numbers := numerator.New(cfg.Pool)
	ledgerService := ledger.NewService(ledger_repo.NewRepo(cfg.TxManager))

	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	productService := product.NewService(productRepo)
	warehouseService := warehouse.NewService(catalog_repo.NewWarehouseRepo(cfg.TxManager))

	valuationService := valuation.NewService(
		valuation_repo.NewRepo(cfg.TxManager),
		ledgerService,
		cfg.TxManager,
	)

	var auditor = auditRecorder(cfg.Auditor)
	adjustmentService := adjustment.NewService(
		adjustment_repo.NewRepo(cfg.TxManager),
		ledgerService,
		numbers,
		auditor,
		cfg.TxManager,
	)

	alertService := alerts.NewService(
		productRepo,
		ledgerService,
		alert_repo.NewRepo(cfg.TxManager),
		cfg.TxManager,
	)

	// API v1
	base := handlers.NewBaseHandler()
	api := router.Group("/api/v1")
	{
		catalogs := api.Group("/catalog")
		handlers.NewProductHandler(base, productService).RegisterRoutes(catalogs.Group("/products"))
		handlers.NewWarehouseHandler(base, warehouseService).RegisterRoutes(catalogs.Group("/warehouses"))

		handlers.NewInventoryHandler(base, valuationService).RegisterRoutes(api.Group("/inventory"))
		handlers.NewStockHandler(base, ledgerService).RegisterRoutes(api.Group("/stock"))
		handlers.NewAdjustmentHandler(base, adjustmentService).RegisterRoutes(api.Group("/adjustments"))
		handlers.NewAlertsHandler(base, alertService).RegisterRoutes(api.Group("/alerts"))
	}

	return router
}

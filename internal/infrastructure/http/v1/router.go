// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"consigna/internal/domain/credit"
	"consigna/internal/domain/inventory"
	"consigna/internal/domain/returns"
	"consigna/internal/domain/sale"
	"consigna/internal/domain/supplier"
	"consigna/internal/domain/till"
	"consigna/internal/infrastructure/http/v1/handlers"
	"consigna/internal/infrastructure/http/v1/middleware"
	"consigna/internal/infrastructure/storage/postgres"
	"consigna/pkg/logger"
)

// RouterConfig holds everything the HTTP surface needs.
type RouterConfig struct {
	// Pool is used for readiness probes only; repos go through the TxManager.
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// TokenValidator for JWT validation
	TokenValidator middleware.TokenValidator

	Suppliers *supplier.Service
	Ledger    *inventory.Ledger
	Credits   *credit.Service
	Till      *till.Service
	Sales     *sale.Service
	Returns   *returns.Service
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

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1, JWT-protected
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.TokenValidator))
	{
		base := handlers.NewBaseHandler()

		supplierHandler := handlers.NewSupplierHandler(base, cfg.Suppliers, cfg.Credits)
		supplierHandler.RegisterRoutes(api.Group("/suppliers"))

		productHandler := handlers.NewProductHandler(base, cfg.Ledger)
		productHandler.RegisterRoutes(api.Group("/products"))

		saleHandler := handlers.NewSaleHandler(base, cfg.Sales)
		saleHandler.RegisterRoutes(api.Group("/sales"))

		tillHandler := handlers.NewTillHandler(base, cfg.Till)
		tillHandler.RegisterRoutes(api.Group("/till-sessions"))

		returnHandler := handlers.NewReturnHandler(base, cfg.Returns)
		returnHandler.RegisterRoutes(api.Group("/returns"))
	}

	return router
}

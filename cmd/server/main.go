// Package main is the entry point for the consigna API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"consigna/internal/config"
	"consigna/internal/core/clock"
	"consigna/internal/domain/auth"
	"consigna/internal/domain/credit"
	"consigna/internal/domain/inventory"
	"consigna/internal/domain/returns"
	"consigna/internal/domain/sale"
	"consigna/internal/domain/supplier"
	"consigna/internal/domain/till"
	v1 "consigna/internal/infrastructure/http/v1"
	"consigna/internal/infrastructure/storage/postgres"
	"consigna/pkg/logger"
	"consigna/pkg/numerator"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDev(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting consigna server")

	// --- Database ---
	poolCfg := postgres.PoolConfig{
		DSN:               cfg.DB.DSN,
		MaxConns:          cfg.DB.MaxConns,
		MinConns:          cfg.DB.MinConns,
		MaxConnLifetime:   cfg.DB.MaxConnLifetime,
		MaxConnIdleTime:   cfg.DB.MaxConnIdleTime,
		HealthCheckPeriod: cfg.DB.HealthCheckPeriod,
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- JWT ---
	jwtConfig := auth.DefaultJWTConfig(cfg.JWT.Secret)
	jwtConfig.Issuer = cfg.JWT.Issuer
	jwtService := auth.NewJWTService(jwtConfig)

	// --- Repositories ---
	supplierRepo := postgres.NewSupplierRepo(txManager)
	productRepo := postgres.NewProductRepo(txManager)
	creditRepo := postgres.NewCreditRepo(txManager)
	tillRepo := postgres.NewTillRepo(txManager)
	saleRepo := postgres.NewSaleRepo(txManager)
	returnRepo := postgres.NewReturnRepo(txManager)

	auditor, err := postgres.NewAuditRecorder(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit recorder", "error", err)
	}

	// --- Services ---
	clk := clock.System()
	num := numerator.New(pool.Pool)

	supplierService := supplier.NewService(supplierRepo, clk)
	ledger := inventory.NewLedger(productRepo, supplierRepo, num, txManager, clk)
	creditService := credit.NewService(creditRepo, supplierRepo, txManager, clk, cfg.Credit.HoldingPeriod)
	tillService := till.NewService(tillRepo, txManager, clk)
	saleService := sale.NewService(saleRepo, returnRepo, ledger, creditService, tillService, num, txManager, clk, auditor)
	returnService := returns.NewService(returnRepo, saleRepo, ledger, txManager, clk, auditor, cfg.Sales.RefundWindow)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		TokenValidator: jwtService,
		Suppliers:      supplierService,
		Ledger:         ledger,
		Credits:        creditService,
		Till:           tillService,
		Sales:          saleService,
		Returns:        returnService,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

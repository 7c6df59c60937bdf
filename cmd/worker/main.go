// Package main is the entry point for the consigna background worker.
// It releases matured supplier credits and cancels stale pending sales.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"consigna/internal/config"
	"consigna/internal/core/clock"
	"consigna/internal/domain/credit"
	"consigna/internal/domain/inventory"
	"consigna/internal/domain/sale"
	"consigna/internal/domain/till"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting consigna worker")

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:               cfg.DB.DSN,
		MaxConns:          5,
		MinConns:          1,
		MaxConnLifetime:   cfg.DB.MaxConnLifetime,
		MaxConnIdleTime:   10 * time.Minute,
		HealthCheckPeriod: cfg.DB.HealthCheckPeriod,
	})
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

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

	clk := clock.System()
	num := numerator.New(pool.Pool)

	ledger := inventory.NewLedger(productRepo, supplierRepo, num, txManager, clk)
	creditService := credit.NewService(creditRepo, supplierRepo, txManager, clk, cfg.Credit.HoldingPeriod)
	tillService := till.NewService(tillRepo, txManager, clk)
	saleService := sale.NewService(saleRepo, returnRepo, ledger, creditService, tillService, num, txManager, clk, auditor)

	worker := &Worker{
		credits: creditService,
		sales:   saleService,
		clock:   clk,
		log:     log.WithComponent("worker"),

		interval:      cfg.Worker.SweepInterval,
		batchSize:     cfg.Worker.SweepBatch,
		pendingMaxAge: cfg.Sales.PendingMaxAge,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker runs the periodic settlement sweeps.
type Worker struct {
	credits *credit.Service
	sales   *sale.Service
	clock   clock.Clock
	log     *logger.Logger

	interval      time.Duration
	batchSize     int
	pendingMaxAge time.Duration
}

// Run sweeps until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Initial sweep on startup
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	w.releaseCredits(ctx)
	w.cancelStaleSales(ctx)
}

func (w *Worker) releaseCredits(ctx context.Context) {
	released, err := w.credits.ReleaseMatured(ctx, w.clock.Now())
	if err != nil {
		w.log.Errorw("credit release sweep failed", "error", err)
		return
	}
	if released > 0 {
		w.log.Infow("released matured credits", "count", released)
	}
}

func (w *Worker) cancelStaleSales(ctx context.Context) {
	cancelled, err := w.sales.CancelStalePending(ctx, w.pendingMaxAge, w.batchSize)
	if err != nil {
		w.log.Errorw("stale sale sweep failed", "error", err)
		return
	}
	if cancelled > 0 {
		w.log.Infow("cancelled stale pending sales", "count", cancelled)
	}
}

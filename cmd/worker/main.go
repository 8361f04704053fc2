// Package main is the entry point for the stockforge background worker.
// It periodically refreshes the stock alert cache for every organization
// present in the ledger.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stockforge/internal/domain/alerts"
	"stockforge/internal/domain/ledger"
	"stockforge/internal/infrastructure/storage/postgres"
	"stockforge/internal/infrastructure/storage/postgres/alert_repo"
	"stockforge/internal/infrastructure/storage/postgres/catalog_repo"
	"stockforge/internal/infrastructure/storage/postgres/ledger_repo"
	"stockforge/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting stockforge worker")

	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	alertService := alerts.NewService(
		catalog_repo.NewProductRepo(txManager),
		ledger.NewService(ledger_repo.NewRepo(txManager)),
		alert_repo.NewRepo(txManager),
		txManager,
	)

	interval := getEnvDuration("SWEEP_INTERVAL", 5*time.Minute)
	worker := NewSweepWorker(pool, alertService, interval, log)

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

// SweepWorker runs the alert sweep on a fixed interval.
type SweepWorker struct {
	pool     *postgres.Pool
	alerts   *alerts.Service
	interval time.Duration
	log      *logger.Logger
}

func NewSweepWorker(pool *postgres.Pool, alertService *alerts.Service, interval time.Duration, log *logger.Logger) *SweepWorker {
	return &SweepWorker{
		pool:     pool,
		alerts:   alertService,
		interval: interval,
		log:      log.WithComponent("sweep_worker"),
	}
}

// Run sweeps every organization on each tick until the context is cancelled.
func (w *SweepWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// First sweep immediately on startup.
	w.sweepAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepAll(ctx)
		}
	}
}

func (w *SweepWorker) sweepAll(ctx context.Context) {
	organizations, err := w.listOrganizations(ctx)
	if err != nil {
		w.log.Errorw("failed to list organizations", "error", err)
		return
	}

	for _, org := range organizations {
		if err := w.alerts.Sweep(ctx, org); err != nil {
			w.log.Errorw("alert sweep failed", "organization_id", org, "error", err)
		}
	}

	if len(organizations) > 0 {
		w.log.Debugw("sweep cycle completed", "organizations", len(organizations))
		postgres.LogPoolStats(ctx, w.pool.Pool)
	}
}

// listOrganizations returns the distinct organizations present in the ledger.
func (w *SweepWorker) listOrganizations(ctx context.Context) ([]string, error) {
	rows, err := w.pool.Query(ctx, `SELECT DISTINCT organization_id FROM stock_levels`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var org string
		if err := rows.Scan(&org); err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

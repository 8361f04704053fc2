// Package main provides a CLI tool for seeding the database with demo data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"stockforge/internal/core/id"
	"stockforge/internal/core/types"
	"stockforge/internal/domain/catalogs/product"
	"stockforge/internal/domain/catalogs/warehouse"
	"stockforge/internal/domain/ledger"
	"stockforge/internal/domain/valuation"
	"stockforge/internal/domain/valuation/method"
	"stockforge/internal/infrastructure/storage/postgres"
	"stockforge/internal/infrastructure/storage/postgres/catalog_repo"
	"stockforge/internal/infrastructure/storage/postgres/ledger_repo"
	"stockforge/internal/infrastructure/storage/postgres/valuation_repo"
	"stockforge/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	orgID := os.Getenv("SEED_ORGANIZATION_ID")
	if orgID == "" {
		orgID = "demo"
	}

	if err := seedDemoData(ctx, pool, log, orgID); err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}

	log.Info("seeding completed successfully")
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger, orgID string) error {
	txManager := postgres.NewTxManager(pool)

	productRepo := catalog_repo.NewProductRepo(txManager)
	warehouseRepo := catalog_repo.NewWarehouseRepo(txManager)
	ledgerService := ledger.NewService(ledger_repo.NewRepo(txManager))
	valuationService := valuation.NewService(valuation_repo.NewRepo(txManager), ledgerService, txManager)

	// 1. Warehouses
	warehouses := []struct {
		code    string
		name    string
		address string
	}{
		{"WH-001", "Main warehouse", "12 Dock Street"},
		{"WH-002", "Retail store", "5 Market Square"},
	}

	warehouseIDs := make(map[string]id.ID, len(warehouses))
	for _, w := range warehouses {
		wh := warehouse.NewWarehouse(orgID, w.code, w.name)
		addr := w.address
		wh.Address = &addr

		wid, err := ensureWarehouse(ctx, pool, warehouseRepo, wh)
		if err != nil {
			return fmt.Errorf("seed warehouse %s: %w", w.code, err)
		}
		warehouseIDs[w.code] = wid
	}

	// 2. Products
	products := []struct {
		code            string
		name            string
		sku             string
		costingMethod   method.Method
		reorderPoint    int64
		reorderQuantity int64
	}{
		{"NM-00001", "A4 office paper", "PAP-A4", method.FIFO, 20, 50},
		{"NM-00002", "Ballpoint pen, blue", "PEN-BLU", method.FIFO, 100, 500},
		{"NM-00003", "Desktop stapler", "STP-001", method.LIFO, 10, 25},
		{"NM-00004", "Paper clips 28mm, box", "CLP-028", method.FIFO, 0, 0},
	}

	productIDs := make(map[string]id.ID, len(products))
	for _, p := range products {
		prod := product.NewProduct(orgID, p.code, p.name)
		prod.SKU = p.sku
		prod.CostingMethod = p.costingMethod
		prod.ReorderPoint = types.NewQuantityFromUnits(p.reorderPoint)
		prod.ReorderQuantity = types.NewQuantityFromUnits(p.reorderQuantity)

		pid, err := ensureProduct(ctx, pool, productRepo, prod)
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.code, err)
		}
		productIDs[p.code] = pid
	}

	// 3. Initial receipts (only when the ledger is still empty)
	if os.Getenv("SEED_RECEIPTS") == "true" {
		receipts := []struct {
			productCode   string
			warehouseCode string
			quantity      int64
			unitCost      string
			daysAgo       int
		}{
			{"NM-00001", "WH-001", 100, "4.50", 30},
			{"NM-00001", "WH-001", 50, "4.80", 10},
			{"NM-00002", "WH-001", 1000, "0.35", 20},
			{"NM-00003", "WH-002", 25, "12.00", 15},
		}

		for _, r := range receipts {
			_, err := valuationService.Receive(ctx, valuation.ReceiveInput{
				OrganizationID: orgID,
				ProductID:      productIDs[r.productCode],
				WarehouseID:    warehouseIDs[r.warehouseCode],
				Quantity:       types.NewQuantityFromUnits(r.quantity),
				UnitCost:       types.MustMoney(r.unitCost),
				ReceiptDate:    time.Now().UTC().AddDate(0, 0, -r.daysAgo),
				Reference:      "SEED",
			})
			if err != nil {
				log.Warnw("failed to seed receipt", "product", r.productCode, "error", err)
			}
		}
	}

	log.Infow("demo data seeded", "organization_id", orgID)
	return nil
}

// ensureWarehouse inserts the warehouse or returns the existing row's id.
func ensureWarehouse(ctx context.Context, pool *postgres.Pool, repo *catalog_repo.WarehouseRepo, wh *warehouse.Warehouse) (id.ID, error) {
	var existing id.ID
	err := pool.QueryRow(ctx,
		`SELECT id FROM cat_warehouses WHERE organization_id = $1 AND code = $2`,
		wh.OrganizationID, wh.Code,
	).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return id.Nil(), err
	}

	if err := repo.Create(ctx, wh); err != nil {
		return id.Nil(), err
	}
	return wh.ID, nil
}

// ensureProduct inserts the product or returns the existing row's id.
func ensureProduct(ctx context.Context, pool *postgres.Pool, repo *catalog_repo.ProductRepo, p *product.Product) (id.ID, error) {
	var existing id.ID
	err := pool.QueryRow(ctx,
		`SELECT id FROM cat_products WHERE organization_id = $1 AND code = $2`,
		p.OrganizationID, p.Code,
	).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return id.Nil(), err
	}

	if err := repo.Create(ctx, p); err != nil {
		return id.Nil(), err
	}
	return p.ID, nil
}

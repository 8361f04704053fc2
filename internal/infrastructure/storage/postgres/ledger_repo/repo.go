// Package ledger_repo provides the PostgreSQL implementation of the stock
// ledger. ApplyDelta is a single atomic UPSERT-increment, so concurrent
// writers never lose updates.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockforge/internal/core/id"
	"stockforge/internal/domain/ledger"
	"stockforge/internal/infrastructure/storage/postgres"
)

const levelsTable = "stock_levels"

var levelColumns = []string{
	"organization_id", "product_id", "warehouse_id", "location_id",
	"quantity_on_hand", "quantity_reserved",
	"last_counted_at", "last_counted_by", "updated_at",
}

// Repo implements ledger.Repository.
type Repo struct {
	builder   squirrel.StatementBuilderType
	txManager *postgres.TxManager
}

// NewRepo creates a new ledger repository.
func NewRepo(txManager *postgres.TxManager) *Repo {
	return &Repo{
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		txManager: txManager,
	}
}

var _ ledger.Repository = (*Repo)(nil)

// keyPredicate builds the WHERE clause of a ledger key. location_id is part
// of the key; NULL means the warehouse-wide row.
func keyPredicate(key ledger.Key) squirrel.Sqlizer {
	pred := squirrel.Eq{
		"organization_id": key.OrganizationID,
		"product_id":      key.ProductID,
		"warehouse_id":    key.WarehouseID,
	}
	if key.LocationID != nil {
		pred["location_id"] = *key.LocationID
	} else {
		pred["location_id"] = nil
	}
	return pred
}

// Get returns the ledger row for a key, or nil if absent.
func (r *Repo) Get(ctx context.Context, key ledger.Key) (*ledger.StockLevel, error) {
	q := r.builder.Select(levelColumns...).
		From(levelsTable).
		Where(keyPredicate(key)).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var level ledger.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, postgres.TranslateError(err)
	}
	return &level, nil
}

// GetForUpdate locks the row, creating a zero-quantity row first if absent.
// Must be called within a transaction.
func (r *Repo) GetForUpdate(ctx context.Context, key ledger.Key) (*ledger.StockLevel, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetForUpdate requires transaction context")
	}

	// Ensure the row exists so the lock has something to grab. The no-op
	// update makes INSERT ... ON CONFLICT race-safe for concurrent creators.
	insertSQL := `
		INSERT INTO stock_levels (organization_id, product_id, warehouse_id, location_id,
		                          quantity_on_hand, quantity_reserved, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, now())
		ON CONFLICT (organization_id, product_id, warehouse_id, location_key) DO NOTHING
	`
	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, insertSQL, key.OrganizationID, key.ProductID, key.WarehouseID, key.LocationID); err != nil {
		return nil, postgres.TranslateError(err)
	}

	q := r.builder.Select(levelColumns...).
		From(levelsTable).
		Where(keyPredicate(key)).
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var level ledger.StockLevel
	if err := pgxscan.Get(ctx, querier, &level, sql, args...); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return &level, nil
}

// ApplyDelta upserts the row and increments its quantities atomically.
func (r *Repo) ApplyDelta(ctx context.Context, delta ledger.Delta) error {
	var countedAt, countedBy any
	if delta.CountStamp != nil {
		countedAt = delta.CountStamp.CountedAt
		countedBy = delta.CountStamp.CountedBy
	}

	sql := `
		INSERT INTO stock_levels (organization_id, product_id, warehouse_id, location_id,
		                          quantity_on_hand, quantity_reserved,
		                          last_counted_at, last_counted_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (organization_id, product_id, warehouse_id, location_key)
		DO UPDATE SET
			quantity_on_hand  = stock_levels.quantity_on_hand + EXCLUDED.quantity_on_hand,
			quantity_reserved = stock_levels.quantity_reserved + EXCLUDED.quantity_reserved,
			last_counted_at   = COALESCE(EXCLUDED.last_counted_at, stock_levels.last_counted_at),
			last_counted_by   = COALESCE(EXCLUDED.last_counted_by, stock_levels.last_counted_by),
			updated_at        = now()
	`

	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		delta.Key.OrganizationID, delta.Key.ProductID, delta.Key.WarehouseID, delta.Key.LocationID,
		delta.OnHand, delta.Reserved,
		countedAt, countedBy,
	)
	return postgres.TranslateError(err)
}

// ListByWarehouse returns all rows of a warehouse ordered by product.
func (r *Repo) ListByWarehouse(ctx context.Context, organizationID string, warehouseID id.ID) ([]ledger.StockLevel, error) {
	q := r.builder.Select(levelColumns...).
		From(levelsTable).
		Where(squirrel.Eq{
			"organization_id": organizationID,
			"warehouse_id":    warehouseID,
		}).
		OrderBy("product_id", "location_id NULLS FIRST")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var levels []ledger.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &levels, sql, args...); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return levels, nil
}

// ListByOrganization returns all rows in scope, used by the alert sweep.
func (r *Repo) ListByOrganization(ctx context.Context, organizationID string) ([]ledger.StockLevel, error) {
	q := r.builder.Select(levelColumns...).
		From(levelsTable).
		Where(squirrel.Eq{"organization_id": organizationID}).
		OrderBy("warehouse_id", "product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var levels []ledger.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &levels, sql, args...); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return levels, nil
}

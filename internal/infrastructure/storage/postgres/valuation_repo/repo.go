// Package valuation_repo provides the PostgreSQL implementation of the
// layer store and COGS log.
package valuation_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockforge/internal/core/id"
	"stockforge/internal/domain/valuation"
	"stockforge/internal/domain/valuation/method"
	"stockforge/internal/infrastructure/storage/postgres"
)

const (
	layersTable = "valuation_layers"
	cogsTable   = "cogs_transactions"
)

var layerColumns = []string{
	"id", "organization_id", "product_id", "warehouse_id",
	"receipt_date", "quantity_received", "quantity_remaining",
	"unit_cost", "total_cost", "is_consumed",
	"reference", "notes", "created_at", "updated_at",
}

var cogsColumns = []string{
	"id", "organization_id", "product_id", "warehouse_id",
	"transaction_type", "transaction_date", "reference_id",
	"quantity", "unit_cost", "total_cost", "method", "created_at",
}

// Repo implements valuation.Repository.
type Repo struct {
	builder   squirrel.StatementBuilderType
	txManager *postgres.TxManager
}

// NewRepo creates a new valuation repository.
func NewRepo(txManager *postgres.TxManager) *Repo {
	return &Repo{
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		txManager: txManager,
	}
}

var _ valuation.Repository = (*Repo)(nil)

// CreateLayer appends a new layer.
func (r *Repo) CreateLayer(ctx context.Context, layer *valuation.Layer) error {
	q := r.builder.Insert(layersTable).
		Columns(layerColumns...).
		Values(
			layer.ID, layer.OrganizationID, layer.ProductID, layer.WarehouseID,
			layer.ReceiptDate, layer.QuantityReceived, layer.QuantityRemaining,
			layer.UnitCost, layer.TotalCost, layer.IsConsumed,
			layer.Reference, layer.Notes, layer.CreatedAt, layer.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(err)
	}
	return nil
}

// GetLayer retrieves one layer.
func (r *Repo) GetLayer(ctx context.Context, layerID id.ID) (*valuation.Layer, error) {
	q := r.builder.Select(layerColumns...).
		From(layersTable).
		Where(squirrel.Eq{"id": layerID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var layer valuation.Layer
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &layer, sql, args...); err != nil {
		return nil, postgres.NotFoundOrError(err, "layer", layerID)
	}
	return &layer, nil
}

// ListOpenLayers returns open layers in method order without locking.
func (r *Repo) ListOpenLayers(ctx context.Context, organizationID string, productID, warehouseID id.ID, m method.Method) ([]*valuation.Layer, error) {
	return r.listOpen(ctx, organizationID, productID, warehouseID, m, false)
}

// ListOpenLayersForUpdate locks the open layers of a pair in method order.
// The FOR UPDATE on a consistent set of rows is what serializes concurrent
// consumption per (product, warehouse).
func (r *Repo) ListOpenLayersForUpdate(ctx context.Context, organizationID string, productID, warehouseID id.ID, m method.Method) ([]*valuation.Layer, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("ListOpenLayersForUpdate requires transaction context")
	}
	return r.listOpen(ctx, organizationID, productID, warehouseID, m, true)
}

func (r *Repo) listOpen(ctx context.Context, organizationID string, productID, warehouseID id.ID, m method.Method, forUpdate bool) ([]*valuation.Layer, error) {
	// id is a UUIDv7 tiebreak: same-date layers drain in insertion order
	// under both methods.
	order := "receipt_date ASC, id ASC"
	if m == method.LIFO {
		order = "receipt_date DESC, id ASC"
	}

	q := r.builder.Select(layerColumns...).
		From(layersTable).
		Where(squirrel.Eq{
			"organization_id": organizationID,
			"product_id":      productID,
			"warehouse_id":    warehouseID,
		}).
		Where(squirrel.Gt{"quantity_remaining": int64(0)}).
		OrderBy(order)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var layers []*valuation.Layer
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &layers, sql, args...); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return layers, nil
}

// UpdateLayerRemaining persists the mutable layer columns. The layers were
// locked FOR UPDATE in the same transaction, so the updates are sent as a
// single batch round-trip.
func (r *Repo) UpdateLayerRemaining(ctx context.Context, layers []*valuation.Layer) error {
	if len(layers) == 0 {
		return nil
	}

	now := time.Now().UTC()
	queries := make([]postgres.BatchQuery, 0, len(layers))
	for _, layer := range layers {
		q := r.builder.Update(layersTable).
			Set("quantity_remaining", layer.QuantityRemaining).
			Set("is_consumed", layer.IsConsumed).
			Set("updated_at", now).
			Where(squirrel.Eq{"id": layer.ID})

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}

	executor := postgres.NewBatchExecutor(r.txManager)
	if err := executor.ExecuteBatch(ctx, queries); err != nil {
		return postgres.TranslateError(err)
	}
	return nil
}

// ListLayers returns the full layer history of a pair, oldest first.
func (r *Repo) ListLayers(ctx context.Context, organizationID string, productID, warehouseID id.ID) ([]*valuation.Layer, error) {
	q := r.builder.Select(layerColumns...).
		From(layersTable).
		Where(squirrel.Eq{
			"organization_id": organizationID,
			"product_id":      productID,
			"warehouse_id":    warehouseID,
		}).
		OrderBy("receipt_date ASC, id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var layers []*valuation.Layer
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &layers, sql, args...); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return layers, nil
}

// CreateCOGS appends one COGS transaction.
func (r *Repo) CreateCOGS(ctx context.Context, txn *valuation.COGSTransaction) error {
	q := r.builder.Insert(cogsTable).
		Columns(cogsColumns...).
		Values(
			txn.ID, txn.OrganizationID, txn.ProductID, txn.WarehouseID,
			txn.TransactionType, txn.TransactionDate, txn.ReferenceID,
			txn.Quantity, txn.UnitCost, txn.TotalCost, txn.Method, txn.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(err)
	}
	return nil
}

// ListCOGS returns COGS transactions matching the filter, newest first.
func (r *Repo) ListCOGS(ctx context.Context, f valuation.COGSFilter) ([]valuation.COGSTransaction, error) {
	q := r.builder.Select(cogsColumns...).
		From(cogsTable).
		Where(squirrel.Eq{"organization_id": f.OrganizationID}).
		OrderBy("transaction_date DESC, id DESC")

	if f.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *f.ProductID})
	}
	if f.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *f.WarehouseID})
	}
	if f.Type != nil {
		q = q.Where(squirrel.Eq{"transaction_type": *f.Type})
	}
	if f.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"transaction_date": *f.FromDate})
	}
	if f.ToDate != nil {
		q = q.Where(squirrel.Lt{"transaction_date": *f.ToDate})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var txns []valuation.COGSTransaction
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &txns, sql, args...); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return txns, nil
}

// ValueOnHand aggregates open layer value per (product, warehouse).
func (r *Repo) ValueOnHand(ctx context.Context, organizationID string, warehouseID *id.ID) ([]valuation.ProductValue, error) {
	q := r.builder.Select(
		"product_id",
		"warehouse_id",
		"SUM(quantity_remaining) AS quantity",
		"SUM((quantity_remaining::numeric / 10000) * unit_cost) AS value",
		"COUNT(*) AS layer_count",
	).
		From(layersTable).
		Where(squirrel.Eq{"organization_id": organizationID}).
		Where(squirrel.Gt{"quantity_remaining": int64(0)}).
		GroupBy("product_id", "warehouse_id").
		OrderBy("product_id", "warehouse_id")

	if warehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *warehouseID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var values []valuation.ProductValue
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &values, sql, args...); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return values, nil
}

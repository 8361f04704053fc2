// Package alert_repo provides the PostgreSQL implementation of the alert
// cache.
package alert_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockforge/internal/core/id"
	"stockforge/internal/domain/alerts"
	"stockforge/internal/infrastructure/storage/postgres"
)

const alertsTable = "stock_alerts"

var alertColumns = []string{
	"id", "organization_id", "product_id", "warehouse_id",
	"alert_type", "severity", "available", "reorder_point",
	"is_resolved", "raised_at", "resolved_at",
}

// Repo implements alerts.Repository.
type Repo struct {
	builder   squirrel.StatementBuilderType
	txManager *postgres.TxManager
}

// NewRepo creates a new alert repository.
func NewRepo(txManager *postgres.TxManager) *Repo {
	return &Repo{
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		txManager: txManager,
	}
}

var _ alerts.Repository = (*Repo)(nil)

// GetActive returns the unresolved alert of a pair, or nil.
func (r *Repo) GetActive(ctx context.Context, organizationID string, productID, warehouseID id.ID) (*alerts.StockAlert, error) {
	q := r.builder.Select(alertColumns...).
		From(alertsTable).
		Where(squirrel.Eq{
			"organization_id": organizationID,
			"product_id":      productID,
			"warehouse_id":    warehouseID,
			"is_resolved":     false,
		}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var alert alerts.StockAlert
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &alert, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, postgres.TranslateError(err)
	}
	return &alert, nil
}

// Create persists a new alert.
func (r *Repo) Create(ctx context.Context, alert *alerts.StockAlert) error {
	q := r.builder.Insert(alertsTable).
		Columns(alertColumns...).
		Values(
			alert.ID, alert.OrganizationID, alert.ProductID, alert.WarehouseID,
			alert.Type, alert.Severity, alert.Available, alert.ReorderPoint,
			alert.IsResolved, alert.RaisedAt, alert.ResolvedAt,
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

// Update persists state changes of an existing alert.
func (r *Repo) Update(ctx context.Context, alert *alerts.StockAlert) error {
	q := r.builder.Update(alertsTable).
		Set("alert_type", alert.Type).
		Set("severity", alert.Severity).
		Set("available", alert.Available).
		Set("reorder_point", alert.ReorderPoint).
		Where(squirrel.Eq{"id": alert.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(err)
	}
	return nil
}

// Resolve marks the active alert of a pair resolved.
func (r *Repo) Resolve(ctx context.Context, organizationID string, productID, warehouseID id.ID) error {
	q := r.builder.Update(alertsTable).
		Set("is_resolved", true).
		Set("resolved_at", time.Now().UTC()).
		Where(squirrel.Eq{
			"organization_id": organizationID,
			"product_id":      productID,
			"warehouse_id":    warehouseID,
			"is_resolved":     false,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(err)
	}
	return nil
}

// ListActive returns unresolved alerts in scope, most severe first.
func (r *Repo) ListActive(ctx context.Context, organizationID string) ([]*alerts.StockAlert, error) {
	q := r.builder.Select(alertColumns...).
		From(alertsTable).
		Where(squirrel.Eq{
			"organization_id": organizationID,
			"is_resolved":     false,
		}).
		OrderBy("severity ASC, raised_at DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*alerts.StockAlert
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return out, nil
}

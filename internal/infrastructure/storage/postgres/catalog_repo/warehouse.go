package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/id"
	"stockforge/internal/domain/catalogs/warehouse"
	"stockforge/internal/domain/filter"
	"stockforge/internal/infrastructure/storage/postgres"
)

const (
	warehousesTable = "cat_warehouses"
	locationsTable  = "cat_locations"
)

var warehouseColumns = []string{
	"id", "organization_id", "code", "name", "address", "is_active",
	"version", "created_at", "updated_at",
}

var locationColumns = []string{
	"id", "warehouse_id", "code", "name",
	"version", "created_at", "updated_at",
}

// WarehouseRepo implements warehouse.Repository.
type WarehouseRepo struct {
	builder   squirrel.StatementBuilderType
	txManager *postgres.TxManager
	validCols map[string]bool
}

// NewWarehouseRepo creates a new warehouse repository.
func NewWarehouseRepo(txManager *postgres.TxManager) *WarehouseRepo {
	return &WarehouseRepo{
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		txManager: txManager,
		validCols: columnSet(warehouseColumns),
	}
}

var _ warehouse.Repository = (*WarehouseRepo)(nil)

// Create persists a new warehouse.
func (r *WarehouseRepo) Create(ctx context.Context, w *warehouse.Warehouse) error {
	q := r.builder.Insert(warehousesTable).
		Columns(warehouseColumns...).
		Values(
			w.ID, w.OrganizationID, w.Code, w.Name, w.Address, w.IsActive,
			w.Version, w.CreatedAt, w.UpdatedAt,
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

// GetByID retrieves a warehouse by primary key.
func (r *WarehouseRepo) GetByID(ctx context.Context, warehouseID id.ID) (*warehouse.Warehouse, error) {
	q := r.builder.Select(warehouseColumns...).
		From(warehousesTable).
		Where(squirrel.Eq{"id": warehouseID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var w warehouse.Warehouse
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &w, sql, args...); err != nil {
		return nil, postgres.NotFoundOrError(err, "warehouse", warehouseID)
	}
	return &w, nil
}

// Update persists warehouse changes with an optimistic version check.
func (r *WarehouseRepo) Update(ctx context.Context, w *warehouse.Warehouse) error {
	q := r.builder.Update(warehousesTable).
		Set("name", w.Name).
		Set("address", w.Address).
		Set("is_active", w.IsActive).
		Set("version", w.Version).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": w.ID}).
		Where(squirrel.Eq{"version": w.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("warehouse", w.ID)
	}
	return nil
}

// List returns warehouses of an organization matching the filter spec.
func (r *WarehouseRepo) List(ctx context.Context, organizationID string, spec filter.Spec) ([]*warehouse.Warehouse, error) {
	q := r.builder.Select(warehouseColumns...).
		From(warehousesTable).
		Where(squirrel.Eq{"organization_id": organizationID})

	q, err := applyFilters(q, spec, r.validCols)
	if err != nil {
		return nil, err
	}
	if spec.OrderBy == "" {
		q = q.OrderBy("code ASC")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*warehouse.Warehouse
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return out, nil
}

// CreateLocation persists a new location.
func (r *WarehouseRepo) CreateLocation(ctx context.Context, l *warehouse.Location) error {
	q := r.builder.Insert(locationsTable).
		Columns(locationColumns...).
		Values(l.ID, l.WarehouseID, l.Code, l.Name, l.Version, l.CreatedAt, l.UpdatedAt)

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

// GetLocation retrieves a location by primary key.
func (r *WarehouseRepo) GetLocation(ctx context.Context, locationID id.ID) (*warehouse.Location, error) {
	q := r.builder.Select(locationColumns...).
		From(locationsTable).
		Where(squirrel.Eq{"id": locationID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var l warehouse.Location
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &l, sql, args...); err != nil {
		return nil, postgres.NotFoundOrError(err, "location", locationID)
	}
	return &l, nil
}

// ListLocations returns the locations of a warehouse.
func (r *WarehouseRepo) ListLocations(ctx context.Context, warehouseID id.ID) ([]*warehouse.Location, error) {
	q := r.builder.Select(locationColumns...).
		From(locationsTable).
		Where(squirrel.Eq{"warehouse_id": warehouseID}).
		OrderBy("code ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*warehouse.Location
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return out, nil
}

package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/id"
	"stockforge/internal/domain/catalogs/product"
	"stockforge/internal/domain/filter"
	"stockforge/internal/infrastructure/storage/postgres"
)

const productsTable = "cat_products"

var productColumns = []string{
	"id", "organization_id", "code", "name", "sku",
	"reorder_point", "reorder_quantity", "costing_method", "is_active",
	"version", "created_at", "updated_at",
}

// ProductRepo implements product.Repository.
type ProductRepo struct {
	builder   squirrel.StatementBuilderType
	txManager *postgres.TxManager
	validCols map[string]bool
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		txManager: txManager,
		validCols: columnSet(productColumns),
	}
}

var _ product.Repository = (*ProductRepo)(nil)

// Create persists a new product.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	q := r.builder.Insert(productsTable).
		Columns(productColumns...).
		Values(
			p.ID, p.OrganizationID, p.Code, p.Name, p.SKU,
			p.ReorderPoint, p.ReorderQuantity, p.CostingMethod, p.IsActive,
			p.Version, p.CreatedAt, p.UpdatedAt,
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

// GetByID retrieves a product by primary key.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		return nil, postgres.NotFoundOrError(err, "product", productID)
	}
	return &p, nil
}

// GetByCode retrieves a product by its code within an organization.
func (r *ProductRepo) GetByCode(ctx context.Context, organizationID, code string) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{
			"organization_id": organizationID,
			"code":            code,
		}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		return nil, postgres.NotFoundOrError(err, "product", code)
	}
	return &p, nil
}

// Update persists product changes with an optimistic version check.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	q := r.builder.Update(productsTable).
		Set("name", p.Name).
		Set("sku", p.SKU).
		Set("reorder_point", p.ReorderPoint).
		Set("reorder_quantity", p.ReorderQuantity).
		Set("costing_method", p.CostingMethod).
		Set("is_active", p.IsActive).
		Set("version", p.Version).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": p.ID}).
		Where(squirrel.Eq{"version": p.Version - 1})

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
		return apperror.NewConcurrentModification("product", p.ID)
	}
	return nil
}

// List returns products of an organization matching the filter spec.
func (r *ProductRepo) List(ctx context.Context, organizationID string, spec filter.Spec) ([]*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
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

	var out []*product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return out, nil
}

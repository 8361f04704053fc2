// Package adjustment_repo provides the PostgreSQL implementation of the
// adjustment document store.
package adjustment_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/id"
	"stockforge/internal/domain/adjustment"
	"stockforge/internal/infrastructure/storage/postgres"
)

const (
	headersTable = "stock_adjustments"
	linesTable   = "stock_adjustment_lines"
)

var headerColumns = []string{
	"id", "number", "organization_id", "warehouse_id", "status",
	"reason", "notes", "counted_by", "counted_at",
	"confirmed_by", "confirmed_at",
	"version", "created_at", "updated_at",
}

var lineColumns = []string{
	"id", "adjustment_id", "product_id", "location_id",
	"system_quantity", "counted_quantity", "difference", "notes",
}

// Repo implements adjustment.Repository.
type Repo struct {
	builder   squirrel.StatementBuilderType
	txManager *postgres.TxManager
}

// NewRepo creates a new adjustment repository.
func NewRepo(txManager *postgres.TxManager) *Repo {
	return &Repo{
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		txManager: txManager,
	}
}

var _ adjustment.Repository = (*Repo)(nil)

// Create persists the document with its lines.
func (r *Repo) Create(ctx context.Context, adj *adjustment.StockAdjustment) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.builder.Insert(headersTable).
			Columns(headerColumns...).
			Values(
				adj.ID, adj.Number, adj.OrganizationID, adj.WarehouseID, adj.Status,
				adj.Reason, adj.Notes, adj.CountedBy, adj.CountedAt,
				adj.ConfirmedBy, adj.ConfirmedAt,
				adj.Version, adj.CreatedAt, adj.UpdatedAt,
			)

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}

		querier := r.txManager.GetQuerier(ctx)
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return postgres.TranslateError(err)
		}

		return r.insertLines(ctx, adj)
	})
}

// insertLines bulk-inserts lines with COPY. Count sheets for a full
// warehouse can carry thousands of lines.
func (r *Repo) insertLines(ctx context.Context, adj *adjustment.StockAdjustment) error {
	if len(adj.Lines) == 0 {
		return nil
	}

	inserter := postgres.NewBatchInserter(r.txManager)
	rows := make([][]any, 0, len(adj.Lines))
	for _, line := range adj.Lines {
		rows = append(rows, []any{
			line.ID, line.AdjustmentID, line.ProductID, line.LocationID,
			line.SystemQuantity, line.CountedQuantity, line.Difference, line.Notes,
		})
	}
	if _, err := inserter.CopyFromSlice(ctx, linesTable, lineColumns, rows); err != nil {
		return postgres.TranslateError(fmt.Errorf("copy lines: %w", err))
	}
	return nil
}

// GetByID loads the document with lines.
func (r *Repo) GetByID(ctx context.Context, adjustmentID id.ID) (*adjustment.StockAdjustment, error) {
	return r.get(ctx, adjustmentID, false)
}

// GetByIDForUpdate loads the document with a row lock on the header.
func (r *Repo) GetByIDForUpdate(ctx context.Context, adjustmentID id.ID) (*adjustment.StockAdjustment, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetByIDForUpdate requires transaction context")
	}
	return r.get(ctx, adjustmentID, true)
}

func (r *Repo) get(ctx context.Context, adjustmentID id.ID, forUpdate bool) (*adjustment.StockAdjustment, error) {
	q := r.builder.Select(headerColumns...).
		From(headersTable).
		Where(squirrel.Eq{"id": adjustmentID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var adj adjustment.StockAdjustment
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &adj, sql, args...); err != nil {
		return nil, postgres.NotFoundOrError(err, "stock_adjustment", adjustmentID)
	}

	lines, err := r.listLines(ctx, adjustmentID)
	if err != nil {
		return nil, err
	}
	adj.Lines = lines
	return &adj, nil
}

func (r *Repo) listLines(ctx context.Context, adjustmentID id.ID) ([]adjustment.Line, error) {
	q := r.builder.Select(lineColumns...).
		From(linesTable).
		Where(squirrel.Eq{"adjustment_id": adjustmentID}).
		OrderBy("product_id", "location_id NULLS FIRST")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []adjustment.Line
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return lines, nil
}

// Update replaces the header fields and lines of a draft, guarded by an
// optimistic version check.
func (r *Repo) Update(ctx context.Context, adj *adjustment.StockAdjustment) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.builder.Update(headersTable).
			Set("reason", adj.Reason).
			Set("notes", adj.Notes).
			Set("version", adj.Version).
			Set("updated_at", adj.UpdatedAt).
			Where(squirrel.Eq{"id": adj.ID}).
			Where(squirrel.Eq{"status": adjustment.StatusDraft}).
			Where(squirrel.Eq{"version": adj.Version - 1})

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
			return apperror.NewConcurrentModification("stock_adjustment", adj.ID)
		}

		del := r.builder.Delete(linesTable).Where(squirrel.Eq{"adjustment_id": adj.ID})
		sql, args, err = del.ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return postgres.TranslateError(err)
		}

		return r.insertLines(ctx, adj)
	})
}

// SetStatus transitions the document state.
func (r *Repo) SetStatus(ctx context.Context, adjustmentID id.ID, status adjustment.Status, by *string, at *time.Time) error {
	q := r.builder.Update(headersTable).
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": adjustmentID})
	if status == adjustment.StatusConfirmed {
		q = q.Set("confirmed_by", by).Set("confirmed_at", at)
	}

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
		return apperror.NewNotFound("stock_adjustment", adjustmentID)
	}
	return nil
}

// List returns document headers matching the filter, newest first.
func (r *Repo) List(ctx context.Context, f adjustment.Filter) ([]*adjustment.StockAdjustment, error) {
	q := r.builder.Select(headerColumns...).
		From(headersTable).
		Where(squirrel.Eq{"organization_id": f.OrganizationID}).
		OrderBy("counted_at DESC, id DESC")

	if f.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *f.WarehouseID})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"counted_at": *f.FromDate})
	}
	if f.ToDate != nil {
		q = q.Where(squirrel.Lt{"counted_at": *f.ToDate})
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

	var docs []*adjustment.StockAdjustment
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &docs, sql, args...); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return docs, nil
}

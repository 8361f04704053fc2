package adjustment

import (
	"context"
	"time"

	"stockforge/internal/core/id"
)

// Repository defines persistence for adjustment documents.
type Repository interface {
	// Create persists the document with its lines.
	Create(ctx context.Context, adj *StockAdjustment) error

	// GetByID loads the document with lines, or a NotFound error.
	GetByID(ctx context.Context, adjustmentID id.ID) (*StockAdjustment, error)

	// GetByIDForUpdate is GetByID with a row lock on the header. Must run
	// within a transaction; it serializes confirmation per document.
	GetByIDForUpdate(ctx context.Context, adjustmentID id.ID) (*StockAdjustment, error)

	// Update replaces the header and lines of a draft document, with an
	// optimistic version check.
	Update(ctx context.Context, adj *StockAdjustment) error

	// SetStatus transitions the document state.
	SetStatus(ctx context.Context, adjustmentID id.ID, status Status, by *string, at *time.Time) error

	// List returns document headers matching the filter, newest first.
	List(ctx context.Context, f Filter) ([]*StockAdjustment, error)
}

// Filter selects adjustment documents.
type Filter struct {
	OrganizationID string
	WarehouseID    *id.ID
	Status         *Status
	FromDate       *time.Time
	ToDate         *time.Time
	Limit          int
	Offset         int
}

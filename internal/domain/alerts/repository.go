package alerts

import (
	"context"

	"stockforge/internal/core/id"
)

// Repository persists the alert cache.
type Repository interface {
	// GetActive returns the unresolved alert for a pair, or nil.
	GetActive(ctx context.Context, organizationID string, productID, warehouseID id.ID) (*StockAlert, error)

	// Create persists a new alert.
	Create(ctx context.Context, alert *StockAlert) error

	// Update persists severity/type/availability changes on an existing alert.
	Update(ctx context.Context, alert *StockAlert) error

	// Resolve marks the active alert of a pair resolved. No-op when none.
	Resolve(ctx context.Context, organizationID string, productID, warehouseID id.ID) error

	// ListActive returns all unresolved alerts in scope.
	ListActive(ctx context.Context, organizationID string) ([]*StockAlert, error)
}

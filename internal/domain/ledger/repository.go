package ledger

import (
	"context"

	"stockforge/internal/core/id"
)

// Repository defines operations for the stock ledger.
type Repository interface {
	// Get returns the ledger row for a key, or nil if absent.
	Get(ctx context.Context, key Key) (*StockLevel, error)

	// GetForUpdate returns the row with a pessimistic lock, creating a
	// zero-quantity row first if absent. Must be called within a
	// transaction.
	GetForUpdate(ctx context.Context, key Key) (*StockLevel, error)

	// ApplyDelta upserts the row and increments its quantities in a single
	// atomic statement, so concurrent writers never lose updates.
	ApplyDelta(ctx context.Context, delta Delta) error

	// ListByWarehouse returns all rows of a warehouse.
	ListByWarehouse(ctx context.Context, organizationID string, warehouseID id.ID) ([]StockLevel, error)

	// ListByOrganization returns all rows in scope. Used by the alert sweep.
	ListByOrganization(ctx context.Context, organizationID string) ([]StockLevel, error)
}

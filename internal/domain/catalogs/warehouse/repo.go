package warehouse

import (
	"context"

	"stockforge/internal/core/id"
	"stockforge/internal/domain/filter"
)

// Repository defines the interface for Warehouse persistence.
type Repository interface {
	Create(ctx context.Context, w *Warehouse) error
	GetByID(ctx context.Context, warehouseID id.ID) (*Warehouse, error)
	Update(ctx context.Context, w *Warehouse) error
	List(ctx context.Context, organizationID string, spec filter.Spec) ([]*Warehouse, error)

	// Locations
	CreateLocation(ctx context.Context, l *Location) error
	GetLocation(ctx context.Context, locationID id.ID) (*Location, error)
	ListLocations(ctx context.Context, warehouseID id.ID) ([]*Location, error)
}

// Package warehouse provides the Warehouse catalog and its locations.
// Warehouses are referenced, never owned, by ledger and layer rows.
package warehouse

import (
	"context"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/entity"
	"stockforge/internal/core/id"
)

// Warehouse represents a storage site.
type Warehouse struct {
	entity.BaseEntity

	OrganizationID string `db:"organization_id" json:"organizationId"`

	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`

	// Address is the physical address
	Address *string `db:"address" json:"address,omitempty"`

	// IsActive indicates if warehouse is operational
	IsActive bool `db:"is_active" json:"isActive"`
}

// Location is an optional sub-division of a warehouse (zone, rack, bin).
// Ledger rows may reference a location or apply to the warehouse as a whole.
type Location struct {
	entity.BaseEntity

	WarehouseID id.ID  `db:"warehouse_id" json:"warehouseId"`
	Code        string `db:"code" json:"code"`
	Name        string `db:"name" json:"name"`
}

// NewWarehouse creates a new Warehouse with required fields.
func NewWarehouse(organizationID, code, name string) *Warehouse {
	return &Warehouse{
		BaseEntity:     entity.NewBaseEntity(),
		OrganizationID: organizationID,
		Code:           code,
		Name:           name,
		IsActive:       true,
	}
}

// NewLocation creates a new Location under a warehouse.
func NewLocation(warehouseID id.ID, code, name string) *Location {
	return &Location{
		BaseEntity:  entity.NewBaseEntity(),
		WarehouseID: warehouseID,
		Code:        code,
		Name:        name,
	}
}

// Validate implements entity.Validatable.
func (w *Warehouse) Validate(ctx context.Context) error {
	if w.OrganizationID == "" {
		return apperror.NewValidation("organization is required").
			WithDetail("field", "organizationId")
	}
	if w.Code == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}
	if w.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}

// Validate implements entity.Validatable.
func (l *Location) Validate(ctx context.Context) error {
	if id.IsNil(l.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if l.Code == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}
	return nil
}

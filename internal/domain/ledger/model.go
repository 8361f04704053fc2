// Package ledger provides the authoritative on-hand/reserved stock record
// per (product, warehouse, location).
package ledger

import (
	"time"

	"stockforge/internal/core/id"
	"stockforge/internal/core/types"
)

// StockLevel is one ledger row. Rows are created lazily on first receipt or
// adjustment and never deleted while referenced by history.
type StockLevel struct {
	OrganizationID string `db:"organization_id" json:"organizationId"`

	// Dimensions. LocationID is nil for warehouse-wide rows.
	ProductID   id.ID  `db:"product_id" json:"productId"`
	WarehouseID id.ID  `db:"warehouse_id" json:"warehouseId"`
	LocationID  *id.ID `db:"location_id" json:"locationId,omitempty"`

	// Resources
	QuantityOnHand   types.Quantity `db:"quantity_on_hand" json:"quantityOnHand"`
	QuantityReserved types.Quantity `db:"quantity_reserved" json:"quantityReserved"`

	// Physical count metadata
	LastCountedAt *time.Time `db:"last_counted_at" json:"lastCountedAt,omitempty"`
	LastCountedBy *string    `db:"last_counted_by" json:"lastCountedBy,omitempty"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Available returns on-hand minus reserved. Always derived, never stored.
func (s StockLevel) Available() types.Quantity {
	return s.QuantityOnHand - s.QuantityReserved
}

// Key identifies a ledger row.
type Key struct {
	OrganizationID string
	ProductID      id.ID
	WarehouseID    id.ID
	LocationID     *id.ID // nil means the warehouse-wide row
}

// Delta is one atomic increment against a ledger row.
type Delta struct {
	Key Key

	OnHand   types.Quantity
	Reserved types.Quantity

	// CountStamp, when set, records who performed a physical count along
	// with the delta (adjustment confirmations).
	CountStamp *CountStamp
}

// CountStamp carries physical count metadata applied with a delta.
type CountStamp struct {
	CountedAt time.Time
	CountedBy string
}

// Availability is the read model returned to callers.
type Availability struct {
	OnHand    types.Quantity `json:"onHand"`
	Reserved  types.Quantity `json:"reserved"`
	Available types.Quantity `json:"available"`
}

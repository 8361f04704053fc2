// Package adjustment provides physical count reconciliation: a draft count
// sheet is filled with counted quantities, then confirmed in one shot,
// pushing the differences into the stock ledger.
package adjustment

import (
	"context"
	"time"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/entity"
	"stockforge/internal/core/id"
	"stockforge/internal/core/types"
)

// Status is the adjustment document lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// IsValid checks the status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusCancelled:
		return true
	default:
		return false
	}
}

// StockAdjustment is a physical count document. Drafts are editable;
// confirmation applies line differences to the ledger and freezes the
// document. Confirmed documents are immutable.
type StockAdjustment struct {
	entity.BaseEntity

	// Number is the human-readable document number (e.g. ADJ-2026-00042),
	// assigned at creation.
	Number string `db:"number" json:"number"`

	OrganizationID string `db:"organization_id" json:"organizationId"`
	WarehouseID    id.ID  `db:"warehouse_id" json:"warehouseId"`

	Status Status `db:"status" json:"status"`

	Reason string `db:"reason" json:"reason,omitempty"`
	Notes  string `db:"notes" json:"notes,omitempty"`

	// CountedBy identifies who performed the physical count.
	CountedBy string    `db:"counted_by" json:"countedBy"`
	CountedAt time.Time `db:"counted_at" json:"countedAt"`

	ConfirmedBy *string    `db:"confirmed_by" json:"confirmedBy,omitempty"`
	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmedAt,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one product's counted quantity against the system quantity at
// count time. Difference is stored, not derived at read time, so the
// document stays meaningful after later stock movements.
type Line struct {
	ID           id.ID `db:"id" json:"id"`
	AdjustmentID id.ID `db:"adjustment_id" json:"adjustmentId"`

	ProductID  id.ID  `db:"product_id" json:"productId"`
	LocationID *id.ID `db:"location_id" json:"locationId,omitempty"`

	SystemQuantity  types.Quantity `db:"system_quantity" json:"systemQuantity"`
	CountedQuantity types.Quantity `db:"counted_quantity" json:"countedQuantity"`
	Difference      types.Quantity `db:"difference" json:"difference"`

	Notes string `db:"notes" json:"notes,omitempty"`
}

// NewAdjustment creates a draft document.
func NewAdjustment(organizationID string, warehouseID id.ID, countedBy string, countedAt time.Time) *StockAdjustment {
	if countedAt.IsZero() {
		countedAt = time.Now().UTC()
	}
	return &StockAdjustment{
		BaseEntity:     entity.NewBaseEntity(),
		OrganizationID: organizationID,
		WarehouseID:    warehouseID,
		Status:         StatusDraft,
		CountedBy:      countedBy,
		CountedAt:      countedAt,
	}
}

// NewLine creates a line, computing the difference.
func NewLine(adjustmentID, productID id.ID, locationID *id.ID, system, counted types.Quantity) Line {
	return Line{
		ID:              id.New(),
		AdjustmentID:    adjustmentID,
		ProductID:       productID,
		LocationID:      locationID,
		SystemQuantity:  system,
		CountedQuantity: counted,
		Difference:      counted - system,
	}
}

// IsDraft reports whether the document is still editable.
func (a *StockAdjustment) IsDraft() bool {
	return a.Status == StatusDraft
}

// Validate implements entity.Validatable.
func (a *StockAdjustment) Validate(ctx context.Context) error {
	if a.OrganizationID == "" {
		return apperror.NewValidation("organization is required").
			WithDetail("field", "organizationId")
	}
	if id.IsNil(a.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if a.CountedBy == "" {
		return apperror.NewValidation("counted by is required").
			WithDetail("field", "countedBy")
	}
	if !a.Status.IsValid() {
		return apperror.NewValidation("invalid status").
			WithDetail("value", string(a.Status))
	}

	seen := make(map[lineKey]struct{}, len(a.Lines))
	for i, line := range a.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("line product is required").
				WithDetail("line", i)
		}
		if line.CountedQuantity.IsNegative() {
			return apperror.NewValidation("counted quantity cannot be negative").
				WithDetail("line", i).
				WithDetail("value", line.CountedQuantity.String())
		}
		k := lineKey{product: line.ProductID}
		if line.LocationID != nil {
			k.location = *line.LocationID
		}
		if _, dup := seen[k]; dup {
			return apperror.NewValidation("duplicate line for product").
				WithDetail("line", i).
				WithDetail("productId", line.ProductID.String())
		}
		seen[k] = struct{}{}
	}
	return nil
}

type lineKey struct {
	product  id.ID
	location id.ID
}

// Package alerts derives low-stock conditions from the ledger and
// per-product reorder thresholds. The evaluator itself is a pure read;
// persisted StockAlert rows are a cache the sweep refreshes.
package alerts

import (
	"time"

	"stockforge/internal/core/id"
	"stockforge/internal/core/types"
)

// AlertType classifies the condition.
type AlertType string

const (
	TypeLowStock   AlertType = "low_stock"
	TypeOutOfStock AlertType = "out_of_stock"
)

// Severity ranks the condition.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// StockAlert is a persisted, derived fact. The ledger stays the source of
// truth; alerts exist so dashboards and notifiers do not re-run the sweep.
type StockAlert struct {
	ID id.ID `db:"id" json:"id"`

	OrganizationID string `db:"organization_id" json:"organizationId"`
	ProductID      id.ID  `db:"product_id" json:"productId"`
	WarehouseID    id.ID  `db:"warehouse_id" json:"warehouseId"`

	Type     AlertType `db:"alert_type" json:"alertType"`
	Severity Severity  `db:"severity" json:"severity"`

	Available    types.Quantity `db:"available" json:"available"`
	ReorderPoint types.Quantity `db:"reorder_point" json:"reorderPoint"`

	IsResolved bool       `db:"is_resolved" json:"isResolved"`
	RaisedAt   time.Time  `db:"raised_at" json:"raisedAt"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolvedAt,omitempty"`
}

// ReorderSuggestion is one row of the at-risk report.
type ReorderSuggestion struct {
	ProductID   id.ID  `json:"productId"`
	ProductCode string `json:"productCode"`
	ProductName string `json:"productName"`
	WarehouseID id.ID  `json:"warehouseId"`

	Available    types.Quantity `json:"available"`
	ReorderPoint types.Quantity `json:"reorderPoint"`

	// SuggestedQuantity restocks to twice the reorder point, rounded up to
	// whole units.
	SuggestedQuantity types.Quantity `json:"suggestedQuantity"`
}

package valuation

import (
	"context"
	"time"

	"stockforge/internal/core/id"
	"stockforge/internal/core/types"
	"stockforge/internal/domain/valuation/method"
)

// Repository defines persistence for layers and COGS transactions.
type Repository interface {
	// CreateLayer appends a new layer. Layers are never deleted.
	CreateLayer(ctx context.Context, layer *Layer) error

	// GetLayer retrieves one layer.
	GetLayer(ctx context.Context, layerID id.ID) (*Layer, error)

	// ListOpenLayers returns layers with quantity_remaining > 0 ordered by
	// receipt_date (ascending for FIFO, descending for LIFO). Ties in
	// receipt_date are broken by id (UUIDv7, so insertion order). The
	// ordering is load-bearing: it must be deterministic.
	ListOpenLayers(ctx context.Context, organizationID string, productID, warehouseID id.ID, m method.Method) ([]*Layer, error)

	// ListOpenLayersForUpdate is ListOpenLayers with an exclusive row lock
	// over the candidate layers. Must run within a transaction; this lock
	// is what serializes consumption per (product, warehouse).
	ListOpenLayersForUpdate(ctx context.Context, organizationID string, productID, warehouseID id.ID, m method.Method) ([]*Layer, error)

	// UpdateLayerRemaining persists quantity_remaining, is_consumed and
	// updated_at for the given layers. All other columns are immutable.
	UpdateLayerRemaining(ctx context.Context, layers []*Layer) error

	// ListLayers returns the full layer history of a pair.
	ListLayers(ctx context.Context, organizationID string, productID, warehouseID id.ID) ([]*Layer, error)

	// CreateCOGS appends one immutable COGS transaction.
	CreateCOGS(ctx context.Context, txn *COGSTransaction) error

	// ListCOGS returns COGS transactions matching the filter.
	ListCOGS(ctx context.Context, f COGSFilter) ([]COGSTransaction, error)

	// ValueOnHand sums quantity_remaining x unit_cost over open layers,
	// grouped by product, for the valuation report.
	ValueOnHand(ctx context.Context, organizationID string, warehouseID *id.ID) ([]ProductValue, error)
}

// COGSFilter selects COGS transactions.
type COGSFilter struct {
	OrganizationID string
	ProductID      *id.ID
	WarehouseID    *id.ID
	Type           *TransactionType
	FromDate       *time.Time
	ToDate         *time.Time
	Limit          int
	Offset         int
}

// ProductValue is one row of the on-hand valuation report, grouped by
// (product, warehouse).
type ProductValue struct {
	ProductID   id.ID          `db:"product_id" json:"productId"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	Value       types.Money    `db:"value" json:"value"`
	LayerCount  int            `db:"layer_count" json:"layerCount"`
}

// Package valuation provides the cost layer store and the FIFO/LIFO
// consumption engine. Layers are the append-only cost history of a
// (product, warehouse) pair; consuming stock drains them in method order and
// produces a COGS transaction.
package valuation

import (
	"context"
	"time"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/id"
	"stockforge/internal/core/types"
	"stockforge/internal/domain/valuation/method"
)

// Layer is one receipt's remaining quantity at a unit cost.
//
// QuantityReceived, UnitCost and TotalCost are immutable once created.
// QuantityRemaining only ever decreases; IsConsumed is true exactly when it
// reaches zero. Layers are never deleted.
type Layer struct {
	ID id.ID `db:"id" json:"id"`

	OrganizationID string `db:"organization_id" json:"organizationId"`
	ProductID      id.ID  `db:"product_id" json:"productId"`
	WarehouseID    id.ID  `db:"warehouse_id" json:"warehouseId"`

	ReceiptDate       time.Time      `db:"receipt_date" json:"receiptDate"`
	QuantityReceived  types.Quantity `db:"quantity_received" json:"quantityReceived"`
	QuantityRemaining types.Quantity `db:"quantity_remaining" json:"quantityRemaining"`
	UnitCost          types.Money    `db:"unit_cost" json:"unitCost"`
	TotalCost         types.Money    `db:"total_cost" json:"totalCost"`
	IsConsumed        bool           `db:"is_consumed" json:"isConsumed"`

	Reference string `db:"reference" json:"reference,omitempty"`
	Notes     string `db:"notes" json:"notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewLayer creates a layer for a receipt.
func NewLayer(organizationID string, productID, warehouseID id.ID, qty types.Quantity, unitCost types.Money, receiptDate time.Time, reference string) *Layer {
	now := time.Now().UTC()
	if receiptDate.IsZero() {
		receiptDate = now
	}
	return &Layer{
		ID:                id.New(),
		OrganizationID:    organizationID,
		ProductID:         productID,
		WarehouseID:       warehouseID,
		ReceiptDate:       receiptDate,
		QuantityReceived:  qty,
		QuantityRemaining: qty,
		UnitCost:          unitCost,
		TotalCost:         qty.Decimal().Mul(unitCost),
		Reference:         reference,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// TransactionType classifies a consumption event.
type TransactionType string

const (
	TypeSale          TransactionType = "sale"
	TypeTransfer      TransactionType = "transfer"
	TypeScrap         TransactionType = "scrap"
	TypeManufacturing TransactionType = "manufacturing"
)

// IsValid checks the transaction type.
func (t TransactionType) IsValid() bool {
	switch t {
	case TypeSale, TypeTransfer, TypeScrap, TypeManufacturing:
		return true
	default:
		return false
	}
}

// COGSTransaction is the immutable record of one consumption event.
type COGSTransaction struct {
	ID id.ID `db:"id" json:"id"`

	OrganizationID string `db:"organization_id" json:"organizationId"`
	ProductID      id.ID  `db:"product_id" json:"productId"`
	WarehouseID    id.ID  `db:"warehouse_id" json:"warehouseId"`

	TransactionType TransactionType `db:"transaction_type" json:"transactionType"`
	TransactionDate time.Time       `db:"transaction_date" json:"transactionDate"`
	ReferenceID     *id.ID          `db:"reference_id" json:"referenceId,omitempty"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`
	UnitCost types.Money    `db:"unit_cost" json:"unitCost"`

	TotalCost types.Money   `db:"total_cost" json:"totalCost"`
	Method    method.Method `db:"method" json:"method"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ConsumedLayer reports how much one layer contributed to a consumption.
type ConsumedLayer struct {
	LayerID  id.ID          `json:"layerId"`
	Quantity types.Quantity `json:"quantity"`
	UnitCost types.Money    `json:"unitCost"`
	Cost     types.Money    `json:"cost"`
}

// ConsumptionResult is the outcome of one Consume call.
//
// QuantityConsumed may be less than requested when open layers are
// insufficient; the engine under-fulfills silently and callers must check.
type ConsumptionResult struct {
	QuantityRequested types.Quantity  `json:"quantityRequested"`
	QuantityConsumed  types.Quantity  `json:"quantityConsumed"`
	TotalCost         types.Money     `json:"totalCost"`
	AverageUnitCost   types.Money     `json:"averageUnitCost"`
	Method            method.Method   `json:"method"`
	Layers            []ConsumedLayer `json:"layers"`
}

// Shortfall returns how much of the request could not be fulfilled.
func (r ConsumptionResult) Shortfall() types.Quantity {
	return r.QuantityRequested - r.QuantityConsumed
}

// ReceiveInput describes a receipt to record.
type ReceiveInput struct {
	OrganizationID string
	ProductID      id.ID
	WarehouseID    id.ID

	Quantity    types.Quantity
	UnitCost    types.Money
	ReceiptDate time.Time // zero value means now
	Reference   string
	Notes       string
}

// Validate checks the receipt invariants.
func (in ReceiveInput) Validate(ctx context.Context) error {
	if in.OrganizationID == "" {
		return apperror.NewValidation("organization is required").
			WithDetail("field", "organizationId")
	}
	if id.IsNil(in.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if id.IsNil(in.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if !in.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", in.Quantity.String())
	}
	if !in.UnitCost.IsPositive() {
		return apperror.NewValidation("unit cost must be positive").
			WithDetail("field", "unitCost").
			WithDetail("value", in.UnitCost.String())
	}
	return nil
}

// ConsumeInput describes a consumption request.
type ConsumeInput struct {
	OrganizationID string
	ProductID      id.ID
	WarehouseID    id.ID

	Quantity        types.Quantity
	Method          method.Method
	TransactionType TransactionType
	ReferenceID     *id.ID
	TransactionDate time.Time // zero value means now

	// FailOnShortage rejects the call with InsufficientStock instead of
	// silently under-fulfilling. Off by default to preserve the historical
	// contract.
	FailOnShortage bool
}

// Validate checks the consumption invariants. Zero quantity is allowed and
// short-circuits to an empty result in the service.
func (in ConsumeInput) Validate(ctx context.Context) error {
	if in.OrganizationID == "" {
		return apperror.NewValidation("organization is required").
			WithDetail("field", "organizationId")
	}
	if id.IsNil(in.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if id.IsNil(in.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if in.Quantity.IsNegative() {
		return apperror.NewValidation("quantity cannot be negative").
			WithDetail("field", "quantity").
			WithDetail("value", in.Quantity.String())
	}
	if !in.Method.IsValid() {
		return apperror.NewValidation("invalid valuation method").
			WithDetail("field", "method").
			WithDetail("value", string(in.Method))
	}
	if !in.TransactionType.IsValid() {
		return apperror.NewValidation("invalid transaction type").
			WithDetail("field", "transactionType").
			WithDetail("value", string(in.TransactionType))
	}
	return nil
}

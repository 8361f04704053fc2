// Package product provides the Product catalog.
// Products carry the per-item replenishment thresholds and the default
// costing method used by the valuation engine.
package product

import (
	"context"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/entity"
	"stockforge/internal/core/types"
	"stockforge/internal/domain/valuation/method"
)

// Product represents a stocked item.
type Product struct {
	entity.BaseEntity

	OrganizationID string `db:"organization_id" json:"organizationId"`

	// Code is the short unique code within the organization
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
	SKU  string `db:"sku" json:"sku,omitempty"`

	// ReorderPoint is the available-quantity threshold below which the
	// alert evaluator flags the product. Zero disables alerts.
	ReorderPoint types.Quantity `db:"reorder_point" json:"reorderPoint"`

	// ReorderQuantity is the preferred replenishment lot size.
	ReorderQuantity types.Quantity `db:"reorder_quantity" json:"reorderQuantity"`

	// CostingMethod is the default valuation method for consumptions.
	CostingMethod method.Method `db:"costing_method" json:"costingMethod"`

	IsActive bool `db:"is_active" json:"isActive"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(organizationID, code, name string) *Product {
	return &Product{
		BaseEntity:     entity.NewBaseEntity(),
		OrganizationID: organizationID,
		Code:           code,
		Name:           name,
		CostingMethod:  method.FIFO,
		IsActive:       true,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if p.OrganizationID == "" {
		return apperror.NewValidation("organization is required").
			WithDetail("field", "organizationId")
	}
	if p.Code == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}
	if p.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if !p.CostingMethod.IsValid() {
		return apperror.NewValidation("invalid costing method").
			WithDetail("field", "costingMethod").
			WithDetail("value", string(p.CostingMethod))
	}
	if p.ReorderPoint.IsNegative() || p.ReorderQuantity.IsNegative() {
		return apperror.NewValidation("reorder thresholds cannot be negative")
	}
	return nil
}

package dto

import (
	"stockforge/internal/core/types"
)

// --- Products ---

// CreateProductRequest creates a product.
type CreateProductRequest struct {
	Code            string         `json:"code" binding:"required"`
	Name            string         `json:"name" binding:"required"`
	SKU             string         `json:"sku"`
	CostingMethod   string         `json:"costingMethod"`
	ReorderPoint    types.Quantity `json:"reorderPoint"`
	ReorderQuantity types.Quantity `json:"reorderQuantity"`
}

// UpdateProductRequest updates mutable product fields.
type UpdateProductRequest struct {
	Name     *string `json:"name"`
	SKU      *string `json:"sku"`
	IsActive *bool   `json:"isActive"`
	Version  int     `json:"version" binding:"required,min=1"`
}

// SetThresholdsRequest updates replenishment thresholds.
type SetThresholdsRequest struct {
	ReorderPoint    types.Quantity `json:"reorderPoint"`
	ReorderQuantity types.Quantity `json:"reorderQuantity"`
}

// --- Warehouses ---

// CreateWarehouseRequest creates a warehouse.
type CreateWarehouseRequest struct {
	Code    string  `json:"code" binding:"required"`
	Name    string  `json:"name" binding:"required"`
	Address *string `json:"address"`
}

// UpdateWarehouseRequest updates mutable warehouse fields.
type UpdateWarehouseRequest struct {
	Name     *string `json:"name"`
	Address  *string `json:"address"`
	IsActive *bool   `json:"isActive"`
	Version  int     `json:"version" binding:"required,min=1"`
}

// CreateLocationRequest creates a location under a warehouse.
type CreateLocationRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name"`
}

package dto

import (
	"stockforge/internal/core/types"
)

// ReservationRequest reserves or releases stock against a ledger key.
type ReservationRequest struct {
	ProductID   string         `json:"productId" binding:"required"`
	WarehouseID string         `json:"warehouseId" binding:"required"`
	LocationID  *string        `json:"locationId"`
	Quantity    types.Quantity `json:"quantity" binding:"required"`
}

package dto

import (
	"time"

	"stockforge/internal/core/types"
)

// AdjustmentLineRequest is one counted line.
type AdjustmentLineRequest struct {
	ProductID       string         `json:"productId" binding:"required"`
	LocationID      *string        `json:"locationId"`
	CountedQuantity types.Quantity `json:"countedQuantity"`
	Notes           string         `json:"notes"`
}

// CreateAdjustmentRequest creates a draft count document.
type CreateAdjustmentRequest struct {
	WarehouseID string                  `json:"warehouseId" binding:"required"`
	CountedBy   string                  `json:"countedBy"`
	CountedAt   *time.Time              `json:"countedAt"`
	Reason      string                  `json:"reason"`
	Notes       string                  `json:"notes"`
	Lines       []AdjustmentLineRequest `json:"lines"`
}

// UpdateAdjustmentRequest edits a draft. Nil fields are left unchanged;
// a non-nil Lines replaces all lines.
type UpdateAdjustmentRequest struct {
	Reason *string                 `json:"reason"`
	Notes  *string                 `json:"notes"`
	Lines  []AdjustmentLineRequest `json:"lines"`
}

// ConfirmAdjustmentRequest confirms a draft.
type ConfirmAdjustmentRequest struct {
	ConfirmedBy string `json:"confirmedBy"`
}

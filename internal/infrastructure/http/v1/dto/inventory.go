package dto

import (
	"time"

	"stockforge/internal/core/types"
)

// ReceiveRequest records a goods receipt.
type ReceiveRequest struct {
	ProductID   string         `json:"productId" binding:"required"`
	WarehouseID string         `json:"warehouseId" binding:"required"`
	Quantity    types.Quantity `json:"quantity" binding:"required"`
	UnitCost    types.Money    `json:"unitCost" binding:"required"`
	ReceiptDate *time.Time     `json:"receiptDate"`
	Reference   string         `json:"reference"`
	Notes       string         `json:"notes"`
}

// ConsumeRequest drains open layers and records COGS.
type ConsumeRequest struct {
	ProductID       string         `json:"productId" binding:"required"`
	WarehouseID     string         `json:"warehouseId" binding:"required"`
	Quantity        types.Quantity `json:"quantity"`
	Method          string         `json:"method"`
	TransactionType string         `json:"transactionType" binding:"required"`
	ReferenceID     *string        `json:"referenceId"`
	TransactionDate *time.Time     `json:"transactionDate"`
	FailOnShortage  bool           `json:"failOnShortage"`
}

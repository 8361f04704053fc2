package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/id"
	"stockforge/internal/domain/adjustment"
	"stockforge/internal/infrastructure/http/v1/dto"
)

// AdjustmentHandler handles the physical count document lifecycle.
type AdjustmentHandler struct {
	*BaseHandler
	service *adjustment.Service
}

// NewAdjustmentHandler creates a new adjustment handler.
func NewAdjustmentHandler(base *BaseHandler, service *adjustment.Service) *AdjustmentHandler {
	return &AdjustmentHandler{BaseHandler: base, service: service}
}

// Create handles POST /adjustments
func (h *AdjustmentHandler) Create(c *gin.Context) {
	var req dto.CreateAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	warehouseID, err := id.Parse(req.WarehouseID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId format"))
		return
	}

	countedBy := req.CountedBy
	if countedBy == "" {
		countedBy = h.GetUserID(c)
	}

	in := adjustment.CreateInput{
		OrganizationID: h.OrgID(c),
		WarehouseID:    warehouseID,
		CountedBy:      countedBy,
		Reason:         req.Reason,
		Notes:          req.Notes,
	}
	if req.CountedAt != nil {
		in.CountedAt = *req.CountedAt
	}

	lines, ok := h.parseLines(c, req.Lines)
	if !ok {
		return
	}
	in.Lines = lines

	adj, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(201, adj)
}

// Get handles GET /adjustments/:id
func (h *AdjustmentHandler) Get(c *gin.Context) {
	adjustmentID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	adj, err := h.service.GetByID(c.Request.Context(), adjustmentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, adj)
}

// List handles GET /adjustments
func (h *AdjustmentHandler) List(c *gin.Context) {
	f := adjustment.Filter{
		OrganizationID: h.OrgID(c),
		Limit:          h.ParseIntQuery(c, "limit", 50),
		Offset:         h.ParseIntQuery(c, "offset", 0),
	}

	var ok bool
	if f.WarehouseID, ok = h.ParseIDQuery(c, "warehouseId"); !ok {
		return
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := adjustment.Status(statusStr)
		if !status.IsValid() {
			h.Error(c, apperror.NewValidation("invalid status").WithDetail("value", statusStr))
			return
		}
		f.Status = &status
	}
	if fromStr := c.Query("fromDate"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			f.FromDate = &parsed
		}
	}
	if toStr := c.Query("toDate"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			f.ToDate = &parsed
		}
	}

	adjustments, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: adjustments, TotalCount: len(adjustments)})
}

// Update handles PUT /adjustments/:id
func (h *AdjustmentHandler) Update(c *gin.Context) {
	adjustmentID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in := adjustment.UpdateInput{
		Reason: req.Reason,
		Notes:  req.Notes,
	}
	if req.Lines != nil {
		lines, ok := h.parseLines(c, req.Lines)
		if !ok {
			return
		}
		in.Lines = lines
	}

	adj, err := h.service.Update(c.Request.Context(), adjustmentID, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, adj)
}

// Confirm handles POST /adjustments/:id/confirm
func (h *AdjustmentHandler) Confirm(c *gin.Context) {
	adjustmentID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	// Body is optional; confirmedBy falls back to the caller identity.
	var req dto.ConfirmAdjustmentRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	adj, err := h.service.Confirm(c.Request.Context(), adjustmentID, req.ConfirmedBy)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, adj)
}

// Cancel handles POST /adjustments/:id/cancel
func (h *AdjustmentHandler) Cancel(c *gin.Context) {
	adjustmentID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), adjustmentID, h.GetUserID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "adjustment cancelled")
}

// Sheet handles GET /adjustments/sheet
// Returns count sheet lines prefilled from the current ledger.
func (h *AdjustmentHandler) Sheet(c *gin.Context) {
	warehouseIDStr := c.Query("warehouseId")
	if warehouseIDStr == "" {
		h.Error(c, apperror.NewValidation("warehouseId is required"))
		return
	}
	warehouseID, err := id.Parse(warehouseIDStr)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId format"))
		return
	}

	lines, err := h.service.PrepareSheet(c.Request.Context(), h.OrgID(c), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: lines, TotalCount: len(lines)})
}

func (h *AdjustmentHandler) parseLines(c *gin.Context, reqLines []dto.AdjustmentLineRequest) ([]adjustment.LineInput, bool) {
	lines := make([]adjustment.LineInput, 0, len(reqLines))
	for _, rl := range reqLines {
		productID, err := id.Parse(rl.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid line productId format"))
			return nil, false
		}
		line := adjustment.LineInput{
			ProductID:       productID,
			CountedQuantity: rl.CountedQuantity,
			Notes:           rl.Notes,
		}
		if rl.LocationID != nil {
			locationID, err := id.Parse(*rl.LocationID)
			if err != nil {
				h.Error(c, apperror.NewValidation("invalid line locationId format"))
				return nil, false
			}
			line.LocationID = &locationID
		}
		lines = append(lines, line)
	}
	return lines, true
}

// RegisterRoutes registers adjustment routes.
func (h *AdjustmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/sheet", h.Sheet)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/confirm", h.Confirm)
	rg.POST("/:id/cancel", h.Cancel)
}

package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/id"
	"stockforge/internal/domain/valuation"
	"stockforge/internal/domain/valuation/method"
	"stockforge/internal/infrastructure/http/v1/dto"
)

// InventoryHandler handles receipts, consumptions and valuation reads.
type InventoryHandler struct {
	*BaseHandler
	service *valuation.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service *valuation.Service) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// Receive handles POST /inventory/receive
func (h *InventoryHandler) Receive(c *gin.Context) {
	var req dto.ReceiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}
	warehouseID, err := id.Parse(req.WarehouseID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId format"))
		return
	}

	in := valuation.ReceiveInput{
		OrganizationID: h.OrgID(c),
		ProductID:      productID,
		WarehouseID:    warehouseID,
		Quantity:       req.Quantity,
		UnitCost:       req.UnitCost,
		Reference:      req.Reference,
		Notes:          req.Notes,
	}
	if req.ReceiptDate != nil {
		in.ReceiptDate = *req.ReceiptDate
	}

	layer, err := h.service.Receive(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, layer)
}

// Consume handles POST /inventory/consume
func (h *InventoryHandler) Consume(c *gin.Context) {
	var req dto.ConsumeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}
	warehouseID, err := id.Parse(req.WarehouseID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId format"))
		return
	}

	in := valuation.ConsumeInput{
		OrganizationID:  h.OrgID(c),
		ProductID:       productID,
		WarehouseID:     warehouseID,
		Quantity:        req.Quantity,
		Method:          method.Method(req.Method),
		TransactionType: valuation.TransactionType(req.TransactionType),
		FailOnShortage:  req.FailOnShortage,
	}
	if in.Method == "" {
		in.Method = method.Default
	}
	if req.ReferenceID != nil {
		refID, err := id.Parse(*req.ReferenceID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid referenceId format"))
			return
		}
		in.ReferenceID = &refID
	}
	if req.TransactionDate != nil {
		in.TransactionDate = *req.TransactionDate
	}

	result, err := h.service.Consume(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Layers handles GET /inventory/layers
// Returns open layers of a (product, warehouse) pair in method order.
func (h *InventoryHandler) Layers(c *gin.Context) {
	productID, ok := h.requireIDQuery(c, "productId")
	if !ok {
		return
	}
	warehouseID, ok := h.requireIDQuery(c, "warehouseId")
	if !ok {
		return
	}

	m := method.Method(c.DefaultQuery("method", string(method.Default)))

	layers, err := h.service.ListOpenLayers(c.Request.Context(), h.OrgID(c), productID, warehouseID, m)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: layers, TotalCount: len(layers)})
}

// LayerHistory handles GET /inventory/layers/history
func (h *InventoryHandler) LayerHistory(c *gin.Context) {
	productID, ok := h.requireIDQuery(c, "productId")
	if !ok {
		return
	}
	warehouseID, ok := h.requireIDQuery(c, "warehouseId")
	if !ok {
		return
	}

	layers, err := h.service.LayerHistory(c.Request.Context(), h.OrgID(c), productID, warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: layers, TotalCount: len(layers)})
}

// COGS handles GET /inventory/cogs
func (h *InventoryHandler) COGS(c *gin.Context) {
	f := valuation.COGSFilter{
		OrganizationID: h.OrgID(c),
		Limit:          h.ParseIntQuery(c, "limit", 100),
		Offset:         h.ParseIntQuery(c, "offset", 0),
	}

	var ok bool
	if f.ProductID, ok = h.ParseIDQuery(c, "productId"); !ok {
		return
	}
	if f.WarehouseID, ok = h.ParseIDQuery(c, "warehouseId"); !ok {
		return
	}
	if typeStr := c.Query("type"); typeStr != "" {
		t := valuation.TransactionType(typeStr)
		f.Type = &t
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

	txns, err := h.service.ListCOGS(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: txns, TotalCount: len(txns)})
}

// Valuation handles GET /inventory/valuation
// Reports the open-layer value per (product, warehouse).
func (h *InventoryHandler) Valuation(c *gin.Context) {
	warehouseID, ok := h.ParseIDQuery(c, "warehouseId")
	if !ok {
		return
	}

	values, err := h.service.ValueOnHand(c.Request.Context(), h.OrgID(c), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: values, TotalCount: len(values)})
}

func (h *InventoryHandler) requireIDQuery(c *gin.Context, name string) (id.ID, bool) {
	val := c.Query(name)
	if val == "" {
		h.Error(c, apperror.NewValidation(name+" is required"))
		return id.Nil(), false
	}
	parsed, err := id.Parse(val)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+name+" format"))
		return id.Nil(), false
	}
	return parsed, true
}

// RegisterRoutes registers inventory routes.
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/receive", h.Receive)
	rg.POST("/consume", h.Consume)
	rg.GET("/layers", h.Layers)
	rg.GET("/layers/history", h.LayerHistory)
	rg.GET("/cogs", h.COGS)
	rg.GET("/valuation", h.Valuation)
}

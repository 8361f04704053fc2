package handlers

import (
	"github.com/gin-gonic/gin"

	"stockforge/internal/domain/catalogs/warehouse"
	"stockforge/internal/domain/filter"
	"stockforge/internal/infrastructure/http/v1/dto"
)

// WarehouseHandler handles the warehouse catalog and its locations.
type WarehouseHandler struct {
	*BaseHandler
	service *warehouse.Service
}

// NewWarehouseHandler creates a new warehouse handler.
func NewWarehouseHandler(base *BaseHandler, service *warehouse.Service) *WarehouseHandler {
	return &WarehouseHandler{BaseHandler: base, service: service}
}

// Create handles POST /catalog/warehouses
func (h *WarehouseHandler) Create(c *gin.Context) {
	var req dto.CreateWarehouseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	w := warehouse.NewWarehouse(h.OrgID(c), req.Code, req.Name)
	w.Address = req.Address

	if err := h.service.Create(c.Request.Context(), w); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, w.ID.String())
}

// Get handles GET /catalog/warehouses/:id
func (h *WarehouseHandler) Get(c *gin.Context) {
	warehouseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	w, err := h.service.GetByID(c.Request.Context(), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, w)
}

// List handles GET /catalog/warehouses
func (h *WarehouseHandler) List(c *gin.Context) {
	var spec filter.Spec
	spec.Limit = h.ParseIntQuery(c, "limit", 100)
	spec.Offset = h.ParseIntQuery(c, "offset", 0)
	if c.Query("activeOnly") == "true" {
		spec.Where("is_active", filter.Equal, true)
	}

	warehouses, err := h.service.List(c.Request.Context(), h.OrgID(c), spec)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: warehouses, TotalCount: len(warehouses)})
}

// Update handles PUT /catalog/warehouses/:id
func (h *WarehouseHandler) Update(c *gin.Context) {
	warehouseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateWarehouseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	w, err := h.service.GetByID(c.Request.Context(), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if req.Name != nil {
		w.Name = *req.Name
	}
	if req.Address != nil {
		w.Address = req.Address
	}
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}
	w.Version = req.Version
	w.Touch()

	if err := h.service.Update(c.Request.Context(), w); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, w)
}

// CreateLocation handles POST /catalog/warehouses/:id/locations
func (h *WarehouseHandler) CreateLocation(c *gin.Context) {
	warehouseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CreateLocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	l := warehouse.NewLocation(warehouseID, req.Code, req.Name)
	if err := h.service.AddLocation(c.Request.Context(), l); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, l.ID.String())
}

// ListLocations handles GET /catalog/warehouses/:id/locations
func (h *WarehouseHandler) ListLocations(c *gin.Context) {
	warehouseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	locations, err := h.service.ListLocations(c.Request.Context(), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: locations, TotalCount: len(locations)})
}

// RegisterRoutes registers warehouse catalog routes.
func (h *WarehouseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/locations", h.CreateLocation)
	rg.GET("/:id/locations", h.ListLocations)
}

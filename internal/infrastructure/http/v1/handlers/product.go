package handlers

import (
	"github.com/gin-gonic/gin"

	"stockforge/internal/domain/catalogs/product"
	"stockforge/internal/domain/filter"
	"stockforge/internal/domain/valuation/method"
	"stockforge/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles the product catalog.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{BaseHandler: base, service: service}
}

// Create handles POST /catalog/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := product.NewProduct(h.OrgID(c), req.Code, req.Name)
	p.SKU = req.SKU
	p.ReorderPoint = req.ReorderPoint
	p.ReorderQuantity = req.ReorderQuantity
	if req.CostingMethod != "" {
		p.CostingMethod = method.Method(req.CostingMethod)
	}

	if err := h.service.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, p.ID.String())
}

// Get handles GET /catalog/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// List handles GET /catalog/products
func (h *ProductHandler) List(c *gin.Context) {
	var spec filter.Spec
	spec.Limit = h.ParseIntQuery(c, "limit", 100)
	spec.Offset = h.ParseIntQuery(c, "offset", 0)
	if search := c.Query("search"); search != "" {
		spec.Where("name", filter.Contains, search)
	}
	if c.Query("activeOnly") == "true" {
		spec.Where("is_active", filter.Equal, true)
	}

	products, err := h.service.List(c.Request.Context(), h.OrgID(c), spec)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: products, TotalCount: len(products)})
}

// Update handles PUT /catalog/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.SKU != nil {
		p.SKU = *req.SKU
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	p.Version = req.Version
	p.Touch()

	if err := h.service.Update(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// SetThresholds handles PUT /catalog/products/:id/thresholds
func (h *ProductHandler) SetThresholds(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.SetThresholdsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	err := h.service.SetReorderThresholds(c.Request.Context(), productID, req.ReorderPoint, req.ReorderQuantity)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "thresholds updated")
}

// RegisterRoutes registers product catalog routes.
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.PUT("/:id/thresholds", h.SetThresholds)
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"stockforge/internal/core/apperror"
	"stockforge/internal/core/id"
	"stockforge/internal/domain/ledger"
	"stockforge/internal/infrastructure/http/v1/dto"
)

// StockHandler exposes the stock ledger read model.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewStockHandler creates a new stock ledger handler.
func NewStockHandler(base *BaseHandler, service *ledger.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// GetAvailability handles GET /stock/availability
// Returns on-hand, reserved and available for one ledger key. A key with no
// ledger row reads as all zeros.
func (h *StockHandler) GetAvailability(c *gin.Context) {
	key, ok := h.parseKey(c)
	if !ok {
		return
	}

	av, err := h.service.GetAvailability(c.Request.Context(), key)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, av)
}

// GetLevels handles GET /stock/levels
// Returns all ledger rows of a warehouse.
func (h *StockHandler) GetLevels(c *gin.Context) {
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

	levels, err := h.service.ListByWarehouse(c.Request.Context(), h.OrgID(c), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: levels, TotalCount: len(levels)})
}

// Reserve handles POST /stock/reserve
func (h *StockHandler) Reserve(c *gin.Context) {
	h.applyReservation(c, false)
}

// Release handles POST /stock/release
func (h *StockHandler) Release(c *gin.Context) {
	h.applyReservation(c, true)
}

func (h *StockHandler) applyReservation(c *gin.Context, release bool) {
	var req dto.ReservationRequest
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

	key := ledger.Key{
		OrganizationID: h.OrgID(c),
		ProductID:      productID,
		WarehouseID:    warehouseID,
	}
	if req.LocationID != nil {
		locationID, err := id.Parse(*req.LocationID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid locationId format"))
			return
		}
		key.LocationID = &locationID
	}

	if release {
		err = h.service.Release(c.Request.Context(), key, req.Quantity)
	} else {
		err = h.service.Reserve(c.Request.Context(), key, req.Quantity)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "reservation updated")
}

func (h *StockHandler) parseKey(c *gin.Context) (ledger.Key, bool) {
	key := ledger.Key{OrganizationID: h.OrgID(c)}

	productIDStr := c.Query("productId")
	warehouseIDStr := c.Query("warehouseId")
	if productIDStr == "" || warehouseIDStr == "" {
		h.Error(c, apperror.NewValidation("productId and warehouseId are required"))
		return key, false
	}

	productID, err := id.Parse(productIDStr)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return key, false
	}
	warehouseID, err := id.Parse(warehouseIDStr)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId format"))
		return key, false
	}
	key.ProductID = productID
	key.WarehouseID = warehouseID

	if locStr := c.Query("locationId"); locStr != "" {
		locationID, err := id.Parse(locStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid locationId format"))
			return key, false
		}
		key.LocationID = &locationID
	}

	return key, true
}

// RegisterRoutes registers stock ledger routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/availability", h.GetAvailability)
	rg.GET("/levels", h.GetLevels)
	rg.POST("/reserve", h.Reserve)
	rg.POST("/release", h.Release)
}

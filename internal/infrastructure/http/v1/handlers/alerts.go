package handlers

import (
	"github.com/gin-gonic/gin"

	"stockforge/internal/domain/alerts"
	"stockforge/internal/infrastructure/http/v1/dto"
)

// AlertsHandler exposes the reorder evaluator and the alert cache.
type AlertsHandler struct {
	*BaseHandler
	service *alerts.Service
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(base *BaseHandler, service *alerts.Service) *AlertsHandler {
	return &AlertsHandler{BaseHandler: base, service: service}
}

// Evaluate handles GET /alerts/evaluate
// Runs the stateless at-risk sweep and returns reorder suggestions without
// touching the alert cache.
func (h *AlertsHandler) Evaluate(c *gin.Context) {
	suggestions, err := h.service.Evaluate(c.Request.Context(), h.OrgID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: suggestions, TotalCount: len(suggestions)})
}

// Sweep handles POST /alerts/sweep
// Refreshes the persisted alert cache from a fresh evaluation.
func (h *AlertsHandler) Sweep(c *gin.Context) {
	if err := h.service.Sweep(c.Request.Context(), h.OrgID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "alert sweep completed")
}

// ListActive handles GET /alerts
func (h *AlertsHandler) ListActive(c *gin.Context) {
	active, err := h.service.ListActive(c.Request.Context(), h.OrgID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: active, TotalCount: len(active)})
}

// RegisterRoutes registers alert routes.
func (h *AlertsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListActive)
	rg.GET("/evaluate", h.Evaluate)
	rg.POST("/sweep", h.Sweep)
}

package v1

import (
	"github.com/gin-gonic/gin"

	"stockforge/internal/domain/audit"
	"stockforge/internal/infrastructure/storage/postgres"
)

// RouteRegistrar is implemented by handlers that mount their own routes.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Mount registers a handler's routes under a group.
func Mount(group *gin.RouterGroup, handler RouteRegistrar) {
	handler.RegisterRoutes(group)
}

// auditRecorder adapts an optional AuditService to the domain interface.
// A nil *AuditService must become a nil interface, not a typed nil.
func auditRecorder(svc *postgres.AuditService) audit.Recorder {
	if svc == nil {
		return nil
	}
	return svc
}

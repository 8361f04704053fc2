package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "stockforge/internal/core/context"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
)

// UserContext propagates the caller identity from request headers into the
// request context so the domain layer and audit trail can attribute changes.
//
// Authentication lives in the host application (gateway or sidecar); this
// engine trusts the identity headers it is handed.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID != "" {
			ctx := appctx.WithUser(c.Request.Context(), &appctx.UserContext{
				UserID: userID,
				Email:  c.GetHeader(HeaderUserEmail),
			})
			c.Request = c.Request.WithContext(ctx)
			c.Set("user_id", userID)
		}
		c.Next()
	}
}

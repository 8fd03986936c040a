package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/slotbook/internal/rbac"
	"go.uber.org/zap"
)

// RequireAccess gates a route on an access policy. It must run after
// AuthMiddleware. A denied request gets a 403; a failed permission lookup
// gets a 500 and is logged.
func RequireAccess(src rbac.ContextSource, policy rbac.AccessPolicy, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := rbac.Subject{
			TenantID: GetTenantID(c),
			UserID:   GetUserID(c),
			Role:     GetRole(c),
		}

		allowed, err := rbac.Authorize(c.Request.Context(), src, policy, subject)
		if err != nil {
			logger.Error("permission lookup failed",
				zap.String("tenant_id", subject.TenantID.String()),
				zap.String("user_id", subject.UserID.String()),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "failed to resolve permissions",
			})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient permissions",
			})
			return
		}

		c.Next()
	}
}

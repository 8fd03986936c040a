package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/auth"
)

// Context keys for storing claims in gin.Context.
const (
	ContextKeyUserID   = "user_id"
	ContextKeyTenantID = "tenant_id"
	ContextKeyEmail    = "email"
	ContextKeyRole     = "role"
)

// AuthMiddleware returns a Gin middleware that validates JWT tokens.
//
// An invalid or missing token aborts the chain with a 401. A valid one has
// its claims stored on the context for the helpers below; handlers never
// parse the token again.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format, expected: Bearer <token>",
			})
			return
		}

		claims, err := auth.ParseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyTenantID, claims.TenantID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyRole, claims.Role)

		c.Next()
	}
}

// The helpers below return the zero value when the key is missing, which
// fails any tenant-scoped query cleanly.

func GetUserID(c *gin.Context) uuid.UUID {
	return getUUID(c, ContextKeyUserID)
}

func GetTenantID(c *gin.Context) uuid.UUID {
	return getUUID(c, ContextKeyTenantID)
}

func GetEmail(c *gin.Context) string {
	return c.GetString(ContextKeyEmail)
}

// GetRole returns the legacy role carried by the token.
func GetRole(c *gin.Context) string {
	return c.GetString(ContextKeyRole)
}

func getUUID(c *gin.Context, key string) uuid.UUID {
	val, exists := c.Get(key)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/slotbook/internal/cache"
	"go.uber.org/zap"
)

// RateLimit caps requests per client IP in fixed windows.
type RateLimit struct {
	Name    string
	Limit   int64
	Window  time.Duration
	Message string
}

// Limits on the public auth endpoints.
var (
	LoginLimit    = RateLimit{Name: "login", Limit: 5, Window: 15 * time.Minute, Message: "too many login attempts, try again later"}
	RegisterLimit = RateLimit{Name: "register", Limit: 3, Window: time.Hour, Message: "too many registration attempts, try again later"}
	RefreshLimit  = RateLimit{Name: "refresh", Limit: 10, Window: 15 * time.Minute, Message: "refresh token rate limit exceeded"}
)

// RateLimiter counts each request against limit in counter. A counter
// failure lets the request through: the limiter is best effort like the
// rest of the cache.
func RateLimiter(counter cache.Counter, limit RateLimit, logger *zap.Logger) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(limit.Window.Seconds()))
	return func(c *gin.Context) {
		key := "ratelimit:" + limit.Name + ":" + c.ClientIP()
		n, err := counter.Incr(c.Request.Context(), key, limit.Window)
		if err != nil {
			logger.Warn("rate limit counter failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if n > limit.Limit {
			logger.Info("rate limit exceeded",
				zap.String("limit", limit.Name),
				zap.String("client_ip", c.ClientIP()),
			)
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": limit.Message})
			return
		}
		c.Next()
	}
}

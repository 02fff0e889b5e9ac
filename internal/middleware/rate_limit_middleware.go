package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"stampcard/internal/utils"
	"stampcard/pkg/cache"
	"stampcard/pkg/logger"

	"github.com/gin-gonic/gin"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*cache.RateLimitResult, error)
}

// RateLimitMiddleware caps requests per caller (or per client IP when
// unauthenticated) within a fixed window. When the limiter backend fails the
// request is let through.
func RateLimitMiddleware(limiter RateLimiter, name string, limit int, window time.Duration, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := c.ClientIP()
		if id, ok := UserID(c); ok {
			subject = id.Hex()
		}
		key := utils.CacheRateLimitPrefix + name + ":" + subject

		result, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.WithContext(c.Request.Context()).WithError(err).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			utils.TooManyRequestsResponse(c, retryAfter)
			c.Abort()
			return
		}

		c.Next()
	}
}

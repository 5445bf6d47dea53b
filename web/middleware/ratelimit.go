package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JosKno/CapaIntermedia/logger"
	"github.com/JosKno/CapaIntermedia/web/cache"

	"github.com/gin-gonic/gin"
)

type RateLimitConfig struct {
	RequestsPerMinute int
	KeyFunc           func(c *gin.Context) string
}

// DefaultRateLimitConfig limits by client IP.
func DefaultRateLimitConfig(requestsPerMinute int) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// RateLimitMiddleware counts requests per key and path in fixed one minute
// windows. The limiter fails open when the counter store is unavailable.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.RequestsPerMinute <= 0 {
			c.Next()
			return
		}

		key := config.KeyFunc(c)
		rateLimitKey := cache.KeyRateLimitBase + key + ":" + c.FullPath()

		count, err := cache.Incr(rateLimitKey)
		if err != nil {
			logger.Warning("Rate limit increment failed:", err)
			c.Next()
			return
		}
		if count == 1 {
			if err := cache.Expire(rateLimitKey, time.Minute); err != nil {
				logger.Warning("Rate limit expire failed:", err)
			}
		}

		reset := time.Minute
		if ttl, err := cache.TTL(rateLimitKey); err == nil && ttl > 0 {
			reset = ttl
		}
		remaining := max(config.RequestsPerMinute-int(count), 0)
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

		if int(count) > config.RequestsPerMinute {
			logger.Warningf("Rate limit exceeded for %s on %s (count: %d)", key, c.FullPath(), count)
			c.Header("Retry-After", strconv.Itoa(int(reset.Seconds())))
			abortJSON(c, http.StatusTooManyRequests, "request.tooManyRequests")
			return
		}
		c.Next()
	}
}

package ratelimit

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicemetrics/updrs-meter/internal/errors"
)

// Middleware enforces the per-IP limit on prediction requests. Read-only
// endpoints (health, metrics, schema) are exempt.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		result, err := rl.AllowIP(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Limiter errors never block the request.
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))

		if !result.Allowed {
			rl.metrics.IncrementRateLimitBlock()
			c.Header("Retry-After", fmt.Sprintf("%.0f", result.RetryAfter.Seconds()))
			appErr := errors.NewValidationError("rate limit exceeded, retry later")
			appErr.HTTPStatus = http.StatusTooManyRequests
			c.JSON(appErr.HTTPStatus, appErr)
			c.Abort()
			return
		}

		c.Next()
	}
}

package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// TimeoutConfig represents timeout middleware configuration
type TimeoutConfig struct {
	Duration time.Duration
}

// DefaultTimeoutConfig returns default timeout configuration
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Duration: 15 * time.Second,
	}
}

// Timeout puts a deadline on the request context. Store calls observe it
// and fail with an infrastructure error; the handler still writes the
// response on its own goroutine.
func Timeout(config TimeoutConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.Duration <= 0 {
			c.Next()
			return
		}

		// Create timeout context
		ctx, cancel := context.WithTimeout(c.Request.Context(), config.Duration)
		defer cancel()

		// Replace request context
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityConfig represents security headers configuration
type SecurityConfig struct {
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
	CacheControl       string
}

// DefaultSecurityConfig returns headers suited to a JSON API
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		FrameOptions:       "DENY",
		ContentTypeOptions: "nosniff",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		CacheControl:       "no-store",
	}
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders(config SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", config.FrameOptions)
		c.Header("X-Content-Type-Options", config.ContentTypeOptions)
		c.Header("Referrer-Policy", config.ReferrerPolicy)
		// Availability changes by the second; never let a proxy cache it.
		c.Header("Cache-Control", config.CacheControl)

		c.Next()
	}
}

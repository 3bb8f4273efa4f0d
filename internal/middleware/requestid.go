package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zencounsel/counsel-api/pkg/logger"
)

const (
	HeaderXRequestID = "X-Request-ID"
	ContextRequestID = "request_id"
)

// maxRequestIDLen caps client-supplied ids before they reach the logs.
const maxRequestIDLen = 128

// RequestID adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if request ID exists in header
		rid := c.GetHeader(HeaderXRequestID)
		if rid == "" || len(rid) > maxRequestIDLen {
			rid = uuid.New().String()
		}

		c.Set(ContextRequestID, rid)
		c.Header(HeaderXRequestID, rid)

		// Services log through logger.WithContext, which reads it from here.
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, rid)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

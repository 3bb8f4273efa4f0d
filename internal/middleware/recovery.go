package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/zencounsel/counsel-api/pkg/errors"
	"github.com/zencounsel/counsel-api/pkg/httputil"
)

// Recovery turns a handler panic into the generic 500 envelope. Nothing
// about the panic value reaches the client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			log.Error().
				Interface("error", rec).
				Bytes("stack", debug.Stack()).
				Str("method", c.Request.Method).
				Str("route", c.FullPath()).
				Str("request_id", c.GetString(ContextRequestID)).
				Msg("Request panic recovered")

			if c.Writer.Written() {
				// Headers are gone; all we can do is stop the chain.
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, httputil.NewErrorResponse(errors.GenericMessage))
		}()
		c.Next()
	}
}

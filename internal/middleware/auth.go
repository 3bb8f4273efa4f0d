package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zencounsel/counsel-api/pkg/auth"
	"github.com/zencounsel/counsel-api/pkg/errors"
	"github.com/zencounsel/counsel-api/pkg/httputil"
)

const (
	ContextSubject = "subject"
	ContextEmail   = "email"
)

type AuthMiddleware struct {
	jwtService auth.JWTService
	adminGroup string
}

func NewAuthMiddleware(jwtService auth.JWTService, adminGroup string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		adminGroup: adminGroup,
	}
}

// RequireAdmin verifies the bearer token and requires membership of the
// admin group.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, errors.Unauthorized(nil))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWith(c, errors.Unauthorized(nil))
			return
		}

		claims, err := m.jwtService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abortWith(c, errors.Unauthorized(err))
			return
		}

		if !claims.InGroup(m.adminGroup) {
			abortWith(c, errors.Forbidden("Admin access required"))
			return
		}

		c.Set(ContextSubject, claims.Subject)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

func abortWith(c *gin.Context, err error) {
	httputil.RespondWithError(c, err)
	c.Abort()
}

package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the subset of identity-provider claims the API looks at.
type Claims struct {
	Subject string
	Email   string
	Groups  []string
}

func (c *Claims) InGroup(group string) bool {
	for _, g := range c.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// JWTService validates tokens issued by the external identity provider.
type JWTService interface {
	ValidateToken(token string) (*Claims, error)
}

type jwtService struct {
	secret []byte
	issuer string
}

// NewJWTService verifies HS256 tokens signed with secret. An empty issuer
// skips the iss check.
func NewJWTService(secret, issuer string) JWTService {
	return &jwtService{secret: []byte(secret), issuer: issuer}
}

func (s *jwtService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	mc := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, mc, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, _ := mc.GetSubject()
	email, _ := mc["email"].(string)

	return &Claims{
		Subject: sub,
		Email:   email,
		Groups:  groupsFrom(mc),
	}, nil
}

// groupsFrom reads "cognito:groups", falling back to "groups". Either may
// be a list or a single string.
func groupsFrom(mc jwt.MapClaims) []string {
	for _, key := range []string{"cognito:groups", "groups"} {
		switch v := mc[key].(type) {
		case []interface{}:
			out := make([]string, 0, len(v))
			for _, g := range v {
				if s, ok := g.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case string:
			return []string{v}
		}
	}
	return nil
}

package router

import (
	"net/http"
	"strings"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zencounsel/counsel-api/internal/handler/health"
	"github.com/zencounsel/counsel-api/internal/handler/prometheus"
	"github.com/zencounsel/counsel-api/internal/middleware"
	"github.com/zencounsel/counsel-api/pkg/auth"
)

const secret = "router-secret"

type pingHandler struct{}

func (pingHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.POST("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func (pingHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "admin pong") })
}

func newTestRouter() *gin.Engine {
	return newTestRouterWith(RouterConfig{
		Mode:       gin.TestMode,
		CORSConfig: middleware.DefaultCORSConfig([]string{"https://app.example.com"}),
	})
}

func newTestRouterWith(config RouterConfig) *gin.Engine {
	r := NewRouter(
		middleware.NewAuthMiddleware(auth.NewJWTService(secret, ""), "Admins"),
		health.NewHandler(nil, time.Second),
		prometheus.New(prom.NewRegistry()),
		[]Handler{pingHandler{}},
		[]AdminHandler{pingHandler{}},
		config,
	)
	r.Setup()
	return r.Engine()
}

func token(t *testing.T, groups ...string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":            "admin-1",
		"cognito:groups": groups,
		"exp":            time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestPublicAndHealthRoutes(t *testing.T) {
	e := newTestRouter()

	for _, path := range []string{"/api/v1/ping", "/api/v1/health/live", "/api/v1/health/ready", "/api/v1/health/metrics"} {
		w := httptest.NewRecorder()
		e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID), path)
	}
}

func TestAdminGate(t *testing.T) {
	e := newTestRouter()

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "Staff"))
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "Admins"))
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin pong", w.Body.String())
}

func TestPreflight(t *testing.T) {
	e := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaxBodySizeFromConfig(t *testing.T) {
	e := newTestRouterWith(RouterConfig{
		Mode:        gin.TestMode,
		CORSConfig:  middleware.DefaultCORSConfig([]string{"https://app.example.com"}),
		MaxBodySize: 16,
	})

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/ping", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/ping", strings.NewReader(strings.Repeat("x", 32))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

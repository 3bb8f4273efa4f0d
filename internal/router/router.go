package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/zencounsel/counsel-api/internal/handler/prometheus"
	"github.com/zencounsel/counsel-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// AdminHandler registers routes that sit behind the admin gate.
type AdminHandler interface {
	RegisterAdminRoutes(*gin.RouterGroup)
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	health  Handler
	metrics *prometheus.Handler
	public  []Handler
	admin   []AdminHandler
}

type RouterConfig struct {
	Mode             string
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	RateClientTTL    time.Duration
	CORSConfig       middleware.CORSConfig
	RequestTimeout   time.Duration
	MaxBodySize      int64
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	health Handler,
	metrics *prometheus.Handler,
	public []Handler,
	admin []AdminHandler,
	config RouterConfig,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	middleware.RegisterValidators()

	engine := gin.New()

	r := &Router{
		engine:  engine,
		auth:    auth,
		health:  health,
		metrics: metrics,
		public:  public,
		admin:   admin,
	}

	sizeLimit := middleware.DefaultSizeLimitConfig()
	if config.MaxBodySize > 0 {
		sizeLimit.MaxBodySize = config.MaxBodySize
	}
	timeout := middleware.DefaultTimeoutConfig()
	if config.RequestTimeout > 0 {
		timeout.Duration = config.RequestTimeout
	}

	// Core middlewares. RequestID runs first so every log line carries it.
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorLogger(),
		metrics.Middleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
		middleware.SizeLimit(sizeLimit),
		middleware.Timeout(timeout),
	)

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:      config.RateLimit,
			Burst:     config.RateBurst,
			ClientTTL: config.RateClientTTL,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.setupHealthCheck(api)

	for _, h := range r.public {
		h.RegisterRoutes(api)
	}

	admin := api.Group("/admin")
	admin.Use(r.auth.RequireAdmin())
	for _, h := range r.admin {
		h.RegisterAdminRoutes(admin)
	}
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	r.health.RegisterRoutes(rg)
	rg.GET("/health/metrics", r.metrics.Handler())
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/zencounsel/counsel-api/pkg/httputil"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
	// ClientTTL is how long an idle client's bucket is kept.
	ClientTTL time.Duration
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	config  RateLimiterConfig
	clients *gocache.Cache
	mu      sync.Mutex
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.ClientTTL <= 0 {
		config.ClientTTL = 10 * time.Minute
	}
	return &RateLimiter{
		config:  config,
		clients: gocache.New(config.ClientTTL, config.ClientTTL),
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.clients.Get(key); ok {
		l := v.(*rate.Limiter)
		// Refresh expiry so active clients keep their bucket.
		rl.clients.SetDefault(key, l)
		return l
	}
	l := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	rl.clients.SetDefault(key, l)
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.NewErrorResponse("Too many requests, please slow down."))
			return
		}
		c.Next()
	}
}

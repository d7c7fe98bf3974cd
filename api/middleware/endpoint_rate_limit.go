package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// EndpointRateLimiter gives selected routes their own per-client budget on
// top of the global limit.
type EndpointRateLimiter struct {
	limiters map[string]*RateLimiter
	mu       sync.RWMutex
}

func NewEndpointRateLimiter() *EndpointRateLimiter {
	return &EndpointRateLimiter{
		limiters: make(map[string]*RateLimiter),
	}
}

func endpointKey(method, route string) string {
	return method + " " + route
}

// AddEndpoint limits one method on a gin route pattern such as /api/servers/:id.
func (erl *EndpointRateLimiter) AddEndpoint(method, route string, limit int, window time.Duration) {
	erl.mu.Lock()
	defer erl.mu.Unlock()
	erl.limiters[endpointKey(method, route)] = NewRateLimiter(limit, window)
}

func (erl *EndpointRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		erl.mu.RLock()
		limiter, exists := erl.limiters[endpointKey(c.Request.Method, c.FullPath())]
		erl.mu.RUnlock()

		if exists && !limiter.Allow(c.ClientIP()) {
			retryAfter := int(limiter.window.Seconds())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded for this endpoint",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/techfemme/academy/backend/go-services/pkg/metrics"
)

// Limit is the budget of one limiter. Scope keeps the counters of route groups
// apart and labels the limiter metrics.
type Limit struct {
	Scope string
	RPS   float64
	Burst int
	// Window is the fixed window of the Redis limiter; the token bucket ignores it.
	Window time.Duration
}

func (l Limit) scope() string {
	if l.Scope == "" {
		return "api"
	}
	return l.Scope
}

// limiterStore is a per-key token-bucket store owned by one middleware instance.
type limiterStore struct {
	m     sync.Map // map[string]*rate.Limiter
	limit Limit
}

func (s *limiterStore) get(key string) *rate.Limiter {
	if v, ok := s.m.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := s.m.LoadOrStore(key, rate.NewLimiter(rate.Limit(s.limit.RPS), s.limit.Burst))
	return v.(*rate.Limiter)
}

// rateLimitKey is the signed-in identity when there is one, otherwise the client IP.
func rateLimitKey(c *gin.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return "sub:" + id.ID
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func tooManyRequests(c *gin.Context, backend, scope, retryAfter string) {
	c.Header("Retry-After", retryAfter)
	metrics.RateLimitRejected.WithLabelValues(backend, scope).Inc()
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please slow down"})
}

// RateLimitMiddleware enforces an in-process token bucket per key.
func RateLimitMiddleware(l Limit) gin.HandlerFunc {
	store := &limiterStore{limit: l}
	scope := l.scope()
	return func(c *gin.Context) {
		if !store.get(rateLimitKey(c)).Allow() {
			tooManyRequests(c, "memory", scope, "1")
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory", scope).Inc()
		c.Next()
	}
}

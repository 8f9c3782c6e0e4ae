package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/techfemme/academy/backend/go-services/pkg/logger"
	"github.com/techfemme/academy/backend/go-services/pkg/metrics"
)

// RedisRateLimitMiddleware is a fixed-window limiter shared by every API replica.
// A window admits floor(RPS*window)+Burst requests per key. A nil client, or a
// Redis error on a request, falls back to the in-process bucket for that request.
func RedisRateLimitMiddleware(client *redis.Client, l Limit) gin.HandlerFunc {
	local := RateLimitMiddleware(l)
	if client == nil {
		return local
	}
	windowSeconds := int(l.Window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowed := int64(l.RPS*float64(windowSeconds)) + int64(l.Burst)
	scope := l.scope()
	return func(c *gin.Context) {
		bucket := time.Now().Unix() / int64(windowSeconds)
		key := fmt.Sprintf("rl:%s:%s:%d", scope, rateLimitKey(c), bucket)

		ctx := c.Request.Context()
		cnt, err := client.Incr(ctx, key).Result()
		if err != nil {
			logger.Warnf("redis rate limit unavailable, using local bucket: %v", err)
			local(c)
			return
		}
		if cnt == 1 {
			_ = client.Expire(ctx, key, time.Duration(windowSeconds+1)*time.Second).Err()
		}
		if cnt > allowed {
			tooManyRequests(c, "redis", scope, strconv.Itoa(windowSeconds))
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis", scope).Inc()
		c.Next()
	}
}

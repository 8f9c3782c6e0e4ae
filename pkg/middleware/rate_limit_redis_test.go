package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func redisLimited(t *testing.T, client *redis.Client, l Limit) func() int {
	t.Helper()
	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, l))
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })
	return func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/r", nil))
		return w.Code
	}
}

func TestRedisRateLimitMiddleware_WindowBudget(t *testing.T) {
	m := mr.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	send := redisLimited(t, client, Limit{Scope: "auth", RPS: 1, Window: time.Minute})
	for i := 0; i < 60; i++ {
		require.Equal(t, http.StatusOK, send(), "request %d", i)
	}
	require.Equal(t, http.StatusTooManyRequests, send())

	keys := m.Keys()
	require.Len(t, keys, 1)
	require.Contains(t, keys[0], "rl:auth:ip:")
}

func TestRedisRateLimitMiddleware_ScopesCountSeparately(t *testing.T) {
	m := mr.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	auth := redisLimited(t, client, Limit{Scope: "auth", Burst: 1, Window: time.Minute})
	api := redisLimited(t, client, Limit{Scope: "api", Burst: 1, Window: time.Minute})
	require.Equal(t, http.StatusOK, auth())
	require.Equal(t, http.StatusTooManyRequests, auth())
	require.Equal(t, http.StatusOK, api())
}

func TestRedisRateLimitMiddleware_FallsBackWhenRedisDown(t *testing.T) {
	m := mr.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	send := redisLimited(t, client, Limit{RPS: 0.5, Burst: 1, Window: time.Minute})
	m.Close()

	require.Equal(t, http.StatusOK, send())
	require.Equal(t, http.StatusTooManyRequests, send())
}

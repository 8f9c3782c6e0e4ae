package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/techfemme/academy/backend/go-services/internal/app"
	"github.com/techfemme/academy/backend/go-services/internal/cache"
	"github.com/techfemme/academy/backend/go-services/internal/config"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/pkg/middleware"
)

func TestCORSConfig(t *testing.T) {
	c := corsConfig([]string{"*"})
	require.True(t, c.AllowAllOrigins)
	require.NoError(t, c.Validate())

	c = corsConfig([]string{"https://academy.example"})
	require.False(t, c.AllowAllOrigins)
	require.Equal(t, []string{"https://academy.example"}, c.AllowOrigins)
	require.NoError(t, c.Validate())
}

func TestSnapshotFactory(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}

	cfg.Session.SnapshotBackend = config.SnapshotNone
	f, err := snapshotFactory(cfg, &app.Stores{}, nil)
	require.NoError(t, err)
	require.Nil(t, f)

	// redis requested without a client degrades to no snapshots
	cfg.Session.SnapshotBackend = config.SnapshotRedis
	f, err = snapshotFactory(cfg, &app.Stores{}, nil)
	require.NoError(t, err)
	require.Nil(t, f)

	cfg.Session.SnapshotBackend = config.SnapshotSQLite
	cfg.Session.SQLitePath = filepath.Join(t.TempDir(), "snap.db")
	f, err = snapshotFactory(cfg, &app.Stores{}, nil)
	require.NoError(t, err)
	snap := f("a")
	require.NoError(t, snap.Save(ctx, &models.Profile{IdentityID: "a", FirstName: "Ada"}))
	got, err := f("a").Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "Ada", got.FirstName)
}

func TestSnapshotFactory_Redis(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	cfg := &config.Config{}
	cfg.JWT.Secret = "main-test-secret-with-at-least-32-bytes"
	cfg.JWT.Issuer = "academy-auth"
	cfg.Redis.Host = m.Host()
	cfg.Redis.Port = m.Port()
	cfg.Session.SnapshotBackend = config.SnapshotRedis
	cfg.Session.SnapshotPrefix = "academy:"

	ctx := context.Background()
	stores, err := app.Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer stores.Close(ctx)

	f, err := snapshotFactory(cfg, stores, nil)
	require.NoError(t, err)
	var snap cache.Snapshot = f("a")
	require.NoError(t, snap.Save(ctx, &models.Profile{IdentityID: "a"}))
	require.True(t, m.Exists("academy:a:user"))
}

func TestLimiter_SharesCountersThroughRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := mr.RunT(t)
	cfg := &config.Config{}
	cfg.RateLimit.UseRedis = true
	stores := &app.Stores{Redis: redis.NewClient(&redis.Options{Addr: m.Addr()})}
	defer stores.Redis.Close()

	r := gin.New()
	r.Use(limiter(cfg, stores, middleware.Limit{Scope: "auth", Burst: 1, Window: time.Minute}))
	r.POST("/auth/signin", func(c *gin.Context) { c.Status(http.StatusOK) })
	send := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/signin", nil))
		return w.Code
	}
	require.Equal(t, http.StatusOK, send())
	require.Equal(t, http.StatusTooManyRequests, send())

	keys := m.Keys()
	require.Len(t, keys, 1)
	require.True(t, strings.HasPrefix(keys[0], "rl:auth:"))
}

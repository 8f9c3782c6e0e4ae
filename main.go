package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/techfemme/academy/backend/go-services/handlers"
	"github.com/techfemme/academy/backend/go-services/internal/accounts"
	"github.com/techfemme/academy/backend/go-services/internal/app"
	"github.com/techfemme/academy/backend/go-services/internal/cache"
	"github.com/techfemme/academy/backend/go-services/internal/config"
	coursesvc "github.com/techfemme/academy/backend/go-services/internal/courses/service"
	"github.com/techfemme/academy/backend/go-services/internal/database"
	"github.com/techfemme/academy/backend/go-services/internal/editor"
	"github.com/techfemme/academy/backend/go-services/internal/guard"
	"github.com/techfemme/academy/backend/go-services/internal/mail"
	"github.com/techfemme/academy/backend/go-services/internal/oidc"
	"github.com/techfemme/academy/backend/go-services/internal/profiles"
	"github.com/techfemme/academy/backend/go-services/internal/session"
	"github.com/techfemme/academy/backend/go-services/internal/sessions"
	"github.com/techfemme/academy/backend/go-services/pkg/logger"
	"github.com/techfemme/academy/backend/go-services/pkg/metrics"
	"github.com/techfemme/academy/backend/go-services/pkg/middleware"
)

func main() {
	// initialize logging early so config errors are visible (LOG_LEVEL: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())
	logger.Infof("config loaded: keycloak=%v mongo=%v redis=%v minio=%v snapshot=%s",
		cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "", cfg.Session.SnapshotBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, cleanup, err := newServer(ctx, cfg, logger.L())
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer cleanup()

	go func() {
		logger.Infof("Starting academy API on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// newServer wires stores, session controllers and routes into an http.Server.
func newServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*http.Server, func(), error) {
	stores, err := app.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { stores.Close(context.Background()) }

	// the access token blacklist lives in Redis when it is available
	sessions.SetBlacklistClient(stores.Redis)

	creds, tm, err := app.NewCredentialStore(cfg, stores, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	snapshots, err := snapshotFactory(cfg, stores, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	registry, err := session.NewRegistry(stores.Profiles, snapshots, log, cfg.Session.ResolveTimeout)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	creds.OnSessionChange(registry.HandleSessionChange)

	acc, err := accounts.NewService(accounts.Config{
		Credentials: creds,
		Profiles:    stores.Profiles,
		Sessions:    registry,
		Mailer:      mail.NewFromConfig(cfg.SendGrid, log),
		Logger:      log,
		WaitTimeout: cfg.Session.ResolveTimeout,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	ed, err := editor.New(editor.Config{
		Profiles:      stores.Profiles,
		Blobs:         stores.Blobs,
		Cache:         registry,
		Logger:        log,
		AvatarBaseURL: cfg.Server.AvatarBaseURL(),
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	verifiers := []middleware.Verifier{tm}
	ov, oidcErr := oidc.NewFromConfig(ctx, cfg.Keycloak)
	switch {
	case oidcErr != nil:
		// configured but unreachable: keep serving local tokens, report not ready
		logger.Warnf("failed to initialize OIDC verifier: %v", oidcErr)
		stores.Checks["oidc"] = func(context.Context) error { return oidcErr }
	case ov != nil:
		verifiers = append(verifiers, ov)
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors.New(corsConfig(cfg.Server.CORSOrigins)))

	handlers.RegisterHealth(r, stores.Checks)
	handlers.RegisterSwagger(r)
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.AuthMiddleware(verifiers...)
	guardFor := func(route guard.Route) gin.HandlerFunc {
		return middleware.GuardMiddleware(registry, route, cfg.Session.ResolveTimeout)
	}
	courses := coursesvc.New(stores.Courses)

	authGroup, api := r.Group("/"), r.Group("/api/v1", auth)
	if cfg.RateLimit.Enabled {
		rl := cfg.RateLimit
		win := time.Duration(rl.WindowSeconds) * time.Second
		authGroup.Use(limiter(cfg, stores, middleware.Limit{Scope: "auth", RPS: rl.AuthRPS, Burst: rl.AuthBurst, Window: win}))
		api.Use(limiter(cfg, stores, middleware.Limit{Scope: "api", RPS: rl.RPS, Burst: rl.Burst, Window: win}))
	}

	handlers.NewAuthHandler(acc, creds).Register(authGroup, auth)
	handlers.NewProfileHandler(registry, ed, cfg.Session.ResolveTimeout).Register(api, guardFor)
	handlers.NewDashboardHandler(courses).Register(api, guardFor)
	handlers.NewAdminHandler(courses, profiles.NewService(stores.Profiles), registry).Register(api, guardFor)
	handlers.NewAvatarHandler(stores.Blobs).Register(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return srv, cleanup, nil
}

// limiter shares counters through Redis when asked to and Redis is up.
func limiter(cfg *config.Config, stores *app.Stores, l middleware.Limit) gin.HandlerFunc {
	if cfg.RateLimit.UseRedis && stores.Redis != nil {
		return middleware.RedisRateLimitMiddleware(stores.Redis, l)
	}
	return middleware.RateLimitMiddleware(l)
}

// snapshotFactory picks the durable per-identity snapshot backend.
func snapshotFactory(cfg *config.Config, stores *app.Stores, log *zap.Logger) (session.SnapshotFactory, error) {
	switch cfg.Session.SnapshotBackend {
	case config.SnapshotRedis:
		if stores.Redis == nil {
			logger.Warnf("snapshot backend redis requested but Redis is unavailable; snapshots disabled")
			return nil, nil
		}
		client, prefix, ttl := stores.Redis, cfg.Session.SnapshotPrefix, cfg.JWT.RefreshTokenTTL
		return func(id string) cache.Snapshot {
			return cache.NewRedisSnapshot(client, prefix, id, ttl)
		}, nil
	case config.SnapshotSQLite:
		db, err := database.OpenSQLite(cfg.Session.SQLitePath, log, &cache.Entry{})
		if err != nil {
			return nil, err
		}
		store := cache.NewSQLiteStore(db)
		return store.ForIdentity, nil
	default:
		return nil, nil
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

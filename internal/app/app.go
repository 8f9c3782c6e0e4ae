// Package app opens the stores both the API server and the CLI run on. Each store
// falls back to an in-memory implementation when its backend is not configured or
// cannot be reached, so a bare checkout still runs.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/techfemme/academy/backend/go-services/internal/config"
	coursesrepo "github.com/techfemme/academy/backend/go-services/internal/courses/repository"
	"github.com/techfemme/academy/backend/go-services/internal/credentials"
	"github.com/techfemme/academy/backend/go-services/internal/database"
	"github.com/techfemme/academy/backend/go-services/internal/profiles"
	"github.com/techfemme/academy/backend/go-services/internal/sessions"
	"github.com/techfemme/academy/backend/go-services/internal/storage"
	"github.com/techfemme/academy/backend/go-services/internal/tokens"
)

// Check reports whether one dependency is usable.
type Check = func(ctx context.Context) error

// Stores holds the opened backends. Mongo and Redis are nil when not in use.
type Stores struct {
	Mongo    *mongo.Client
	Redis    *redis.Client
	Profiles profiles.Repository
	Accounts credentials.Repository
	Sessions sessions.Repository
	Courses  coursesrepo.Repository
	Blobs    storage.BlobStore
	// Checks feed the readiness endpoint, keyed by dependency name.
	Checks map[string]Check

	logger *zap.Logger
}

// Open connects to every configured backend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	st := &Stores{Checks: map[string]Check{}, logger: logger}

	st.Redis = connectRedis(ctx, cfg.Redis, logger)
	if st.Redis != nil {
		client := st.Redis
		st.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB, logger, database.DefaultRetry)
		if err != nil {
			logger.Warn("could not connect to MongoDB, using in-memory stores", zap.Error(err))
		} else {
			st.Mongo = client
			st.Checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		}
	}

	if err := st.openRepositories(ctx, cfg); err != nil {
		st.Close(ctx)
		return nil, err
	}
	st.openBlobs(ctx, cfg.MinIO)
	return st, nil
}

func (st *Stores) openRepositories(ctx context.Context, cfg *config.Config) error {
	if st.Mongo == nil {
		st.Profiles = profiles.NewMemoryRepository()
		st.Accounts = credentials.NewMemoryRepository()
		st.Courses = coursesrepo.NewMemoryRepo()
	} else {
		db := st.Mongo.Database(cfg.MongoDB.Database)
		st.Profiles = profiles.NewMongoRepository(db.Collection("profiles"))

		accounts := credentials.NewMongoRepository(db.Collection("accounts"))
		if err := accounts.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("accounts indexes: %w", err)
		}
		st.Accounts = accounts

		courses := coursesrepo.NewMongoRepo(db.Collection("courses"))
		if err := courses.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("courses indexes: %w", err)
		}
		st.Courses = courses
	}

	// Redis-backed refresh sessions are preferred when available
	switch {
	case st.Redis != nil:
		st.Sessions = sessions.NewRedisRepository(st.Redis, "session:")
		st.logger.Info("using Redis for session storage")
	case st.Mongo != nil:
		repo := sessions.NewMongoRepository(st.Mongo.Database(cfg.MongoDB.Database).Collection("sessions"))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("sessions indexes: %w", err)
		}
		st.Sessions = repo
	default:
		st.Sessions = sessions.NewMemoryRepository()
	}
	return nil
}

func (st *Stores) openBlobs(ctx context.Context, cfg config.MinIOConfig) {
	if cfg.Endpoint != "" {
		m, err := storage.NewMinIOStorage(ctx, cfg)
		if err == nil {
			st.Blobs = m
			st.Checks["minio"] = m.Ping
			return
		}
		st.logger.Warn("MinIO unavailable, avatars are kept in memory", zap.Error(err))
	}
	st.Blobs = storage.NewMemoryStorage()
}

// Close releases the backend connections.
func (st *Stores) Close(ctx context.Context) {
	if st.Mongo != nil {
		_ = st.Mongo.Disconnect(ctx)
	}
	if st.Redis != nil {
		_ = st.Redis.Close()
	}
}

// NewCredentialStore builds the token manager and the credential store over st.
func NewCredentialStore(cfg *config.Config, st *Stores, logger *zap.Logger) (*credentials.Store, *tokens.Manager, error) {
	tm, err := tokens.NewManagerFromConfig(cfg.JWT)
	if err != nil {
		return nil, nil, fmt.Errorf("token manager: %w", err)
	}
	creds, err := credentials.NewStore(credentials.Config{
		Accounts:   st.Accounts,
		Sessions:   sessions.NewService(st.Sessions),
		Tokens:     tm,
		RefreshTTL: cfg.JWT.RefreshTokenTTL,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return creds, tm, nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	addr := cfg.Addr()
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("failed to connect to Redis", zap.String("addr", addr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	logger.Info("connected to Redis", zap.String("addr", addr))
	return client
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/techfemme/academy/backend/go-services/internal/config"
)

const mongoAppName = "academy-go-services"

// Retry bounds how often ConnectMongo tries before giving up. Backoff doubles
// after every failed attempt.
type Retry struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetry rides out a database container that starts after the service.
var DefaultRetry = Retry{Attempts: 5, Backoff: time.Second}

// ConnectMongo connects to cfg.URI and pings the primary. Every attempt is bounded
// by cfg.Timeout. The caller disconnects the returned client.
func ConnectMongo(ctx context.Context, cfg config.MongoDBConfig, logger *zap.Logger, retry Retry) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	opts := options.Client().ApplyURI(cfg.URI).SetAppName(mongoAppName)
	if cfg.Timeout > 0 {
		opts.SetServerSelectionTimeout(cfg.Timeout)
	}

	backoff := retry.Backoff
	var lastErr error
	for attempt := 1; attempt <= retry.Attempts; attempt++ {
		client, err := connectOnce(ctx, opts, cfg.Timeout)
		if err == nil {
			logger.Info("connected to MongoDB", zap.String("database", cfg.Database), zap.Int("attempt", attempt))
			return client, nil
		}
		lastErr = err
		logger.Warn("MongoDB connect failed", zap.Int("attempt", attempt), zap.Int("of", retry.Attempts), zap.Error(err))
		if attempt == retry.Attempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, lastErr
}

func connectOnce(ctx context.Context, opts *options.ClientOptions, timeout time.Duration) (*mongo.Client, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/techfemme/academy/backend/go-services/internal/config"
)

func TestConnectMongo_RequiresURI(t *testing.T) {
	_, err := ConnectMongo(context.Background(), config.MongoDBConfig{}, nil, DefaultRetry)
	require.ErrorContains(t, err, "uri is required")
}

func TestConnectMongo_RetriesThenGivesUp(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := config.MongoDBConfig{URI: "not-a-mongo-uri", Database: "academy", Timeout: 50 * time.Millisecond}

	_, err := ConnectMongo(context.Background(), cfg, zap.New(core), Retry{Attempts: 3, Backoff: time.Millisecond})
	require.ErrorContains(t, err, "mongo connect")
	require.Equal(t, 3, logs.FilterMessage("MongoDB connect failed").Len())
}

func TestConnectMongo_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := config.MongoDBConfig{URI: "not-a-mongo-uri", Timeout: 50 * time.Millisecond}

	_, err := ConnectMongo(ctx, cfg, nil, Retry{Attempts: 3, Backoff: time.Hour})
	require.ErrorIs(t, err, context.Canceled)
}

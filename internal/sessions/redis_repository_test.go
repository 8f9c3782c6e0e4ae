package sessions

import (
	"context"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/techfemme/academy/backend/go-services/internal/models"
)

func newRedisRepo(t *testing.T) (*mr.Miniredis, *RedisRepository) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	return m, NewRedisRepository(client, "test:session:")
}

func TestRedisRepository_RoundTripKeepsIdentity(t *testing.T) {
	m, repo := newRedisRepo(t)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s := &Session{
		RefreshToken: "r1",
		Sub:          "sub-1",
		Email:        "ada@example.com",
		CreatedAt:    created,
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByRefresh(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "sub-1", got.Sub)
	require.Equal(t, "ada@example.com", got.Email)
	require.Equal(t, "r1", got.RefreshToken)
	require.True(t, created.Equal(got.CreatedAt))
	require.True(t, s.ExpiresAt.Equal(got.ExpiresAt))

	// the raw token never appears in a key
	for _, k := range m.Keys() {
		require.True(t, strings.HasPrefix(k, "test:session:"))
		require.NotContains(t, k, "r1")
	}

	require.NoError(t, repo.DeleteByRefresh(ctx, "r1"))
	got, err = repo.GetByRefresh(ctx, "r1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisRepository_HashExpiresWithSession(t *testing.T) {
	m, repo := newRedisRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &Session{RefreshToken: "r2", Sub: "sub-2", ExpiresAt: time.Now().UTC().Add(time.Minute)}))

	got, err := repo.GetByRefresh(ctx, "r2")
	require.NoError(t, err)
	require.NotNil(t, got)

	m.FastForward(2 * time.Minute)
	got, err = repo.GetByRefresh(ctx, "r2")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisRepository_ExpiredSessionRejectedByService(t *testing.T) {
	_, repo := newRedisRepo(t)
	svc := NewService(repo)
	ctx := context.Background()
	now := time.Now().UTC()
	svc.now = func() time.Time { return now }

	token, err := svc.CreateSession(ctx, models.Identity{ID: "sub-3", Email: "c@example.com"}, time.Hour)
	require.NoError(t, err)

	stored, err := repo.GetByRefresh(ctx, token)
	require.NoError(t, err)
	require.False(t, stored.Expired(now))
	require.True(t, stored.Expired(now.Add(time.Hour)))

	// the hash is still in Redis, but the service clock is past its expiry
	svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	got, err := svc.ValidateRefresh(ctx, token)
	require.NoError(t, err)
	require.Nil(t, got)

	stored, err = repo.GetByRefresh(ctx, token)
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestRedisRepository_RotateCarriesEmail(t *testing.T) {
	_, repo := newRedisRepo(t)
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.CreateSession(ctx, models.Identity{ID: "sub-4", Email: "d@example.com"}, time.Hour)
	require.NoError(t, err)

	next, prev, err := svc.Rotate(ctx, first, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, first, next)
	require.Equal(t, "d@example.com", prev.Email)

	gone, err := repo.GetByRefresh(ctx, first)
	require.NoError(t, err)
	require.Nil(t, gone)

	rotated, err := repo.GetByRefresh(ctx, next)
	require.NoError(t, err)
	require.Equal(t, "sub-4", rotated.Sub)
	require.Equal(t, "d@example.com", rotated.Email)

	// a used token cannot rotate again
	again, sess, err := svc.Rotate(ctx, first, time.Hour)
	require.NoError(t, err)
	require.Empty(t, again)
	require.Nil(t, sess)
}

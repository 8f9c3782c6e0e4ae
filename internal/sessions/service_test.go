package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/techfemme/academy/backend/go-services/internal/models"
)

func TestCreateAndValidateSession(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	id := models.Identity{ID: "sub-1", Email: "a@example.com"}

	r, err := svc.CreateSession(ctx, id, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, r)

	sess, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, "sub-1", sess.Sub)
	require.Equal(t, "a@example.com", sess.Email)

	require.NoError(t, svc.DeleteRefresh(ctx, r))
	sess2, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.Nil(t, sess2)
}

func TestValidateRefresh_ExpiredIsRemoved(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	r, err := svc.CreateSession(ctx, models.Identity{ID: "sub-2"}, time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	sess, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.Nil(t, sess)

	stored, _ := repo.GetByRefresh(ctx, r)
	require.Nil(t, stored)
}

func TestRotate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	old, err := svc.CreateSession(ctx, models.Identity{ID: "sub-3", Email: "c@example.com"}, time.Hour)
	require.NoError(t, err)

	next, sess, err := svc.Rotate(ctx, old, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, old, next)
	require.Equal(t, "sub-3", sess.Sub)

	// the old token is single use
	again, sess, err := svc.Rotate(ctx, old, time.Hour)
	require.NoError(t, err)
	require.Empty(t, again)
	require.Nil(t, sess)

	got, err := svc.ValidateRefresh(ctx, next)
	require.NoError(t, err)
	require.Equal(t, "c@example.com", got.Email)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/techfemme/academy/backend/go-services/internal/courses"
)

func TestMemoryRepoCRUD(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	c := &courses.Course{Title: "Go for Beginners", Status: courses.StatusActive}
	id, err := r.Create(ctx, c)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Go for Beginners", got.Title)
	require.False(t, got.CreatedAt.IsZero())

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	err = r.Delete(ctx, id)
	require.NoError(t, err)
	_, err = r.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, id), ErrNotFound)
}

func TestMemoryRepoListNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Hour)
	}

	for _, title := range []string{"first", "second", "third"} {
		_, err := r.Create(ctx, &courses.Course{Title: title})
		require.NoError(t, err)
	}

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "third", list[0].Title)
	require.Equal(t, "first", list[2].Title)
}

func TestMemoryRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	id, err := r.Create(ctx, &courses.Course{Title: "Data"})
	require.NoError(t, err)

	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	got.Title = "changed"

	again, err := r.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Data", again.Title)
}

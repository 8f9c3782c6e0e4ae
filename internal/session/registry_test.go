package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/techfemme/academy/backend/go-services/internal/apperr"
	"github.com/techfemme/academy/backend/go-services/internal/cache"
	"github.com/techfemme/academy/backend/go-services/internal/models"
)

func TestRegistry_OneControllerPerIdentity(t *testing.T) {
	reg, err := NewRegistry(newGatedReader(), nil, nil, 0)
	require.NoError(t, err)
	ctx := context.Background()

	a1 := reg.For(ctx, "a")
	a2 := reg.For(ctx, "a")
	b := reg.For(ctx, "b")
	require.Same(t, a1, a2)
	require.NotSame(t, a1, b)
	require.Equal(t, 2, reg.Len())
}

func TestRegistry_SignOutDropsControllerAndSnapshot(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	reader := newGatedReader()
	reader.profiles["a"] = prof("a", "Ada")
	reg, err := NewRegistry(reader, func(id string) cache.Snapshot {
		return cache.NewRedisSnapshot(client, "test:", id, 0)
	}, nil, 0)
	require.NoError(t, err)
	ctx := context.Background()

	c := reg.Ensure(ctx, *ident("a"))
	s := waitResolved(t, c)
	require.Equal(t, "Ada", s.Profile.FirstName)
	require.True(t, m.Exists("test:a:user"))

	reg.HandleSessionChange(ctx, "a", nil)
	require.False(t, m.Exists("test:a:user"))
	_, ok := reg.Lookup("a")
	require.False(t, ok)
	require.False(t, c.Current().SignedIn())
}

func TestRegistry_NewControllerHydratesFromSnapshot(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	ctx := context.Background()
	require.NoError(t, cache.NewRedisSnapshot(client, "test:", "a", 0).Save(ctx, prof("a", "Snapshot")))

	reader := newGatedReader()
	reg, err := NewRegistry(reader, func(id string) cache.Snapshot {
		return cache.NewRedisSnapshot(client, "test:", id, 0)
	}, nil, 0)
	require.NoError(t, err)

	reader.profiles["a"] = prof("a", "Stored")
	gate := reader.gate("a")

	c := reg.Ensure(ctx, *ident("a"))
	s := c.Current()
	require.True(t, s.Resolving)
	require.Equal(t, "Snapshot", s.Profile.FirstName)

	close(gate)
	s = waitResolved(t, c)
	require.Equal(t, "Stored", s.Profile.FirstName)
	require.Equal(t, 1, reader.callCount())
}

func TestRegistry_StoreRoutesByIdentity(t *testing.T) {
	reader := newGatedReader()
	reader.profiles["a"] = prof("a", "Ada")
	reg, err := NewRegistry(reader, nil, nil, 0)
	require.NoError(t, err)
	ctx := context.Background()

	c := reg.Ensure(ctx, *ident("a"))
	waitResolved(t, c)

	require.NoError(t, reg.Store(ctx, prof("a", "Augusta")))
	require.Equal(t, "Augusta", c.Current().Profile.FirstName)

	// no controller for b: nothing is created
	require.NoError(t, reg.Store(ctx, prof("b", "Bea")))
	_, ok := reg.Lookup("b")
	require.False(t, ok)
}

func TestRegistry_StoreWithoutControllerReplacesSnapshot(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	snapshots := func(id string) cache.Snapshot { return cache.NewRedisSnapshot(client, "test:", id, 0) }
	ctx := context.Background()

	reader := newGatedReader()
	reader.profiles["x"] = &models.Profile{IdentityID: "x", Role: models.RoleAdmin}
	first, err := NewRegistry(reader, snapshots, nil, time.Second)
	require.NoError(t, err)
	s := first.StateFor(ctx, *ident("x"))
	require.Equal(t, models.RoleAdmin, s.Profile.Role)

	demoted := &models.Profile{IdentityID: "x", Role: models.RoleStudent}
	reader.mu.Lock()
	reader.profiles["x"] = demoted
	reader.mu.Unlock()

	second, err := NewRegistry(reader, snapshots, nil, time.Second)
	require.NoError(t, err)
	require.NoError(t, second.Store(ctx, demoted))

	stored, err := snapshots("x").Load(ctx)
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, stored.Role)

	s = second.StateFor(ctx, *ident("x"))
	require.Equal(t, models.RoleStudent, s.Profile.Role)
}

func TestRegistry_StoreBeforeSignInEventReplacesHydratedProfile(t *testing.T) {
	snap := &memSnapshot{p: prof("a", "Old")}
	reader := newGatedReader()
	reg, err := NewRegistry(reader, func(string) cache.Snapshot { return snap }, nil, time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	c := reg.For(ctx, "a")
	require.NoError(t, reg.Store(ctx, prof("a", "New")))
	require.Equal(t, "New", snap.p.FirstName)
	require.Equal(t, "New", c.cache.Get("a").FirstName)
}

func TestRegistry_StateForRecoversAfterStoreOutage(t *testing.T) {
	reader := newGatedReader()
	reader.profiles["a"] = prof("a", "Ada")
	reader.setErr(errors.New("connection refused"))
	reg, err := NewRegistry(reader, nil, nil, time.Second)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s := reg.StateFor(ctx, *ident("a"))
	require.Nil(t, s.Profile)
	require.Equal(t, apperr.KindStoreUnavailable, apperr.KindOf(s.Err))

	reader.setErr(nil)
	s = reg.StateFor(ctx, *ident("a"))
	require.NoError(t, s.Err)
	require.Equal(t, "Ada", s.Profile.FirstName)
}

func TestRegistry_FreshStateForRereadsSettledProfile(t *testing.T) {
	reader := newGatedReader()
	reader.profiles["a"] = prof("a", "Ada")
	reg, err := NewRegistry(reader, nil, nil, time.Second)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reg.StateFor(ctx, *ident("a"))
	require.Equal(t, 1, reader.callCount())

	reader.mu.Lock()
	reader.profiles["a"] = prof("a", "Augusta")
	reader.mu.Unlock()

	require.Equal(t, "Ada", reg.StateFor(ctx, *ident("a")).Profile.FirstName)
	require.Equal(t, "Augusta", reg.FreshStateFor(ctx, *ident("a")).Profile.FirstName)
	require.Equal(t, 2, reader.callCount())
}

func TestRegistry_ConcurrentForReturnsOneController(t *testing.T) {
	reg, err := NewRegistry(newGatedReader(), nil, nil, 0)
	require.NoError(t, err)
	ctx := context.Background()

	got := make(chan *Controller, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got <- reg.For(ctx, "a")
		}()
	}
	wg.Wait()
	close(got)

	first := <-got
	for c := range got {
		require.Same(t, first, c)
	}
	require.Equal(t, 1, reg.Len())
}

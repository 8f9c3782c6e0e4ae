package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/techfemme/academy/backend/go-services/internal/cache"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/pkg/metrics"
)

// SnapshotFactory builds the durable snapshot slot for one identity.
type SnapshotFactory func(identityID string) cache.Snapshot

// Registry holds one Controller per signed-in identity on the server.
type Registry struct {
	profiles  ProfileReader
	snapshots SnapshotFactory
	logger    *zap.Logger
	timeout   time.Duration

	mu          sync.Mutex
	controllers map[string]*Controller
}

func NewRegistry(profiles ProfileReader, snapshots SnapshotFactory, logger *zap.Logger, timeout time.Duration) (*Registry, error) {
	if profiles == nil {
		return nil, ErrMissingProfiles
	}
	if snapshots == nil {
		snapshots = func(string) cache.Snapshot { return cache.NopSnapshot{} }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		profiles:    profiles,
		snapshots:   snapshots,
		logger:      logger,
		timeout:     timeout,
		controllers: make(map[string]*Controller),
	}, nil
}

// For returns the controller for identityID, creating it on first use. A new
// controller is hydrated from its snapshot but has not seen a session event yet.
// Hydration runs outside the registry lock; when two callers race, the first
// controller inserted wins.
func (r *Registry) For(ctx context.Context, identityID string) *Controller {
	if c, ok := r.Lookup(identityID); ok {
		return c
	}
	c, _ := NewController(Config{
		Profiles:       r.profiles,
		Cache:          cache.New(r.snapshots(identityID), r.logger),
		Logger:         r.logger.With(zap.String("identity", identityID)),
		ResolveTimeout: r.timeout,
		Revalidate:     true,
	})
	if _, err := c.Hydrate(ctx); err != nil {
		r.logger.Warn("snapshot hydrate failed", zap.String("identity", identityID), zap.Error(err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.controllers[identityID]; ok {
		return existing
	}
	r.controllers[identityID] = c
	metrics.ActiveSessions.Set(float64(len(r.controllers)))
	return c
}

// Lookup returns the controller for identityID without creating one.
func (r *Registry) Lookup(identityID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[identityID]
	return c, ok
}

// Ensure returns a controller for identity that has a state for it, driving a
// sign-in event when the controller is new or signed out and retrying a failed
// resolution.
func (r *Registry) Ensure(ctx context.Context, identity models.Identity) *Controller {
	c := r.For(ctx, identity.ID)
	c.ensure(ctx, identity)
	return c
}

// HandleSessionChange routes a credential store event to the right controller.
// A sign-out drives the controller to the signed-out state and drops it.
func (r *Registry) HandleSessionChange(ctx context.Context, identityID string, identity *models.Identity) {
	if identity != nil {
		r.For(ctx, identity.ID).HandleSessionChange(ctx, identity)
		return
	}
	r.mu.Lock()
	c, ok := r.controllers[identityID]
	delete(r.controllers, identityID)
	metrics.ActiveSessions.Set(float64(len(r.controllers)))
	r.mu.Unlock()
	if !ok {
		// no live controller; still drop whatever snapshot the identity left behind
		if err := cache.New(r.snapshots(identityID), r.logger).Invalidate(ctx); err != nil {
			r.logger.Warn("snapshot clear failed", zap.String("identity", identityID), zap.Error(err))
		}
		return
	}
	c.HandleSessionChange(ctx, nil)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// StateFor ensures a controller for identity and waits, until ctx is done, for any
// resolution in flight. The returned state may still be resolving.
func (r *Registry) StateFor(ctx context.Context, identity models.Identity) State {
	c := r.Ensure(ctx, identity)
	s, _ := c.Wait(ctx)
	return s
}

// FreshStateFor is StateFor for decisions that must not rest on a cached profile:
// when the controller already holds a settled state it is re-read from the profile
// store first.
func (r *Registry) FreshStateFor(ctx context.Context, identity models.Identity) State {
	c := r.For(ctx, identity.ID)
	if !c.ensure(ctx, identity) {
		c.Reload(ctx)
	}
	s, _ := c.Wait(ctx)
	return s
}

// Commit publishes p on identity's controller.
func (r *Registry) Commit(ctx context.Context, identity models.Identity, p *models.Profile) error {
	return r.For(ctx, identity.ID).Commit(ctx, identity, p)
}

// Store writes a saved profile through the controller of its identity. Without a
// controller tracking the identity the profile still replaces its snapshot, so a
// later restart does not hydrate a stale record.
func (r *Registry) Store(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return nil
	}
	c, ok := r.Lookup(p.IdentityID)
	switch {
	case !ok:
		return cache.New(r.snapshots(p.IdentityID), r.logger).Store(ctx, p)
	case c.Current().identityID() != p.IdentityID:
		return c.cache.Store(ctx, p)
	}
	return c.Store(ctx, p)
}

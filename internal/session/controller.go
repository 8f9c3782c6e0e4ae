// Package session resolves the signed-in identity into a profile and publishes the
// combined state to subscribers. Each session change starts a new generation; a
// resolution only publishes or writes the cache while its generation is current.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/techfemme/academy/backend/go-services/internal/apperr"
	"github.com/techfemme/academy/backend/go-services/internal/cache"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/pkg/metrics"
)

const DefaultResolveTimeout = 10 * time.Second

var (
	ErrMissingProfiles = errors.New("session: profile reader required")
	ErrMissingCache    = errors.New("session: profile cache required")
)

// ProfileReader is the read side of the profile store. Get returns (nil, nil) when absent.
type ProfileReader interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
}

type Config struct {
	Profiles       ProfileReader
	Cache          *cache.ProfileCache
	Logger         *zap.Logger
	ResolveTimeout time.Duration
	// Revalidate makes a cache hit optimistic only: the cached profile is published
	// as still resolving and re-read from the profile store in the same generation.
	Revalidate bool
}

type Controller struct {
	profiles   ProfileReader
	cache      *cache.ProfileCache
	logger     *zap.Logger
	timeout    time.Duration
	revalidate bool

	mu          sync.Mutex
	state       State
	generation  uint64
	subscribers map[int64]chan State
	nextID      int64

	// persistMu orders durable snapshot writes; it is never held together with mu.
	persistMu sync.Mutex
	inflight  sync.WaitGroup
}

func NewController(cfg Config) (*Controller, error) {
	if cfg.Profiles == nil {
		return nil, ErrMissingProfiles
	}
	if cfg.Cache == nil {
		return nil, ErrMissingCache
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.ResolveTimeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return &Controller{
		profiles:    cfg.Profiles,
		cache:       cfg.Cache,
		logger:      logger,
		timeout:     timeout,
		revalidate:  cfg.Revalidate,
		subscribers: make(map[int64]chan State),
	}, nil
}

// Current returns a copy of the latest published state.
func (c *Controller) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe returns a channel that always holds the most recent state. The current
// state is delivered immediately. Slow readers skip intermediate states. The
// subscription ends when ctx is done or cancel is called.
func (c *Controller) Subscribe(ctx context.Context) (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subscribers[id] = ch
	ch <- c.state.clone()
	c.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel
}

// Wait blocks until the state is no longer resolving.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	sub, cancel := c.Subscribe(ctx)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return c.Current(), ctx.Err()
		case s := <-sub:
			if !s.Resolving {
				return s, nil
			}
		}
	}
}

// Hydrate seeds the memory slot from the durable snapshot on a cold start, so the
// next sign-in event for the same identity can publish it before the store answers.
func (c *Controller) Hydrate(ctx context.Context) (*models.Profile, error) {
	return c.cache.Hydrate(ctx)
}

// HandleSessionChange is the credential store callback. A nil identity means signed out.
func (c *Controller) HandleSessionChange(ctx context.Context, identity *models.Identity) {
	c.mu.Lock()
	c.generation++
	gen := c.generation

	if identity == nil {
		c.cache.Forget()
		c.publishLocked(State{})
		c.mu.Unlock()
		if err := c.persist(ctx, gen, nil); err != nil {
			c.logger.Warn("snapshot clear failed on sign-out", zap.Error(err))
		}
		metrics.SessionResolutions.WithLabelValues("signed_out").Inc()
		return
	}

	id := *identity
	cached := c.cache.Get(id.ID)
	switch {
	case cached != nil && !c.revalidate:
		c.publishLocked(State{Identity: &id, Profile: cached})
		c.mu.Unlock()
		metrics.SessionResolutions.WithLabelValues("cached").Inc()
		return
	case cached != nil:
		metrics.SessionResolutions.WithLabelValues("cached").Inc()
	}
	c.publishLocked(State{Identity: &id, Profile: cached, Resolving: true})
	c.inflight.Add(1)
	c.mu.Unlock()

	go c.resolve(context.WithoutCancel(ctx), gen, id)
}

// Reload re-queries the profile store for the current identity, bypassing the cache.
// A profile already shown stays published while the query runs.
func (c *Controller) Reload(ctx context.Context) {
	c.mu.Lock()
	if c.state.Identity == nil {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	id := *c.state.Identity
	c.publishLocked(State{Identity: &id, Profile: c.state.Profile, Resolving: true})
	c.inflight.Add(1)
	c.mu.Unlock()

	go c.resolve(context.WithoutCancel(ctx), gen, id)
}

// ensure drives a sign-in event when the controller tracks another identity and
// retries a failed resolution for the same one. It reports whether it started a fetch
// or published a new state.
func (c *Controller) ensure(ctx context.Context, identity models.Identity) bool {
	cur := c.Current()
	switch {
	case cur.identityID() != identity.ID:
		c.HandleSessionChange(ctx, &identity)
	case cur.failed():
		c.Reload(ctx)
	default:
		return false
	}
	return true
}

// Store writes a saved profile through to the cache and publishes it when it
// belongs to the signed-in identity. It starts a new generation, so a fetch
// still in flight cannot overwrite the fresher record.
func (c *Controller) Store(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return nil
	}
	c.mu.Lock()
	if c.state.Identity == nil || c.state.Identity.ID != p.IdentityID {
		c.mu.Unlock()
		return nil
	}
	c.generation++
	gen := c.generation
	id := *c.state.Identity
	c.cache.Remember(p)
	c.publishLocked(State{Identity: &id, Profile: p.Clone()})
	c.mu.Unlock()

	return c.persist(ctx, gen, p)
}

// persist writes p (or clears the snapshot when p is nil) outside mu. A write for a
// generation that is no longer current is skipped; clears always run.
func (c *Controller) persist(ctx context.Context, gen uint64, p *models.Profile) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if p == nil {
		return c.cache.Erase(ctx)
	}
	if !c.isCurrent(gen) {
		return nil
	}
	return c.cache.Persist(ctx, p)
}

func (c *Controller) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.generation
}

type fetchResult struct {
	profile *models.Profile
	err     error
}

func (c *Controller) resolve(ctx context.Context, gen uint64, id models.Identity) {
	defer c.inflight.Done()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		p, err := c.profiles.Get(ctx, id.ID)
		done <- fetchResult{profile: p, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = fetchResult{err: ctx.Err()}
	}

	if res.err == nil && res.profile != nil {
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			c.discard(id)
			return
		}
		c.cache.Remember(res.profile)
		c.mu.Unlock()
		if err := c.persist(ctx, gen, res.profile); err != nil {
			c.logger.Warn("cache refresh failed", zap.String("identity", id.ID), zap.Error(err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.discard(id)
		return
	}

	switch {
	case res.err != nil:
		c.logger.Error("profile fetch failed", zap.String("identity", id.ID), zap.Error(res.err))
		metrics.SessionResolutions.WithLabelValues("error").Inc()
		c.publishLocked(State{
			Identity: &id,
			Err:      apperr.Wrap(res.err, apperr.KindStoreUnavailable, "session.resolve", "could not load your profile, please try again"),
		})
	case res.profile == nil:
		c.logger.Warn("profile not found", zap.String("identity", id.ID))
		metrics.SessionResolutions.WithLabelValues("missing").Inc()
		c.publishLocked(State{
			Identity: &id,
			Err:      apperr.New(apperr.KindProfileMissing, "session.resolve", "profile not found"),
		})
	default:
		metrics.SessionResolutions.WithLabelValues("found").Inc()
		c.publishLocked(State{Identity: &id, Profile: res.profile.Clone()})
	}
}

func (c *Controller) discard(id models.Identity) {
	metrics.SessionResolutions.WithLabelValues("stale").Inc()
	c.logger.Debug("discarding stale profile resolution", zap.String("identity", id.ID))
}

// publishLocked replaces the state and pushes it to every subscriber, dropping any
// unread older value. Callers hold c.mu.
func (c *Controller) publishLocked(s State) {
	c.state = s
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- s.clone()
	}
}

// StateFor drives a sign-in event for identity if the controller is not already
// tracking it, retries a failed resolution, then waits until ctx is done for the
// resolution to finish.
func (c *Controller) StateFor(ctx context.Context, identity models.Identity) State {
	c.ensure(ctx, identity)
	s, _ := c.Wait(ctx)
	return s
}

// Commit publishes p as the resolved profile of identity.
func (c *Controller) Commit(ctx context.Context, identity models.Identity, p *models.Profile) error {
	if p == nil || p.IdentityID != identity.ID {
		return nil
	}
	return c.Store(ctx, p)
}

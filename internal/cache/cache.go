// Package cache holds the signed-in profile in a single in-memory slot tagged with
// the identity that owns it, backed by an optional durable Snapshot.
//
// The contract with the session flow:
//   - sign-out invalidates both tiers,
//   - a successful fetch or save overwrites both tiers,
//   - a cold start may hydrate the memory slot from the snapshot before any fetch.
package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/techfemme/academy/backend/go-services/internal/models"
)

// ProfileCache is safe for concurrent use.
type ProfileCache struct {
	mu      sync.RWMutex
	owner   string
	profile *models.Profile

	durable Snapshot
	logger  *zap.Logger
}

// New creates a cache over durable. A nil durable tier keeps memory only.
func New(durable Snapshot, logger *zap.Logger) *ProfileCache {
	if durable == nil {
		durable = NopSnapshot{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileCache{durable: durable, logger: logger}
}

// Get returns the cached profile only when it belongs to identityID.
func (c *ProfileCache) Get(identityID string) *models.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil || identityID == "" || c.owner != identityID {
		return nil
	}
	return c.profile.Clone()
}

// Remember replaces the memory slot with p without touching the durable tier.
func (c *ProfileCache) Remember(p *models.Profile) {
	if p == nil {
		return
	}
	c.mu.Lock()
	c.owner = p.IdentityID
	c.profile = p.Clone()
	c.mu.Unlock()
}

// Forget empties the memory slot without touching the durable tier.
func (c *ProfileCache) Forget() {
	c.mu.Lock()
	c.owner = ""
	c.profile = nil
	c.mu.Unlock()
}

// Persist writes p to the durable tier only.
func (c *ProfileCache) Persist(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return nil
	}
	if err := c.durable.Save(ctx, p); err != nil {
		c.logger.Warn("snapshot save failed", zap.String("identity", p.IdentityID), zap.Error(err))
		return err
	}
	return nil
}

// Erase clears the durable tier only.
func (c *ProfileCache) Erase(ctx context.Context) error {
	if err := c.durable.Clear(ctx); err != nil {
		c.logger.Warn("snapshot clear failed", zap.Error(err))
		return err
	}
	return nil
}

// Store overwrites both tiers with p. The memory slot is updated even when the
// durable write fails; the error is returned so callers can log it.
func (c *ProfileCache) Store(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return nil
	}
	c.Remember(p)
	return c.Persist(ctx, p)
}

// Invalidate empties both tiers.
func (c *ProfileCache) Invalidate(ctx context.Context) error {
	c.Forget()
	return c.Erase(ctx)
}

// Hydrate loads the durable snapshot into the memory slot and returns it.
// A missing or unreadable snapshot leaves the slot untouched.
func (c *ProfileCache) Hydrate(ctx context.Context) (*models.Profile, error) {
	p, err := c.durable.Load(ctx)
	if err != nil {
		c.logger.Warn("snapshot load failed", zap.Error(err))
		return nil, err
	}
	if p == nil || p.IdentityID == "" {
		return nil, nil
	}
	c.mu.Lock()
	c.owner = p.IdentityID
	c.profile = p.Clone()
	c.mu.Unlock()
	return p, nil
}

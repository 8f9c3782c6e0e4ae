package profiles

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/techfemme/academy/backend/go-services/internal/models"
)

// MemoryRepository is an in-memory profile store for tests and local runs.
// Values are cloned on the way in and out.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.Profile
	now   func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		store: make(map[string]*models.Profile),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (m *MemoryRepository) Set(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := p.Clone()
	if c.EnrolledCourses == nil {
		c.EnrolledCourses = []string{}
	}
	c.UpdatedAt = m.now()
	m.store[c.IdentityID] = c
	return nil
}

func (m *MemoryRepository) Update(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error) {
	return m.modify(id, func(p *models.Profile) *models.Profile { return u.Apply(p) })
}

func (m *MemoryRepository) SetRole(ctx context.Context, id string, role models.Role) (*models.Profile, error) {
	return m.modify(id, func(p *models.Profile) *models.Profile {
		c := p.Clone()
		c.Role = role
		return c
	})
}

func (m *MemoryRepository) AppendCourse(ctx context.Context, id string, course string) (*models.Profile, error) {
	return m.modify(id, func(p *models.Profile) *models.Profile {
		c := p.Clone()
		for _, existing := range c.EnrolledCourses {
			if existing == course {
				return c
			}
		}
		c.EnrolledCourses = append(c.EnrolledCourses, course)
		return c
	})
}

func (m *MemoryRepository) List(ctx context.Context) ([]*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Profile, 0, len(m.store))
	for _, p := range m.store {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (m *MemoryRepository) modify(id string, fn func(*models.Profile) *models.Profile) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := fn(p)
	next.UpdatedAt = m.now()
	m.store[id] = next
	return next.Clone(), nil
}

package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/techfemme/academy/backend/go-services/internal/courses"
)

// MemoryRepo is an in-memory course store used by tests and the dev server.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*courses.Course
	now   func() time.Time
}

var _ Repository = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		store: make(map[string]*courses.Course),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryRepo) Create(ctx context.Context, c *courses.Course) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = m.now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.store[c.ID] = &cp
	return c.ID, nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*courses.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.store[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) List(ctx context.Context) ([]*courses.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*courses.Course, 0, len(m.store))
	for _, c := range m.store {
		cp := *c
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

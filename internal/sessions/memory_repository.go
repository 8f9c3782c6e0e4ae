package sessions

import (
	"context"
	"sync"
)

// MemoryRepository keeps sessions in process. Used by tests and when Redis is not configured.
type MemoryRepository struct {
	mu    sync.Mutex
	store map[string]Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]Session)}
}

func (m *MemoryRepository) Create(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.RefreshToken] = *s
	return nil
}

func (m *MemoryRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[refresh]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, refresh)
	return nil
}

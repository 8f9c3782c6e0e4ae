package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/techfemme/academy/backend/go-services/internal/models"
)

// Service wraps repository operations with refresh-token business logic
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service {
	return &Service{repo: r, now: func() time.Time { return time.Now().UTC() }}
}

// CreateSession stores a new refresh session for identity and returns the refresh token
func (s *Service) CreateSession(ctx context.Context, identity models.Identity, ttl time.Duration) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	r := hex.EncodeToString(b)
	now := s.now()
	sess := &Session{
		RefreshToken: r,
		Sub:          identity.ID,
		Email:        identity.Email,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return r, nil
}

// ValidateRefresh returns the session if refresh token is valid and not expired
func (s *Service) ValidateRefresh(ctx context.Context, refresh string) (*Session, error) {
	if refresh == "" {
		return nil, nil
	}
	sess, err := s.repo.GetByRefresh(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if sess.Expired(s.now()) {
		_ = s.repo.DeleteByRefresh(ctx, refresh)
		return nil, nil
	}
	return sess, nil
}

// Rotate swaps a valid refresh token for a new one. It returns ("", nil, nil) when
// the presented token is unknown or expired.
func (s *Service) Rotate(ctx context.Context, refresh string, ttl time.Duration) (string, *Session, error) {
	sess, err := s.ValidateRefresh(ctx, refresh)
	if err != nil || sess == nil {
		return "", nil, err
	}
	if err := s.repo.DeleteByRefresh(ctx, refresh); err != nil {
		return "", nil, fmt.Errorf("rotate session: %w", err)
	}
	next, err := s.CreateSession(ctx, models.Identity{ID: sess.Sub, Email: sess.Email}, ttl)
	if err != nil {
		return "", nil, err
	}
	return next, sess, nil
}

func (s *Service) DeleteRefresh(ctx context.Context, refresh string) error {
	return s.repo.DeleteByRefresh(ctx, refresh)
}

package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps refresh sessions as Redis hashes. The key is derived from
// a digest of the refresh token so a key listing never exposes usable tokens.
// Each hash expires with its session; Redis drops it without a sweeper.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

var _ Repository = (*RedisRepository)(nil)

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(refresh string) string {
	sum := sha256.Sum256([]byte(refresh))
	return r.prefix + hex.EncodeToString(sum[:])
}

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	key := r.key(s.RefreshToken)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"sub", s.Sub,
			"email", s.Email,
			"createdAt", s.CreatedAt.UTC().Format(time.RFC3339Nano),
			"expiresAt", s.ExpiresAt.UTC().Format(time.RFC3339Nano),
		)
		p.ExpireAt(ctx, key, s.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis session create: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	fields, err := r.client.HGetAll(ctx, r.key(refresh)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis session get: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	s := &Session{RefreshToken: refresh, Sub: fields["sub"], Email: fields["email"]}
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["createdAt"]); err != nil {
		return nil, fmt.Errorf("redis session createdAt: %w", err)
	}
	if s.ExpiresAt, err = time.Parse(time.RFC3339Nano, fields["expiresAt"]); err != nil {
		return nil, fmt.Errorf("redis session expiresAt: %w", err)
	}
	return s, nil
}

func (r *RedisRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	return r.client.Del(ctx, r.key(refresh)).Err()
}

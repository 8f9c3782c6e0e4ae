package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/techfemme/academy/backend/go-services/internal/models"
)

// RedisSnapshot stores the profile snapshot as JSON under "<prefix><identity>:user".
// Each signed-in identity gets its own namespace on the server.
type RedisSnapshot struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ Snapshot = (*RedisSnapshot)(nil)

// NewRedisSnapshot creates a snapshot slot for one identity. A zero ttl keeps the key until cleared.
func NewRedisSnapshot(client *redis.Client, prefix, identityID string, ttl time.Duration) *RedisSnapshot {
	if prefix == "" {
		prefix = "snapshot:"
	}
	return &RedisSnapshot{client: client, key: prefix + identityID + ":" + SnapshotKey, ttl: ttl}
}

func (r *RedisSnapshot) Load(ctx context.Context) (*models.Profile, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return decode(b)
}

func (r *RedisSnapshot) Save(ctx context.Context, p *models.Profile) error {
	b, err := encode(p)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, b, r.ttl).Err()
}

func (r *RedisSnapshot) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

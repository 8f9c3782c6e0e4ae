package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:access:"

// package-level Redis client used for the access token blacklist (optional)
var blacklistClient *redis.Client

// SetBlacklistClient configures the Redis client used for blacklist operations.
// Safe to call with nil to disable blacklist features.
func SetBlacklistClient(c *redis.Client) {
	blacklistClient = c
}

// BlacklistAccessToken marks a signed-out access token as revoked for ttl, which
// should be the token's remaining lifetime. Without a Redis client it is a no-op.
func BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	if blacklistClient == nil || token == "" {
		return nil
	}
	if ttl <= 0 {
		// already expired; nothing to revoke
		return nil
	}
	return blacklistClient.Set(ctx, blacklistPrefix+token, "1", ttl).Err()
}

// IsAccessTokenBlacklisted returns true when the token exists in the Redis blacklist.
// If no Redis client is configured, returns (false, nil).
func IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	if blacklistClient == nil {
		return false, nil
	}
	exists, err := blacklistClient.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

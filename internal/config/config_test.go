package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "academy_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("SESSION_RESOLVE_TIMEOUT_SECONDS", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "mongodb://localhost:27017/testdb", cfg.MongoDB.URI)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, 3*time.Second, cfg.Session.ResolveTimeout)
	require.Equal(t, SnapshotRedis, cfg.Session.SnapshotBackend)
	require.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	require.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	require.Equal(t, 5, cfg.RateLimit.AuthBurst)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	v := viper.New()
	ApplyDefaults(v)
	v.Set("JWT_SECRET", "short")
	_, err := Load(v)
	require.Error(t, err)
}

func TestLoadRejectsUnknownSnapshotBackend(t *testing.T) {
	v := viper.New()
	ApplyDefaults(v)
	v.Set("JWT_SECRET", "testsecret123456789012345678901234")
	v.Set("SESSION_SNAPSHOT_BACKEND", "localstorage")
	_, err := Load(v)
	require.ErrorContains(t, err, "SESSION_SNAPSHOT_BACKEND")
}

func TestKeycloakIssuer(t *testing.T) {
	require.Equal(t, "", KeycloakConfig{}.Issuer())
	require.Equal(t, "http://kc/realms/academy", KeycloakConfig{URL: "http://kc/", Realm: "academy", ClientID: "web"}.Issuer())
	require.Equal(t, "http://kc", KeycloakConfig{URL: "http://kc", ClientID: "web"}.Issuer())
}

func TestAvatarBaseURL(t *testing.T) {
	require.Equal(t, "/avatars", ServerConfig{}.AvatarBaseURL())
	require.Equal(t, "https://api.academy.test/avatars", ServerConfig{PublicURL: "https://api.academy.test/"}.AvatarBaseURL())
}

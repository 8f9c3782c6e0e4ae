package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
	SendGrid  SendGridConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	// PublicURL is the externally visible origin of the API, used to build avatar
	// links. Empty keeps the links relative.
	PublicURL string
}

// AvatarBaseURL is the prefix avatar links are served under.
func (s ServerConfig) AvatarBaseURL() string {
	return strings.TrimRight(s.PublicURL, "/") + "/avatars"
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type MinIOConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	Bucket    string
}

type KeycloakConfig struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
}

// Issuer returns the realm issuer URL, or "" when Keycloak is not configured.
func (k KeycloakConfig) Issuer() string {
	if k.URL == "" || k.ClientID == "" {
		return ""
	}
	if k.Realm == "" {
		return k.URL
	}
	return strings.TrimRight(k.URL, "/") + "/realms/" + k.Realm
}

type JWTConfig struct {
	Secret          string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
	// AuthRPS and AuthBurst budget the sign-up, sign-in and refresh endpoints per client IP.
	AuthRPS   float64
	AuthBurst int
}

// SessionConfig controls profile resolution and the durable local snapshot.
type SessionConfig struct {
	ResolveTimeout  time.Duration
	SnapshotBackend string // "redis" | "sqlite" | "none"
	SnapshotPrefix  string
	SQLitePath      string
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type LogConfig struct {
	Level string
}

const (
	SnapshotRedis  = "redis"
	SnapshotSQLite = "sqlite"
	SnapshotNone   = "none"
)

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	ApplyDefaults(v)
	return Load(v)
}

// ApplyDefaults configures env bindings and defaults on v.
func ApplyDefaults(v *viper.Viper) {
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_CORS_ORIGINS", "*")
	v.SetDefault("MONGODB_DATABASE", "academy")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("MINIO_BUCKET", "academy-avatars")
	v.SetDefault("JWT_ISSUER", "academy-auth")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	v.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("RATE_LIMIT_AUTH_RPS", 0.2)
	v.SetDefault("RATE_LIMIT_AUTH_BURST", 5)
	v.SetDefault("SESSION_RESOLVE_TIMEOUT_SECONDS", 10)
	v.SetDefault("SESSION_SNAPSHOT_BACKEND", SnapshotRedis)
	v.SetDefault("SESSION_SNAPSHOT_PREFIX", "academy:")
	v.SetDefault("SESSION_SQLITE_PATH", "academy-local.db")
	v.SetDefault("SENDGRID_FROM_EMAIL", "hello@techfemme.academy")
	v.SetDefault("SENDGRID_FROM_NAME", "TechFemme Academy")
	v.SetDefault("LOG_LEVEL", "info")
}

// Load builds a Config from an already-prepared viper instance.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			CORSOrigins:  splitList(v.GetString("SERVER_CORS_ORIGINS")),
			PublicURL:    v.GetString("SERVER_PUBLIC_URL"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		Keycloak: KeycloakConfig{
			URL:          v.GetString("KEYCLOAK_URL"),
			Realm:        v.GetString("KEYCLOAK_REALM"),
			ClientID:     v.GetString("KEYCLOAK_CLIENT_ID"),
			ClientSecret: v.GetString("KEYCLOAK_CLIENT_SECRET"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("JWT_SECRET"),
			Issuer:          v.GetString("JWT_ISSUER"),
			AccessTokenTTL:  time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(v.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			AuthRPS:       v.GetFloat64("RATE_LIMIT_AUTH_RPS"),
			AuthBurst:     v.GetInt("RATE_LIMIT_AUTH_BURST"),
		},
		Session: SessionConfig{
			ResolveTimeout:  time.Duration(v.GetInt("SESSION_RESOLVE_TIMEOUT_SECONDS")) * time.Second,
			SnapshotBackend: strings.ToLower(strings.TrimSpace(v.GetString("SESSION_SNAPSHOT_BACKEND"))),
			SnapshotPrefix:  v.GetString("SESSION_SNAPSHOT_PREFIX"),
			SQLitePath:      v.GetString("SESSION_SQLITE_PATH"),
		},
		SendGrid: SendGridConfig{
			APIKey:    os.Getenv("SENDGRID_API_KEY"),
			FromEmail: v.GetString("SENDGRID_FROM_EMAIL"),
			FromName:  v.GetString("SENDGRID_FROM_NAME"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	switch c.Session.SnapshotBackend {
	case SnapshotRedis, SnapshotSQLite, SnapshotNone:
	default:
		return fmt.Errorf("SESSION_SNAPSHOT_BACKEND %q is not one of redis, sqlite, none", c.Session.SnapshotBackend)
	}
	if c.Session.ResolveTimeout <= 0 {
		return fmt.Errorf("SESSION_RESOLVE_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/techfemme/academy/backend/go-services/internal/config"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/pkg/middleware"
)

var (
	ErrMissingSigningKey = errors.New("tokens: signing key required")
	ErrMissingIssuer     = errors.New("tokens: issuer required")
	ErrMissingToken      = errors.New("tokens: token required")
	ErrInvalidToken      = errors.New("tokens: invalid token")
	ErrExpiredToken      = errors.New("tokens: token expired")
	ErrMissingSubject    = errors.New("tokens: subject required")
)

// Claims is the payload of an academy access token. Subject is the identity id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Manager issues and validates HS256 access tokens.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  func() time.Time
}

// NewManager builds a Manager. A nil clock uses time.Now.
func NewManager(secret []byte, issuer string, ttl time.Duration, clock func() time.Time) (*Manager, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSigningKey
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return nil, ErrMissingIssuer
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if clock == nil {
		clock = time.Now
	}
	return &Manager{secret: append([]byte(nil), secret...), issuer: issuer, ttl: ttl, clock: clock}, nil
}

// NewManagerFromConfig builds a Manager from the JWT config section.
func NewManagerFromConfig(cfg config.JWTConfig) (*Manager, error) {
	return NewManager([]byte(cfg.Secret), cfg.Issuer, cfg.AccessTokenTTL, nil)
}

// TTL is the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs an access token for identity and returns it with its expiry.
func (m *Manager) Issue(identity models.Identity) (string, time.Time, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return "", time.Time{}, ErrMissingSubject
	}
	now := m.clock().UTC()
	exp := now.Add(m.ttl)
	claims := Claims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// Validate parses raw and checks signature, algorithm, expiry, issuer and subject.
func (m *Manager) Validate(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, ErrMissingToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithTimeFunc(m.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, ErrMissingSubject
	}
	return *claims, nil
}

// Identity returns the identity carried by a valid token.
func (m *Manager) Identity(raw string) (models.Identity, error) {
	c, err := m.Validate(raw)
	if err != nil {
		return models.Identity{}, err
	}
	return models.Identity{ID: c.Subject, Email: c.Email}, nil
}

// Remaining is how long a valid token has left before it expires.
func (m *Manager) Remaining(c Claims) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(m.clock())
}

// Verify satisfies middleware.Verifier.
func (m *Manager) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	c, err := m.Validate(raw)
	if err != nil {
		return nil, err
	}
	return verifiedToken{claims: c}, nil
}

type verifiedToken struct {
	claims Claims
}

func (t verifiedToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

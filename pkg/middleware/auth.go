package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/internal/sessions"
)

// Context keys set by AuthMiddleware.
const (
	ClaimsKey      = "claims"
	IdentityKey    = "identity"
	AccessTokenKey = "accessToken"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// AuthMiddleware verifies Bearer tokens. Verifiers are tried in order and the first
// that accepts the token wins; blacklisted (signed-out) tokens are rejected up front.
func AuthMiddleware(verifiers ...Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		// Expect 'Bearer <token>'
		var token string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		ctx := c.Request.Context()
		if revoked, err := sessions.IsAccessTokenBlacklisted(ctx, token); err == nil && revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
			return
		}

		var (
			verified Token
			lastErr  = fmt.Errorf("no verifier configured")
		)
		for _, ver := range verifiers {
			t, err := ver.Verify(ctx, token)
			if err == nil {
				verified = t
				break
			}
			lastErr = err
		}
		if verified == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": lastErr.Error()})
			return
		}

		// Extract claims
		var claims map[string]interface{}
		if err := verified.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}
		email, _ := claims["email"].(string)

		c.Set(ClaimsKey, claims)
		c.Set(IdentityKey, &models.Identity{ID: sub, Email: email})
		c.Set(AccessTokenKey, token)
		c.Next()
	}
}

// IdentityFrom returns the identity set by AuthMiddleware.
func IdentityFrom(c *gin.Context) (*models.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*models.Identity)
	return id, ok && id != nil
}

// AccessTokenFrom returns the raw bearer token accepted by AuthMiddleware.
func AccessTokenFrom(c *gin.Context) string {
	return c.GetString(AccessTokenKey)
}

package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/techfemme/academy/backend/go-services/internal/config"
	"github.com/techfemme/academy/backend/go-services/pkg/middleware"
)

// Verifier checks ID tokens issued by an external identity provider (Keycloak).
// Its subject becomes the identity id, so such users still need a profile record.
type Verifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

var _ middleware.Verifier = (*Verifier)(nil)

// NewVerifier discovers the provider at issuer and verifies tokens for clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &Verifier{provider: provider, verifier: verifier}, nil
}

// NewFromConfig returns (nil, nil) when Keycloak is not configured.
func NewFromConfig(ctx context.Context, cfg config.KeycloakConfig) (*Verifier, error) {
	issuer := cfg.Issuer()
	if issuer == "" {
		return nil, nil
	}
	return NewVerifier(ctx, issuer, cfg.ClientID)
}

// Verify verifies the raw ID token and returns it as a middleware.Token
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}

package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCAuthenticatorConfig configures JWTAuthenticator's OIDC discovery.
type OIDCAuthenticatorConfig struct {
	IssuerURL         string
	ClientID          string
	SkipClientIDCheck bool
}

// JWTAuthenticator is the default Authenticator: bearer-token
// verification against an OIDC discovery document, grounded on
// volaticloud/internal/auth/keycloak.go's KeycloakClient (OIDC provider
// discovery + provider.Verifier + verifier.Verify).
type JWTAuthenticator struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewJWTAuthenticator discovers the OIDC provider at cfg.IssuerURL and
// builds a token verifier for cfg.ClientID.
func NewJWTAuthenticator(ctx context.Context, cfg OIDCAuthenticatorConfig) (*JWTAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("capability: OIDC discovery failed: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{
		ClientID:          cfg.ClientID,
		SkipClientIDCheck: cfg.SkipClientIDCheck,
	})
	return &JWTAuthenticator{provider: provider, verifier: verifier}, nil
}

// Authenticate extracts a bearer token from the Authorization header and
// verifies it via the OIDC verifier (spec §6.4: "invoked before
// binding").
func (a *JWTAuthenticator) Authenticate(ctx context.Context, headers map[string]string) (AuthResult, error) {
	raw := bearerToken(headers)
	if raw == "" {
		return AuthResult{}, fmt.Errorf("capability: no bearer token present")
	}
	if _, err := a.verifier.Verify(ctx, raw); err != nil {
		return AuthResult{}, fmt.Errorf("capability: token verification failed: %w", err)
	}
	return AuthResult{Token: raw}, nil
}

func bearerToken(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "authorization") {
			const prefix = "Bearer "
			if len(v) > len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
				return v[len(prefix):]
			}
		}
	}
	return ""
}

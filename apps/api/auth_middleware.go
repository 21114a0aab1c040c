package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/palmyra-sites/platform/go/auth"
	"github.com/zenGate-Global/palmyra-sites/platform/go/gcp"
)

// authStack is the provider-specific pair used by the router and the domain registry.
type authStack struct {
	middleware func(http.Handler) http.Handler
	claims     platformauth.TenantClaimIssuer
}

// buildAuth selects the token verifier and the tenant claim issuer for AUTH_PROVIDER.
// Tokens are read from the bearer header and, for browsers, from the session cookie.
func buildAuth(ctx context.Context, cfg config, logger *zap.Logger) (authStack, error) {
	var (
		verify platformauth.VerifyFunc
		claims platformauth.TenantClaimIssuer
	)

	switch cfg.AuthProvider {
	case "firebase":
		_, fbAuth, err := gcp.InitFirebaseAuth(ctx, cfg.FirebaseCredentials)
		if err != nil {
			return authStack{}, err
		}
		verify = platformauth.FirebaseTokenVerifier(fbAuth)
		claims = platformauth.FirebaseClaimIssuer{Client: fbAuth}
	case "jwt":
		signer, err := platformauth.NewSessionSigner(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.SessionTTL)
		if err != nil {
			return authStack{}, fmt.Errorf("session signer: %w", err)
		}
		verify = signer.Verifier()
		claims = signer
	case "dev":
		logger.Warn("using dev auth middleware; do not use in production")
		verify = platformauth.UnsignedTokenVerifier()
		claims = platformauth.UnsignedClaimIssuer{ProjectID: cfg.DevProjectID, TTL: cfg.SessionTTL}
	default:
		return authStack{}, fmt.Errorf("unsupported auth provider %q", cfg.AuthProvider)
	}

	return authStack{
		middleware: platformauth.JWT(verify, nil, platformauth.WithSessionCookie(cfg.SessionCookie)),
		claims:     claims,
	}, nil
}

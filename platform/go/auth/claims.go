package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	fbauth "firebase.google.com/go/v4/auth"

	"github.com/zenGate-Global/palmyra-sites/platform/go/auth/devtoken"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

// SessionGrant is handed back to the caller after the tenant claim changed.
// Token is empty when the provider expects the client to refresh its own token.
type SessionGrant struct {
	Token     string `json:"token,omitempty"`
	TenantID  string `json:"tenantId"`
	MustRenew bool   `json:"mustRenew"`
}

// TenantClaimIssuer binds a principal to a tenant at the identity provider.
type TenantClaimIssuer interface {
	IssueTenantClaim(ctx context.Context, creds UserCredentials, tenantID tenant.ID) (SessionGrant, error)
}

var errNoSubject = errors.New("principal subject is required")

// IssueTenantClaim signs a fresh session token carrying tenantID.
func (s *SessionSigner) IssueTenantClaim(_ context.Context, creds UserCredentials, tenantID tenant.ID) (SessionGrant, error) {
	if creds.Id == "" {
		return SessionGrant{}, errNoSubject
	}
	id := tenantID.String()
	creds.TenantID = &id

	token, err := s.Sign(creds)
	if err != nil {
		return SessionGrant{}, fmt.Errorf("sign session: %w", err)
	}
	return SessionGrant{Token: token, TenantID: id}, nil
}

// FirebaseClaimIssuer stores tenant_id as a Firebase custom claim. Clients must force an
// ID token refresh to observe it.
type FirebaseClaimIssuer struct {
	Client *fbauth.Client
}

func (f FirebaseClaimIssuer) IssueTenantClaim(ctx context.Context, creds UserCredentials, tenantID tenant.ID) (SessionGrant, error) {
	if creds.Id == "" {
		return SessionGrant{}, errNoSubject
	}
	if f.Client == nil {
		return SessionGrant{}, errors.New("firebase auth client not configured")
	}

	user, err := f.Client.GetUser(ctx, creds.Id)
	if err != nil {
		return SessionGrant{}, fmt.Errorf("get firebase user: %w", err)
	}

	claims := make(map[string]interface{}, len(user.CustomClaims)+1)
	for k, v := range user.CustomClaims {
		claims[k] = v
	}
	claims[TenantClaim] = tenantID.String()

	if err := f.Client.SetCustomUserClaims(ctx, creds.Id, claims); err != nil {
		return SessionGrant{}, fmt.Errorf("set firebase custom claims: %w", err)
	}

	return SessionGrant{TenantID: tenantID.String(), MustRenew: true}, nil
}

// UnsignedClaimIssuer mints unsigned dev tokens. Only for AUTH_PROVIDER=dev.
type UnsignedClaimIssuer struct {
	ProjectID string
	TTL       time.Duration
}

func (u UnsignedClaimIssuer) IssueTenantClaim(_ context.Context, creds UserCredentials, tenantID tenant.ID) (SessionGrant, error) {
	if creds.Id == "" {
		return SessionGrant{}, errNoSubject
	}
	name := ""
	if creds.Name != nil {
		name = *creds.Name
	}
	email := creds.Email
	if email == "" {
		email = creds.Id + "@localhost"
	}

	token, err := devtoken.BuildUnsignedToken(devtoken.Params{
		ProjectID:     u.ProjectID,
		UserID:        creds.Id,
		Email:         email,
		Name:          name,
		TenantID:      tenantID.String(),
		EmailVerified: creds.EmailVerified,
		IsAdmin:       creds.IsAdmin,
		ExpiresIn:     u.TTL,
	}, time.Time{})
	if err != nil {
		return SessionGrant{}, err
	}
	return SessionGrant{Token: token, TenantID: tenantID.String()}, nil
}

// Package devtoken mints unsigned ID-token-shaped JWTs for AUTH_PROVIDER=dev.
package devtoken

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Params are the claims of a dev token. Nothing is read from the environment.
type Params struct {
	ProjectID     string // iss and aud default
	UserID        string // sub and user_id
	Email         string
	Name          string
	TenantID      string // empty for a principal without a tenant
	EmailVerified bool
	IsAdmin       bool
	ExpiresIn     time.Duration // 1h when zero
	Audience      string        // overrides aud
	Issuer        string        // overrides iss
}

const securetokenIssuer = "https://securetoken.google.com/"

func (p Params) validate() error {
	var missing []string
	for name, v := range map[string]string{"projectID": p.ProjectID, "userID": p.UserID, "email": p.Email} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.New(strings.Join(missing, ", ") + " required")
	}
	return nil
}

func (p Params) claims(now time.Time) jwt.MapClaims {
	ttl := p.ExpiresIn
	if ttl == 0 {
		ttl = time.Hour
	}

	claims := jwt.MapClaims{
		"iss":            orDefault(p.Issuer, securetokenIssuer+p.ProjectID),
		"aud":            orDefault(p.Audience, p.ProjectID),
		"sub":            p.UserID,
		"user_id":        p.UserID,
		"auth_time":      now.Unix(),
		"iat":            now.Unix(),
		"exp":            now.Add(ttl).Unix(),
		"email":          p.Email,
		"email_verified": p.EmailVerified,
		"name":           p.Name,
		"isAdmin":        p.IsAdmin,
	}
	if tenantID := strings.TrimSpace(p.TenantID); tenantID != "" {
		claims["tenant_id"] = tenantID
	}
	return claims
}

// BuildUnsignedToken returns an alg "none" JWT with an empty signature segment.
// A zero now means the current time.
func BuildUnsignedToken(p Params, now time.Time) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodNone, p.claims(now))
	return token.SignedString(jwt.UnsafeAllowNoneSignatureType)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

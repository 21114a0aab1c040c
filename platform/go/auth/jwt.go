package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func ExtractJWTToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	const prefix = "Bearer "
	// Case-insensitive prefix match.
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", false
	}

	return strings.TrimSpace(authHeader[len(prefix):]), true
}

func extractCookieToken(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	return v, v != ""
}

// SessionSigner mints and verifies HS256 session tokens for the "jwt" auth provider.
type SessionSigner struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionSigner builds a signer; key must be at least 32 bytes.
func NewSessionSigner(key, issuer string, ttl time.Duration) (*SessionSigner, error) {
	if len(key) < 32 {
		return nil, errors.New("session signing key must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionSigner{key: []byte(key), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Sign returns a signed token carrying the principal's identity and tenant claim.
func (s *SessionSigner) Sign(creds UserCredentials) (string, error) {
	if strings.TrimSpace(creds.Id) == "" {
		return "", errors.New("subject is required")
	}

	now := s.now().UTC()
	claims := jwt.MapClaims{
		"iss":            s.issuer,
		"sub":            creds.Id,
		"uid":            creds.Id,
		"iat":            now.Unix(),
		"exp":            now.Add(s.ttl).Unix(),
		"email":          creds.Email,
		"email_verified": creds.EmailVerified,
	}
	if creds.Name != nil {
		claims["name"] = *creds.Name
	}
	if creds.IsAdmin {
		claims["isAdmin"] = true
	}
	if creds.TenantID != nil && *creds.TenantID != "" {
		claims[TenantClaim] = *creds.TenantID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// Verifier returns a VerifyFunc accepting only tokens signed by s.
func (s *SessionSigner) Verifier() VerifyFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)

	return func(ctx context.Context, token string) (map[string]interface{}, error) {
		claims := jwt.MapClaims{}
		parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return s.key, nil
		})
		if err != nil {
			return nil, fmt.Errorf("parse session token: %w", err)
		}
		if !parsed.Valid {
			return nil, errors.New("invalid session token")
		}
		return map[string]interface{}(claims), nil
	}
}

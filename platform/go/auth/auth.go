package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"

	"github.com/zenGate-Global/palmyra-sites/platform/go/problems"
)

type ctxKey struct{}

// TenantClaim is the session claim carrying the tenant a principal belongs to.
const TenantClaim = "tenant_id"

// Claims is the decoded payload of a verified session token.
type Claims = map[string]interface{}

// UserCredentials is the authenticated principal attached to a request.
type UserCredentials struct {
	Id            string
	Email         string
	EmailVerified bool
	Name          *string
	PictureURL    *string
	IsAdmin       bool
	// TenantID is compared against the resolved request tenant only; it never filters data.
	TenantID *string
}

// DisplayName returns the best human-readable label for the principal.
func (c UserCredentials) DisplayName() string {
	if c.Name != nil && strings.TrimSpace(*c.Name) != "" {
		return strings.TrimSpace(*c.Name)
	}
	if c.Email != "" {
		return c.Email
	}
	return c.Id
}

func UserFromContext(ctx context.Context) (*UserCredentials, bool) {
	u, ok := ctx.Value(ctxKey{}).(*UserCredentials)
	return u, ok && u != nil
}

// WithUser returns a derived context carrying creds.
func WithUser(ctx context.Context, creds *UserCredentials) context.Context {
	return context.WithValue(ctx, ctxKey{}, creds)
}

// VerifyFunc validates a bearer or cookie token and returns its claims.
type VerifyFunc func(ctx context.Context, token string) (Claims, error)

// ExtractFunc converts claims into UserCredentials.
type ExtractFunc func(claims Claims) (*UserCredentials, error)

// Option tweaks the JWT middleware.
type Option func(*jwtConfig)

type jwtConfig struct {
	sessionCookie string
}

// WithSessionCookie falls back to the named cookie when no bearer token is sent.
func WithSessionCookie(name string) Option {
	return func(cfg *jwtConfig) {
		cfg.sessionCookie = strings.TrimSpace(name)
	}
}

// JWT attaches credentials for requests carrying a valid token. Requests without one continue
// anonymously and protected routes enforce authentication themselves. Invalid tokens get 401.
func JWT(verify VerifyFunc, extract ExtractFunc, opts ...Option) func(http.Handler) http.Handler {
	if verify == nil {
		panic("auth.JWT: verify func must not be nil")
	}
	if extract == nil {
		extract = DefaultCredentialExtractor
	}

	var cfg jwtConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := cfg.token(r)
			if r.Method == http.MethodOptions || !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verify(r.Context(), token)
			if err != nil {
				rejectToken(w, err.Error())
				return
			}
			creds, err := extract(claims)
			if err != nil {
				rejectToken(w, "invalid claims")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), creds)))
		})
	}
}

func (cfg jwtConfig) token(r *http.Request) (string, bool) {
	if token, ok := ExtractJWTToken(r); ok && token != "" {
		return token, true
	}
	if cfg.sessionCookie == "" {
		return "", false
	}
	return extractCookieToken(r, cfg.sessionCookie)
}

func rejectToken(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="api", error="invalid_token", error_description=%q`, description))
	problems.Write(w, problems.Unauthorized())
}

// DefaultCredentialExtractor maps Firebase-style and session claims onto UserCredentials.
func DefaultCredentialExtractor(claims Claims) (*UserCredentials, error) {
	if claims == nil {
		return nil, errors.New("missing claims")
	}

	id := firstString(claims, "uid", "user_id", "sub")
	if id == "" {
		return nil, errors.New("subject claim required")
	}

	email, _ := claimAs[string](claims, "email")
	verified, _ := claimAs[bool](claims, "email_verified")
	admin, _ := claimAs[bool](claims, "isAdmin")

	return &UserCredentials{
		Id:            id,
		Email:         email,
		EmailVerified: verified,
		Name:          optionalString(claims, "name"),
		PictureURL:    optionalString(claims, "picture"),
		IsAdmin:       admin,
		TenantID:      optionalString(claims, TenantClaim, "tenantId"),
	}, nil
}

func claimAs[T any](claims Claims, key string) (T, bool) {
	v, ok := claims[key].(T)
	return v, ok
}

func firstString(claims Claims, keys ...string) string {
	for _, key := range keys {
		if v, _ := claimAs[string](claims, key); strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func optionalString(claims Claims, keys ...string) *string {
	if v := firstString(claims, keys...); v != "" {
		return &v
	}
	return nil
}

// FirebaseTokenVerifier validates ID tokens via Firebase Auth. Custom claims, including
// tenant_id, are surfaced at the top level.
func FirebaseTokenVerifier(fbAuth *auth.Client) VerifyFunc {
	return func(ctx context.Context, token string) (Claims, error) {
		t, err := fbAuth.VerifyIDToken(ctx, token)
		if err != nil {
			return nil, err
		}

		claims := make(Claims, len(t.Claims)+2)
		for k, v := range t.Claims {
			claims[k] = v
		}
		claims["uid"] = t.UID
		claims["sub"] = t.Subject
		return claims, nil
	}
}

// UnsignedTokenVerifier decodes the payload segment without checking any signature. Dev only.
func UnsignedTokenVerifier() VerifyFunc {
	return func(_ context.Context, token string) (Claims, error) {
		segments := strings.Split(token, ".")
		if len(segments) < 2 {
			return nil, errors.New("invalid token format")
		}

		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(segments[1], "="))
		if err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}

		var claims Claims
		if err := json.Unmarshal(raw, &claims); err != nil {
			return nil, fmt.Errorf("unmarshal claims: %w", err)
		}
		if claims == nil {
			return nil, errors.New("empty claims")
		}
		return claims, nil
	}
}

// RequireAuthenticated rejects requests that reached it without credentials.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			problems.Write(w, problems.Unauthorized())
			return
		}
		next.ServeHTTP(w, r)
	})
}

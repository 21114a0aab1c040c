package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/palmyra-sites/platform/go/logging"
	"github.com/zenGate-Global/palmyra-sites/platform/go/metrics"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

const (
	corsAllowMethods = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	corsAllowHeaders = "Authorization,Content-Type,X-CSRF-TOKEN,X-Tenant"
)

// HostnameRegistry answers whether any tenant owns hostname.
type HostnameRegistry interface {
	HostnameRegistered(ctx context.Context, hostname string) (bool, error)
}

// OriginPolicy decides whether a cross-origin caller is granted access.
type OriginPolicy struct {
	devOrigins map[string]struct{}
	registry   HostnameRegistry
}

// NewOriginPolicy builds a policy from a fixed development allow-list and the domain registry.
func NewOriginPolicy(devOrigins []string, registry HostnameRegistry) *OriginPolicy {
	allowed := make(map[string]struct{}, len(devOrigins))
	for _, origin := range devOrigins {
		origin = strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}
	return &OriginPolicy{devOrigins: allowed, registry: registry}
}

// Decision names the outcome of an origin check; it doubles as the metrics label.
type Decision string

const (
	DecisionDevOrigin Decision = "dev_origin"
	DecisionRegistry  Decision = "registered"
	DecisionDenied    Decision = "denied"
	DecisionError     Decision = "error"
)

// Granted reports whether CORS headers should be emitted.
func (d Decision) Granted() bool {
	return d == DecisionDevOrigin || d == DecisionRegistry
}

// Evaluate checks origin against the allow-list first and the registry second.
// Registry failures deny and are returned so the caller can log them.
func (p *OriginPolicy) Evaluate(ctx context.Context, origin string) (Decision, error) {
	key := strings.ToLower(strings.TrimSpace(origin))
	if _, ok := p.devOrigins[key]; ok {
		return DecisionDevOrigin, nil
	}

	host, ok := tenant.HostFromOrigin(origin)
	if !ok || p.registry == nil {
		return DecisionDenied, nil
	}

	registered, err := p.registry.HostnameRegistered(ctx, host)
	if err != nil {
		return DecisionError, err
	}
	if registered {
		return DecisionRegistry, nil
	}
	return DecisionDenied, nil
}

// TenantCORS grants credentialed cross-origin access only to development origins and hostnames
// registered to some tenant. Denied origins get no CORS headers; preflights always end here.
func TenantCORS(policy *OriginPolicy, fallback *zap.Logger) func(http.Handler) http.Handler {
	if policy == nil {
		panic("middleware.TenantCORS: policy must not be nil")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			preflight := tenant.IsPreflight(r)

			if origin != "" {
				w.Header().Add("Vary", "Origin")

				decision, err := policy.Evaluate(r.Context(), origin)
				metrics.ObserveCORS(string(decision))
				if err != nil {
					if logger := platformlogging.FromRequest(r, fallback); logger != nil {
						logger.Warn("cors registry check failed", zap.String("origin", origin), zap.Error(err))
					}
				}

				if decision.Granted() {
					h := w.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Credentials", "true")
					h.Set("Access-Control-Allow-Methods", corsAllowMethods)
					h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				}
			}

			if preflight {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"net/http"

	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/palmyra-sites/platform/go/logging"
	"github.com/zenGate-Global/palmyra-sites/platform/go/metrics"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

// Resolver is the capability required to derive a tenant for a request.
type Resolver interface {
	Resolve(r *http.Request) (tenant.Context, error)
}

// ResolveTenant runs tenant resolution once per request and attaches the resulting
// tenant.Context before routing continues. Preflight requests skip resolution and proceed
// unresolved; requests that already carry a tenant Context are passed through untouched.
func ResolveTenant(resolver Resolver, fallback *zap.Logger) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := tenant.FromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			if tenant.IsPreflight(r) {
				next.ServeHTTP(w, r)
				return
			}

			logger := platformlogging.FromRequest(r, fallback)

			tc, err := resolver.Resolve(r)
			if err != nil && logger != nil {
				logger.Warn("tenant lookup failed; treating as no match", zap.Error(err))
			}
			metrics.ObserveResolution(tc.Source())

			ctx := tenant.WithContext(r.Context(), tc)
			if logger != nil {
				if id, ok := tc.TenantID(); ok {
					logger = logger.With(
						zap.String("tenant_id", id.String()),
						zap.String("tenant_source", string(tc.Source())),
					)
				} else {
					logger = logger.With(zap.Bool("tenant_resolved", false))
				}
				ctx = platformlogging.WithLogger(ctx, logger)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

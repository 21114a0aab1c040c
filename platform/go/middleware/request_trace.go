package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/palmyra-sites/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-sites/platform/go/logging"
	"github.com/zenGate-Global/palmyra-sites/platform/go/problems"
	"github.com/zenGate-Global/palmyra-sites/platform/go/requesttrace"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

// RequestTrace stores the audit record on the context and adds its fields to the request logger.
// Mount after authentication and tenant resolution.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := platformlogging.FromRequest(r, nil)
		requestID := middleware.GetReqID(r.Context())

		audit := requesttrace.Anonymous(requestID)
		if creds, ok := platformauth.UserFromContext(r.Context()); ok {
			var err error
			if audit, err = requesttrace.FromCredentials(creds, requestID); err != nil {
				if logger != nil {
					logger.Error("build audit info from credentials", zap.Error(err))
				}
				problems.Write(w, problems.Unauthorized())
				return
			}
		}
		audit = audit.WithTenant(tenant.Current(r.Context()))

		ctx := requesttrace.IntoContext(r.Context(), audit)
		if logger != nil {
			ctx = platformlogging.WithLogger(ctx, logger.With(audit.Fields()...))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

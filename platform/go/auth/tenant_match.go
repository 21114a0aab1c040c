package auth

import (
	"net/http"

	"github.com/zenGate-Global/palmyra-sites/platform/go/problems"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

// TenantMatch reports whether the principal's tenant claim equals the resolved request tenant.
// Unresolved requests and principals without a claim never match.
func TenantMatch(tc tenant.Context, creds *UserCredentials) bool {
	id, ok := tc.TenantID()
	if !ok || creds == nil || creds.TenantID == nil {
		return false
	}
	return *creds.TenantID == id.String()
}

// RequireTenantMatch guards owner-only routes of a tenant site.
func RequireTenantMatch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := tenant.Current(r.Context())
		if !tc.IsResolved() {
			problems.Write(w, problems.TenantNotResolved())
			return
		}

		creds, ok := UserFromContext(r.Context())
		if !ok || creds == nil {
			problems.Write(w, problems.Unauthorized())
			return
		}

		if !TenantMatch(tc, creds) {
			problems.Write(w, problems.Forbidden())
			return
		}

		next.ServeHTTP(w, r)
	})
}

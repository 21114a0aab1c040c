package problems

import (
	"encoding/json"
	"net/http"
)

// Problem type URIs shared by every domain handler.
const (
	TypeValidation     = "https://palmyra.pro/problems/validation-error"
	TypeNotFound       = "https://palmyra.pro/problems/not-found"
	TypeConflict       = "https://palmyra.pro/problems/conflict"
	TypeUnauthorized   = "https://palmyra.pro/problems/unauthorized"
	TypeForbidden      = "https://palmyra.pro/problems/forbidden"
	TypeTenantRequired = "https://palmyra.pro/problems/tenant-not-resolved"
	TypeInternal       = "https://palmyra.pro/problems/internal-error"
)

// ContentType is the media type of problem responses.
const ContentType = "application/problem+json"

// ProblemDetails is an RFC 7807 problem document.
type ProblemDetails struct {
	Type   string              `json:"type,omitempty"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// New builds a ProblemDetails value.
func New(status int, title, detail, problemType string) ProblemDetails {
	return ProblemDetails{Type: problemType, Title: title, Status: status, Detail: detail}
}

// Write serializes p as the response body using its Status as the HTTP status code.
func Write(w http.ResponseWriter, p ProblemDetails) {
	if p.Status == 0 {
		p.Status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// TenantNotResolved is returned when a request could not be attributed to any tenant.
func TenantNotResolved() ProblemDetails {
	return New(http.StatusBadRequest, "tenant not resolved", "the request could not be attributed to a tenant", TypeTenantRequired)
}

// Unauthorized is returned when a protected endpoint is called without credentials.
func Unauthorized() ProblemDetails {
	return New(http.StatusUnauthorized, "unauthorized", "authentication is required", TypeUnauthorized)
}

// Forbidden is returned on authorization denial. The detail is intentionally generic.
func Forbidden() ProblemDetails {
	return New(http.StatusForbidden, "forbidden", "not allowed for this site", TypeForbidden)
}

// Internal hides error details from the caller.
func Internal() ProblemDetails {
	return New(http.StatusInternalServerError, "internal error", "internal error", TypeInternal)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

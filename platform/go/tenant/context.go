package tenant

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ID is the opaque identifier of a tenant. Registry-created tenants use UUID strings, while
// override values are taken verbatim.
type ID string

// NewID generates a fresh tenant identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string {
	return string(id)
}

// Source records which resolution step produced a tenant.
type Source string

const (
	SourceNone      Source = ""
	SourceHeader    Source = "header"
	SourceCookie    Source = "cookie"
	SourceOrigin    Source = "origin"
	SourceHost      Source = "host"
	SourcePrincipal Source = "principal"
)

// Context is the outcome of tenant resolution for one request: either a tenant id or unresolved.
// The zero value is unresolved.
type Context struct {
	id     ID
	source Source
}

// Resolved returns a Context for the given tenant. A blank id yields an unresolved Context.
func Resolved(id ID, source Source) Context {
	trimmed := ID(strings.TrimSpace(string(id)))
	if trimmed == "" {
		return Unresolved()
	}
	return Context{id: trimmed, source: source}
}

// Unresolved returns a Context carrying no tenant.
func Unresolved() Context {
	return Context{}
}

// TenantID returns the resolved tenant id and whether resolution succeeded.
func (c Context) TenantID() (ID, bool) {
	return c.id, c.id != ""
}

// IsResolved reports whether the Context carries a tenant.
func (c Context) IsResolved() bool {
	return c.id != ""
}

// Source reports the strategy that produced the tenant; SourceNone when unresolved.
func (c Context) Source() Source {
	return c.source
}

type ctxKey string

const tenantKey ctxKey = "PALMYRA_REQUEST_TENANT"

// WithContext returns a derived context carrying the request tenant Context.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, tenantKey, tc)
}

// FromContext extracts the request tenant Context and a boolean indicating presence.
func FromContext(ctx context.Context) (Context, bool) {
	if ctx == nil {
		return Context{}, false
	}
	v := ctx.Value(tenantKey)
	if v == nil {
		return Context{}, false
	}

	tc, ok := v.(Context)
	return tc, ok
}

// Current returns the request tenant Context, or an unresolved one when resolution never ran.
func Current(ctx context.Context) Context {
	if tc, ok := FromContext(ctx); ok {
		return tc
	}
	return Unresolved()
}

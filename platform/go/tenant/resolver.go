package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Lookup maps a normalized hostname to the tenant that registered it.
type Lookup interface {
	TenantForHostname(ctx context.Context, hostname string) (ID, bool, error)
}

// Strategy derives a tenant id from one request signal.
type Strategy interface {
	Source() Source
	Resolve(r *http.Request) (ID, bool, error)
}

// HeaderOverride takes the tenant id verbatim from a request header.
type HeaderOverride struct {
	Header string
}

func (s HeaderOverride) Source() Source { return SourceHeader }

func (s HeaderOverride) Resolve(r *http.Request) (ID, bool, error) {
	v := strings.TrimSpace(r.Header.Get(s.Header))
	return ID(v), v != "", nil
}

// CookieOverride takes the tenant id verbatim from a cookie, so a browser session can pin a
// tenant without resending the header.
type CookieOverride struct {
	Cookie string
}

func (s CookieOverride) Source() Source { return SourceCookie }

func (s CookieOverride) Resolve(r *http.Request) (ID, bool, error) {
	c, err := r.Cookie(s.Cookie)
	if err != nil {
		return "", false, nil
	}
	v := strings.TrimSpace(c.Value)
	return ID(v), v != "", nil
}

// OriginHostname resolves the tenant registered for the Origin header's hostname.
type OriginHostname struct {
	Lookup Lookup
}

func (s OriginHostname) Source() Source { return SourceOrigin }

func (s OriginHostname) Resolve(r *http.Request) (ID, bool, error) {
	host, ok := HostFromOrigin(r.Header.Get("Origin"))
	if !ok {
		return "", false, nil
	}
	return s.Lookup.TenantForHostname(r.Context(), host)
}

// RequestHostname resolves the tenant registered for the request's own target host.
type RequestHostname struct {
	Lookup Lookup
}

func (s RequestHostname) Source() Source { return SourceHost }

func (s RequestHostname) Resolve(r *http.Request) (ID, bool, error) {
	host, ok := NormalizeHost(r.Host)
	if !ok {
		return "", false, nil
	}
	if host == "127.0.0.1" {
		host = "localhost"
	}
	return s.Lookup.TenantForHostname(r.Context(), host)
}

// Resolver runs an ordered strategy chain; the first strategy producing a value wins.
type Resolver struct {
	strategies []Strategy
}

// NewResolver builds a Resolver from strategies in precedence order.
func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Options configures the standard chain: override header, override cookie, Origin, Host.
type Options struct {
	Lookup Lookup
	// AllowOverrides enables the header and cookie steps. Keep it off outside dev/test.
	AllowOverrides bool
	OverrideHeader string
	OverrideCookie string
}

// NewDefaultResolver builds the standard resolution chain.
func NewDefaultResolver(opts Options) *Resolver {
	if opts.Lookup == nil {
		panic("tenant resolver: lookup is required")
	}

	var strategies []Strategy
	if opts.AllowOverrides {
		if opts.OverrideHeader != "" {
			strategies = append(strategies, HeaderOverride{Header: opts.OverrideHeader})
		}
		if opts.OverrideCookie != "" {
			strategies = append(strategies, CookieOverride{Cookie: opts.OverrideCookie})
		}
	}
	strategies = append(strategies,
		OriginHostname{Lookup: opts.Lookup},
		RequestHostname{Lookup: opts.Lookup},
	)
	return NewResolver(strategies...)
}

// Resolve produces the tenant Context for r. Lookup failures never abort resolution: the
// failing step counts as "no match" and the error is returned alongside the result so
// callers can log it.
func (res *Resolver) Resolve(r *http.Request) (Context, error) {
	var errs []error
	for _, s := range res.strategies {
		id, ok, err := s.Resolve(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s lookup: %w", s.Source(), err))
			continue
		}
		if ok && strings.TrimSpace(string(id)) != "" {
			return Resolved(id, s.Source()), errors.Join(errs...)
		}
	}
	return Unresolved(), errors.Join(errs...)
}

// IsPreflight reports whether r is a CORS preflight request.
func IsPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

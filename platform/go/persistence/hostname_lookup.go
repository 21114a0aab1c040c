package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// HostnameLookup answers control-plane questions about the domain registry across all tenants.
// It is used by the tenant resolver and the CORS engine, before any tenant is known.
type HostnameLookup struct {
	db rowQuerier
}

func NewHostnameLookup(db rowQuerier) *HostnameLookup {
	if db == nil {
		panic("HostnameLookup requires db")
	}
	return &HostnameLookup{db: db}
}

// TenantForHostname returns the tenant that registered hostname (already normalized).
func (l *HostnameLookup) TenantForHostname(ctx context.Context, hostname string) (tenant.ID, bool, error) {
	var id string
	err := l.db.QueryRow(ctx, `SELECT tenant_id FROM tenant_domains WHERE hostname = $1`, hostname).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup hostname: %w", err)
	}
	return tenant.ID(id), true, nil
}

// HostnameRegistered reports whether any tenant owns hostname.
func (l *HostnameLookup) HostnameRegistered(ctx context.Context, hostname string) (bool, error) {
	_, ok, err := l.TenantForHostname(ctx, hostname)
	return ok, err
}

// CachedLookup keeps positive hostname lookups for a short TTL. Misses and errors are never
// cached so a freshly registered domain is visible on the next request.
type CachedLookup struct {
	inner tenant.Lookup
	cache *expirable.LRU[string, tenant.ID]
}

// NewCachedLookup wraps inner; a non-positive ttl disables caching and returns a pass-through.
func NewCachedLookup(inner tenant.Lookup, size int, ttl time.Duration) *CachedLookup {
	if inner == nil {
		panic("CachedLookup requires inner lookup")
	}
	c := &CachedLookup{inner: inner}
	if ttl > 0 {
		if size <= 0 {
			size = 4096
		}
		c.cache = expirable.NewLRU[string, tenant.ID](size, nil, ttl)
	}
	return c
}

func (c *CachedLookup) TenantForHostname(ctx context.Context, hostname string) (tenant.ID, bool, error) {
	if c.cache != nil {
		if id, ok := c.cache.Get(hostname); ok {
			return id, true, nil
		}
	}

	id, ok, err := c.inner.TenantForHostname(ctx, hostname)
	if err != nil || !ok {
		return id, ok, err
	}
	if c.cache != nil {
		c.cache.Add(hostname, id)
	}
	return id, true, nil
}

func (c *CachedLookup) HostnameRegistered(ctx context.Context, hostname string) (bool, error) {
	_, ok, err := c.TenantForHostname(ctx, hostname)
	return ok, err
}

// Invalidate drops cached entries after registry mutations.
func (c *CachedLookup) Invalidate(hostnames ...string) {
	if c.cache == nil {
		return
	}
	for _, h := range hostnames {
		c.cache.Remove(h)
	}
}

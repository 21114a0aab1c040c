package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	platformauth "github.com/zenGate-Global/palmyra-sites/platform/go/auth"
	"github.com/zenGate-Global/palmyra-sites/platform/go/metrics"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

// Errors returned by the service layer.
var (
	ErrTenantNotResolved = errors.New("tenant not resolved")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrInvalidHostname   = errors.New("invalid hostname")
	ErrHostnameConflict  = errors.New("hostname already in use")
	ErrDomainNotFound    = errors.New("domain not found")
	ErrPrimaryDomain     = errors.New("cannot delete primary domain while others exist")
)

// Domain is a hostname registered to a tenant.
type Domain struct {
	ID        int64
	TenantID  tenant.ID
	Hostname  string
	Primary   bool
	CreatedAt time.Time
}

// Principal is the authenticated caller registering a domain.
type Principal struct {
	Subject     string
	DisplayName string
	Email       string
	// ClaimedTenant is the tenant claim already present on the session, if any.
	ClaimedTenant *tenant.ID
}

// RegisterRequest carries everything the repository needs to add a domain atomically.
type RegisterRequest struct {
	Principal Principal
	Hostname  string
	// NewTenantID is called only when the principal has no tenant yet; NewTenantName names it.
	NewTenantID   func() tenant.ID
	NewTenantName string
}

// Registration is the committed outcome of an add.
type Registration struct {
	Domain        Domain
	TenantCreated bool
}

// BeforeCommit runs inside the add transaction once the owning tenant is known.
// Returning an error rolls the whole add back.
type BeforeCommit func(ctx context.Context, tenantID tenant.ID) error

// Repository abstracts persistence of the registry.
type Repository interface {
	List(ctx context.Context, tc tenant.Context) ([]Domain, error)
	Register(ctx context.Context, req RegisterRequest, beforeCommit BeforeCommit) (Registration, error)
	SetPrimary(ctx context.Context, tc tenant.Context, id int64) (Domain, error)
	Delete(ctx context.Context, tc tenant.Context, id int64) (Domain, error)
}

// LookupInvalidator drops cached hostname lookups after registry mutations.
type LookupInvalidator interface {
	Invalidate(hostnames ...string)
}

// AddResult is returned by Add.
type AddResult struct {
	Domain        Domain
	TenantID      tenant.ID
	TenantCreated bool
	// Session is set when the principal's tenant claim had to be (re)issued.
	Session *platformauth.SessionGrant
}

// Service provides the domain registry control plane.
type Service struct {
	repo        Repository
	claims      platformauth.TenantClaimIssuer
	invalidator LookupInvalidator
	newID       func() tenant.ID
}

// Option customizes the Service.
type Option func(*Service)

// WithLookupInvalidator wires a hostname cache that must forget removed domains.
func WithLookupInvalidator(inv LookupInvalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// WithIDGenerator overrides tenant id generation.
func WithIDGenerator(fn func() tenant.ID) Option {
	return func(s *Service) { s.newID = fn }
}

// New constructs a Service with required dependencies.
func New(repo Repository, claims platformauth.TenantClaimIssuer, opts ...Option) *Service {
	if repo == nil {
		panic("tenant domains repo is required")
	}
	if claims == nil {
		panic("tenant claim issuer is required")
	}
	s := &Service{repo: repo, claims: claims, newID: tenant.NewID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the current tenant's domains, primary first then alphabetical.
// An unresolved tenant lists nothing.
func (s *Service) List(ctx context.Context, tc tenant.Context) ([]Domain, error) {
	if !tc.IsResolved() {
		return []Domain{}, nil
	}
	return s.repo.List(ctx, tc)
}

// Add registers hostname for the principal's tenant, creating the tenant on first use.
func (s *Service) Add(ctx context.Context, creds *platformauth.UserCredentials, hostname string) (AddResult, error) {
	if creds == nil || strings.TrimSpace(creds.Id) == "" {
		return AddResult{}, ErrUnauthenticated
	}

	normalized, ok := tenant.NormalizeHost(hostname)
	if !ok {
		s.observe("add", ErrInvalidHostname)
		return AddResult{}, ErrInvalidHostname
	}

	principal := Principal{
		Subject:     creds.Id,
		DisplayName: creds.DisplayName(),
		Email:       creds.Email,
	}
	if creds.TenantID != nil && *creds.TenantID != "" {
		claimed := tenant.ID(*creds.TenantID)
		principal.ClaimedTenant = &claimed
	}

	req := RegisterRequest{
		Principal:     principal,
		Hostname:      normalized,
		NewTenantID:   s.newID,
		NewTenantName: principal.DisplayName,
	}

	// A claim issued here survives a failed commit. It then names a tenant that was never
	// stored; the next Add finds no such tenant, creates one and issues a fresh claim.
	var grant *platformauth.SessionGrant
	reg, err := s.repo.Register(ctx, req, func(ctx context.Context, tenantID tenant.ID) error {
		if principal.ClaimedTenant != nil && *principal.ClaimedTenant == tenantID {
			return nil
		}
		g, err := s.claims.IssueTenantClaim(ctx, *creds, tenantID)
		if err != nil {
			return fmt.Errorf("issue tenant claim: %w", err)
		}
		grant = &g
		return nil
	})
	s.observe("add", err)
	if err != nil {
		return AddResult{}, err
	}

	return AddResult{
		Domain:        reg.Domain,
		TenantID:      reg.Domain.TenantID,
		TenantCreated: reg.TenantCreated,
		Session:       grant,
	}, nil
}

// SetPrimary makes id the tenant's only primary domain.
func (s *Service) SetPrimary(ctx context.Context, tc tenant.Context, id int64) (Domain, error) {
	if !tc.IsResolved() {
		return Domain{}, ErrTenantNotResolved
	}
	d, err := s.repo.SetPrimary(ctx, tc, id)
	s.observe("set_primary", err)
	return d, err
}

// Delete removes a non-primary domain of the current tenant.
func (s *Service) Delete(ctx context.Context, tc tenant.Context, id int64) error {
	if !tc.IsResolved() {
		return ErrTenantNotResolved
	}
	d, err := s.repo.Delete(ctx, tc, id)
	s.observe("delete", err)
	if err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(d.Hostname)
	}
	return nil
}

func (s *Service) observe(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrHostnameConflict):
		outcome = "conflict"
	case errors.Is(err, ErrDomainNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrPrimaryDomain), errors.Is(err, ErrInvalidHostname):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	metrics.ObserveRegistryOp(op, outcome)
}

// Package requesttrace records who issued a request and which tenant it was attributed to.
package requesttrace

import (
	"context"
	"errors"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/palmyra-sites/platform/go/auth"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

type ctxKey struct{}

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
)

// AuditInfo is the request-scoped audit record. ClaimTenantID and ResolvedTenantID differ
// on cross-tenant attempts.
type AuditInfo struct {
	ActorKind        ActorKind
	UserID           *string
	ClaimTenantID    *string
	ResolvedTenantID *string
	TenantSource     tenant.Source
	RequestID        string
}

func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, audit)
}

func FromContext(ctx context.Context) (AuditInfo, bool) {
	audit, ok := ctx.Value(ctxKey{}).(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous never fails; a missing record reads as anonymous.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// FromCredentials builds the record for an authenticated principal.
func FromCredentials(creds *platformauth.UserCredentials, requestID string) (AuditInfo, error) {
	switch {
	case creds == nil:
		return AuditInfo{}, errors.New("credentials are required to build audit info")
	case creds.Id == "":
		return AuditInfo{}, errors.New("user id is required to build audit info")
	}

	id := creds.Id
	return AuditInfo{
		ActorKind:     ActorKindUser,
		UserID:        &id,
		ClaimTenantID: creds.TenantID,
		RequestID:     requestID,
	}, nil
}

// Anonymous builds the record for public site reads and tracking beacons.
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// WithTenant records the resolved request tenant, if any.
func (a AuditInfo) WithTenant(tc tenant.Context) AuditInfo {
	id, ok := tc.TenantID()
	if !ok {
		return a
	}
	resolved := id.String()
	a.ResolvedTenantID = &resolved
	a.TenantSource = tc.Source()
	return a
}

// Fields renders the record for structured logs.
func (a AuditInfo) Fields() []zap.Field {
	fields := []zap.Field{zap.String("actor_kind", string(a.ActorKind))}
	if a.UserID != nil && *a.UserID != "" {
		fields = append(fields, zap.String("user_id", *a.UserID))
	}
	if a.ClaimTenantID != nil {
		fields = append(fields, zap.String("claim_tenant_id", *a.ClaimTenantID))
	}
	if a.ResolvedTenantID != nil {
		fields = append(fields,
			zap.String("resolved_tenant_id", *a.ResolvedTenantID),
			zap.String("tenant_source", string(a.TenantSource)),
		)
	}
	return fields
}

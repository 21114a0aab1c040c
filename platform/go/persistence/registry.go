package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

const (
	TenantsTable       = "tenants"
	PrincipalsTable    = "principals"
	TenantDomainsTable = "tenant_domains"
)

// TenantRecord is a row of the tenant registry.
type TenantRecord struct {
	TenantID    tenant.ID
	DisplayName string
	CreatedBy   string
	CreatedAt   time.Time
}

// PrincipalRecord links an identity provider subject to its tenant.
type PrincipalRecord struct {
	Subject     string
	TenantID    *tenant.ID
	DisplayName string
	Email       string
}

// CreateTenant inserts a new tenant row. Tenant ids are never reused.
func CreateTenant(ctx context.Context, tx pgx.Tx, rec TenantRecord) (TenantRecord, error) {
	if strings.TrimSpace(rec.TenantID.String()) == "" {
		return TenantRecord{}, errors.New("tenant id is required")
	}

	sql, args, err := psql.Insert(TenantsTable).
		Columns("tenant_id", "display_name", "created_by").
		Values(rec.TenantID.String(), rec.DisplayName, rec.CreatedBy).
		Suffix("RETURNING tenant_id, display_name, created_by, created_at").
		ToSql()
	if err != nil {
		return TenantRecord{}, fmt.Errorf("build tenant insert: %w", err)
	}

	var out TenantRecord
	var id string
	if err := tx.QueryRow(ctx, sql, args...).Scan(&id, &out.DisplayName, &out.CreatedBy, &out.CreatedAt); err != nil {
		return TenantRecord{}, fmt.Errorf("insert tenant: %w", err)
	}
	out.TenantID = tenant.ID(id)
	return out, nil
}

// LockTenant takes a row lock on the tenant so registry mutations for one tenant serialize.
func LockTenant(ctx context.Context, tx pgx.Tx, id tenant.ID) error {
	var locked string
	err := tx.QueryRow(ctx, `SELECT tenant_id FROM tenants WHERE tenant_id = $1 FOR UPDATE`, id.String()).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock tenant: %w", err)
	}
	return nil
}

// EnsurePrincipal inserts an unlinked principal row when subject has none. Concurrent callers for
// the same subject block here until the first transaction finishes, so the row lock taken by
// PrincipalTenant afterwards always has a row to lock.
func EnsurePrincipal(ctx context.Context, tx pgx.Tx, subject string) error {
	if strings.TrimSpace(subject) == "" {
		return errors.New("principal subject is required")
	}

	sql, args, err := psql.Insert(PrincipalsTable).
		Columns("subject").
		Values(subject).
		Suffix("ON CONFLICT (subject) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build principal insert: %w", err)
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("ensure principal: %w", err)
	}
	return nil
}

// PrincipalTenant returns the tenant linked to subject and locks the principal row.
func PrincipalTenant(ctx context.Context, tx pgx.Tx, subject string) (tenant.ID, bool, error) {
	var id *string
	err := tx.QueryRow(ctx, `SELECT tenant_id FROM principals WHERE subject = $1 FOR UPDATE`, subject).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load principal: %w", err)
	}
	if id == nil || *id == "" {
		return "", false, nil
	}
	return tenant.ID(*id), true, nil
}

// LinkPrincipal upserts the principal row and its tenant link.
func LinkPrincipal(ctx context.Context, tx pgx.Tx, rec PrincipalRecord) error {
	if strings.TrimSpace(rec.Subject) == "" {
		return errors.New("principal subject is required")
	}

	var tenantID *string
	if rec.TenantID != nil {
		s := rec.TenantID.String()
		tenantID = &s
	}

	sql, args, err := psql.Insert(PrincipalsTable).
		Columns("subject", "tenant_id", "display_name", "email").
		Values(rec.Subject, tenantID, rec.DisplayName, rec.Email).
		Suffix(`ON CONFLICT (subject) DO UPDATE SET
            tenant_id = EXCLUDED.tenant_id,
            display_name = EXCLUDED.display_name,
            email = EXCLUDED.email,
            updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build principal upsert: %w", err)
	}

	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("link principal: %w", err)
	}
	return nil
}

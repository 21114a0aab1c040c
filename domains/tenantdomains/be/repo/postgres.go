package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-sites/domains/tenantdomains/be/service"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

const hostnameConstraint = "tenant_domains_hostname_key"

var domainColumns = []string{"id", "tenant_id", "hostname", "is_primary", "created_at"}

// domainRecord is the tenant-owned row written through the data guard.
type domainRecord struct {
	tenantID tenant.ID
	hostname string
	primary  bool
}

func (d *domainRecord) Table() string            { return persistence.TenantDomainsTable }
func (d *domainRecord) Columns() []string        { return []string{"hostname", "is_primary"} }
func (d *domainRecord) Values() []any            { return []any{d.hostname, d.primary} }
func (d *domainRecord) TenantID() tenant.ID      { return d.tenantID }
func (d *domainRecord) SetTenantID(id tenant.ID) { d.tenantID = id }

// PostgresRepository persists the registry through the tenant-scoped guard.
type PostgresRepository struct {
	guard *persistence.Guard
}

// NewPostgresRepository creates the repository.
func NewPostgresRepository(guard *persistence.Guard) *PostgresRepository {
	if guard == nil {
		panic("guard is required")
	}
	return &PostgresRepository{guard: guard}
}

func (r *PostgresRepository) List(ctx context.Context, tc tenant.Context) ([]service.Domain, error) {
	var out []service.Domain
	err := r.guard.WithTenant(ctx, tc, func(scope *persistence.Scope) error {
		rows, err := scope.Query(ctx, scope.Select(persistence.TenantDomainsTable, domainColumns...).
			OrderBy("is_primary DESC", "hostname ASC"))
		if err != nil {
			return fmt.Errorf("list domains: %w", err)
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (service.Domain, error) {
			return scanDomain(row)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []service.Domain{}
	}
	return out, nil
}

func (r *PostgresRepository) Register(ctx context.Context, req service.RegisterRequest, beforeCommit service.BeforeCommit) (service.Registration, error) {
	var reg service.Registration

	err := r.guard.WithRegistry(ctx, func(tx pgx.Tx) error {
		tid, created, err := r.ownerTenant(ctx, tx, req)
		if err != nil {
			return err
		}

		// The constraint is authoritative; this only gives a clean error without aborting the tx.
		var taken bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenant_domains WHERE hostname = $1)`, req.Hostname).Scan(&taken); err != nil {
			return fmt.Errorf("check hostname: %w", err)
		}
		if taken {
			return service.ErrHostnameConflict
		}

		scope := persistence.Attach(tx, tenant.Resolved(tid, tenant.SourcePrincipal))

		var existing int
		if err := scope.QueryRow(ctx, scope.Select(persistence.TenantDomainsTable, "COUNT(*)")).Scan(&existing); err != nil {
			return fmt.Errorf("count domains: %w", err)
		}

		ins, err := scope.Insert(&domainRecord{hostname: req.Hostname, primary: existing == 0})
		if err != nil {
			return err
		}
		d, err := scanDomain(scope.QueryRow(ctx, ins.Suffix("RETURNING id, tenant_id, hostname, is_primary, created_at")))
		if err != nil {
			if persistence.IsUniqueViolation(err, hostnameConstraint) {
				return service.ErrHostnameConflict
			}
			return fmt.Errorf("insert domain: %w", err)
		}

		if beforeCommit != nil {
			if err := beforeCommit(ctx, tid); err != nil {
				return err
			}
		}

		reg = service.Registration{Domain: d, TenantCreated: created}
		return nil
	})
	if err != nil {
		// A concurrent add can pass the pre-check and lose at commit.
		if persistence.IsUniqueViolation(err, hostnameConstraint) {
			return service.Registration{}, service.ErrHostnameConflict
		}
		return service.Registration{}, err
	}
	return reg, nil
}

// ownerTenant finds or creates the tenant that will own the new domain and locks it.
// The principal row is created first and locked so concurrent adds by one fresh principal
// serialize and the second one reuses the tenant the first created.
func (r *PostgresRepository) ownerTenant(ctx context.Context, tx pgx.Tx, req service.RegisterRequest) (tenant.ID, bool, error) {
	if err := persistence.EnsurePrincipal(ctx, tx, req.Principal.Subject); err != nil {
		return "", false, err
	}
	tid, linked, err := persistence.PrincipalTenant(ctx, tx, req.Principal.Subject)
	if err != nil {
		return "", false, err
	}
	if linked {
		return tid, false, persistence.LockTenant(ctx, tx, tid)
	}

	created := false
	if claimed := req.Principal.ClaimedTenant; claimed != nil {
		switch err := persistence.LockTenant(ctx, tx, *claimed); {
		case err == nil:
			tid = *claimed
		case !errors.Is(err, persistence.ErrNotFound):
			return "", false, err
		}
	}

	if tid == "" {
		tid = req.NewTenantID()
		if _, err := persistence.CreateTenant(ctx, tx, persistence.TenantRecord{
			TenantID:    tid,
			DisplayName: req.NewTenantName,
			CreatedBy:   req.Principal.Subject,
		}); err != nil {
			return "", false, err
		}
		created = true
	}

	if err := persistence.LinkPrincipal(ctx, tx, persistence.PrincipalRecord{
		Subject:     req.Principal.Subject,
		TenantID:    &tid,
		DisplayName: req.Principal.DisplayName,
		Email:       req.Principal.Email,
	}); err != nil {
		return "", false, err
	}
	return tid, created, nil
}

func (r *PostgresRepository) SetPrimary(ctx context.Context, tc tenant.Context, id int64) (service.Domain, error) {
	var out service.Domain
	err := r.withTenantLock(ctx, tc, func(scope *persistence.Scope) error {
		target, err := findDomain(ctx, scope, id)
		if err != nil {
			return err
		}

		// Clear first: the partial unique index allows one primary per tenant.
		if _, err := scope.Exec(ctx, scope.Update(persistence.TenantDomainsTable).
			Set("is_primary", false).
			Where(sq.Eq{"is_primary": true})); err != nil {
			return fmt.Errorf("clear primary: %w", err)
		}
		if _, err := scope.Exec(ctx, scope.Update(persistence.TenantDomainsTable).
			Set("is_primary", true).
			Where(sq.Eq{"id": id})); err != nil {
			return fmt.Errorf("set primary: %w", err)
		}

		target.Primary = true
		out = target
		return nil
	})
	return out, err
}

func (r *PostgresRepository) Delete(ctx context.Context, tc tenant.Context, id int64) (service.Domain, error) {
	var out service.Domain
	err := r.withTenantLock(ctx, tc, func(scope *persistence.Scope) error {
		target, err := findDomain(ctx, scope, id)
		if err != nil {
			return err
		}
		if target.Primary {
			return service.ErrPrimaryDomain
		}

		if _, err := scope.Exec(ctx, scope.Delete(persistence.TenantDomainsTable).Where(sq.Eq{"id": id})); err != nil {
			return fmt.Errorf("delete domain: %w", err)
		}
		out = target
		return nil
	})
	return out, err
}

// withTenantLock serializes registry mutations of one tenant on its tenants row.
func (r *PostgresRepository) withTenantLock(ctx context.Context, tc tenant.Context, fn func(scope *persistence.Scope) error) error {
	tid, ok := tc.TenantID()
	if !ok {
		return service.ErrTenantNotResolved
	}
	return r.guard.WithRegistry(ctx, func(tx pgx.Tx) error {
		if err := persistence.LockTenant(ctx, tx, tid); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return service.ErrDomainNotFound
			}
			return err
		}
		return fn(persistence.Attach(tx, tc))
	})
}

func findDomain(ctx context.Context, scope *persistence.Scope, id int64) (service.Domain, error) {
	d, err := scanDomain(scope.QueryRow(ctx, scope.Select(persistence.TenantDomainsTable, domainColumns...).Where(sq.Eq{"id": id})))
	if errors.Is(err, pgx.ErrNoRows) {
		return service.Domain{}, service.ErrDomainNotFound
	}
	if err != nil {
		return service.Domain{}, fmt.Errorf("load domain: %w", err)
	}
	return d, nil
}

func scanDomain(row pgx.Row) (service.Domain, error) {
	var (
		d         service.Domain
		tenantID  string
		createdAt time.Time
	)
	if err := row.Scan(&d.ID, &tenantID, &d.Hostname, &d.Primary, &createdAt); err != nil {
		return service.Domain{}, err
	}
	d.TenantID = tenant.ID(tenantID)
	d.CreatedAt = createdAt.UTC()
	return d, nil
}

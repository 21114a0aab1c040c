package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	sqlassets "github.com/zenGate-Global/palmyra-sites/database"
)

// BootstrapSchema applies the registry and content DDL in a single transaction, in this order:
//  1. registry/tenants.sql
//  2. registry/tenant_domains.sql
//  3. registry/principals.sql
//  4. content/site_info.sql, content/menu.sql, content/carousel.sql, content/page_views.sql
//
// SQL is embedded at build time so binaries stay self-contained. The helper is
// idempotent and intended for CLI bootstrap, BOOTSTRAP_SCHEMA=true and tests.
func BootstrapSchema(ctx context.Context, pool txBeginner) error {
	if pool == nil {
		return fmt.Errorf("bootstrap schema: pool is required")
	}

	var statements []string
	for _, ddl := range []string{
		sqlassets.TenantsSQL,
		sqlassets.TenantDomainsSQL,
		sqlassets.PrincipalsSQL,
		sqlassets.SiteInfoSQL,
		sqlassets.MenuSQL,
		sqlassets.CarouselSQL,
		sqlassets.PageViewsSQL,
	} {
		statements = append(statements, splitStatements(ddl)...)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply ddl: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// splitStatements drops "--" comment lines and splits the remainder on ";".
func splitStatements(ddl string) []string {
	var b strings.Builder
	for _, line := range strings.Split(ddl, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var out []string
	for _, raw := range strings.Split(b.String(), ";") {
		if stmt := strings.TrimSpace(raw); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

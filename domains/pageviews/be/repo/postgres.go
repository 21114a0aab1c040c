package repo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-sites/domains/pageviews/be/service"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

const (
	pageViewsTable     = "page_view_daily"
	pageViewConstraint = "page_view_daily_tenant_path_day_key"
)

type pageViewRecord struct {
	tenantID tenant.ID
	path     string
	day      time.Time
}

func (r *pageViewRecord) Table() string            { return pageViewsTable }
func (r *pageViewRecord) Columns() []string        { return []string{"path", "day_utc", "count"} }
func (r *pageViewRecord) Values() []any            { return []any{r.path, r.day, 1} }
func (r *pageViewRecord) TenantID() tenant.ID      { return r.tenantID }
func (r *pageViewRecord) SetTenantID(id tenant.ID) { r.tenantID = id }

type PostgresRepository struct {
	guard *persistence.Guard
}

func NewPostgresRepository(guard *persistence.Guard) *PostgresRepository {
	if guard == nil {
		panic("guard is required")
	}
	return &PostgresRepository{guard: guard}
}

func (r *PostgresRepository) Increment(ctx context.Context, tc tenant.Context, path string, day time.Time) error {
	return r.guard.WithTenant(ctx, tc, func(scope *persistence.Scope) error {
		insert, err := scope.Insert(&pageViewRecord{path: path, day: day})
		if err != nil {
			return err
		}
		_, err = scope.Exec(ctx, insert.Suffix(fmt.Sprintf(
			"ON CONFLICT ON CONSTRAINT %s DO UPDATE SET count = %s.count + 1", pageViewConstraint, pageViewsTable)))
		return err
	})
}

func (r *PostgresRepository) Since(ctx context.Context, tc tenant.Context, day time.Time, path string) ([]service.DailyCount, error) {
	var out []service.DailyCount
	err := r.guard.WithTenant(ctx, tc, func(scope *persistence.Scope) error {
		q := scope.Select(pageViewsTable, "day_utc", "path", "count").
			Where(sq.GtOrEq{"day_utc": day}).
			OrderBy("day_utc ASC", "path ASC")
		if path != "" {
			q = q.Where(sq.Eq{"path": path})
		}

		rows, err := scope.Query(ctx, q)
		if err != nil {
			return fmt.Errorf("select page views: %w", err)
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (service.DailyCount, error) {
			var c service.DailyCount
			err := row.Scan(&c.Day, &c.Path, &c.Count)
			c.Day = c.Day.UTC()
			return c, err
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []service.DailyCount{}
	}
	return out, nil
}

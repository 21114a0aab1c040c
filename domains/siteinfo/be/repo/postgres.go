package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-sites/domains/siteinfo/be/service"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

// sectionRecord is one section row written through the data guard.
type sectionRecord struct {
	section  service.Section
	doc      service.Document
	tenantID tenant.ID
}

func (r *sectionRecord) Table() string { return r.section.Table }

func (r *sectionRecord) Columns() []string {
	fields := r.section.Writable()
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, f.Column)
	}
	return cols
}

func (r *sectionRecord) Values() []any {
	fields := r.section.Writable()
	vals := make([]any, 0, len(fields))
	for _, f := range fields {
		vals = append(vals, r.doc[f.Key])
	}
	return vals
}

func (r *sectionRecord) TenantID() tenant.ID      { return r.tenantID }
func (r *sectionRecord) SetTenantID(id tenant.ID) { r.tenantID = id }

// PostgresRepository stores one row per tenant and section.
type PostgresRepository struct {
	guard *persistence.Guard
}

func NewPostgresRepository(guard *persistence.Guard) *PostgresRepository {
	if guard == nil {
		panic("guard is required")
	}
	return &PostgresRepository{guard: guard}
}

func (r *PostgresRepository) Load(ctx context.Context, tc tenant.Context, section service.Section) (service.Document, bool, error) {
	var (
		doc   service.Document
		found bool
	)
	err := r.guard.WithTenant(ctx, tc, func(scope *persistence.Scope) error {
		row := scope.QueryRow(ctx, scope.Select(section.Table, selectColumns(section)...))
		var err error
		doc, err = scanDocument(row, section)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select %s: %w", section.Table, err)
		}
		found = true
		return nil
	})
	return doc, found, err
}

func (r *PostgresRepository) Save(ctx context.Context, tc tenant.Context, section service.Section, doc service.Document) (service.Document, error) {
	var saved service.Document
	err := r.guard.WithTenant(ctx, tc, func(scope *persistence.Scope) error {
		rec := &sectionRecord{section: section, doc: doc}
		insert, err := scope.Insert(rec)
		if err != nil {
			return err
		}

		sets := make([]string, 0, len(rec.Columns())+1)
		for _, col := range rec.Columns() {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
		sets = append(sets, "updated_at = NOW()")
		insert = insert.Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s RETURNING %s",
			persistence.TenantColumn, strings.Join(sets, ", "), strings.Join(selectColumns(section), ", ")))

		saved, err = scanDocument(scope.QueryRow(ctx, insert), section)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", section.Table, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// selectColumns reads nullable columns as empty strings.
func selectColumns(section service.Section) []string {
	cols := make([]string, 0, len(section.Fields))
	for _, f := range section.Fields {
		cols = append(cols, fmt.Sprintf("COALESCE(%s, '')", f.Column))
	}
	return cols
}

func scanDocument(row pgx.Row, section service.Section) (service.Document, error) {
	values := make([]string, len(section.Fields))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	doc := make(service.Document, len(values))
	for i, f := range section.Fields {
		doc[f.Key] = values[i]
	}
	return doc, nil
}

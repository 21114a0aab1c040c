package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-sites/domains/carousel/be/service"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

const (
	carouselsTable = "carousels"
	itemsTable     = "carousel_items"
)

// carouselRecord is the parent row; it carries nothing but its tenant.
type carouselRecord struct {
	tenantID tenant.ID
}

func (r *carouselRecord) Table() string            { return carouselsTable }
func (r *carouselRecord) Columns() []string        { return nil }
func (r *carouselRecord) Values() []any            { return nil }
func (r *carouselRecord) TenantID() tenant.ID      { return r.tenantID }
func (r *carouselRecord) SetTenantID(id tenant.ID) { r.tenantID = id }

type itemRecord struct {
	tenantID   tenant.ID
	carouselID int64
	item       service.Item
}

func (r *itemRecord) Table() string     { return itemsTable }
func (r *itemRecord) Columns() []string { return []string{"carousel_id", "image_url", "description"} }
func (r *itemRecord) Values() []any {
	return []any{r.carouselID, r.item.ImageURL, r.item.Description}
}
func (r *itemRecord) TenantID() tenant.ID      { return r.tenantID }
func (r *itemRecord) SetTenantID(id tenant.ID) { r.tenantID = id }

// PostgresRepository keeps the carousel in carousels and carousel_items.
type PostgresRepository struct {
	guard *persistence.Guard
}

func NewPostgresRepository(guard *persistence.Guard) *PostgresRepository {
	if guard == nil {
		panic("guard is required")
	}
	return &PostgresRepository{guard: guard}
}

func (r *PostgresRepository) Load(ctx context.Context, tc tenant.Context) (service.Carousel, error) {
	out := service.Carousel{Items: []service.Item{}}
	err := r.guard.WithTenant(ctx, tc, func(scope *persistence.Scope) error {
		err := scope.QueryRow(ctx, scope.Select(carouselsTable, "id")).Scan(&out.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select carousel: %w", err)
		}
		out.Items, err = loadItems(ctx, scope, out.ID)
		return err
	})
	return out, err
}

func (r *PostgresRepository) Replace(ctx context.Context, tc tenant.Context, items []service.Item) (service.Carousel, error) {
	var out service.Carousel
	err := r.guard.WithTenant(ctx, tc, func(scope *persistence.Scope) error {
		insert, err := scope.Insert(&carouselRecord{})
		if err != nil {
			return err
		}
		// The no-op update locks the existing row so concurrent replaces run one after another.
		upsert := insert.Suffix("ON CONFLICT (tenant_id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id RETURNING id")
		if err := scope.QueryRow(ctx, upsert).Scan(&out.ID); err != nil {
			return fmt.Errorf("upsert carousel: %w", err)
		}

		if _, err := scope.Exec(ctx, scope.Delete(itemsTable).Where("carousel_id = ?", out.ID)); err != nil {
			return fmt.Errorf("clear carousel items: %w", err)
		}

		out.Items = make([]service.Item, 0, len(items))
		for _, item := range items {
			insert, err := scope.Insert(&itemRecord{carouselID: out.ID, item: item})
			if err != nil {
				return err
			}
			if err := scope.QueryRow(ctx, insert.Suffix("RETURNING id")).Scan(&item.ID); err != nil {
				return fmt.Errorf("insert carousel item: %w", err)
			}
			out.Items = append(out.Items, item)
		}
		return nil
	})
	if err != nil {
		return service.Carousel{}, err
	}
	return out, nil
}

func loadItems(ctx context.Context, scope *persistence.Scope, carouselID int64) ([]service.Item, error) {
	rows, err := scope.Query(ctx, scope.Select(itemsTable, "id", "image_url", "description").
		Where("carousel_id = ?", carouselID).
		OrderBy("id ASC"))
	if err != nil {
		return nil, fmt.Errorf("select carousel items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (service.Item, error) {
		var it service.Item
		err := row.Scan(&it.ID, &it.ImageURL, &it.Description)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan carousel items: %w", err)
	}
	if items == nil {
		items = []service.Item{}
	}
	return items, nil
}

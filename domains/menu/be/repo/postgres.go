package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-sites/domains/menu/be/service"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

const (
	categoriesTable = "menu_categories"
	itemsTable      = "menu_items"
)

type categoryRecord struct {
	tenantID tenant.ID
	cat      service.Category
}

func (r *categoryRecord) Table() string     { return categoriesTable }
func (r *categoryRecord) Columns() []string { return []string{"name", "sort_order", "is_visible"} }
func (r *categoryRecord) Values() []any {
	return []any{r.cat.Name, r.cat.SortOrder, r.cat.IsVisible}
}
func (r *categoryRecord) TenantID() tenant.ID      { return r.tenantID }
func (r *categoryRecord) SetTenantID(id tenant.ID) { r.tenantID = id }

type itemRecord struct {
	tenantID   tenant.ID
	categoryID int64
	item       service.Item
}

func (r *itemRecord) Table() string { return itemsTable }
func (r *itemRecord) Columns() []string {
	return []string{"category_id", "name", "price", "description", "image_url", "sort_order", "is_visible"}
}
func (r *itemRecord) Values() []any {
	return []any{r.categoryID, r.item.Name, r.item.Price, r.item.Description, r.item.ImageURL, r.item.SortOrder, r.item.IsVisible}
}
func (r *itemRecord) TenantID() tenant.ID      { return r.tenantID }
func (r *itemRecord) SetTenantID(id tenant.ID) { r.tenantID = id }

// PostgresRepository keeps the menu in menu_categories and menu_items.
type PostgresRepository struct {
	guard *persistence.Guard
}

func NewPostgresRepository(guard *persistence.Guard) *PostgresRepository {
	if guard == nil {
		panic("guard is required")
	}
	return &PostgresRepository{guard: guard}
}

func (r *PostgresRepository) Load(ctx context.Context, tc tenant.Context) ([]service.Category, error) {
	var out []service.Category
	err := r.guard.WithTenant(ctx, tc, func(scope *persistence.Scope) error {
		var err error
		out, err = load(ctx, scope)
		return err
	})
	return out, err
}

func (r *PostgresRepository) Replace(ctx context.Context, tc tenant.Context, categories []service.Category) ([]service.Category, error) {
	var out []service.Category
	err := r.guard.WithTenant(ctx, tc, func(scope *persistence.Scope) error {
		// Items cascade with their category; deleting them first keeps the statement scoped.
		if _, err := scope.Exec(ctx, scope.Delete(itemsTable)); err != nil {
			return fmt.Errorf("clear menu items: %w", err)
		}
		if _, err := scope.Exec(ctx, scope.Delete(categoriesTable)); err != nil {
			return fmt.Errorf("clear menu categories: %w", err)
		}

		out = make([]service.Category, 0, len(categories))
		for _, cat := range categories {
			insert, err := scope.Insert(&categoryRecord{cat: cat})
			if err != nil {
				return err
			}
			if err := scope.QueryRow(ctx, insert.Suffix("RETURNING id")).Scan(&cat.ID); err != nil {
				return fmt.Errorf("insert category: %w", err)
			}

			items := make([]service.Item, 0, len(cat.Items))
			for _, item := range cat.Items {
				insert, err := scope.Insert(&itemRecord{categoryID: cat.ID, item: item})
				if err != nil {
					return err
				}
				if err := scope.QueryRow(ctx, insert.Suffix("RETURNING id")).Scan(&item.ID); err != nil {
					return fmt.Errorf("insert menu item: %w", err)
				}
				items = append(items, item)
			}
			cat.Items = items
			out = append(out, cat)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func load(ctx context.Context, scope *persistence.Scope) ([]service.Category, error) {
	rows, err := scope.Query(ctx, scope.Select(categoriesTable, "id", "name", "sort_order", "is_visible").
		OrderBy("sort_order ASC", "id ASC"))
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (service.Category, error) {
		var c service.Category
		err := row.Scan(&c.ID, &c.Name, &c.SortOrder, &c.IsVisible)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}

	rows, err = scope.Query(ctx, scope.Select(itemsTable,
		"id", "category_id", "name", "price", "description", "image_url", "sort_order", "is_visible").
		OrderBy("category_id ASC", "sort_order ASC", "id ASC"))
	if err != nil {
		return nil, fmt.Errorf("select menu items: %w", err)
	}

	byCategory := make(map[int64][]service.Item)
	_, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (struct{}, error) {
		var (
			it         service.Item
			categoryID int64
		)
		if err := row.Scan(&it.ID, &categoryID, &it.Name, &it.Price, &it.Description, &it.ImageURL, &it.SortOrder, &it.IsVisible); err != nil {
			return struct{}{}, err
		}
		byCategory[categoryID] = append(byCategory[categoryID], it)
		return struct{}{}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan menu items: %w", err)
	}

	for i := range categories {
		categories[i].Items = byCategory[categories[i].ID]
		if categories[i].Items == nil {
			categories[i].Items = []service.Item{}
		}
	}
	return categories, nil
}

package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-sites/domains/menu/be/repo"
	"github.com/zenGate-Global/palmyra-sites/domains/menu/be/service"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence/pgtest"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

func TestPostgresRepositoryIntegration(t *testing.T) {
	pool := pgtest.Start(t)
	r := repo.NewPostgresRepository(persistence.NewGuard(pool))
	ctx := context.Background()
	a := tenant.Resolved("tenant-a", tenant.SourceHost)
	b := tenant.Resolved("tenant-b", tenant.SourceHost)
	spicy := "Spicy"

	countRows := func(table, tenantID string) int {
		var n int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+` WHERE tenant_id = $1`, tenantID).Scan(&n))
		return n
	}

	_, err := r.Replace(ctx, b, []service.Category{{Name: "B only", SortOrder: 1, IsVisible: true,
		Items: []service.Item{{Name: "Tea", Price: "2.00", SortOrder: 1, IsVisible: true}}}})
	require.NoError(t, err)

	saved, err := r.Replace(ctx, a, []service.Category{
		{Name: "Tacos", SortOrder: 2, IsVisible: true, Items: []service.Item{
			{Name: "Al pastor", Price: "3.50", Description: &spicy, SortOrder: 1, IsVisible: true},
			{Name: "Secret", SortOrder: 2},
		}},
		{Name: "Drinks", SortOrder: 1, IsVisible: true, Items: []service.Item{}},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	require.NotZero(t, saved[0].ID)
	require.NotZero(t, saved[0].Items[0].ID)

	loaded, err := r.Load(ctx, a)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "Drinks", loaded[0].Name)
	require.Empty(t, loaded[0].Items)
	require.Equal(t, "Tacos", loaded[1].Name)
	require.Len(t, loaded[1].Items, 2, "hidden items are stored")
	require.Equal(t, "Spicy", *loaded[1].Items[0].Description)
	require.Nil(t, loaded[1].Items[1].Description)
	require.False(t, loaded[1].Items[1].IsVisible)

	// Replacing drops every previous category and item of the tenant only.
	_, err = r.Replace(ctx, a, []service.Category{{Name: "Desserts", SortOrder: 1, IsVisible: true,
		Items: []service.Item{{Name: "Churros", SortOrder: 1, IsVisible: true}}}})
	require.NoError(t, err)
	require.Equal(t, 1, countRows("menu_categories", "tenant-a"))
	require.Equal(t, 1, countRows("menu_items", "tenant-a"))
	require.Equal(t, 1, countRows("menu_categories", "tenant-b"))
	require.Equal(t, 1, countRows("menu_items", "tenant-b"))

	loaded, err = r.Load(ctx, b)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "Tea", loaded[0].Items[0].Name)

	_, err = r.Replace(ctx, a, []service.Category{})
	require.NoError(t, err)
	loaded, err = r.Load(ctx, a)
	require.NoError(t, err)
	require.Empty(t, loaded)

	_, err = r.Replace(ctx, tenant.Unresolved(), nil)
	require.ErrorIs(t, err, persistence.ErrTenantUnresolved)
}

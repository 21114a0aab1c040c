package repo_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-sites/domains/carousel/be/repo"
	"github.com/zenGate-Global/palmyra-sites/domains/carousel/be/service"
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
	front := "Front"

	countRows := func(table, tenantID string) int {
		var n int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+` WHERE tenant_id = $1`, tenantID).Scan(&n))
		return n
	}

	c, err := r.Load(ctx, a)
	require.NoError(t, err)
	require.Zero(t, c.ID)
	require.Empty(t, c.Items)
	require.Zero(t, countRows("carousels", "tenant-a"), "loading does not create a carousel")

	saved, err := r.Replace(ctx, a, []service.Item{
		{ImageURL: "/uploads/a/1.png", Description: &front},
		{ImageURL: "/uploads/a/2.png"},
	})
	require.NoError(t, err)
	require.NotZero(t, saved.ID)
	require.Len(t, saved.Items, 2)

	_, err = r.Replace(ctx, b, []service.Item{{ImageURL: "/uploads/b/1.png"}})
	require.NoError(t, err)

	c, err = r.Load(ctx, a)
	require.NoError(t, err)
	require.Equal(t, saved.ID, c.ID)
	require.Equal(t, saved.Items, c.Items)

	again, err := r.Replace(ctx, a, []service.Item{{ImageURL: "/uploads/a/3.png"}})
	require.NoError(t, err)
	require.Equal(t, saved.ID, again.ID, "the parent row is reused")
	require.Equal(t, 1, countRows("carousels", "tenant-a"))
	require.Equal(t, 1, countRows("carousel_items", "tenant-a"))
	require.Equal(t, 1, countRows("carousel_items", "tenant-b"))

	t.Run("concurrent replaces keep one carousel", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make([]error, 6)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = r.Replace(ctx, tenant.Resolved("tenant-c", tenant.SourceHost),
					[]service.Item{{ImageURL: "/x.png"}, {ImageURL: "/y.png"}})
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			require.NoError(t, err)
		}
		require.Equal(t, 1, countRows("carousels", "tenant-c"))
		require.Equal(t, 2, countRows("carousel_items", "tenant-c"))
	})

	_, err = r.Replace(ctx, tenant.Unresolved(), nil)
	require.ErrorIs(t, err, persistence.ErrTenantUnresolved)
}

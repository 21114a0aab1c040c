package repo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-sites/domains/pageviews/be/repo"
	"github.com/zenGate-Global/palmyra-sites/domains/pageviews/be/service"
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
	monday := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	t.Run("concurrent increments land on one counter", func(t *testing.T) {
		const views = 20
		var wg sync.WaitGroup
		errs := make([]error, views)
		for i := 0; i < views; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = r.Increment(ctx, a, "/menu", monday)
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			require.NoError(t, err)
		}

		rows, err := r.Since(ctx, a, monday, "/menu")
		require.NoError(t, err)
		require.Equal(t, []service.DailyCount{{Day: monday, Path: "/menu", Count: views}}, rows)
	})

	t.Run("since filters by day and path per tenant", func(t *testing.T) {
		require.NoError(t, r.Increment(ctx, a, "/home", tuesday))
		require.NoError(t, r.Increment(ctx, a, "/menu", tuesday))
		require.NoError(t, r.Increment(ctx, b, "/home", tuesday))

		rows, err := r.Since(ctx, a, tuesday, "")
		require.NoError(t, err)
		require.Equal(t, []service.DailyCount{
			{Day: tuesday, Path: "/home", Count: 1},
			{Day: tuesday, Path: "/menu", Count: 1},
		}, rows)

		rows, err = r.Since(ctx, b, monday, "")
		require.NoError(t, err)
		require.Equal(t, []service.DailyCount{{Day: tuesday, Path: "/home", Count: 1}}, rows)
	})

	t.Run("unresolved scope neither writes nor reads", func(t *testing.T) {
		require.ErrorIs(t, r.Increment(ctx, tenant.Unresolved(), "/home", monday), persistence.ErrTenantUnresolved)

		rows, err := r.Since(ctx, tenant.Unresolved(), monday, "")
		require.NoError(t, err)
		require.Empty(t, rows)
	})
}

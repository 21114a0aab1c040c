// Package pgtest starts a throwaway Postgres for integration tests and applies the embedded
// schema to it.
package pgtest

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
)

const image = "postgres:16-alpine"

// Start runs a Postgres container for t, bootstraps the schema twice to prove it is
// idempotent and returns a pool that is closed on cleanup. It skips in -short mode.
func Start(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		image,
		postgres.WithDatabase("palmyra"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: connString, ApplicationName: "palmyra-sites-test"})
	require.NoError(t, err)
	t.Cleanup(func() { persistence.ClosePool(pool) })

	require.NoError(t, persistence.BootstrapSchema(ctx, pool))
	require.NoError(t, persistence.BootstrapSchema(ctx, pool))
	return pool
}

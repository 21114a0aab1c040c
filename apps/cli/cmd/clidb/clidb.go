// Package clidb opens the Postgres pool for CLI subcommands from the root --database-url flag.
package clidb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
)

// FlagName is registered as a persistent flag on the root command.
const FlagName = "database-url"

const applicationName = "palmyra-sites-cli"

// URL returns the --database-url value, falling back to $DATABASE_URL.
func URL(cmd *cobra.Command) (string, error) {
	value, _ := cmd.Flags().GetString(FlagName)
	if strings.TrimSpace(value) == "" {
		value = os.Getenv("DATABASE_URL")
	}
	if strings.TrimSpace(value) == "" {
		return "", errors.New("--database-url or DATABASE_URL is required")
	}
	return value, nil
}

// Open connects using URL(cmd). Callers must close the pool.
func Open(ctx context.Context, cmd *cobra.Command) (*pgxpool.Pool, error) {
	dsn, err := URL(cmd)
	if err != nil {
		return nil, err
	}
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: dsn, ApplicationName: applicationName})
	if err != nil {
		return nil, fmt.Errorf("init pool: %w", err)
	}
	return pool, nil
}

package root

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-sites/apps/cli/cmd/clidb"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "palmyra-sites",
		Short:         "Palmyra Sites operator CLI",
		Long:          "Operator utilities for Palmyra Sites: schema bootstrap, session tokens, hostname lookups.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().String(clidb.FlagName, "", "PostgreSQL connection string; defaults to $DATABASE_URL")
	return cmd
}

var rootCmd = newRootCommand()

// Execute runs the CLI; SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}

package bootstrap

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-sites/apps/cli/cmd/clidb"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
)

// Command groups bootstrap helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap platform resources",
		Long:  "Bootstrap platform resources such as the registry and content tables.",
	}

	cmd.AddCommand(schemaCommand())
	return cmd
}

func schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Apply the registry and content DDL (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := clidb.Open(ctx, cmd)
			if err != nil {
				return err
			}
			defer persistence.ClosePool(pool)

			if err := persistence.BootstrapSchema(ctx, pool); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied.")
			return nil
		},
	}
}

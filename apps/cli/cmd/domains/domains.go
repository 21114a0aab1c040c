package domains

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-sites/apps/cli/cmd/clidb"
	"github.com/zenGate-Global/palmyra-sites/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

// Command groups registry inspection helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domains",
		Short: "Inspect the hostname registry",
	}

	cmd.AddCommand(lookupCommand())
	return cmd
}

func lookupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <hostname|origin>",
		Short: "Show which tenant a hostname or origin resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, ok := normalize(args[0])
			if !ok {
				return fmt.Errorf("%q is not a valid hostname", args[0])
			}

			ctx := cmd.Context()
			pool, err := clidb.Open(ctx, cmd)
			if err != nil {
				return err
			}
			defer persistence.ClosePool(pool)

			return printLookup(ctx, cmd, persistence.NewHostnameLookup(pool), host)
		},
	}
}

// normalize accepts either a bare hostname or an Origin value.
func normalize(input string) (string, bool) {
	if host, ok := tenant.HostFromOrigin(input); ok {
		return host, true
	}
	return tenant.NormalizeHost(input)
}

func printLookup(ctx context.Context, cmd *cobra.Command, lookup tenant.Lookup, host string) error {
	id, ok, err := lookup.TenantForHostname(ctx, host)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", host, err)
	}
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: not registered\n", host)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: tenant %s\n", host, id)
	return nil
}

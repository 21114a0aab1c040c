package auth

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-sites/platform/go/auth/devtoken"
)

func devTokenCommand() *cobra.Command {
	var params devtoken.Params

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Generate an unsigned ID-token-shaped JWT for dev/local use",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := devtoken.BuildUnsignedToken(params, time.Now().UTC())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	// Required claims
	cmd.Flags().StringVar(&params.ProjectID, "project-id", "palmyra-dev", "project ID (iss/aud)")
	cmd.Flags().StringVar(&params.UserID, "user-id", "", "user_id/sub/uid claim")
	cmd.Flags().StringVar(&params.Email, "email", "", "email claim")

	// Optional claims
	cmd.Flags().StringVar(&params.TenantID, "tenant-id", "", "tenant_id claim; omit for a principal without a tenant")
	cmd.Flags().StringVar(&params.Name, "name", "", "display name")
	cmd.Flags().BoolVar(&params.EmailVerified, "email-verified", true, "email_verified claim")
	cmd.Flags().BoolVar(&params.IsAdmin, "admin", false, "set isAdmin=true")
	cmd.Flags().DurationVar(&params.ExpiresIn, "expires-in", time.Hour, "token lifetime (e.g. 30m, 2h)")
	cmd.Flags().StringVar(&params.Audience, "audience", "", "override aud; defaults to project-id")
	cmd.Flags().StringVar(&params.Issuer, "issuer", "", "override iss; defaults to securetoken URL")

	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

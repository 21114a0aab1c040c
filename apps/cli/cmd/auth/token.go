package auth

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	platformauth "github.com/zenGate-Global/palmyra-sites/platform/go/auth"
)

func sessionTokenCommand() *cobra.Command {
	var (
		signingKey string
		issuer     string
		ttl        time.Duration
		userID     string
		email      string
		name       string
		tenantID   string
		admin      bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an HS256 session token accepted when AUTH_PROVIDER=jwt",
		RunE: func(cmd *cobra.Command, args []string) error {
			if signingKey == "" {
				signingKey = os.Getenv("JWT_SIGNING_KEY")
			}
			signer, err := platformauth.NewSessionSigner(signingKey, issuer, ttl)
			if err != nil {
				return err
			}

			creds := platformauth.UserCredentials{Id: userID, Email: email, EmailVerified: true, IsAdmin: admin}
			if name = strings.TrimSpace(name); name != "" {
				creds.Name = &name
			}
			if tenantID = strings.TrimSpace(tenantID); tenantID != "" {
				creds.TenantID = &tenantID
			}

			token, err := signer.Sign(creds)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&signingKey, "signing-key", "", "HMAC key; defaults to $JWT_SIGNING_KEY")
	cmd.Flags().StringVar(&issuer, "issuer", "palmyra-sites", "iss claim; must match JWT_ISSUER of the API")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&userID, "user-id", "", "subject")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "tenant_id claim")
	cmd.Flags().BoolVar(&admin, "admin", false, "set isAdmin=true")

	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"yellowpages-backend/middlewares"
)

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		secret  string
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin JWT for the seed endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = rootOpts.Settings.AdminSecret
			}
			if secret == "" {
				secret = os.Getenv("ADMIN_JWT_SECRET")
			}
			if secret == "" {
				return errors.New("token: no secret (use --secret, admin_secret in config, or ADMIN_JWT_SECRET)")
			}
			token, err := middlewares.GenerateAdminToken(secret, subject, ttl)
			if err != nil {
				return fmt.Errorf("token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "HS256 signing secret")
	cmd.Flags().StringVar(&subject, "subject", "vendorctl", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

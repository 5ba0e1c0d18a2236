package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trailhub/trailhub/internal/app"
	"github.com/trailhub/trailhub/internal/auth"
)

func newTokenCmd(c *cli) *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		Long: `Mint an HS256 access token signed with AUTH_JWT_SECRET that the API
accepts. Intended for local development and smoke tests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errUserRequired
			}
			verifier, err := app.NewVerifier(c.cfg, c.log)
			if err != nil {
				return err
			}
			token, expiresAt, err := verifier.Issue(userID, email, ttl)
			if err != nil {
				return err
			}
			c.log.Info().Time("expires_at", expiresAt).Msg("token issued")
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trailhub/trailhub/internal/app"
	"github.com/trailhub/trailhub/internal/config"
)

var errMigrateMemory = errors.New("migrate needs the postgres or sqlite store")

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long: `Apply the schema for the configured store. PostgreSQL connection
settings come from DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME and
DB_SSLMODE. The statements are idempotent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.StoreDriver == config.StoreMemory {
				return errMigrateMemory
			}

			cfg := c.cfg
			cfg.AutoMigrate = true
			stores, err := app.OpenStores(cmd.Context(), cfg, c.log)
			if err != nil {
				return err
			}
			defer stores.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", cfg.StoreDriver)
			return nil
		},
	}
}

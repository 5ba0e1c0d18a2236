package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trailhub/trailhub/internal/app"
	"github.com/trailhub/trailhub/internal/provider/resilience"
	"github.com/trailhub/trailhub/internal/worker"
)

func newRefreshCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [location...]",
		Short: "Warm the recommendation cache once",
		Long: `Fetch and cache recommendations for the given locations, or for
REFRESH_LOCATIONS (falling back to the built-in trailhead list) when none are
given. Set REDIS_URL so the API sees the refreshed entries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stores, err := app.OpenStores(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer stores.Close()

			flags := app.NewFeatureFlags(c.cfg, stores, c.log)
			normalizer, err := app.NewNormalizer(c.cfg, c.log)
			if err != nil {
				return err
			}
			recs, err := app.NewRecommendations(c.cfg, stores, normalizer, flags, resilience.NewRegistry(), c.log)
			if err != nil {
				return err
			}

			refreshConfig := worker.DefaultRefreshConfig()
			if targets := worker.ParseTargets(c.cfg.RefreshLocations); len(targets) > 0 {
				refreshConfig.Targets = targets
			}
			if len(args) > 0 {
				refreshConfig.Targets = worker.ParseTargets(strings.Join(args, ";"))
			}
			if c.cfg.RefreshConcurrency > 0 {
				refreshConfig.Concurrency = c.cfg.RefreshConcurrency
			}

			job := worker.NewRefreshJob(worker.RefreshJobConfig{
				Config:    refreshConfig,
				Logger:    c.log,
				Refresher: recs,
			})
			result := job.Run(ctx)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "refreshed %d/%d locations, %d skipped, %d trails cached in %s\n",
				result.Successful, result.TotalTargets, result.Skipped, result.TrailsCached, result.Duration)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  %s: %s\n", e.Location, e.Error)
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d locations failed", result.Failed)
			}
			return nil
		},
	}
}

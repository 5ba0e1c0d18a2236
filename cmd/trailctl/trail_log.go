package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/trailhub/trailhub/internal/app"
	"github.com/trailhub/trailhub/internal/trailstatus"
)

var errUserRequired = errors.New("--user is required")

func newTrailLogCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trail-log",
		Short: "Export or import a user's saved and completed trails",
	}
	cmd.AddCommand(newTrailLogExportCmd(c), newTrailLogImportCmd(c))
	return cmd
}

func newTrailLogExportCmd(c *cli) *cobra.Command {
	var userID, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a user's trail log as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errUserRequired
			}
			svc, closeStores, err := c.trailStatus(cmd)
			if err != nil {
				return err
			}
			defer closeStores()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			n, err := svc.ExportCSV(cmd.Context(), userID, w)
			if err != nil {
				return err
			}
			c.log.Info().Str("user_id", userID).Int("entries", n).Msg("trail log exported")
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newTrailLogImportCmd(c *cli) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Replay an exported trail log for a user",
		Long: `Replay a CSV trail log, read from a file or stdin, for a user. Entries
the user already has are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errUserRequired
			}
			svc, closeStores, err := c.trailStatus(cmd)
			if err != nil {
				return err
			}
			defer closeStores()

			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			summary, err := svc.ImportCSV(cmd.Context(), userID, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d saved, %d completed, skipped %d\n",
				summary.Saved, summary.Completed, summary.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	return cmd
}

// trailStatus opens the configured store and returns a trail status service
// on it. Feature flags are not consulted so maintenance works while writes
// are switched off for users.
func (c *cli) trailStatus(cmd *cobra.Command) (*trailstatus.Service, func(), error) {
	stores, err := app.OpenStores(cmd.Context(), c.cfg, c.log)
	if err != nil {
		return nil, nil, err
	}
	svc := trailstatus.NewService(trailstatus.ServiceConfig{
		Repository: stores.TrailStatus,
		Logger:     c.log,
	})
	return svc, stores.Close, nil
}

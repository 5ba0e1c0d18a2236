package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/trailhub/trailhub/internal/app"
	"github.com/trailhub/trailhub/internal/recommendation/upstream"
)

func newNormalizeCmd(c *cli) *cobra.Command {
	var showIssues bool

	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Normalize a recommendation-service response",
		Long: `Read a raw recommendation-service response from a file, or stdin when
the file is omitted or "-", and print the normalized trail summaries as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			normalizer, err := app.NewNormalizer(c.cfg, c.log)
			if err != nil {
				return err
			}

			if showIssues {
				_, issues := normalizer.DecodePlaces(raw)
				for _, issue := range issues {
					fmt.Fprintf(cmd.ErrOrStderr(), "entry %d dropped: %s\n", issue.Index, issue.Reason)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(normalizer.TransformResponse(raw))
		},
	}
	cmd.Flags().BoolVar(&showIssues, "issues", false, "report dropped entries on stderr")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	raw, err := io.ReadAll(io.LimitReader(r, upstream.MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if len(raw) > upstream.MaxResponseBytes {
		return nil, fmt.Errorf("input exceeds %d bytes", upstream.MaxResponseBytes)
	}
	return raw, nil
}

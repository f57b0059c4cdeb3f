package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tunogya/motif/pkg/data"
	"github.com/tunogya/motif/pkg/metrics"
	"github.com/tunogya/motif/pkg/pipeline"
)

func runCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Match every sample against every data series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			sink, closeSinks, err := buildSinks(ctx, cfg.Output)
			defer closeSinks()
			if err != nil {
				return err
			}

			reg := metrics.NewRegistry()
			stop := serveMetrics(cfg.Metrics.Addr, reg)
			defer stop()

			runner, err := pipeline.New(cfg, data.NewCSVLoader(), sink)
			if err != nil {
				return err
			}
			runner.WithMetrics(reg)

			reports, err := runner.Run(ctx)
			if err != nil {
				return err
			}

			failed := 0
			for i := range reports {
				if reports[i].Failed() {
					failed++
				}
			}
			log.Info().
				Str("run_id", runner.RunID()).
				Int("pairs", len(reports)).
				Int("failed", failed).
				Msg("Done")

			if failed == len(reports) {
				return fmt.Errorf("all %d pairs failed", failed)
			}
			return nil
		},
	}
}

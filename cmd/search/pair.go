package main

import (
	"github.com/spf13/cobra"

	"github.com/tunogya/motif/pkg/data"
	"github.com/tunogya/motif/pkg/pipeline"
)

func pairCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pair <sample.csv> <data.csv>",
		Short: "Match one sample against one data series",
		Args:  cobra.ExactArgs(2),
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

			runner, err := pipeline.New(cfg, data.NewCSVLoader(), sink)
			if err != nil {
				return err
			}

			_, err = runner.RunPair(ctx, args[0], args[1])
			return err
		},
	}
}

package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tunogya/motif/pkg/data"
	"github.com/tunogya/motif/pkg/metric"
	"github.com/tunogya/motif/pkg/store/milvus"
)

func lookupCmd(opts *options) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "lookup <sample.csv>",
		Short: "Find stored windows whose descriptor is closest to a sample's",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cfg.Output.Milvus.Address == "" {
				return errors.New("lookup needs a milvus address")
			}

			m, err := metric.New(cfg.Metric)
			if err != nil {
				return err
			}
			spectral, ok := m.(*metric.Spectral)
			if !ok {
				return fmt.Errorf("lookup needs the %s metric, got %s", metric.KindSpectral, m.Name())
			}

			sample, err := data.NewCSVLoader().LoadSeries(ctx, args[0])
			if err != nil {
				return err
			}
			descriptor, err := spectral.Descriptor(sample.Values)
			if err != nil {
				return err
			}
			if len(descriptor) < milvus.MinDimension {
				return fmt.Errorf("descriptor of dimension %d cannot be searched", len(descriptor))
			}

			client, err := milvus.NewClient(ctx, milvus.Config{Address: cfg.Output.Milvus.Address})
			if err != nil {
				return err
			}
			defer client.Close()

			collection := milvus.CollectionName(cfg.Output.Milvus.CollectionPrefix, len(descriptor))
			if err := client.LoadCollection(ctx, collection); err != nil {
				return fmt.Errorf("load %s: %w", collection, err)
			}

			log.Info().Str("collection", collection).Int("top_k", cfg.TopK).Msg("Searching descriptors")
			results, err := client.Search(ctx, collection, milvus.Float32s(descriptor), filter, cfg.TopK)
			if err != nil {
				return err
			}

			fmt.Printf("%-5s %-32s %-24s %-24s %-8s %-10s\n", "Rank", "MatchID", "Sample", "Data", "Start", "Similarity")
			fmt.Println("------------------------------------------------------------------------------------------------------")
			for i, r := range results {
				fmt.Printf("%-5d %-32s %-24s %-24s %-8d %.6f\n", i+1, r.MatchID, r.Sample, r.Data, r.StartIndex, r.Similarity)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", `Milvus boolean expression, e.g. data == "close.csv"`)
	return cmd
}

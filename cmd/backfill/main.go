package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tunogya/motif/pkg/config"
	"github.com/tunogya/motif/pkg/logging"
	"github.com/tunogya/motif/pkg/report"
	"github.com/tunogya/motif/pkg/store/duckdb"
	"github.com/tunogya/motif/pkg/store/milvus"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options holds backfill configuration
type options struct {
	configPath string
	duckdbPath string
	milvusAddr string
	prefix     string
	runID      string
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "backfill",
		Short:         "Copy stored match descriptors of a run from DuckDB into Milvus",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			out := cfg.Output
			fs := cmd.Flags()
			if fs.Changed("duckdb") {
				out.DuckDB = opts.duckdbPath
			}
			if fs.Changed("milvus") {
				out.Milvus.Address = opts.milvusAddr
			}
			if fs.Changed("prefix") {
				out.Milvus.CollectionPrefix = opts.prefix
			}
			logging.Setup(nil, cfg.Log.Level, cfg.Log.Format)

			return run(cmd.Context(), out, opts.runID)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	cmd.Flags().StringVar(&opts.duckdbPath, "duckdb", "", "DuckDB file path")
	cmd.Flags().StringVar(&opts.milvusAddr, "milvus", "", "Milvus server address")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "Descriptor collection prefix")
	cmd.Flags().StringVar(&opts.runID, "run", "", "Run ID to copy (default: latest run)")

	return cmd
}

func run(ctx context.Context, out config.OutputConfig, runID string) error {
	if out.DuckDB == "" {
		return errors.New("duckdb path is required")
	}
	if out.Milvus.Address == "" {
		return errors.New("milvus address is required")
	}

	log.Info().Str("duckdb", out.DuckDB).Msg("Connecting to DuckDB")
	duckClient, err := duckdb.NewClient(out.DuckDB)
	if err != nil {
		return err
	}
	defer duckClient.Close()

	repo := duckdb.NewReportRepo(duckClient)

	if runID == "" {
		runID, err = repo.LatestRunID(ctx)
		if err != nil {
			return fmt.Errorf("find latest run: %w", err)
		}
	}

	pairs, err := repo.ListPairs(ctx, runID)
	if err != nil {
		return err
	}
	log.Info().Str("run_id", runID).Int("pairs", len(pairs)).Msg("Loaded run")

	log.Info().Str("addr", out.Milvus.Address).Msg("Connecting to Milvus")
	milvusClient, err := milvus.NewClient(ctx, milvus.Config{Address: out.Milvus.Address})
	if err != nil {
		return err
	}
	defer milvusClient.Close()

	sink := milvus.NewDescriptorSink(milvusClient, out.Milvus.CollectionPrefix)

	copied := 0
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.Err != "" || p.Reported == 0 {
			continue
		}

		matches, err := repo.ListMatches(ctx, runID, p.Sample, p.Data)
		if err != nil {
			return err
		}

		rep := &report.PairReport{
			RunID:   runID,
			Sample:  p.Sample,
			Data:    p.Data,
			Metric:  p.Metric,
			Matches: matches,
		}
		if err := sink.Write(ctx, rep); err != nil {
			return err
		}

		for _, group := range milvus.Descriptors(rep) {
			copied += len(group)
		}
	}

	log.Info().Str("run_id", runID).Int("descriptors", copied).Msg("Backfill complete")
	return nil
}

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
	"github.com/tunogya/motif/pkg/queue/nats"
	"github.com/tunogya/motif/pkg/store/duckdb"
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

func rootCmd() *cobra.Command {
	var (
		configPath string
		natsURL    string
		stream     string
		duckdbPath string
		consumer   string
	)

	cmd := &cobra.Command{
		Use:           "writer",
		Short:         "Store published pair reports in DuckDB",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fs := cmd.Flags()
			if fs.Changed("nats") || cfg.Output.NATS.URL == "" {
				cfg.Output.NATS.URL = natsURL
			}
			if fs.Changed("stream") {
				cfg.Output.NATS.Stream = stream
			}
			if fs.Changed("duckdb") || cfg.Output.DuckDB == "" {
				cfg.Output.DuckDB = duckdbPath
			}
			logging.Setup(nil, cfg.Log.Level, cfg.Log.Format)

			return run(ctx, cfg.Output, consumer)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	cmd.Flags().StringVar(&natsURL, "nats", nats.DefaultConfig().URL, "NATS server URL")
	cmd.Flags().StringVar(&stream, "stream", "", "JetStream stream name")
	cmd.Flags().StringVar(&duckdbPath, "duckdb", "motif.duckdb", "DuckDB file path")
	cmd.Flags().StringVar(&consumer, "consumer", "report-writer", "Durable consumer name")

	return cmd
}

func run(ctx context.Context, out config.OutputConfig, consumer string) error {
	if out.DuckDB == "" {
		return errors.New("duckdb path is required")
	}

	log.Info().Str("nats", out.NATS.URL).Str("duckdb", out.DuckDB).Msg("Starting writer")

	duckClient, err := duckdb.NewClient(out.DuckDB)
	if err != nil {
		return err
	}
	defer duckClient.Close()

	repo := duckdb.NewReportRepo(duckClient)

	natsClient, err := nats.NewClient(nats.NewConfig(out.NATS))
	if err != nil {
		return err
	}
	defer natsClient.Close()

	if err := natsClient.CreateReportStream(ctx); err != nil {
		return err
	}
	log.Info().Str("stream", natsClient.StreamName()).Msg("NATS stream ready")

	reports, err := natsClient.ConsumeReports(ctx, consumer, func(ctx context.Context, m *nats.PairReportMsg) error {
		if err := repo.Write(ctx, m.Report); err != nil {
			return err
		}

		log.Info().
			Str("run_id", m.Report.RunID).
			Str("sample", m.Report.Sample).
			Str("data", m.Report.Data).
			Int("matches", len(m.Report.Matches)).
			Msg("Stored report")
		return nil
	})
	if err != nil {
		return err
	}
	defer reports.Stop()

	log.Info().Msg("Writer started, waiting for reports...")
	<-ctx.Done()

	log.Info().Msg("Shutting down writer")
	return nil
}

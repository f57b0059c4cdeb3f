package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/tunogya/motif/pkg/config"
	"github.com/tunogya/motif/pkg/queue/nats"
	"github.com/tunogya/motif/pkg/report"
	"github.com/tunogya/motif/pkg/store/duckdb"
	"github.com/tunogya/motif/pkg/store/milvus"
)

// buildSinks opens every output enabled in cfg. The returned function
// releases them; it is safe to call when an error is returned.
func buildSinks(ctx context.Context, cfg config.OutputConfig) (report.Sink, func(), error) {
	var sinks report.MultiSink
	var closers []func()

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Text {
		sinks = append(sinks, report.NewTextSink(os.Stdout))
	}

	if cfg.EigenDir != "" {
		sinks = append(sinks, report.NewEigenSink(cfg.EigenDir))
		log.Info().Str("dir", cfg.EigenDir).Msg("Writing eigenvalue files")
	}

	if cfg.DuckDB != "" {
		client, err := duckdb.NewClient(cfg.DuckDB)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { client.Close() })
		sinks = append(sinks, duckdb.NewReportRepo(client))
		log.Info().Str("path", cfg.DuckDB).Msg("Writing results to DuckDB")
	}

	if cfg.Milvus.Address != "" {
		client, err := milvus.NewClient(ctx, milvus.Config{Address: cfg.Milvus.Address})
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { client.Close() })
		sinks = append(sinks, milvus.NewDescriptorSink(client, cfg.Milvus.CollectionPrefix))
		log.Info().Str("addr", cfg.Milvus.Address).Msg("Writing descriptors to Milvus")
	}

	if cfg.NATS.URL != "" {
		client, err := nats.NewClient(nats.NewConfig(cfg.NATS))
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, client.Close)

		if err := client.CreateReportStream(ctx); err != nil {
			return nil, closeAll, fmt.Errorf("nats: %w", err)
		}
		sinks = append(sinks, nats.NewReportPublisher(client))
		log.Info().Str("url", cfg.NATS.URL).Msg("Publishing reports to NATS")
	}

	return sinks, closeAll, nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tunogya/motif/pkg/config"
	"github.com/tunogya/motif/pkg/logging"
	"github.com/tunogya/motif/pkg/metrics"
)

// options holds command line overrides applied on top of the config file
type options struct {
	configPath string

	sampleDir    string
	dataDir      string
	metricKind   string
	tolerance    float64
	threshold    float64
	embeddingDim int
	normalize    string
	compare      string
	components   int
	topK         int
	workers      int
	horizons     []int

	noText      bool
	eigenDir    string
	duckdbPath  string
	milvusAddr  string
	natsURL     string
	metricsAddr string
	logLevel    string
}

// Execute runs the search CLI
func Execute(ctx context.Context) error {
	opts := &options{}

	root := &cobra.Command{
		Use:           "search",
		Short:         "Find windows of data series that resemble sample series",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&opts.sampleDir, "sample-dir", "", "Directory of sample series")
	pf.StringVar(&opts.dataDir, "data-dir", "", "Directory of data series")
	pf.StringVar(&opts.metricKind, "metric", "", "Metric: bounded or spectral")
	pf.Float64Var(&opts.tolerance, "tolerance", 0, "Per-position tolerance of the bounded metric")
	pf.Float64Var(&opts.threshold, "threshold", 0, "Similarity threshold of the spectral metric")
	pf.IntVar(&opts.embeddingDim, "embedding-dim", 0, "Lag-embedding dimension of the spectral descriptor")
	pf.StringVar(&opts.normalize, "normalize", "", "Normalization before the spectral descriptor: none, zscore, minmax")
	pf.StringVar(&opts.compare, "compare", "", "Spectral comparison: projection or spectrum")
	pf.IntVar(&opts.components, "components", 0, "Leading eigenvectors used by projection comparison (0 = all)")
	pf.IntVar(&opts.topK, "top-k", 0, "Matches reported per pair")
	pf.IntVar(&opts.workers, "workers", 0, "Pairs scanned concurrently")
	pf.IntSliceVar(&opts.horizons, "horizons", nil, "Forward horizons for outcome statistics, e.g. 5,20,60")
	pf.BoolVar(&opts.noText, "no-text", false, "Disable the text report on stdout")
	pf.StringVar(&opts.eigenDir, "eigen-dir", "", "Directory for eigenvalue files")
	pf.StringVar(&opts.duckdbPath, "duckdb", "", "DuckDB file for results")
	pf.StringVar(&opts.milvusAddr, "milvus", "", "Milvus address for descriptors")
	pf.StringVar(&opts.natsURL, "nats", "", "NATS URL for publishing reports")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level")

	root.AddCommand(runCmd(opts), pairCmd(opts), lookupCmd(opts))
	return root.ExecuteContext(ctx)
}

// load reads the config file, applies flag overrides and sets up logging
func (o *options) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}

	fs := cmd.Flags()
	if fs.Changed("sample-dir") {
		cfg.SampleDir = o.sampleDir
	}
	if fs.Changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if fs.Changed("metric") {
		cfg.Metric.Kind = o.metricKind
	}
	if fs.Changed("tolerance") {
		cfg.Metric.Tolerance = o.tolerance
	}
	if fs.Changed("threshold") {
		cfg.Metric.Threshold = o.threshold
	}
	if fs.Changed("embedding-dim") {
		cfg.Metric.EmbeddingDim = o.embeddingDim
	}
	if fs.Changed("normalize") {
		cfg.Metric.Normalize = o.normalize
	}
	if fs.Changed("compare") {
		cfg.Metric.Compare = o.compare
	}
	if fs.Changed("components") {
		cfg.Metric.Components = o.components
	}
	if fs.Changed("top-k") {
		cfg.TopK = o.topK
	}
	if fs.Changed("workers") {
		cfg.Workers = o.workers
	}
	if fs.Changed("horizons") {
		cfg.Outcome.Horizons = o.horizons
	}
	if fs.Changed("no-text") {
		cfg.Output.Text = !o.noText
	}
	if fs.Changed("eigen-dir") {
		cfg.Output.EigenDir = o.eigenDir
	}
	if fs.Changed("duckdb") {
		cfg.Output.DuckDB = o.duckdbPath
	}
	if fs.Changed("milvus") {
		cfg.Output.Milvus.Address = o.milvusAddr
	}
	if fs.Changed("nats") {
		cfg.Output.NATS.URL = o.natsURL
	}
	if fs.Changed("metrics-addr") {
		cfg.Metrics.Addr = o.metricsAddr
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}

	logging.Setup(nil, cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// serveMetrics exposes reg on addr and returns a function stopping the server.
// An empty addr disables it.
func serveMetrics(addr string, reg *metrics.Registry) (stop func()) {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown")
		}
	}
}

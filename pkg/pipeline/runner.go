// Package pipeline runs every sample against every data series and hands
// the ranked matches to the reporting sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tunogya/motif/pkg/config"
	"github.com/tunogya/motif/pkg/data"
	"github.com/tunogya/motif/pkg/metric"
	"github.com/tunogya/motif/pkg/metrics"
	"github.com/tunogya/motif/pkg/model"
	"github.com/tunogya/motif/pkg/outcome"
	"github.com/tunogya/motif/pkg/report"
	"github.com/tunogya/motif/pkg/rerank"
	"github.com/tunogya/motif/pkg/window"
)

// ErrNoInputs is returned when a root holds no series files
var ErrNoInputs = errors.New("no input series found")

// Runner processes (sample, data) pairs
type Runner struct {
	sampleDir string
	dataDir   string
	extension string
	workers   int
	runID     string

	loader  data.SeriesLoader
	metric  metric.Metric
	scanner *window.Scanner
	ranker  *rerank.Ranker
	outcome *outcome.Engine
	sink    report.Sink
	metrics *metrics.Registry
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a runner from configuration. sink may be nil.
func New(cfg config.Config, loader data.SeriesLoader, sink report.Sink) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m, err := metric.New(cfg.Metric)
	if err != nil {
		return nil, err
	}

	if sink == nil {
		sink = report.MultiSink{}
	}

	return &Runner{
		sampleDir: cfg.SampleDir,
		dataDir:   cfg.DataDir,
		extension: cfg.Extension,
		workers:   cfg.Workers,
		runID:     uuid.NewString(),
		loader:    loader,
		metric:    m,
		scanner:   window.NewScanner(m),
		ranker:    rerank.NewRanker(cfg.TopK),
		outcome:   outcome.NewEngine(cfg.Outcome.Horizons),
		sink:      sink,
		logger:    log.Logger,
		now:       time.Now,
	}, nil
}

// WithMetrics records scan metrics on reg
func (r *Runner) WithMetrics(reg *metrics.Registry) *Runner {
	r.metrics = reg
	return r
}

// WithLogger replaces the global logger
func (r *Runner) WithLogger(logger zerolog.Logger) *Runner {
	r.logger = logger
	return r
}

// WithRunID overrides the generated run ID
func (r *Runner) WithRunID(id string) *Runner {
	r.runID = id
	return r
}

// RunID returns the ID stamped on every report of this runner
func (r *Runner) RunID() string {
	return r.runID
}

type loadedSample struct {
	path   string
	series *model.TimeSeries
	err    error
}

// Run processes the Cartesian product of sample and data files.
// A failing pair is recorded in its report and does not stop the others.
// Reports are returned and written to the sink ordered by (sample, data).
func (r *Runner) Run(ctx context.Context) ([]report.PairReport, error) {
	samplePaths, err := data.Discover(r.sampleDir, r.extension)
	if err != nil {
		return nil, err
	}
	dataPaths, err := data.Discover(r.dataDir, r.extension)
	if err != nil {
		return nil, err
	}
	if len(samplePaths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputs, r.sampleDir)
	}
	if len(dataPaths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputs, r.dataDir)
	}

	r.logger.Info().
		Str("run_id", r.runID).
		Int("samples", len(samplePaths)).
		Int("data", len(dataPaths)).
		Str("metric", r.metric.Name()).
		Msg("Starting run")

	samples := make([]loadedSample, len(samplePaths))
	for i, p := range samplePaths {
		ts, err := r.loader.LoadSeries(ctx, p)
		samples[i] = loadedSample{path: p, series: ts, err: err}
	}

	reports := make([]report.PairReport, len(samples)*len(dataPaths))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i := range samples {
		for j, dataPath := range dataPaths {
			idx := i*len(dataPaths) + j
			s := samples[i]
			g.Go(func() error {
				var sample *model.TimeSeries
				if s.series != nil {
					sample = s.series.Copy()
				}
				reports[idx] = r.process(ctx, s.path, sample, s.err, dataPath)
				return nil
			})
		}
	}
	_ = g.Wait()

	sort.SliceStable(reports, func(a, b int) bool {
		if reports[a].Sample != reports[b].Sample {
			return reports[a].Sample < reports[b].Sample
		}
		return reports[a].Data < reports[b].Data
	})

	var sinkErrs []error
	failed := 0
	for i := range reports {
		if reports[i].Failed() {
			failed++
		}
		if err := r.sink.Write(ctx, &reports[i]); err != nil {
			r.logger.Error().Err(err).
				Str("sample", reports[i].Sample).
				Str("data", reports[i].Data).
				Msg("Failed to write report")
			sinkErrs = append(sinkErrs, err)
		}
	}

	r.logger.Info().
		Str("run_id", r.runID).
		Int("pairs", len(reports)).
		Int("failed", failed).
		Msg("Run finished")

	if err := ctx.Err(); err != nil {
		return reports, err
	}
	return reports, errors.Join(sinkErrs...)
}

// RunPair processes a single pair and writes its report to the sink.
// The returned error is the pair failure or the sink error.
func (r *Runner) RunPair(ctx context.Context, samplePath, dataPath string) (*report.PairReport, error) {
	sample, loadErr := r.loader.LoadSeries(ctx, samplePath)
	rep := r.process(ctx, samplePath, sample, loadErr, dataPath)

	if err := r.sink.Write(ctx, &rep); err != nil {
		return &rep, err
	}
	if rep.Failed() {
		return &rep, errors.New(rep.Err)
	}
	return &rep, nil
}

// process never fails; errors end up in the report
func (r *Runner) process(ctx context.Context, samplePath string, sample *model.TimeSeries, sampleErr error, dataPath string) report.PairReport {
	rep := report.PairReport{
		RunID:     r.runID,
		Sample:    filepath.Base(samplePath),
		Data:      filepath.Base(dataPath),
		Metric:    r.metric.Name(),
		CreatedAt: r.now().UTC(),
	}
	logger := r.logger.With().Str("sample", rep.Sample).Str("data", rep.Data).Logger()

	if r.metrics != nil {
		r.metrics.PairStarted()
	}
	start := time.Now()

	series, matches, stats, err := r.scanPair(ctx, sample, sampleErr, dataPath)
	rep.Elapsed = time.Since(start)

	status := metrics.StatusMatched
	switch {
	case err != nil:
		status = metrics.StatusFailed
		rep.Err = err.Error()
		logger.Error().Err(err).Msg("Pair failed")
	case len(matches) == 0:
		status = metrics.StatusNoMatches
	}

	if err == nil {
		rep.Windows = stats.Windows
		rep.TotalAccepted = stats.Accepted
		rep.Matches = r.ranker.Select(matches)
		if r.outcome.Enabled() {
			rep.Outcomes = outcome.Aggregate(r.outcome.Calculate(series, rep.Matches))
		}
		logger.Debug().
			Int("windows", stats.Windows).
			Int("accepted", stats.Accepted).
			Dur("elapsed", rep.Elapsed).
			Msg("Pair scanned")
	}

	if r.metrics != nil {
		r.metrics.PairFinished(rep.Metric, status, rep.Windows, rep.TotalAccepted, rep.Elapsed)
	}

	return rep
}

func (r *Runner) scanPair(ctx context.Context, sample *model.TimeSeries, sampleErr error, dataPath string) (*model.TimeSeries, []model.Match, window.Stats, error) {
	if sampleErr != nil {
		return nil, nil, window.Stats{}, fmt.Errorf("load sample: %w", sampleErr)
	}

	series, err := r.loader.LoadSeries(ctx, dataPath)
	if err != nil {
		return nil, nil, window.Stats{}, fmt.Errorf("load data: %w", err)
	}

	matches, stats, err := r.scanner.ScanContext(ctx, series, sample)
	return series, matches, stats, err
}

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/motif/pkg/config"
	"github.com/tunogya/motif/pkg/data"
	"github.com/tunogya/motif/pkg/metric"
	"github.com/tunogya/motif/pkg/metrics"
	"github.com/tunogya/motif/pkg/model"
	"github.com/tunogya/motif/pkg/report"
	"github.com/tunogya/motif/pkg/window"
)

func writeCSV(t *testing.T, dir, name string, values ...float64) {
	t.Helper()

	var b strings.Builder
	b.WriteString("Date,Close\n")
	for i, v := range values {
		fmt.Fprintf(&b, "2024-01-%02d,%g\n", i+1, v)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644))
}

type collector struct {
	mu      sync.Mutex
	reports []report.PairReport
}

func (c *collector) Write(_ context.Context, r *report.PairReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, *r)
	return nil
}

func boundedConfig(sampleDir, dataDir string) config.Config {
	cfg := config.Default()
	cfg.SampleDir = sampleDir
	cfg.DataDir = dataDir
	cfg.Workers = 2
	cfg.Metric.Kind = metric.KindBounded
	cfg.Metric.Tolerance = 0
	return cfg
}

func TestRunCartesianProduct(t *testing.T) {
	sampleDir, dataDir := t.TempDir(), t.TempDir()
	writeCSV(t, sampleDir, "s.csv", 2, 3)
	writeCSV(t, sampleDir, "t.csv", 1, 2, 3, 10, 2)
	writeCSV(t, dataDir, "a.csv", 1, 2, 3, 10, 2, 3)
	writeCSV(t, dataDir, "b.csv", 9, 2, 3)

	sink := &collector{}
	reg := metrics.NewRegistry()
	runner, err := New(boundedConfig(sampleDir, dataDir), data.NewCSVLoader().WithLogger(zerolog.Nop()), sink)
	require.NoError(t, err)
	runner.WithLogger(zerolog.Nop()).WithMetrics(reg).WithRunID("run-1")

	reports, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 4)

	// ordered by (sample, data) and written to the sink in that order
	assert.Equal(t, reports, sink.reports)

	sa := reports[0]
	assert.Equal(t, "s.csv", sa.Sample)
	assert.Equal(t, "a.csv", sa.Data)
	assert.Equal(t, "run-1", sa.RunID)
	assert.Equal(t, metric.KindBounded, sa.Metric)
	assert.Equal(t, 5, sa.Windows)
	assert.Equal(t, 2, sa.TotalAccepted)
	require.Len(t, sa.Matches, 2)
	assert.Equal(t, 1, sa.Matches[0].StartIndex)
	assert.Equal(t, 4, sa.Matches[1].StartIndex)
	assert.Equal(t, model.MustParseDate("2024-01-02"), sa.Matches[0].FirstDate())

	sb := reports[1]
	assert.Equal(t, "b.csv", sb.Data)
	require.Len(t, sb.Matches, 1)
	assert.Equal(t, 1, sb.Matches[0].StartIndex)

	ta := reports[2]
	assert.Equal(t, "t.csv", ta.Sample)
	require.Len(t, ta.Matches, 1)
	assert.Equal(t, 0, ta.Matches[0].StartIndex)

	// sample longer than data fails alone
	tb := reports[3]
	assert.True(t, tb.Failed())
	assert.Contains(t, tb.Err, window.ErrSampleTooLong.Error())
	assert.Empty(t, tb.Matches)

	assert.Equal(t, 3.0, testutil.ToFloat64(reg.PairsTotal.WithLabelValues(metrics.StatusMatched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.PairsTotal.WithLabelValues(metrics.StatusFailed)))
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.ActivePairs))
}

func TestRunTopK(t *testing.T) {
	sampleDir, dataDir := t.TempDir(), t.TempDir()
	writeCSV(t, sampleDir, "s.csv", 1)
	writeCSV(t, dataDir, "d.csv", 1, 1.5, 0.9, 3, 1)

	cfg := boundedConfig(sampleDir, dataDir)
	cfg.Metric.Tolerance = 0.6
	cfg.TopK = 2
	cfg.Outcome.Horizons = []int{1}

	runner, err := New(cfg, data.NewCSVLoader().WithLogger(zerolog.Nop()), nil)
	require.NoError(t, err)
	runner.WithLogger(zerolog.Nop())

	reports, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	rep := reports[0]
	assert.Equal(t, 4, rep.TotalAccepted)
	require.Len(t, rep.Matches, 2)
	// equal differences keep scan order
	assert.Equal(t, 0, rep.Matches[0].StartIndex)
	assert.Equal(t, 4, rep.Matches[1].StartIndex)

	// only the first match has a value after it: 1 -> 1.5
	require.Len(t, rep.Outcomes, 1)
	assert.Equal(t, 1, rep.Outcomes[0].SampleCount)
	assert.InDelta(t, 0.5, rep.Outcomes[0].MeanReturn, 1e-12)
}

func TestRunInputErrors(t *testing.T) {
	dir := t.TempDir()

	runner, err := New(boundedConfig(filepath.Join(dir, "missing"), dir), data.NewMemoryLoader(), nil)
	require.NoError(t, err)
	_, err = runner.WithLogger(zerolog.Nop()).Run(context.Background())
	assert.ErrorIs(t, err, data.ErrUnreadableRoot)

	runner, err = New(boundedConfig(dir, dir), data.NewMemoryLoader(), nil)
	require.NoError(t, err)
	_, err = runner.WithLogger(zerolog.Nop()).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoInputs)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := boundedConfig("s", "d")
	cfg.Metric.Tolerance = -1

	_, err := New(cfg, data.NewMemoryLoader(), nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.ErrorIs(t, err, metric.ErrNegativeTolerance)

	cfg = boundedConfig("s", "d")
	cfg.Metric.Kind = "dtw"
	_, err = New(cfg, data.NewMemoryLoader(), nil)
	assert.ErrorIs(t, err, metric.ErrUnknownMetric)
}

func TestRunPairSpectral(t *testing.T) {
	loader := data.NewMemoryLoader()

	sample := model.NewTimeSeries("sample.csv", 4)
	dataSeries := model.NewTimeSeries("data.csv", 8)
	for i, v := range []float64{1, 2, 4, 8} {
		sample.Append(model.Date{Year: 2024, Month: 2, Day: i + 1}, v)
	}
	for i, v := range []float64{5, 1, 2, 4, 8, 3, 3, 3} {
		dataSeries.Append(model.Date{Year: 2024, Month: 3, Day: i + 1}, v)
	}
	loader.Add(sample)
	loader.Add(dataSeries)

	cfg := config.Default()
	cfg.Metric.EmbeddingDim = 2

	sink := &collector{}
	runner, err := New(cfg, loader, sink)
	require.NoError(t, err)
	runner.WithLogger(zerolog.Nop())

	rep, err := runner.RunPair(context.Background(), "in/sample.csv", "in/data.csv")
	require.NoError(t, err)
	require.Len(t, sink.reports, 1)

	assert.Equal(t, metric.KindSpectral, rep.Metric)
	assert.Equal(t, 5, rep.Windows)
	require.NotEmpty(t, rep.Matches)

	best := rep.Matches[0]
	assert.Equal(t, 1, best.StartIndex)
	assert.InDelta(t, 1.0, best.Score, 1e-9)
	assert.Equal(t, -best.Score, best.Badness)
	assert.Equal(t, best.SampleEigenvalues, best.WindowEigenvalues)

	_, err = runner.RunPair(context.Background(), "in/missing.csv", "in/data.csv")
	assert.Error(t, err)
	require.Len(t, sink.reports, 2)
	assert.True(t, sink.reports[1].Failed())
}

func TestRunCancelled(t *testing.T) {
	sampleDir, dataDir := t.TempDir(), t.TempDir()
	writeCSV(t, sampleDir, "s.csv", 2, 3)
	writeCSV(t, dataDir, "a.csv", 1, 2, 3)

	runner, err := New(boundedConfig(sampleDir, dataDir), data.NewCSVLoader().WithLogger(zerolog.Nop()), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := runner.WithLogger(zerolog.Nop()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Failed())
}

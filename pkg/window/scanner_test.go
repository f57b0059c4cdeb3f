package window

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/motif/pkg/feature"
	"github.com/tunogya/motif/pkg/metric"
	"github.com/tunogya/motif/pkg/model"
)

func series(name string, values ...float64) *model.TimeSeries {
	ts := model.NewTimeSeries(name, len(values))
	for i, v := range values {
		ts.Append(model.Date{Year: 2024, Month: 1, Day: i + 1}, v)
	}
	return ts
}

func bounded(t *testing.T, tol float64) metric.Metric {
	t.Helper()
	m, err := metric.NewBoundedDifference(tol)
	require.NoError(t, err)
	return m
}

func TestScanBoundedKnownWindows(t *testing.T) {
	data := series("data", 1, 2, 3, 10, 2, 3)
	sample := series("sample", 2, 3)

	matches, err := NewScanner(bounded(t, 0)).Scan(data, sample)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, 1, matches[0].StartIndex)
	assert.Equal(t, []float64{2, 3}, matches[0].Values)
	assert.Equal(t, []model.Date{data.Dates[1], data.Dates[2]}, matches[0].Dates)
	assert.Equal(t, 0.0, matches[0].Score)

	assert.Equal(t, 4, matches[1].StartIndex)
	assert.Equal(t, []float64{2, 3}, matches[1].Values)
	assert.Equal(t, []model.Date{data.Dates[4], data.Dates[5]}, matches[1].Dates)
	assert.NotEqual(t, matches[0].MatchID, matches[1].MatchID)
}

func TestScanBoundedAcceptsIffEveryPositionWithinTolerance(t *testing.T) {
	data := series("data", 0, 1, 2, 3, 4, 5, 4, 3, 2, 1)
	sample := series("sample", 1, 2, 3)
	const tol = 1.0

	matches, err := NewScanner(bounded(t, tol)).Scan(data, sample)
	require.NoError(t, err)

	byStart := make(map[int]model.Match)
	for _, m := range matches {
		byStart[m.StartIndex] = m
	}

	for i := 0; i+sample.Len() <= data.Len(); i++ {
		within := true
		total := 0.0
		for j := 0; j < sample.Len(); j++ {
			d := data.Values[i+j] - sample.Values[j]
			if d < 0 {
				d = -d
			}
			if d > tol {
				within = false
			}
			total += d
		}

		m, found := byStart[i]
		assert.Equal(t, within, found, "start %d", i)
		if found {
			assert.InDelta(t, total, m.Score, 1e-12, "start %d", i)
		}
	}
}

func TestScanSampleTooLong(t *testing.T) {
	data := series("data", 1, 2)
	sample := series("sample", 1, 2, 3)

	matches, err := NewScanner(bounded(t, 10)).Scan(data, sample)
	assert.ErrorIs(t, err, ErrSampleTooLong)
	assert.Empty(t, matches)
}

func TestScanEmptySample(t *testing.T) {
	_, err := NewScanner(bounded(t, 1)).Scan(series("data", 1, 2), series("sample"))
	assert.ErrorIs(t, err, ErrEmptySample)
}

func TestScanInvalidSeries(t *testing.T) {
	data := series("data", 1, 2, 3)
	data.Values = append(data.Values, 4)

	_, err := NewScanner(bounded(t, 1)).Scan(data, series("sample", 1))
	assert.ErrorIs(t, err, model.ErrLengthMismatch)
}

func TestScanSampleEqualsData(t *testing.T) {
	data := series("data", 5, 6, 7)

	matches, stats, err := NewScanner(bounded(t, 0)).ScanContext(context.Background(), data, data.Copy())
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].StartIndex)
	assert.Equal(t, Stats{Windows: 1, Accepted: 1}, stats)
}

func TestScanMatchesDoNotAliasData(t *testing.T) {
	data := series("data", 2, 3, 2, 3)
	matches, err := NewScanner(bounded(t, 0)).Scan(data, series("sample", 2, 3))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	matches[0].Values[0] = 100
	assert.Equal(t, 2.0, data.Values[0])
}

func TestScanSpectralKeepsDescriptors(t *testing.T) {
	data := series("data", 1, 2, 3, 4, 5, 6, 7, 8, 1, 1, 3, 3, 1, 1, 3, 3)
	sample := series("sample", 1, 2, 3, 4, 5, 6, 7, 8)
	m := metric.NewSpectral(metric.DefaultThreshold, 2, feature.NormalizeZScore)

	matches, stats, err := NewScanner(m).ScanContext(context.Background(), data, sample)
	require.NoError(t, err)
	assert.Equal(t, 9, stats.Windows)
	require.NotEmpty(t, matches)

	assert.Equal(t, 0, matches[0].StartIndex)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Len(t, matches[0].SampleEigenvalues, 2)
	assert.Len(t, matches[0].WindowEigenvalues, 2)
	for _, mt := range matches {
		assert.Greater(t, mt.Score, metric.DefaultThreshold)
		assert.Equal(t, -mt.Score, mt.Badness)
		assert.NotEqual(t, 8, mt.StartIndex) // the step pattern
	}
}

func TestScanContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewScanner(bounded(t, 1)).ScanContext(ctx, series("data", 1, 2, 3), series("sample", 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCount(t *testing.T) {
	assert.Equal(t, 5, Count(6, 2))
	assert.Equal(t, 1, Count(3, 3))
	assert.Equal(t, 0, Count(2, 3))
	assert.Equal(t, 0, Count(2, 0))
}

func BenchmarkScanBounded(b *testing.B) {
	values := make([]float64, 5000)
	for i := range values {
		values[i] = float64(i % 37)
	}
	data := series("data", values...)
	sample := series("sample", values[100:130]...)
	m, _ := metric.NewBoundedDifference(2)
	s := NewScanner(m)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Scan(data, sample); err != nil {
			b.Fatalf("scan failed: %v", err)
		}
	}
}

func BenchmarkScanSpectral(b *testing.B) {
	values := make([]float64, 2000)
	for i := range values {
		values[i] = float64(i%23) + float64(i%7)*0.5
	}
	data := series("data", values...)
	sample := series("sample", values[40:70]...)
	s := NewScanner(metric.NewSpectral(metric.DefaultThreshold, metric.DefaultEmbeddingDim, feature.NormalizeZScore))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Scan(data, sample); err != nil {
			b.Fatalf("scan failed: %v", err)
		}
	}
}

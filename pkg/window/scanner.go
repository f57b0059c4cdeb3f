package window

import (
	"context"
	"errors"
	"fmt"

	"github.com/tunogya/motif/pkg/metric"
	"github.com/tunogya/motif/pkg/model"
)

var (
	// ErrEmptySample is returned when the sample has no observations
	ErrEmptySample = errors.New("sample series is empty")

	// ErrSampleTooLong is returned when the sample is longer than the data series
	ErrSampleTooLong = errors.New("sample series is longer than data series")
)

// ctxCheckInterval is how many windows are evaluated between context checks
const ctxCheckInterval = 4096

// Scanner slides a sample over a data series and collects accepted windows
type Scanner struct {
	Metric metric.Metric
}

// NewScanner creates a scanner using the given metric
func NewScanner(m metric.Metric) *Scanner {
	return &Scanner{Metric: m}
}

// Stats describes a finished scan
type Stats struct {
	Windows  int // number of alignments evaluated
	Accepted int // number of matches produced
}

// Count returns the number of alignments of a sample of length m in a series of length n
func Count(n, m int) int {
	if m <= 0 || m > n {
		return 0
	}
	return n - m + 1
}

// Scan evaluates every alignment data[i:i+M] for i in [0, N-M], in order
func (s *Scanner) Scan(data, sample *model.TimeSeries) ([]model.Match, error) {
	matches, _, err := s.ScanContext(context.Background(), data, sample)
	return matches, err
}

// ScanContext is Scan with cancellation checked between windows
func (s *Scanner) ScanContext(ctx context.Context, data, sample *model.TimeSeries) ([]model.Match, Stats, error) {
	var stats Stats

	if err := data.Validate(); err != nil {
		return nil, stats, err
	}
	if err := sample.Validate(); err != nil {
		return nil, stats, err
	}

	n, m := data.Len(), sample.Len()
	if m == 0 {
		return nil, stats, fmt.Errorf("%w: %q", ErrEmptySample, sample.Name)
	}
	if m > n {
		return nil, stats, fmt.Errorf("%w: %q has %d values, %q has %d",
			ErrSampleTooLong, sample.Name, m, data.Name, n)
	}

	active := s.Metric
	if p, ok := active.(metric.Preparer); ok {
		active = p.Prepare(sample.Values)
	}

	var matches []model.Match
	for i := 0; i <= n-m; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		window := data.Values[i : i+m]
		res := active.Evaluate(sample.Values, window)
		stats.Windows++
		if !res.Accepted {
			continue
		}

		matches = append(matches, newMatch(data, sample, i, m, res))
	}

	stats.Accepted = len(matches)
	return matches, stats, nil
}

// newMatch copies the window so the match never aliases the data series
func newMatch(data, sample *model.TimeSeries, start, length int, res metric.Result) model.Match {
	values := make([]float64, length)
	copy(values, data.Values[start:start+length])

	dates := make([]model.Date, length)
	copy(dates, data.Dates[start:start+length])

	return model.Match{
		MatchID:           model.GenerateMatchID(sample.Name, data.Name, start, length),
		StartIndex:        start,
		Values:            values,
		Dates:             dates,
		Score:             res.Score,
		Badness:           res.Badness,
		SampleEigenvalues: copyFloats(res.SampleDescriptor),
		WindowEigenvalues: copyFloats(res.WindowDescriptor),
	}
}

func copyFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

package outcome

import (
	"fmt"
	"math"
	"sort"

	"github.com/tunogya/motif/pkg/model"
)

// Engine calculates what the data series did after each match
type Engine struct {
	horizons []int
}

// NewEngine creates an engine for the given forward horizons.
// Non-positive and repeated horizons are dropped.
func NewEngine(horizons []int) *Engine {
	seen := make(map[int]bool)
	var hs []int
	for _, h := range horizons {
		if h <= 0 || seen[h] {
			continue
		}
		seen[h] = true
		hs = append(hs, h)
	}
	sort.Ints(hs)
	return &Engine{horizons: hs}
}

// Horizons returns the forward horizons in ascending order
func (e *Engine) Horizons() []int {
	return e.horizons
}

// Enabled reports whether any horizon is configured
func (e *Engine) Enabled() bool {
	return len(e.horizons) > 0
}

// Result holds outcome statistics for a single match-horizon pair
type Result struct {
	MatchID     string  `json:"match_id"`
	Horizon     int     `json:"horizon"`
	FwdRetMean  float64 `json:"fwd_ret_mean"`
	FwdRetP10   float64 `json:"fwd_ret_p10"`
	FwdRetP50   float64 `json:"fwd_ret_p50"`
	FwdRetP90   float64 `json:"fwd_ret_p90"`
	MaxDrawdown float64 `json:"max_drawdown"`
	FwdPoints   int     `json:"fwd_points"` // forward observations actually available
}

// Complete reports whether the whole horizon was observed
func (r Result) Complete() bool {
	return r.FwdPoints >= r.Horizon
}

// Calculate computes forward statistics for matches of data.
// The base value is the last value of each match window.
func (e *Engine) Calculate(data *model.TimeSeries, matches []model.Match) []Result {
	var results []Result

	for i := range matches {
		m := &matches[i]
		end := m.EndIndex()
		if m.Len() == 0 || end > data.Len() {
			continue
		}

		base := data.Values[end-1]
		if base == 0 {
			continue
		}

		forward := data.Values[end:]
		for _, horizon := range e.horizons {
			if len(forward) < horizon {
				// Not enough forward data
				results = append(results, Result{
					MatchID:   m.MatchID,
					Horizon:   horizon,
					FwdPoints: len(forward),
				})
				continue
			}

			results = append(results, calculateStats(m.MatchID, horizon, base, forward[:horizon]))
		}
	}

	return results
}

// calculateStats computes statistics for a set of forward values
func calculateStats(matchID string, horizon int, base float64, values []float64) Result {
	if len(values) == 0 {
		return Result{
			MatchID: matchID,
			Horizon: horizon,
		}
	}

	returns := make([]float64, len(values))
	for i, v := range values {
		returns[i] = (v - base) / base
	}

	sortedReturns := make([]float64, len(returns))
	copy(sortedReturns, returns)
	sort.Float64s(sortedReturns)

	return Result{
		MatchID:     matchID,
		Horizon:     horizon,
		FwdRetMean:  mean(returns),
		FwdRetP10:   percentile(sortedReturns, 10),
		FwdRetP50:   percentile(sortedReturns, 50),
		FwdRetP90:   percentile(sortedReturns, 90),
		MaxDrawdown: maxDrawdown(base, values),
		FwdPoints:   len(values),
	}
}

// maxDrawdown computes the largest fall from a running peak that starts at base
func maxDrawdown(base float64, values []float64) float64 {
	if len(values) == 0 || base <= 0 {
		return 0
	}

	peak := base
	maxDD := 0.0

	for _, v := range values {
		if v > peak {
			peak = v
		}
		dd := (peak - v) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

// mean calculates the arithmetic mean
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile calculates the p-th percentile (p in 0-100)
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	// Linear interpolation method
	rank := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		return sorted[lower]
	}

	fraction := rank - float64(lower)
	return sorted[lower] + fraction*(sorted[upper]-sorted[lower])
}

// AggregatedOutcome summarises one horizon across matches
type AggregatedOutcome struct {
	Horizon     int     `json:"horizon"`
	SampleCount int     `json:"sample_count"`
	MeanReturn  float64 `json:"mean_return"`
	MeanP10     float64 `json:"mean_p10"`
	MeanP50     float64 `json:"mean_p50"`
	MeanP90     float64 `json:"mean_p90"`
	MDDP95      float64 `json:"mdd_p95"`
}

// Aggregate summarises complete results per horizon, ordered by horizon.
// Horizons without a complete result are left out.
func Aggregate(results []Result) []AggregatedOutcome {
	byHorizon := make(map[int][]Result)
	for _, r := range results {
		if !r.Complete() {
			continue
		}
		byHorizon[r.Horizon] = append(byHorizon[r.Horizon], r)
	}

	aggregated := make([]AggregatedOutcome, 0, len(byHorizon))
	for horizon, rs := range byHorizon {
		means := make([]float64, len(rs))
		p10s := make([]float64, len(rs))
		p50s := make([]float64, len(rs))
		p90s := make([]float64, len(rs))
		mdds := make([]float64, len(rs))

		for i, r := range rs {
			means[i] = r.FwdRetMean
			p10s[i] = r.FwdRetP10
			p50s[i] = r.FwdRetP50
			p90s[i] = r.FwdRetP90
			mdds[i] = r.MaxDrawdown
		}

		sort.Float64s(mdds)

		aggregated = append(aggregated, AggregatedOutcome{
			Horizon:     horizon,
			SampleCount: len(rs),
			MeanReturn:  mean(means),
			MeanP10:     mean(p10s),
			MeanP50:     mean(p50s),
			MeanP90:     mean(p90s),
			MDDP95:      percentile(mdds, 95),
		})
	}

	sort.Slice(aggregated, func(i, j int) bool {
		return aggregated[i].Horizon < aggregated[j].Horizon
	})
	return aggregated
}

// String returns a formatted string representation
func (a AggregatedOutcome) String() string {
	return fmt.Sprintf(
		"Horizon: %d | Matches: %d | Mean: %.4f | P10: %.4f | P50: %.4f | P90: %.4f | MDD95: %.4f",
		a.Horizon, a.SampleCount, a.MeanReturn, a.MeanP10, a.MeanP50, a.MeanP90, a.MDDP95,
	)
}

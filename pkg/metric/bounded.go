package metric

import (
	"fmt"
	"math"
)

// BoundedDifference accepts a window only if every position is within
// Tolerance of the sample. Score is the sum of absolute differences.
type BoundedDifference struct {
	Tolerance float64
}

// NewBoundedDifference creates a bounded-difference metric
func NewBoundedDifference(tolerance float64) (*BoundedDifference, error) {
	if tolerance < 0 || math.IsNaN(tolerance) {
		return nil, fmt.Errorf("%w: %g", ErrNegativeTolerance, tolerance)
	}
	return &BoundedDifference{Tolerance: tolerance}, nil
}

// Name returns the metric kind
func (b *BoundedDifference) Name() string {
	return KindBounded
}

// Evaluate stops at the first position exceeding the tolerance
func (b *BoundedDifference) Evaluate(sample, window []float64) Result {
	if len(sample) != len(window) {
		return Result{Accepted: false, Score: math.Inf(1), Badness: math.Inf(1)}
	}

	total := 0.0
	for j := range sample {
		diff := math.Abs(sample[j] - window[j])
		// negated comparison also rejects NaN
		if !(diff <= b.Tolerance) {
			return Result{Accepted: false, Score: math.Inf(1), Badness: math.Inf(1)}
		}
		total += diff
	}

	return Result{
		Accepted: true,
		Score:    total,
		Badness:  total,
	}
}

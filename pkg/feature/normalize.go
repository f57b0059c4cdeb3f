package feature

import (
	"math"
)

// Normalization modes for series values before descriptor extraction
const (
	NormalizeNone   = "none"
	NormalizeZScore = "zscore"
	NormalizeMinMax = "minmax"
)

// Normalize applies the named normalization and returns a new slice.
// Unknown or empty modes return a copy of the input.
func Normalize(values []float64, mode string) []float64 {
	switch mode {
	case NormalizeZScore:
		return ZScore(values)
	case NormalizeMinMax:
		return MinMaxNormalize(values)
	default:
		result := make([]float64, len(values))
		copy(result, values)
		return result
	}
}

// ValidNormalization reports whether mode is a known normalization
func ValidNormalization(mode string) bool {
	switch mode {
	case "", NormalizeNone, NormalizeZScore, NormalizeMinMax:
		return true
	}
	return false
}

// ZScore centers values on their mean and scales by standard deviation.
// A constant series is only centered.
func ZScore(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	mean, std := meanStd(values)
	if std == 0 {
		std = 1
	}

	result := make([]float64, len(values))
	for i, v := range values {
		result[i] = (v - mean) / std
	}

	return result
}

// MinMaxNormalize scales values to [0, 1] range
func MinMaxNormalize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	rangeVal := max - min
	if rangeVal == 0 {
		rangeVal = 1
	}

	result := make([]float64, len(values))
	for i, v := range values {
		result[i] = (v - min) / rangeVal
	}

	return result
}

// meanStd calculates mean and population standard deviation
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	variance := sumSquares / float64(len(values))
	std = math.Sqrt(variance)

	return mean, std
}

package metric

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tunogya/motif/pkg/feature"
)

// Metric names
const (
	KindBounded  = "bounded"
	KindSpectral = "spectral"
)

var (
	// ErrUnknownMetric is returned for an unrecognised metric name
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrNegativeTolerance is returned when the bounded-difference tolerance is < 0
	ErrNegativeTolerance = errors.New("tolerance must be non-negative")

	// ErrInvalidThreshold is returned when the similarity threshold is outside [-1, 1]
	ErrInvalidThreshold = errors.New("similarity threshold must be within [-1, 1]")

	// ErrInvalidEmbedding is returned when the embedding dimension is < 1
	ErrInvalidEmbedding = errors.New("embedding dimension must be >= 1")

	// ErrInvalidNormalization is returned for an unknown normalization mode
	ErrInvalidNormalization = errors.New("unknown normalization")

	// ErrInvalidCompare is returned for an unknown spectral comparison mode
	ErrInvalidCompare = errors.New("unknown spectral comparison")

	// ErrInvalidComponents is returned when the projected component count is < 0
	ErrInvalidComponents = errors.New("components must be >= 0")
)

// Result is the outcome of comparing a sample with one window
type Result struct {
	Accepted bool
	Score    float64

	// Badness orders results independently of metric: lower is better
	Badness float64

	// Descriptor pair; only set by the spectral metric
	SampleDescriptor []float64
	WindowDescriptor []float64
}

// Metric compares a sample with an equal-length window
type Metric interface {
	// Name returns the metric kind
	Name() string

	// Evaluate compares sample with window. Implementations must not keep
	// state between calls.
	Evaluate(sample, window []float64) Result
}

// Preparer is implemented by metrics that can precompute sample-side work.
// The returned Metric is bound to sample and must only be evaluated with it.
type Preparer interface {
	Prepare(sample []float64) Metric
}

// Config selects and parameterises a metric
type Config struct {
	Kind         string  `yaml:"kind" json:"kind"`
	Tolerance    float64 `yaml:"tolerance" json:"tolerance"`         // bounded: max per-position |diff|
	Threshold    float64 `yaml:"threshold" json:"threshold"`         // spectral: accept if similarity > threshold
	EmbeddingDim int     `yaml:"embedding_dim" json:"embedding_dim"` // spectral: lag-embedding dimension
	Normalize    string  `yaml:"normalize" json:"normalize"`         // spectral: none|zscore|minmax
	Compare      string  `yaml:"compare" json:"compare"`             // spectral: projection|spectrum
	Components   int     `yaml:"components" json:"components"`       // spectral projection: leading eigenvectors, 0 = all
}

// DefaultConfig returns a spectral configuration comparing z-scored
// trajectories projected on the sample's eigenvectors
func DefaultConfig() Config {
	return Config{
		Kind:         KindSpectral,
		Tolerance:    0,
		Threshold:    DefaultThreshold,
		EmbeddingDim: DefaultEmbeddingDim,
		Normalize:    feature.NormalizeZScore,
		Compare:      CompareProjection,
	}
}

// Validate checks parameters of the selected metric only
func (c Config) Validate() error {
	switch strings.ToLower(c.Kind) {
	case KindBounded:
		if c.Tolerance < 0 || math.IsNaN(c.Tolerance) {
			return fmt.Errorf("%w: %g", ErrNegativeTolerance, c.Tolerance)
		}
	case KindSpectral:
		if math.IsNaN(c.Threshold) || c.Threshold < -1 || c.Threshold > 1 {
			return fmt.Errorf("%w: %g", ErrInvalidThreshold, c.Threshold)
		}
		if c.EmbeddingDim < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidEmbedding, c.EmbeddingDim)
		}
		if !feature.ValidNormalization(c.Normalize) {
			return fmt.Errorf("%w: %q", ErrInvalidNormalization, c.Normalize)
		}
		switch strings.ToLower(c.Compare) {
		case "", CompareProjection, CompareSpectrum:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidCompare, c.Compare)
		}
		if c.Components < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidComponents, c.Components)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMetric, c.Kind)
	}
	return nil
}

// New builds the metric described by cfg
func New(cfg Config) (Metric, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Kind) {
	case KindBounded:
		return NewBoundedDifference(cfg.Tolerance)
	default:
		s := NewSpectral(cfg.Threshold, cfg.EmbeddingDim, cfg.Normalize)
		if strings.EqualFold(cfg.Compare, CompareSpectrum) {
			s.Compare = CompareSpectrum
		}
		s.Components = cfg.Components
		return s, nil
	}
}

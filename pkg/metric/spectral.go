package metric

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tunogya/motif/pkg/feature"
)

const (
	// DefaultThreshold is the minimum (exclusive) similarity for acceptance
	DefaultThreshold = 0.9

	// DefaultEmbeddingDim keeps four lag components in the descriptor
	DefaultEmbeddingDim = 4

	// worstSimilarity replaces NaN similarities
	worstSimilarity = -1.0
)

// Spectral comparison modes
const (
	// CompareProjection projects both trajectories onto the sample's
	// eigenvectors and takes the cosine of the component series.
	CompareProjection = "projection"

	// CompareSpectrum takes the cosine of the two eigenvalue spectra.
	// It cannot tell a series from its negation or time reversal.
	CompareSpectrum = "spectrum"
)

// Spectral compares sample and window through the eigen decomposition of
// their lag covariance. Both eigenvalue spectra are kept as descriptors.
type Spectral struct {
	Threshold float64

	// Compare selects how similarity is computed; empty means projection
	Compare string

	// Components limits the projection to the leading eigenvectors; 0 keeps all
	Components int

	extractor *feature.SpectrumExtractor
}

// NewSpectral creates a spectral-similarity metric using projection comparison
func NewSpectral(threshold float64, embeddingDim int, normalize string) *Spectral {
	return &Spectral{
		Threshold: threshold,
		Compare:   CompareProjection,
		extractor: feature.NewSpectrumExtractor(embeddingDim, normalize),
	}
}

// Name returns the metric kind
func (s *Spectral) Name() string {
	return KindSpectral
}

// EmbeddingDim returns the configured lag-embedding dimension
func (s *Spectral) EmbeddingDim() int {
	return s.extractor.EmbeddingDim
}

// Descriptor returns the eigenvalue descriptor of values
func (s *Spectral) Descriptor(values []float64) ([]float64, error) {
	return s.extractor.Extract(values)
}

// Evaluate decomposes both sequences and compares them
func (s *Spectral) Evaluate(sample, window []float64) Result {
	sb, err := s.extractor.Decompose(sample)
	if err != nil {
		return rejected()
	}
	return s.compare(sb, window)
}

// Prepare decomposes the sample once
func (s *Spectral) Prepare(sample []float64) Metric {
	sb, err := s.extractor.Decompose(sample)
	return &preparedSpectral{parent: s, sample: sb, sampleErr: err}
}

func (s *Spectral) compare(sample *feature.Basis, window []float64) Result {
	wb, err := s.extractor.Decompose(window)
	if err != nil {
		return rejected()
	}

	var sim float64
	if s.Compare == CompareSpectrum {
		sim = Similarity(sample.Values, wb.Values)
	} else {
		sim = ProjectedSimilarity(sample, wb.Trajectory, s.Components)
	}

	return Result{
		Accepted:         sim > s.Threshold,
		Score:            sim,
		Badness:          -sim,
		SampleDescriptor: sample.Values,
		WindowDescriptor: wb.Values,
	}
}

// Similarity is the cosine of the angle between a and b.
// Different lengths or a zero-norm vector yield 0; NaN yields -1.
func Similarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}

	if na == 0 || nb == 0 {
		return 0
	}

	return clampSimilarity(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// ProjectedSimilarity projects the sample trajectory and window onto the
// first n eigenvectors of sample and returns the cosine between the two
// projections, normalized by the full trajectory energies. Window energy
// outside the sample's components therefore lowers the score.
//
// With all components kept this equals the cosine between the trajectory
// matrices, which is symmetric and sign-aware: a series compared with its
// negation scores -1.
func ProjectedSimilarity(sample *feature.Basis, window *mat.Dense, n int) float64 {
	sr, sc := sample.Trajectory.Dims()
	wr, wc := window.Dims()
	if sr != wr || sc != wc {
		return 0
	}

	ns := mat.Norm(sample.Trajectory, 2)
	nw := mat.Norm(window, 2)
	if ns == 0 || nw == 0 {
		return 0
	}

	ps := sample.Project(sample.Trajectory, n)
	pw := sample.Project(window, n)

	var dot float64
	rows, cols := ps.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dot += ps.At(r, c) * pw.At(r, c)
		}
	}

	return clampSimilarity(dot / (ns * nw))
}

// clampSimilarity maps NaN to -1 and removes rounding outside [-1, 1]
func clampSimilarity(sim float64) float64 {
	switch {
	case math.IsNaN(sim):
		return worstSimilarity
	case sim > 1:
		return 1
	case sim < -1:
		return -1
	}
	return sim
}

func rejected() Result {
	return Result{
		Accepted: false,
		Score:    worstSimilarity,
		Badness:  -worstSimilarity,
	}
}

// preparedSpectral is a Spectral bound to one sample decomposition
type preparedSpectral struct {
	parent    *Spectral
	sample    *feature.Basis
	sampleErr error
}

func (p *preparedSpectral) Name() string {
	return KindSpectral
}

func (p *preparedSpectral) Evaluate(_, window []float64) Result {
	if p.sampleErr != nil {
		return rejected()
	}
	return p.parent.compare(p.sample, window)
}

package feature

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptySequence indicates a descriptor was requested for no values
	ErrEmptySequence = errors.New("feature: input sequence must be non-empty")

	// ErrEigenFailed indicates the symmetric eigen decomposition did not converge
	ErrEigenFailed = errors.New("feature: eigen decomposition failed")
)

// SpectrumExtractor reduces a sequence to the eigen decomposition of its lag
// covariance.
//
// The sequence x of length M is embedded into a trajectory matrix X with
// K = M-L+1 rows and L columns, X[r][c] = x[r+c]. The descriptor is the
// eigenvalue spectrum of the L×L symmetric matrix XᵀX, sorted descending.
//
// With L = 1 the matrix is 1×1 and the single eigenvalue is the sum of
// squares of the sequence. The spectrum alone is blind to direction: x, its
// negation and its time reversal share it. Comparisons that must respect
// shape project trajectories onto the eigenvectors instead.
type SpectrumExtractor struct {
	EmbeddingDim int    // L; clamped to [1, len(sequence)]
	Normalize    string // applied to the sequence before embedding
}

// Basis is the lag-covariance decomposition of one sequence
type Basis struct {
	// Values are the eigenvalues, sorted descending
	Values []float64

	// Vectors holds one unit eigenvector per column, in the order of Values
	Vectors *mat.Dense

	// Trajectory is the K×L embedding of the normalized sequence
	Trajectory *mat.Dense
}

// NewSpectrumExtractor creates an extractor with the given embedding dimension
func NewSpectrumExtractor(embeddingDim int, normalize string) *SpectrumExtractor {
	return &SpectrumExtractor{
		EmbeddingDim: embeddingDim,
		Normalize:    normalize,
	}
}

// Dim returns the descriptor length produced for a sequence of length m
func (e *SpectrumExtractor) Dim(m int) int {
	l := e.EmbeddingDim
	if l < 1 {
		l = 1
	}
	if l > m {
		l = m
	}
	return l
}

// Trajectory normalizes values and embeds them into a K×L matrix
func (e *SpectrumExtractor) Trajectory(values []float64) (*mat.Dense, error) {
	if len(values) == 0 {
		return nil, ErrEmptySequence
	}

	x := Normalize(values, e.Normalize)
	l := e.Dim(len(x))
	k := len(x) - l + 1

	traj := mat.NewDense(k, l, nil)
	for r := 0; r < k; r++ {
		for c := 0; c < l; c++ {
			traj.Set(r, c, x[r+c])
		}
	}
	return traj, nil
}

// Decompose returns the trajectory of values with its eigenvalues and eigenvectors
func (e *SpectrumExtractor) Decompose(values []float64) (*Basis, error) {
	traj, err := e.Trajectory(values)
	if err != nil {
		return nil, err
	}
	_, l := traj.Dims()

	// lagCov = Xᵀ·X
	var lagCov mat.SymDense
	lagCov.SymOuterK(1, traj.T())

	var es mat.EigenSym
	if ok := es.Factorize(&lagCov, true); !ok {
		return nil, fmt.Errorf("%w (dim=%d)", ErrEigenFailed, l)
	}

	raw := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	order := make([]int, l)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return raw[order[a]] > raw[order[b]] })

	basis := &Basis{
		Values:     make([]float64, l),
		Vectors:    mat.NewDense(l, l, nil),
		Trajectory: traj,
	}
	for j, src := range order {
		basis.Values[j] = raw[src]
		for r := 0; r < l; r++ {
			basis.Vectors.Set(r, j, vecs.At(r, src))
		}
	}
	return basis, nil
}

// Extract returns the eigenvalue descriptor of values
func (e *SpectrumExtractor) Extract(values []float64) ([]float64, error) {
	b, err := e.Decompose(values)
	if err != nil {
		return nil, err
	}
	return b.Values, nil
}

// Components returns the number of leading eigenvectors used for n:
// n outside [1, L] selects all of them.
func (b *Basis) Components(n int) int {
	_, l := b.Vectors.Dims()
	if n < 1 || n > l {
		return l
	}
	return n
}

// Project maps a trajectory onto the first n eigenvectors of b.
// Column j of the result is the j-th principal component series.
func (b *Basis) Project(traj mat.Matrix, n int) *mat.Dense {
	n = b.Components(n)
	l, _ := b.Vectors.Dims()

	var out mat.Dense
	out.Mul(traj, b.Vectors.Slice(0, l, 0, n))
	return &out
}

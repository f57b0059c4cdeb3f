package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestZScore(t *testing.T) {
	got := ZScore([]float64{1, 2, 3})
	require.Len(t, got, 3)

	std := math.Sqrt(2.0 / 3.0)
	assert.InDelta(t, -1/std, got[0], 1e-12)
	assert.InDelta(t, 0, got[1], 1e-12)
	assert.InDelta(t, 1/std, got[2], 1e-12)

	// constant series is only centered
	assert.Equal(t, []float64{0, 0}, ZScore([]float64{5, 5}))
	assert.Nil(t, ZScore(nil))
}

func TestMinMaxNormalize(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, MinMaxNormalize([]float64{2, 4, 6}))
	assert.Equal(t, []float64{0, 0}, MinMaxNormalize([]float64{3, 3}))
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []float64{1, 2, 3}
	out := Normalize(in, NormalizeNone)
	out[0] = 42
	assert.Equal(t, 1.0, in[0])

	assert.True(t, ValidNormalization(""))
	assert.True(t, ValidNormalization(NormalizeZScore))
	assert.False(t, ValidNormalization("log"))
}

func TestSpectrumScalarIsSumOfSquares(t *testing.T) {
	e := NewSpectrumExtractor(1, NormalizeNone)

	got, err := e.Extract([]float64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 14.0, got[0], 1e-9)
}

func TestSpectrumTwoLag(t *testing.T) {
	// X = [[1,2],[2,3]], XᵀX = [[5,8],[8,13]]
	// eigenvalues: 9 ± sqrt(80)
	e := NewSpectrumExtractor(2, NormalizeNone)

	got, err := e.Extract([]float64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 9+math.Sqrt(80), got[0], 1e-9)
	assert.InDelta(t, 9-math.Sqrt(80), got[1], 1e-9)
}

func TestSpectrumDimClamped(t *testing.T) {
	e := NewSpectrumExtractor(10, NormalizeNone)
	assert.Equal(t, 3, e.Dim(3))

	got, err := e.Extract([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	e.EmbeddingDim = 0
	assert.Equal(t, 1, e.Dim(3))
}

func TestSpectrumSortedDescendingAndNonNegative(t *testing.T) {
	e := NewSpectrumExtractor(4, NormalizeZScore)

	got, err := e.Extract([]float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5})
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1], got[i])
	}
	assert.GreaterOrEqual(t, got[3], -1e-9)
}

func TestSpectrumEmpty(t *testing.T) {
	_, err := NewSpectrumExtractor(2, "").Extract(nil)
	assert.ErrorIs(t, err, ErrEmptySequence)
}

func TestDecomposeVectorsFollowValues(t *testing.T) {
	e := NewSpectrumExtractor(3, NormalizeZScore)

	b, err := e.Decompose([]float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5})
	require.NoError(t, err)
	require.Len(t, b.Values, 3)

	var lagCov mat.Dense
	lagCov.Mul(b.Trajectory.T(), b.Trajectory)

	for j, lambda := range b.Values {
		v := b.Vectors.ColView(j)
		var av mat.VecDense
		av.MulVec(&lagCov, v)
		for i := 0; i < v.Len(); i++ {
			assert.InDelta(t, lambda*v.AtVec(i), av.AtVec(i), 1e-9)
		}
		assert.InDelta(t, 1.0, mat.Norm(v, 2), 1e-9)
	}
}

func TestBasisProject(t *testing.T) {
	e := NewSpectrumExtractor(2, NormalizeNone)
	b, err := e.Decompose([]float64{1, 2, 3})
	require.NoError(t, err)

	full := b.Project(b.Trajectory, 0)
	rows, cols := full.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	// an orthonormal basis keeps the trajectory energy
	assert.InDelta(t, mat.Norm(b.Trajectory, 2), mat.Norm(full, 2), 1e-9)

	lead := b.Project(b.Trajectory, 1)
	_, cols = lead.Dims()
	assert.Equal(t, 1, cols)
	assert.Equal(t, 1, b.Components(1))
	assert.Equal(t, 2, b.Components(5))
}

package rerank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/motif/pkg/model"
)

func match(start int, badness float64) model.Match {
	return model.Match{StartIndex: start, Score: badness, Badness: badness}
}

func TestRankAscendingBadness(t *testing.T) {
	in := []model.Match{match(0, 3), match(1, 1), match(2, 2), match(3, 0.5)}

	ranked := NewRanker(DefaultTopK).Rank(in)
	require.Len(t, ranked, 4)
	for i := 1; i < len(ranked); i++ {
		assert.LessOrEqual(t, ranked[i-1].Badness, ranked[i].Badness)
	}
	assert.Equal(t, 3, ranked[0].StartIndex)

	// input untouched
	assert.Equal(t, 0, in[0].StartIndex)
}

func TestRankSpectralDescendingSimilarity(t *testing.T) {
	sims := []float64{0.91, 0.99, 0.95}
	in := make([]model.Match, len(sims))
	for i, s := range sims {
		in[i] = model.Match{StartIndex: i, Score: s, Badness: -s}
	}

	ranked := NewRanker(DefaultTopK).Rank(in)
	assert.Equal(t, []int{1, 2, 0}, []int{ranked[0].StartIndex, ranked[1].StartIndex, ranked[2].StartIndex})
}

func TestSelectStableTieBreak(t *testing.T) {
	// Equal scores at 1 and 4: the earlier window wins
	in := []model.Match{match(1, 0), match(4, 0)}

	out := NewRanker(1).Select(in)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].StartIndex)
}

func TestSelectTruncation(t *testing.T) {
	in := []model.Match{match(0, 5), match(1, 4), match(2, 3), match(3, 2), match(4, 1)}

	for _, k := range []int{0, 1, 3, 5, 10} {
		out := NewRanker(k).Select(in)
		want := k
		if want > len(in) {
			want = len(in)
		}
		assert.Len(t, out, want, "k=%d", k)
	}

	assert.Empty(t, NewRanker(-3).Select(in))
	assert.Equal(t, 0, NewRanker(-3).TopK())
}

func TestSelectEmpty(t *testing.T) {
	out := NewRanker(DefaultTopK).Select(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

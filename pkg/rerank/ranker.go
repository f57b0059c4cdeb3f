package rerank

import (
	"sort"

	"github.com/tunogya/motif/pkg/model"
)

// DefaultTopK is the number of matches kept when no cap is configured
const DefaultTopK = 10

// Ranker orders matches by badness (lower is better)
type Ranker struct {
	topK int
}

// NewRanker creates a ranker keeping at most topK matches.
// Negative topK keeps nothing.
func NewRanker(topK int) *Ranker {
	if topK < 0 {
		topK = 0
	}
	return &Ranker{topK: topK}
}

// TopK returns the configured cap
func (r *Ranker) TopK() int {
	return r.topK
}

// Rank returns a copy of matches sorted by badness ascending.
// Ties keep scan order so results are deterministic.
func (r *Ranker) Rank(matches []model.Match) []model.Match {
	ranked := make([]model.Match, len(matches))
	copy(ranked, matches)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Badness < ranked[j].Badness
	})

	return ranked
}

// Select ranks matches and returns the first min(topK, len(matches))
func (r *Ranker) Select(matches []model.Match) []model.Match {
	return TopN(r.Rank(matches), r.topK)
}

// TopN truncates an already ranked slice to n entries
func TopN(ranked []model.Match, n int) []model.Match {
	if n < 0 {
		n = 0
	}
	if len(ranked) <= n {
		return ranked
	}
	return ranked[:n]
}

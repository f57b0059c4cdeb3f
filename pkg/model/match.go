package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Match is a window of the data series accepted by a metric
type Match struct {
	MatchID    string    `json:"match_id"`
	StartIndex int       `json:"start_index"`
	Values     []float64 `json:"values"`
	Dates      []Date    `json:"dates"`
	Score      float64   `json:"score"`

	// Ranking key: lower is better regardless of metric
	Badness float64 `json:"badness"`

	// Spectral descriptors; nil for the bounded-difference metric
	SampleEigenvalues []float64 `json:"sample_eigenvalues,omitempty"`
	WindowEigenvalues []float64 `json:"window_eigenvalues,omitempty"`
}

// GenerateMatchID creates a deterministic match ID
// Format: hash(sample|data|start|length)
func GenerateMatchID(sample, data string, start, length int) string {
	key := fmt.Sprintf("%s|%s|%d|%d", sample, data, start, length)
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:16])
}

// Len returns the window length
func (m *Match) Len() int {
	return len(m.Values)
}

// EndIndex returns the exclusive end index into the data series
func (m *Match) EndIndex() int {
	return m.StartIndex + len(m.Values)
}

// FirstDate returns the date of the first window element
func (m *Match) FirstDate() Date {
	if len(m.Dates) == 0 {
		return Date{}
	}
	return m.Dates[0]
}

// LastDate returns the date of the last window element
func (m *Match) LastDate() Date {
	if len(m.Dates) == 0 {
		return Date{}
	}
	return m.Dates[len(m.Dates)-1]
}

// HasDescriptors reports whether the match carries spectral descriptors
func (m *Match) HasDescriptors() bool {
	return len(m.SampleEigenvalues) > 0 || len(m.WindowEigenvalues) > 0
}

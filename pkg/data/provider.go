package data

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/tunogya/motif/pkg/model"
)

// SeriesLoader defines the interface for loading a time series by path
type SeriesLoader interface {
	// LoadSeries reads the series stored at path.
	// Malformed rows are skipped; only unreadable sources return an error.
	LoadSeries(ctx context.Context, path string) (*model.TimeSeries, error)
}

// MemoryLoader implements SeriesLoader with in-memory storage.
// Lookups use the base name of the path.
type MemoryLoader struct {
	mu     sync.RWMutex
	series map[string]*model.TimeSeries
}

// NewMemoryLoader creates a new in-memory loader
func NewMemoryLoader() *MemoryLoader {
	return &MemoryLoader{
		series: make(map[string]*model.TimeSeries),
	}
}

// Add stores a series under its name
func (l *MemoryLoader) Add(ts *model.TimeSeries) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.series[ts.Name] = ts.Copy()
}

// LoadSeries returns a copy of the stored series
func (l *MemoryLoader) LoadSeries(ctx context.Context, path string) (*model.TimeSeries, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ts, ok := l.series[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("series %q not found", path)
	}
	return ts.Copy(), nil
}

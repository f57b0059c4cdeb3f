package milvus

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tunogya/motif/pkg/report"
)

type descriptorStore interface {
	CreateCollection(ctx context.Context, cfg CollectionConfig) error
	InsertBatch(ctx context.Context, collectionName string, rows []*Descriptor) error
	Flush(ctx context.Context, collectionName string) error
}

// DescriptorSink stores window descriptors of spectral matches,
// one collection per descriptor dimension.
type DescriptorSink struct {
	store  descriptorStore
	prefix string

	mu    sync.Mutex
	ready map[string]bool
}

// NewDescriptorSink creates a sink writing through client
func NewDescriptorSink(client *Client, prefix string) *DescriptorSink {
	return newDescriptorSink(client, prefix)
}

func newDescriptorSink(store descriptorStore, prefix string) *DescriptorSink {
	if prefix == "" {
		prefix = DefaultCollectionPrefix
	}
	return &DescriptorSink{
		store:  store,
		prefix: prefix,
		ready:  make(map[string]bool),
	}
}

// Write implements report.Sink. Reports without descriptors are ignored.
func (s *DescriptorSink) Write(ctx context.Context, rep *report.PairReport) error {
	groups := Descriptors(rep)
	if len(groups) == 0 {
		return nil
	}

	dims := make([]int, 0, len(groups))
	for dim := range groups {
		dims = append(dims, dim)
	}
	sort.Ints(dims)

	for _, dim := range dims {
		name := CollectionName(s.prefix, dim)
		if err := s.ensure(ctx, name, dim); err != nil {
			return err
		}
		if err := s.store.InsertBatch(ctx, name, groups[dim]); err != nil {
			return fmt.Errorf("milvus %s: %w", name, err)
		}
		if err := s.store.Flush(ctx, name); err != nil {
			return fmt.Errorf("milvus %s: %w", name, err)
		}
		log.Debug().Str("collection", name).Int("rows", len(groups[dim])).Msg("Stored descriptors")
	}

	return nil
}

func (s *DescriptorSink) ensure(ctx context.Context, name string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready[name] {
		return nil
	}
	if err := s.store.CreateCollection(ctx, CollectionConfig{Name: name, Dimension: dim}); err != nil {
		return err
	}
	s.ready[name] = true
	return nil
}

// Descriptors groups the window descriptors of a report by dimension.
// Dimensions below MinDimension cannot be indexed and are left out.
func Descriptors(rep *report.PairReport) map[int][]*Descriptor {
	groups := make(map[int][]*Descriptor)

	for i := range rep.Matches {
		m := &rep.Matches[i]
		dim := len(m.WindowEigenvalues)
		if dim < MinDimension {
			continue
		}

		embedding := make([]float32, dim)
		for j, v := range m.WindowEigenvalues {
			embedding[j] = float32(v)
		}

		groups[dim] = append(groups[dim], &Descriptor{
			MatchID:    m.MatchID,
			Embedding:  embedding,
			RunID:      rep.RunID,
			Sample:     rep.Sample,
			Data:       rep.Data,
			StartIndex: int64(m.StartIndex),
			Score:      float32(m.Score),
		})
	}

	return groups
}

// Float32s converts a descriptor for use as a search vector
func Float32s(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}

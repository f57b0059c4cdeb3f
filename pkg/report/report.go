package report

import (
	"context"
	"errors"
	"time"

	"github.com/tunogya/motif/pkg/model"
	"github.com/tunogya/motif/pkg/outcome"
)

// PairReport is the ranked outcome of one (sample, data) pair
type PairReport struct {
	RunID         string        `json:"run_id"`
	Sample        string        `json:"sample"`
	Data          string        `json:"data"`
	Metric        string        `json:"metric"`
	Windows       int           `json:"windows"`
	TotalAccepted int           `json:"total_accepted"`
	Matches       []model.Match `json:"matches"`

	// Forward statistics of the reported matches, per horizon
	Outcomes []outcome.AggregatedOutcome `json:"outcomes,omitempty"`

	Elapsed   time.Duration `json:"elapsed"`
	CreatedAt time.Time     `json:"created_at"`

	// Err is set when the pair could not be processed
	Err string `json:"error,omitempty"`
}

// Failed reports whether the pair could not be processed
func (r *PairReport) Failed() bool {
	return r.Err != ""
}

// Sink receives finished pair reports
type Sink interface {
	Write(ctx context.Context, r *PairReport) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ctx context.Context, r *PairReport) error

// Write calls f
func (f SinkFunc) Write(ctx context.Context, r *PairReport) error {
	return f(ctx, r)
}

// MultiSink writes every report to all sinks and joins their errors
type MultiSink []Sink

// Write fans the report out; one failing sink does not stop the others
func (m MultiSink) Write(ctx context.Context, r *PairReport) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

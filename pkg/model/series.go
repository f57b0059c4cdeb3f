package model

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is returned when dates and values are not aligned 1:1
var ErrLengthMismatch = errors.New("dates and values length mismatch")

// TimeSeries is an ordered sequence of values aligned with their dates.
// Dates are informational; positional index is what the scanner uses.
type TimeSeries struct {
	Name   string    `json:"name"`
	Dates  []Date    `json:"dates"`
	Values []float64 `json:"values"`
}

// NewTimeSeries creates an empty named series with the given capacity
func NewTimeSeries(name string, capacity int) *TimeSeries {
	return &TimeSeries{
		Name:   name,
		Dates:  make([]Date, 0, capacity),
		Values: make([]float64, 0, capacity),
	}
}

// Append adds one observation to the end of the series
func (ts *TimeSeries) Append(d Date, v float64) {
	ts.Dates = append(ts.Dates, d)
	ts.Values = append(ts.Values, v)
}

// Len returns the number of observations
func (ts *TimeSeries) Len() int {
	return len(ts.Values)
}

// Validate checks the len(Dates) == len(Values) invariant
func (ts *TimeSeries) Validate() error {
	if len(ts.Dates) != len(ts.Values) {
		return fmt.Errorf("series %q: %w (%d dates, %d values)",
			ts.Name, ErrLengthMismatch, len(ts.Dates), len(ts.Values))
	}
	return nil
}

// Slice returns a copy of the observations in [i, j)
func (ts *TimeSeries) Slice(i, j int) *TimeSeries {
	out := &TimeSeries{
		Name:   ts.Name,
		Dates:  make([]Date, j-i),
		Values: make([]float64, j-i),
	}
	copy(out.Dates, ts.Dates[i:j])
	copy(out.Values, ts.Values[i:j])
	return out
}

// Copy creates a deep copy of the series
func (ts *TimeSeries) Copy() *TimeSeries {
	return ts.Slice(0, ts.Len())
}

// First returns the first date, or the zero Date for an empty series
func (ts *TimeSeries) First() Date {
	if len(ts.Dates) == 0 {
		return Date{}
	}
	return ts.Dates[0]
}

// Last returns the last date, or the zero Date for an empty series
func (ts *TimeSeries) Last() Date {
	if len(ts.Dates) == 0 {
		return Date{}
	}
	return ts.Dates[len(ts.Dates)-1]
}

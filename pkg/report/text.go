package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// TextSink renders reports in human-readable form
type TextSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextSink creates a text sink writing to w
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

// Write renders one pair report. Reports are written whole so concurrent
// pairs do not interleave.
func (s *TextSink) Write(ctx context.Context, r *PairReport) error {
	var b strings.Builder
	Render(&b, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, b.String())
	return err
}

// Render formats a pair report
func Render(w io.Writer, r *PairReport) {
	fmt.Fprintf(w, "\nAnalyzing matches between\nSample: %s\nData: %s\n", r.Sample, r.Data)

	if r.Failed() {
		fmt.Fprintf(w, "Error: %s\n", r.Err)
		return
	}
	if len(r.Matches) == 0 {
		fmt.Fprintln(w, "No matches found")
		return
	}

	fmt.Fprintf(w, "Top %d matches (%d accepted, %s metric)\n", len(r.Matches), r.TotalAccepted, r.Metric)
	for i := range r.Matches {
		m := &r.Matches[i]

		fmt.Fprintf(w, "Match %d (start %d)\n", i+1, m.StartIndex)
		fmt.Fprint(w, "Dates\n")
		for _, d := range m.Dates {
			fmt.Fprintf(w, "%s ", d)
		}
		fmt.Fprint(w, "\nValues\n")
		for _, v := range m.Values {
			fmt.Fprintf(w, "%.2f ", v)
		}
		fmt.Fprintf(w, "\n%s: %.6f\n\n", scoreLabel(r.Metric), m.Score)
	}

	if len(r.Outcomes) > 0 {
		fmt.Fprintln(w, "Forward outcomes")
		for _, o := range r.Outcomes {
			fmt.Fprintln(w, o.String())
		}
	}
}

func scoreLabel(metricName string) string {
	if metricName == "bounded" {
		return "Total difference"
	}
	return "Similarity"
}

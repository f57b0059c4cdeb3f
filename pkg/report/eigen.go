package report

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
)

// EigenSink persists the descriptor pair of every reported match, one file
// per (sample, data, rank)
type EigenSink struct {
	Dir string
}

// NewEigenSink creates a sink writing under dir
func NewEigenSink(dir string) *EigenSink {
	return &EigenSink{Dir: dir}
}

// FileName returns the artifact name for a match rank (1-based)
func FileName(sample, data string, rank int) string {
	return fmt.Sprintf("Eigenvalues_%s_%s_Match%d.txt", sample, data, rank)
}

// Write creates the artifacts; matches without descriptors are skipped
func (s *EigenSink) Write(ctx context.Context, r *PairReport) error {
	if r.Failed() || len(r.Matches) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create eigenvalue dir: %w", err)
	}

	for i := range r.Matches {
		m := &r.Matches[i]
		if !m.HasDescriptors() {
			continue
		}

		path := filepath.Join(s.Dir, FileName(r.Sample, r.Data, i+1))
		if err := writeEigenFile(path, m.SampleEigenvalues, m.WindowEigenvalues); err != nil {
			return err
		}
		log.Debug().Str("path", path).Msg("eigenvalues saved")
	}

	return nil
}

func writeEigenFile(path string, sample, window []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.WriteString("Sample Eigenvalues:\n")
	for _, v := range sample {
		w.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		w.WriteByte('\n')
	}
	w.WriteString("\nSub-Series Eigenvalues:\n")
	for _, v := range window {
		w.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

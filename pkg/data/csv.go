package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tunogya/motif/pkg/model"
)

// CSVLoader reads "date,value" files into a TimeSeries.
//
// The first line is a header and is always skipped. Values may carry
// thousands separators ("1,234.50", quoted or not); every field after the
// date is joined and commas are removed before parsing.
type CSVLoader struct {
	Comma  rune
	logger zerolog.Logger
}

// NewCSVLoader creates a CSV loader logging through the global logger
func NewCSVLoader() *CSVLoader {
	return &CSVLoader{
		Comma:  ',',
		logger: log.Logger,
	}
}

// WithLogger returns a copy of the loader using logger for row warnings
func (l *CSVLoader) WithLogger(logger zerolog.Logger) *CSVLoader {
	cp := *l
	cp.logger = logger
	return &cp
}

// ReadStats counts rows seen while reading
type ReadStats struct {
	Rows    int
	Skipped int
}

// LoadSeries opens path and reads it; the series is named after the file
func (l *CSVLoader) LoadSeries(ctx context.Context, path string) (*model.TimeSeries, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	ts, _, err := l.Read(ctx, filepath.Base(path), file)
	return ts, err
}

// Read parses r. Malformed rows are logged and skipped.
func (l *CSVLoader) Read(ctx context.Context, name string, r io.Reader) (*model.TimeSeries, ReadStats, error) {
	var stats ReadStats

	reader := csv.NewReader(r)
	reader.Comma = l.Comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	ts := model.NewTimeSeries(name, 256)

	// Header
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return ts, stats, nil
		}
		var perr *csv.ParseError
		if !errors.As(err, &perr) {
			return nil, stats, fmt.Errorf("failed to read CSV header: %w", err)
		}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				stats.Rows++
				stats.Skipped++
				l.logger.Warn().Err(err).Str("file", name).Int("line", perr.Line).Msg("skipping malformed row")
				continue
			}
			return nil, stats, fmt.Errorf("failed to read CSV record: %w", err)
		}

		line, _ := reader.FieldPos(0)
		stats.Rows++
		if stats.Rows%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		date, value, err := parseRecord(record)
		if err != nil {
			stats.Skipped++
			l.logger.Warn().Err(err).Str("file", name).Int("line", line).
				Str("row", strings.Join(record, string(l.Comma))).Msg("skipping row")
			continue
		}
		ts.Append(date, value)
	}

	return ts, stats, nil
}

// parseRecord parses a CSV record into a date and a value
func parseRecord(record []string) (model.Date, float64, error) {
	if len(record) < 2 {
		return model.Date{}, 0, fmt.Errorf("expected date and value, got %d field(s)", len(record))
	}

	date, err := model.ParseDate(record[0])
	if err != nil {
		return model.Date{}, 0, err
	}

	value, err := ParseValue(strings.Join(record[1:], ""))
	if err != nil {
		return model.Date{}, 0, err
	}

	return date, value, nil
}

// ParseValue parses numeric text after removing thousands separators
func ParseValue(s string) (float64, error) {
	cleaned := strings.NewReplacer(",", "", "\"", "", " ", "").Replace(strings.TrimSpace(s))
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("error converting to number %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

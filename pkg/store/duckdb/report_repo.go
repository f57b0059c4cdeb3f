package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tunogya/motif/pkg/model"
	"github.com/tunogya/motif/pkg/report"
)

// ReportRepo handles pair report persistence
type ReportRepo struct {
	client *Client
}

// NewReportRepo creates a new report repository
func NewReportRepo(client *Client) *ReportRepo {
	return &ReportRepo{client: client}
}

// Write implements report.Sink
func (r *ReportRepo) Write(ctx context.Context, rep *report.PairReport) error {
	return r.InsertBatch(ctx, []*report.PairReport{rep})
}

// InsertBatch stores reports and their matches in one transaction.
// Re-inserting a pair of the same run replaces its rows: matches missing
// from the new report are deleted and the others are overwritten.
func (r *ReportRepo) InsertBatch(ctx context.Context, reports []*report.PairReport) error {
	tx, err := r.client.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pairStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pair_reports (
			run_id, sample_name, data_name, metric, windows, total_accepted,
			reported, elapsed_ms, error, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, sample_name, data_name) DO UPDATE SET
			metric = EXCLUDED.metric,
			windows = EXCLUDED.windows,
			total_accepted = EXCLUDED.total_accepted,
			reported = EXCLUDED.reported,
			elapsed_ms = EXCLUDED.elapsed_ms,
			error = EXCLUDED.error,
			created_at = EXCLUDED.created_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer pairStmt.Close()

	matchStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matches (
			run_id, match_id, sample_name, data_name, match_rank, start_index,
			start_date, end_date, score, badness, window_values, window_dates,
			sample_eigenvalues, window_eigenvalues
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, match_id) DO UPDATE SET
			match_rank = EXCLUDED.match_rank,
			start_index = EXCLUDED.start_index,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			score = EXCLUDED.score,
			badness = EXCLUDED.badness,
			window_values = EXCLUDED.window_values,
			window_dates = EXCLUDED.window_dates,
			sample_eigenvalues = EXCLUDED.sample_eigenvalues,
			window_eigenvalues = EXCLUDED.window_eigenvalues
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer matchStmt.Close()

	for _, rep := range reports {
		createdAt := rep.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		_, err := pairStmt.ExecContext(ctx,
			rep.RunID, rep.Sample, rep.Data, rep.Metric, rep.Windows, rep.TotalAccepted,
			len(rep.Matches), rep.Elapsed.Milliseconds(), nullString(rep.Err), createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert pair report: %w", err)
		}

		if err := deleteStaleMatches(ctx, tx, rep); err != nil {
			return err
		}

		for i := range rep.Matches {
			m := &rep.Matches[i]
			values, dates, sampleEig, windowEig, err := encodeMatch(m)
			if err != nil {
				return err
			}

			_, err = matchStmt.ExecContext(ctx,
				rep.RunID, m.MatchID, rep.Sample, rep.Data, i+1, m.StartIndex,
				m.FirstDate().String(), m.LastDate().String(), m.Score, m.Badness,
				values, dates, sampleEig, windowEig,
			)
			if err != nil {
				return fmt.Errorf("failed to insert match: %w", err)
			}
		}
	}

	return tx.Commit()
}

// deleteStaleMatches removes stored matches of rep's pair that rep no longer holds
func deleteStaleMatches(ctx context.Context, tx *sql.Tx, rep *report.PairReport) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT match_id FROM matches
		WHERE run_id = ? AND sample_name = ? AND data_name = ?
	`, rep.RunID, rep.Sample, rep.Data)
	if err != nil {
		return fmt.Errorf("failed to query stored matches: %w", err)
	}

	keep := make(map[string]struct{}, len(rep.Matches))
	for i := range rep.Matches {
		keep[rep.Matches[i].MatchID] = struct{}{}
	}

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan match id: %w", err)
		}
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE run_id = ? AND match_id = ?`, rep.RunID, id); err != nil {
			return fmt.Errorf("failed to delete stale match: %w", err)
		}
	}
	return nil
}

// PairRow is a stored pair report summary
type PairRow struct {
	RunID         string
	Sample        string
	Data          string
	Metric        string
	Windows       int
	TotalAccepted int
	Reported      int
	Err           string
}

// GetPair retrieves one pair report summary
func (r *ReportRepo) GetPair(ctx context.Context, runID, sample, data string) (*PairRow, error) {
	row := r.client.QueryRowContext(ctx, `
		SELECT run_id, sample_name, data_name, metric, windows, total_accepted, reported, error
		FROM pair_reports
		WHERE run_id = ? AND sample_name = ? AND data_name = ?
	`, runID, sample, data)

	var p PairRow
	var errText sql.NullString
	err := row.Scan(&p.RunID, &p.Sample, &p.Data, &p.Metric, &p.Windows, &p.TotalAccepted, &p.Reported, &errText)
	if err != nil {
		return nil, err
	}
	p.Err = errText.String

	return &p, nil
}

// ListPairs retrieves the pair summaries of a run ordered by (sample, data)
func (r *ReportRepo) ListPairs(ctx context.Context, runID string) ([]PairRow, error) {
	rows, err := r.client.QueryContext(ctx, `
		SELECT run_id, sample_name, data_name, metric, windows, total_accepted, reported, error
		FROM pair_reports
		WHERE run_id = ?
		ORDER BY sample_name, data_name
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairs: %w", err)
	}
	defer rows.Close()

	var pairs []PairRow
	for rows.Next() {
		var p PairRow
		var errText sql.NullString
		if err := rows.Scan(&p.RunID, &p.Sample, &p.Data, &p.Metric, &p.Windows, &p.TotalAccepted, &p.Reported, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan pair: %w", err)
		}
		p.Err = errText.String
		pairs = append(pairs, p)
	}

	return pairs, rows.Err()
}

// LatestRunID returns the run with the most recent report
func (r *ReportRepo) LatestRunID(ctx context.Context) (string, error) {
	var runID string
	row := r.client.QueryRowContext(ctx, `
		SELECT run_id FROM pair_reports ORDER BY created_at DESC LIMIT 1
	`)
	err := row.Scan(&runID)
	return runID, err
}

// ListMatches retrieves the stored matches of a pair in rank order
func (r *ReportRepo) ListMatches(ctx context.Context, runID, sample, data string) ([]model.Match, error) {
	rows, err := r.client.QueryContext(ctx, `
		SELECT match_id, start_index, score, badness, window_values, window_dates,
			   sample_eigenvalues, window_eigenvalues
		FROM matches
		WHERE run_id = ? AND sample_name = ? AND data_name = ?
		ORDER BY match_rank ASC
	`, runID, sample, data)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		var values, dates string
		var sampleEig, windowEig sql.NullString

		err := rows.Scan(&m.MatchID, &m.StartIndex, &m.Score, &m.Badness, &values, &dates, &sampleEig, &windowEig)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}

		if err := decodeMatch(&m, values, dates, sampleEig, windowEig); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// CountMatches returns the number of stored matches for a run
func (r *ReportRepo) CountMatches(ctx context.Context, runID string) (int64, error) {
	var count int64
	row := r.client.QueryRowContext(ctx, "SELECT COUNT(*) FROM matches WHERE run_id = ?", runID)
	err := row.Scan(&count)
	return count, err
}

func encodeMatch(m *model.Match) (values, dates string, sampleEig, windowEig sql.NullString, err error) {
	v, err := json.Marshal(m.Values)
	if err != nil {
		return "", "", sampleEig, windowEig, fmt.Errorf("failed to encode values: %w", err)
	}

	ds := make([]string, len(m.Dates))
	for i, d := range m.Dates {
		ds[i] = d.String()
	}
	d, err := json.Marshal(ds)
	if err != nil {
		return "", "", sampleEig, windowEig, fmt.Errorf("failed to encode dates: %w", err)
	}

	if m.HasDescriptors() {
		se, _ := json.Marshal(m.SampleEigenvalues)
		we, _ := json.Marshal(m.WindowEigenvalues)
		sampleEig = sql.NullString{String: string(se), Valid: true}
		windowEig = sql.NullString{String: string(we), Valid: true}
	}

	return string(v), string(d), sampleEig, windowEig, nil
}

func decodeMatch(m *model.Match, values, dates string, sampleEig, windowEig sql.NullString) error {
	if err := json.Unmarshal([]byte(values), &m.Values); err != nil {
		return fmt.Errorf("failed to decode values: %w", err)
	}

	var ds []string
	if err := json.Unmarshal([]byte(dates), &ds); err != nil {
		return fmt.Errorf("failed to decode dates: %w", err)
	}
	m.Dates = make([]model.Date, 0, len(ds))
	for _, s := range ds {
		d, err := model.ParseDate(s)
		if err != nil {
			return err
		}
		m.Dates = append(m.Dates, d)
	}

	if sampleEig.Valid {
		if err := json.Unmarshal([]byte(sampleEig.String), &m.SampleEigenvalues); err != nil {
			return fmt.Errorf("failed to decode eigenvalues: %w", err)
		}
	}
	if windowEig.Valid {
		if err := json.Unmarshal([]byte(windowEig.String), &m.WindowEigenvalues); err != nil {
			return fmt.Errorf("failed to decode eigenvalues: %w", err)
		}
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

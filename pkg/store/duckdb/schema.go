package duckdb

import "fmt"

// CreatePairReportsTable stores one row per scanned (sample, data) pair
const CreatePairReportsTable = `
CREATE TABLE IF NOT EXISTS pair_reports (
    run_id VARCHAR NOT NULL,
    sample_name VARCHAR NOT NULL,
    data_name VARCHAR NOT NULL,
    metric VARCHAR NOT NULL,
    windows INTEGER NOT NULL,
    total_accepted INTEGER NOT NULL,
    reported INTEGER NOT NULL,
    elapsed_ms BIGINT,
    error VARCHAR,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (run_id, sample_name, data_name)
);
`

// CreateMatchesTable stores the reported (top-K) matches of each pair.
// Value and eigenvalue vectors are JSON arrays.
const CreateMatchesTable = `
CREATE TABLE IF NOT EXISTS matches (
    run_id VARCHAR NOT NULL,
    match_id VARCHAR NOT NULL,
    sample_name VARCHAR NOT NULL,
    data_name VARCHAR NOT NULL,
    match_rank INTEGER NOT NULL,
    start_index INTEGER NOT NULL,
    start_date VARCHAR,
    end_date VARCHAR,
    score DOUBLE,
    badness DOUBLE,
    window_values VARCHAR,
    window_dates VARCHAR,
    sample_eigenvalues VARCHAR,
    window_eigenvalues VARCHAR,
    PRIMARY KEY (run_id, match_id)
);

CREATE INDEX IF NOT EXISTS idx_matches_pair ON matches(run_id, sample_name, data_name);
`

// InitializeSchema creates all required tables
func InitializeSchema(c *Client) error {
	schemas := []string{
		CreatePairReportsTable,
		CreateMatchesTable,
	}

	for _, schema := range schemas {
		if err := c.Exec(schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// DropAllTables drops all tables (use with caution)
func DropAllTables(c *Client) error {
	tables := []string{"matches", "pair_reports"}
	for _, table := range tables {
		if err := c.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

// Package duckdb provides a DuckDB catalog of converted markers.
// Each conversion run is recorded with the fingerprint of its input file,
// and every marker block it emitted is stored in output order.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for the marker catalog.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS conversion_runs (
		run_id VARCHAR PRIMARY KEY,
		input_path VARCHAR,
		input_size BIGINT,
		input_mtime TIMESTAMP,
		output_path VARCHAR,
		started_at TIMESTAMP,
		finished_at TIMESTAMP,
		data_lines BIGINT,
		metadata_lines BIGINT,
		emitted BIGINT,
		skipped BIGINT,
		mismatched BIGINT
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS markers (
		run_id VARCHAR,
		seq BIGINT,
		marker_id VARCHAR,
		chrom VARCHAR,
		allele_count BIGINT,
		alleles VARCHAR,
		frequencies VARCHAR,
		PRIMARY KEY (run_id, seq)
	)`)
	return err
}

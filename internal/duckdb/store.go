// Package duckdb stores batch prediction results in DuckDB so that cohorts
// can be queried after a run.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding prediction results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
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

// Path returns the database file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist. Column order matches the
// appender in WritePredictions.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS predictions (
		sample VARCHAR,
		target_condition VARCHAR,
		mode VARCHAR,
		risk_score DOUBLE,
		risk_category VARCHAR,
		relevant_variants BIGINT,
		total_variants BIGINT,
		relevant_percentage DOUBLE,
		model_path VARCHAR,
		model_size BIGINT,
		model_mtime TIMESTAMP,
		predicted_at TIMESTAMP
	)`)
	return err
}

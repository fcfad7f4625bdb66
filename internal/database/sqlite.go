package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite wraps a local SQLite database used when no PostgreSQL server is configured
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the SQLite database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// DB returns the underlying handle
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Ping verifies the database is reachable
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS observations (
			entity_id  TEXT NOT NULL,
			statistic  TEXT NOT NULL,
			game_date  INTEGER NOT NULL,
			value      REAL NOT NULL,
			PRIMARY KEY (entity_id, statistic, game_date)
		)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			id                    TEXT PRIMARY KEY,
			candidate_id          TEXT NOT NULL,
			entity_id             TEXT NOT NULL,
			statistic             TEXT NOT NULL,
			line                  REAL NOT NULL,
			direction             TEXT NOT NULL,
			american_odds         INTEGER NOT NULL,
			decimal_odds          REAL NOT NULL,
			implied_probability   REAL NOT NULL,
			raw_probability       REAL NOT NULL,
			probability           REAL NOT NULL,
			ci_low                REAL NOT NULL,
			ci_high               REAL NOT NULL,
			expected_value        REAL NOT NULL,
			ev_ci_low             REAL NOT NULL,
			ev_ci_high            REAL NOT NULL,
			edge                  REAL NOT NULL,
			kelly_fraction        REAL NOT NULL,
			ranking_score         REAL NOT NULL,
			confidence_score      REAL NOT NULL,
			sample_size           INTEGER NOT NULL,
			training_sample_count INTEGER NOT NULL,
			degenerate            INTEGER NOT NULL DEFAULT 0,
			game_date             INTEGER,
			generated_at          INTEGER NOT NULL,
			settled_at            INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_generated_at ON predictions(generated_at)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			id            TEXT PRIMARY KEY,
			prediction_id TEXT NOT NULL UNIQUE REFERENCES predictions(id) ON DELETE CASCADE,
			entity_id     TEXT NOT NULL,
			statistic     TEXT NOT NULL,
			line          REAL NOT NULL,
			direction     TEXT NOT NULL,
			american_odds INTEGER NOT NULL,
			probability   REAL NOT NULL,
			actual_value  REAL NOT NULL,
			hit           INTEGER NOT NULL,
			stake         TEXT NOT NULL,
			profit_loss   TEXT NOT NULL,
			game_date     INTEGER NOT NULL,
			settled_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_game_date ON outcomes(game_date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Package database provides the PostgreSQL and SQLite connections behind the repositories.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourusername/propedge/internal/config"
)

// DB wraps the pgxpool.Pool to provide database operations
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new database connection pool from configuration
func NewDB(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Ping verifies database connectivity
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close gracefully closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// WithTransaction runs fn inside a transaction, rolling back on error
func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rollbackErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// HealthCheck performs a simple health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// GetPool returns the underlying connection pool for advanced operations
func (db *DB) GetPool() *pgxpool.Pool {
	return db.pool
}

// EnsureSchema creates the propedge tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS observations (
		entity_id  TEXT NOT NULL,
		statistic  TEXT NOT NULL,
		game_date  TIMESTAMPTZ NOT NULL,
		value      DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (entity_id, statistic, game_date)
	)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id                    UUID PRIMARY KEY,
		candidate_id          UUID NOT NULL,
		entity_id             TEXT NOT NULL,
		statistic             TEXT NOT NULL,
		line                  DOUBLE PRECISION NOT NULL,
		direction             TEXT NOT NULL,
		american_odds         INTEGER NOT NULL,
		decimal_odds          DOUBLE PRECISION NOT NULL,
		implied_probability   DOUBLE PRECISION NOT NULL,
		raw_probability       DOUBLE PRECISION NOT NULL,
		probability           DOUBLE PRECISION NOT NULL,
		ci_low                DOUBLE PRECISION NOT NULL,
		ci_high               DOUBLE PRECISION NOT NULL,
		expected_value        DOUBLE PRECISION NOT NULL,
		ev_ci_low             DOUBLE PRECISION NOT NULL,
		ev_ci_high            DOUBLE PRECISION NOT NULL,
		edge                  DOUBLE PRECISION NOT NULL,
		kelly_fraction        DOUBLE PRECISION NOT NULL,
		ranking_score         DOUBLE PRECISION NOT NULL,
		confidence_score      DOUBLE PRECISION NOT NULL,
		sample_size           INTEGER NOT NULL,
		training_sample_count INTEGER NOT NULL,
		degenerate            BOOLEAN NOT NULL DEFAULT FALSE,
		game_date             TIMESTAMPTZ,
		generated_at          TIMESTAMPTZ NOT NULL,
		settled_at            TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_unsettled ON predictions (generated_at) WHERE settled_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS outcomes (
		id            UUID PRIMARY KEY,
		prediction_id UUID NOT NULL UNIQUE REFERENCES predictions(id) ON DELETE CASCADE,
		entity_id     TEXT NOT NULL,
		statistic     TEXT NOT NULL,
		line          DOUBLE PRECISION NOT NULL,
		direction     TEXT NOT NULL,
		american_odds INTEGER NOT NULL,
		probability   DOUBLE PRECISION NOT NULL,
		actual_value  DOUBLE PRECISION NOT NULL,
		hit           BOOLEAN NOT NULL,
		stake         NUMERIC(12, 2) NOT NULL,
		profit_loss   NUMERIC(12, 2) NOT NULL,
		game_date     TIMESTAMPTZ NOT NULL,
		settled_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outcomes_game_date ON outcomes (game_date)`,
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/propedge/internal/database"
	"github.com/yourusername/propedge/internal/models"
)

// SQLiteHistoryRepository implements HistoryRepository on the local SQLite store
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a new history repository
func NewSQLiteHistoryRepository(s *database.SQLite) HistoryRepository {
	return &SQLiteHistoryRepository{db: s.DB()}
}

// GetHistory retrieves the most recent observations, oldest first. A limit of zero returns everything.
func (h *SQLiteHistoryRepository) GetHistory(ctx context.Context, entityID, statistic string, limit int) (models.History, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT game_date, value FROM (
			SELECT game_date, value
			FROM observations
			WHERE entity_id = ? AND statistic = ?
			ORDER BY game_date DESC
			LIMIT ?
		) ORDER BY game_date ASC`,
		entityID, statistic, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var history models.History
	for rows.Next() {
		var ns int64
		var o models.Observation
		if err := rows.Scan(&ns, &o.Value); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o.Date = time.Unix(0, ns).UTC()
		history = append(history, o)
	}

	return history, rows.Err()
}

// GetFirstOnOrAfter retrieves the earliest observation at or after t
func (h *SQLiteHistoryRepository) GetFirstOnOrAfter(ctx context.Context, entityID, statistic string, t time.Time) (models.Observation, error) {
	var ns int64
	var o models.Observation
	err := h.db.QueryRowContext(ctx, `
		SELECT game_date, value
		FROM observations
		WHERE entity_id = ? AND statistic = ? AND game_date >= ?
		ORDER BY game_date ASC
		LIMIT 1`,
		entityID, statistic, t.UnixNano(),
	).Scan(&ns, &o.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Observation{}, models.ErrNotFound
	}
	if err != nil {
		return models.Observation{}, fmt.Errorf("failed to get observation: %w", err)
	}

	o.Date = time.Unix(0, ns).UTC()
	return o, nil
}

// UpsertObservations inserts observations, replacing values on matching dates
func (h *SQLiteHistoryRepository) UpsertObservations(ctx context.Context, entityID, statistic string, obs []models.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (entity_id, statistic, game_date, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (entity_id, statistic, game_date) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, entityID, statistic, o.Date.UnixNano(), o.Value); err != nil {
			return fmt.Errorf("failed to upsert observation: %w", err)
		}
	}

	return tx.Commit()
}

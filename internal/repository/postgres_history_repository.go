package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/propedge/internal/database"
	"github.com/yourusername/propedge/internal/models"
)

// PostgresHistoryRepository implements HistoryRepository for PostgreSQL
type PostgresHistoryRepository struct {
	db *database.DB
}

// NewPostgresHistoryRepository creates a new history repository
func NewPostgresHistoryRepository(db *database.DB) HistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

// GetHistory retrieves the most recent observations, oldest first
func (h *PostgresHistoryRepository) GetHistory(ctx context.Context, entityID, statistic string, limit int) (models.History, error) {
	query := `
		SELECT game_date, value FROM (
			SELECT game_date, value
			FROM observations
			WHERE entity_id = $1 AND statistic = $2
			ORDER BY game_date DESC
			LIMIT NULLIF($3, 0)
		) recent
		ORDER BY game_date ASC
	`

	rows, err := h.db.GetPool().Query(ctx, query, entityID, statistic, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var history models.History
	for rows.Next() {
		var o models.Observation
		if err := rows.Scan(&o.Date, &o.Value); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		history = append(history, o)
	}

	return history, rows.Err()
}

// GetFirstOnOrAfter retrieves the earliest observation at or after t
func (h *PostgresHistoryRepository) GetFirstOnOrAfter(ctx context.Context, entityID, statistic string, t time.Time) (models.Observation, error) {
	query := `
		SELECT game_date, value
		FROM observations
		WHERE entity_id = $1 AND statistic = $2 AND game_date >= $3
		ORDER BY game_date ASC
		LIMIT 1
	`

	var o models.Observation
	err := h.db.GetPool().QueryRow(ctx, query, entityID, statistic, t).Scan(&o.Date, &o.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Observation{}, models.ErrNotFound
	}
	if err != nil {
		return models.Observation{}, fmt.Errorf("failed to get observation: %w", err)
	}

	return o, nil
}

// UpsertObservations inserts observations, replacing values on matching dates
func (h *PostgresHistoryRepository) UpsertObservations(ctx context.Context, entityID, statistic string, obs []models.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	query := `
		INSERT INTO observations (entity_id, statistic, game_date, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_id, statistic, game_date) DO UPDATE SET value = EXCLUDED.value
	`

	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(query, entityID, statistic, o.Date, o.Value)
	}

	br := h.db.GetPool().SendBatch(ctx, batch)
	defer br.Close()

	for range obs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert observation: %w", err)
		}
	}

	return nil
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/propedge/internal/models"
)

// HistoryRepository defines read and load access to per-entity statistic histories
type HistoryRepository interface {
	// GetHistory returns up to limit of the most recent observations, oldest first.
	// A limit of zero returns the full history.
	GetHistory(ctx context.Context, entityID, statistic string, limit int) (models.History, error)
	// GetFirstOnOrAfter returns the earliest observation dated at or after t, or models.ErrNotFound.
	GetFirstOnOrAfter(ctx context.Context, entityID, statistic string, t time.Time) (models.Observation, error)
	UpsertObservations(ctx context.Context, entityID, statistic string, obs []models.Observation) error
}

// PredictionRepository defines persistence for priced candidates
type PredictionRepository interface {
	Save(ctx context.Context, r *models.PredictionResult) error
	SaveBatch(ctx context.Context, results []models.PredictionResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PredictionResult, error)
	// GetUnsettled returns predictions generated before the cutoff that have no outcome yet.
	GetUnsettled(ctx context.Context, before time.Time) ([]models.PredictionResult, error)
	GetByRange(ctx context.Context, start, end time.Time) ([]models.PredictionResult, error)
	// UpdatePricing rewrites the probability, EV and sizing fields of a stored prediction.
	UpdatePricing(ctx context.Context, r *models.PredictionResult) error
	MarkSettled(ctx context.Context, id uuid.UUID, settledAt time.Time) error
}

// OutcomeRepository defines persistence for settled predictions
type OutcomeRepository interface {
	Insert(ctx context.Context, o *models.Outcome) error
	// GetByRange returns outcomes whose game date falls in [start, end], oldest first.
	GetByRange(ctx context.Context, start, end time.Time) ([]models.Outcome, error)
}

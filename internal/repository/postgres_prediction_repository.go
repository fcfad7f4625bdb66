package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourusername/propedge/internal/database"
	"github.com/yourusername/propedge/internal/models"
)

const predictionColumns = `id, candidate_id, entity_id, statistic, line, direction, american_odds,
	decimal_odds, implied_probability, raw_probability, probability, ci_low, ci_high,
	expected_value, ev_ci_low, ev_ci_high, edge, kelly_fraction, ranking_score,
	confidence_score, sample_size, training_sample_count, degenerate, game_date, generated_at`

const uniqueViolation = "23505"

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

const insertPredictionQuery = `
	INSERT INTO predictions (` + predictionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
	        $18, $19, $20, $21, $22, $23, $24, $25)
`

func predictionArgs(r *models.PredictionResult) []interface{} {
	return []interface{}{
		r.ID, r.CandidateID, r.EntityID, r.Statistic, r.Line, string(r.Direction), r.AmericanOdds,
		r.DecimalOdds, r.ImpliedProbability, r.RawProbability, r.Probability, r.ProbabilityCI[0], r.ProbabilityCI[1],
		r.ExpectedValue, r.EVCI[0], r.EVCI[1], r.Edge, r.KellyFraction, r.RankingScore,
		r.ConfidenceScore, r.SampleSize, r.TrainingSampleCount, r.Degenerate, r.GameDate, r.GeneratedAt,
	}
}

// Save inserts a prediction, assigning an ID when missing
func (p *PostgresPredictionRepository) Save(ctx context.Context, r *models.PredictionResult) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	if _, err := p.db.GetPool().Exec(ctx, insertPredictionQuery, predictionArgs(r)...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.ErrDuplicateKey
		}
		return fmt.Errorf("failed to save prediction: %w", err)
	}

	return nil
}

// SaveBatch inserts predictions in one transaction
func (p *PostgresPredictionRepository) SaveBatch(ctx context.Context, results []models.PredictionResult) error {
	if len(results) == 0 {
		return nil
	}

	return p.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i := range results {
			if results[i].ID == uuid.Nil {
				results[i].ID = uuid.New()
			}
			batch.Queue(insertPredictionQuery, predictionArgs(&results[i])...)
		}

		br := tx.SendBatch(ctx, batch)
		for range results {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("failed to save prediction batch: %w", err)
			}
		}
		return br.Close()
	})
}

// GetByID retrieves a prediction by ID
func (p *PostgresPredictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PredictionResult, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`

	r, err := scanPostgresPrediction(p.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return r, nil
}

// GetUnsettled retrieves unsettled predictions generated before the cutoff
func (p *PostgresPredictionRepository) GetUnsettled(ctx context.Context, before time.Time) ([]models.PredictionResult, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE settled_at IS NULL AND generated_at < $1
		ORDER BY generated_at ASC
	`
	return p.queryPredictions(ctx, query, before)
}

// GetByRange retrieves predictions generated within [start, end]
func (p *PostgresPredictionRepository) GetByRange(ctx context.Context, start, end time.Time) ([]models.PredictionResult, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE generated_at >= $1 AND generated_at <= $2
		ORDER BY generated_at ASC
	`
	return p.queryPredictions(ctx, query, start, end)
}

// UpdatePricing rewrites the pricing fields of a stored prediction
func (p *PostgresPredictionRepository) UpdatePricing(ctx context.Context, r *models.PredictionResult) error {
	query := `
		UPDATE predictions SET
			probability = $2, ci_low = $3, ci_high = $4, expected_value = $5, ev_ci_low = $6,
			ev_ci_high = $7, edge = $8, kelly_fraction = $9, ranking_score = $10, confidence_score = $11
		WHERE id = $1
	`

	tag, err := p.db.GetPool().Exec(ctx, query,
		r.ID, r.Probability, r.ProbabilityCI[0], r.ProbabilityCI[1], r.ExpectedValue, r.EVCI[0],
		r.EVCI[1], r.Edge, r.KellyFraction, r.RankingScore, r.ConfidenceScore,
	)
	if err != nil {
		return fmt.Errorf("failed to update prediction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// MarkSettled records the settlement time of a prediction
func (p *PostgresPredictionRepository) MarkSettled(ctx context.Context, id uuid.UUID, settledAt time.Time) error {
	tag, err := p.db.GetPool().Exec(ctx, `UPDATE predictions SET settled_at = $2 WHERE id = $1`, id, settledAt)
	if err != nil {
		return fmt.Errorf("failed to mark prediction settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (p *PostgresPredictionRepository) queryPredictions(ctx context.Context, query string, args ...interface{}) ([]models.PredictionResult, error) {
	rows, err := p.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var results []models.PredictionResult
	for rows.Next() {
		r, err := scanPostgresPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		results = append(results, *r)
	}

	return results, rows.Err()
}

func scanPostgresPrediction(row pgx.Row) (*models.PredictionResult, error) {
	r := &models.PredictionResult{}
	var direction string
	err := row.Scan(
		&r.ID, &r.CandidateID, &r.EntityID, &r.Statistic, &r.Line, &direction, &r.AmericanOdds,
		&r.DecimalOdds, &r.ImpliedProbability, &r.RawProbability, &r.Probability, &r.ProbabilityCI[0], &r.ProbabilityCI[1],
		&r.ExpectedValue, &r.EVCI[0], &r.EVCI[1], &r.Edge, &r.KellyFraction, &r.RankingScore,
		&r.ConfidenceScore, &r.SampleSize, &r.TrainingSampleCount, &r.Degenerate, &r.GameDate, &r.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Direction = models.Direction(direction)
	return r, nil
}

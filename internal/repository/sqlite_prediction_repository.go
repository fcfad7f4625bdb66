package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/propedge/internal/database"
	"github.com/yourusername/propedge/internal/models"
)

// SQLitePredictionRepository implements PredictionRepository on the local SQLite store
type SQLitePredictionRepository struct {
	db *sql.DB
}

// NewSQLitePredictionRepository creates a new prediction repository
func NewSQLitePredictionRepository(s *database.SQLite) PredictionRepository {
	return &SQLitePredictionRepository{db: s.DB()}
}

const sqliteInsertPrediction = `
	INSERT INTO predictions (` + predictionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (p *SQLitePredictionRepository) insert(ctx context.Context, ex execer, r *models.PredictionResult) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	var gameDate sql.NullInt64
	if r.GameDate != nil {
		gameDate = sql.NullInt64{Int64: r.GameDate.UnixNano(), Valid: true}
	}

	_, err := ex.ExecContext(ctx, sqliteInsertPrediction,
		r.ID.String(), r.CandidateID.String(), r.EntityID, r.Statistic, r.Line, string(r.Direction), r.AmericanOdds,
		r.DecimalOdds, r.ImpliedProbability, r.RawProbability, r.Probability, r.ProbabilityCI[0], r.ProbabilityCI[1],
		r.ExpectedValue, r.EVCI[0], r.EVCI[1], r.Edge, r.KellyFraction, r.RankingScore,
		r.ConfidenceScore, r.SampleSize, r.TrainingSampleCount, boolToInt(r.Degenerate), gameDate, r.GeneratedAt.UnixNano(),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return models.ErrDuplicateKey
		}
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

// Save inserts a prediction, assigning an ID when missing
func (p *SQLitePredictionRepository) Save(ctx context.Context, r *models.PredictionResult) error {
	return p.insert(ctx, p.db, r)
}

// SaveBatch inserts predictions in one transaction
func (p *SQLitePredictionRepository) SaveBatch(ctx context.Context, results []models.PredictionResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range results {
		if err := p.insert(ctx, tx, &results[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a prediction by ID
func (p *SQLitePredictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PredictionResult, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+predictionColumns+` FROM predictions WHERE id = ?`, id.String())

	r, err := scanSQLitePrediction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return r, nil
}

// GetUnsettled retrieves unsettled predictions generated before the cutoff
func (p *SQLitePredictionRepository) GetUnsettled(ctx context.Context, before time.Time) ([]models.PredictionResult, error) {
	return p.queryPredictions(ctx, `
		SELECT `+predictionColumns+`
		FROM predictions
		WHERE settled_at IS NULL AND generated_at < ?
		ORDER BY generated_at ASC`,
		before.UnixNano(),
	)
}

// GetByRange retrieves predictions generated within [start, end]
func (p *SQLitePredictionRepository) GetByRange(ctx context.Context, start, end time.Time) ([]models.PredictionResult, error) {
	return p.queryPredictions(ctx, `
		SELECT `+predictionColumns+`
		FROM predictions
		WHERE generated_at >= ? AND generated_at <= ?
		ORDER BY generated_at ASC`,
		start.UnixNano(), end.UnixNano(),
	)
}

// UpdatePricing rewrites the pricing fields of a stored prediction
func (p *SQLitePredictionRepository) UpdatePricing(ctx context.Context, r *models.PredictionResult) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE predictions SET
			probability = ?, ci_low = ?, ci_high = ?, expected_value = ?, ev_ci_low = ?,
			ev_ci_high = ?, edge = ?, kelly_fraction = ?, ranking_score = ?, confidence_score = ?
		WHERE id = ?`,
		r.Probability, r.ProbabilityCI[0], r.ProbabilityCI[1], r.ExpectedValue, r.EVCI[0],
		r.EVCI[1], r.Edge, r.KellyFraction, r.RankingScore, r.ConfidenceScore, r.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update prediction: %w", err)
	}
	return requireAffected(res)
}

// MarkSettled records the settlement time of a prediction
func (p *SQLitePredictionRepository) MarkSettled(ctx context.Context, id uuid.UUID, settledAt time.Time) error {
	res, err := p.db.ExecContext(ctx, `UPDATE predictions SET settled_at = ? WHERE id = ?`, settledAt.UnixNano(), id.String())
	if err != nil {
		return fmt.Errorf("failed to mark prediction settled: %w", err)
	}
	return requireAffected(res)
}

func (p *SQLitePredictionRepository) queryPredictions(ctx context.Context, query string, args ...interface{}) ([]models.PredictionResult, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var results []models.PredictionResult
	for rows.Next() {
		r, err := scanSQLitePrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		results = append(results, *r)
	}

	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLitePrediction(row rowScanner) (*models.PredictionResult, error) {
	r := &models.PredictionResult{}
	var (
		id, candidateID, direction string
		degenerate                 int
		gameDate                   sql.NullInt64
		generatedAt                int64
	)
	err := row.Scan(
		&id, &candidateID, &r.EntityID, &r.Statistic, &r.Line, &direction, &r.AmericanOdds,
		&r.DecimalOdds, &r.ImpliedProbability, &r.RawProbability, &r.Probability, &r.ProbabilityCI[0], &r.ProbabilityCI[1],
		&r.ExpectedValue, &r.EVCI[0], &r.EVCI[1], &r.Edge, &r.KellyFraction, &r.RankingScore,
		&r.ConfidenceScore, &r.SampleSize, &r.TrainingSampleCount, &degenerate, &gameDate, &generatedAt,
	)
	if err != nil {
		return nil, err
	}

	if r.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidID, id)
	}
	if r.CandidateID, err = uuid.Parse(candidateID); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidID, candidateID)
	}
	r.Direction = models.Direction(direction)
	r.Degenerate = degenerate != 0
	if gameDate.Valid {
		t := time.Unix(0, gameDate.Int64).UTC()
		r.GameDate = &t
	}
	r.GeneratedAt = time.Unix(0, generatedAt).UTC()

	return r, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func isSQLiteUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

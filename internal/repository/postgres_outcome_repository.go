package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/yourusername/propedge/internal/database"
	"github.com/yourusername/propedge/internal/models"
)

// PostgresOutcomeRepository implements OutcomeRepository for PostgreSQL
type PostgresOutcomeRepository struct {
	db *database.DB
}

// NewPostgresOutcomeRepository creates a new outcome repository
func NewPostgresOutcomeRepository(db *database.DB) OutcomeRepository {
	return &PostgresOutcomeRepository{db: db}
}

// Insert stores a settled outcome. A second outcome for the same prediction returns ErrDuplicateKey.
func (o *PostgresOutcomeRepository) Insert(ctx context.Context, out *models.Outcome) error {
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}

	query := `
		INSERT INTO outcomes (id, prediction_id, entity_id, statistic, line, direction, american_odds,
		                      probability, actual_value, hit, stake, profit_loss, game_date, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, $12::numeric, $13, $14)
	`

	_, err := o.db.GetPool().Exec(ctx, query,
		out.ID, out.PredictionID, out.EntityID, out.Statistic, out.Line, string(out.Direction), out.AmericanOdds,
		out.Probability, out.ActualValue, out.Hit, out.Stake.String(), out.ProfitLoss.String(), out.GameDate, out.SettledAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert outcome: %w", err)
	}

	return nil
}

// GetByRange retrieves outcomes by game date
func (o *PostgresOutcomeRepository) GetByRange(ctx context.Context, start, end time.Time) ([]models.Outcome, error) {
	query := `
		SELECT id, prediction_id, entity_id, statistic, line, direction, american_odds, probability,
		       actual_value, hit, stake::text, profit_loss::text, game_date, settled_at
		FROM outcomes
		WHERE game_date >= $1 AND game_date <= $2
		ORDER BY game_date ASC, settled_at ASC
	`

	rows, err := o.db.GetPool().Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []models.Outcome
	for rows.Next() {
		var out models.Outcome
		var direction, stake, pnl string
		err := rows.Scan(
			&out.ID, &out.PredictionID, &out.EntityID, &out.Statistic, &out.Line, &direction, &out.AmericanOdds,
			&out.Probability, &out.ActualValue, &out.Hit, &stake, &pnl, &out.GameDate, &out.SettledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		out.Direction = models.Direction(direction)
		if out.Stake, err = decimal.NewFromString(stake); err != nil {
			return nil, fmt.Errorf("failed to parse stake: %w", err)
		}
		if out.ProfitLoss, err = decimal.NewFromString(pnl); err != nil {
			return nil, fmt.Errorf("failed to parse profit_loss: %w", err)
		}
		outcomes = append(outcomes, out)
	}

	return outcomes, rows.Err()
}

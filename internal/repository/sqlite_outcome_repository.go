package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/propedge/internal/database"
	"github.com/yourusername/propedge/internal/models"
)

// SQLiteOutcomeRepository implements OutcomeRepository on the local SQLite store
type SQLiteOutcomeRepository struct {
	db *sql.DB
}

// NewSQLiteOutcomeRepository creates a new outcome repository
func NewSQLiteOutcomeRepository(s *database.SQLite) OutcomeRepository {
	return &SQLiteOutcomeRepository{db: s.DB()}
}

// Insert stores a settled outcome. A second outcome for the same prediction returns ErrDuplicateKey.
func (o *SQLiteOutcomeRepository) Insert(ctx context.Context, out *models.Outcome) error {
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}

	_, err := o.db.ExecContext(ctx, `
		INSERT INTO outcomes (id, prediction_id, entity_id, statistic, line, direction, american_odds,
		                      probability, actual_value, hit, stake, profit_loss, game_date, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID.String(), out.PredictionID.String(), out.EntityID, out.Statistic, out.Line, string(out.Direction), out.AmericanOdds,
		out.Probability, out.ActualValue, boolToInt(out.Hit), out.Stake.String(), out.ProfitLoss.String(),
		out.GameDate.UnixNano(), out.SettledAt.UnixNano(),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return models.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert outcome: %w", err)
	}

	return nil
}

// GetByRange retrieves outcomes by game date
func (o *SQLiteOutcomeRepository) GetByRange(ctx context.Context, start, end time.Time) ([]models.Outcome, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, prediction_id, entity_id, statistic, line, direction, american_odds, probability,
		       actual_value, hit, stake, profit_loss, game_date, settled_at
		FROM outcomes
		WHERE game_date >= ? AND game_date <= ?
		ORDER BY game_date ASC, settled_at ASC`,
		start.UnixNano(), end.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []models.Outcome
	for rows.Next() {
		var (
			out                         models.Outcome
			id, predictionID, direction string
			stake, pnl                  string
			hit                         int
			gameDate, settledAt         int64
		)
		err := rows.Scan(
			&id, &predictionID, &out.EntityID, &out.Statistic, &out.Line, &direction, &out.AmericanOdds,
			&out.Probability, &out.ActualValue, &hit, &stake, &pnl, &gameDate, &settledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		if out.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: %s", models.ErrInvalidID, id)
		}
		if out.PredictionID, err = uuid.Parse(predictionID); err != nil {
			return nil, fmt.Errorf("%w: %s", models.ErrInvalidID, predictionID)
		}
		if out.Stake, err = decimal.NewFromString(stake); err != nil {
			return nil, fmt.Errorf("failed to parse stake: %w", err)
		}
		if out.ProfitLoss, err = decimal.NewFromString(pnl); err != nil {
			return nil, fmt.Errorf("failed to parse profit_loss: %w", err)
		}
		out.Direction = models.Direction(direction)
		out.Hit = hit != 0
		out.GameDate = time.Unix(0, gameDate).UTC()
		out.SettledAt = time.Unix(0, settledAt).UTC()
		outcomes = append(outcomes, out)
	}

	return outcomes, rows.Err()
}

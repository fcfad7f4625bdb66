package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultStake is the flat stake used when settling tracked predictions
var DefaultStake = decimal.NewFromInt(100)

// Outcome records how a stored prediction settled
type Outcome struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	PredictionID uuid.UUID       `db:"prediction_id" json:"prediction_id"`
	EntityID     string          `db:"entity_id" json:"entity_id"`
	Statistic    string          `db:"statistic" json:"statistic"`
	Line         float64         `db:"line" json:"line"`
	Direction    Direction       `db:"direction" json:"direction"`
	AmericanOdds int             `db:"american_odds" json:"american_odds"`
	Probability  float64         `db:"probability" json:"probability"`
	ActualValue  float64         `db:"actual_value" json:"actual_value"`
	Hit          bool            `db:"hit" json:"hit"`
	Stake        decimal.Decimal `db:"stake" json:"stake"`
	ProfitLoss   decimal.Decimal `db:"profit_loss" json:"profit_loss"`
	GameDate     time.Time       `db:"game_date" json:"game_date"`
	SettledAt    time.Time       `db:"settled_at" json:"settled_at"`
}

// CalculateProfitLoss returns the settled profit or loss for a stake at american odds
func CalculateProfitLoss(hit bool, american int, stake decimal.Decimal) (decimal.Decimal, error) {
	if !hit {
		return stake.Neg(), nil
	}
	d, err := AmericanToDecimalExact(american)
	if err != nil {
		return decimal.Zero, err
	}
	return stake.Mul(d).Sub(stake), nil
}

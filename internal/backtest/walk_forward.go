package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/propedge/internal/models"
	"github.com/yourusername/propedge/internal/pipeline"
)

// DefaultTrailingGames is the window of the default line policy
const DefaultTrailingGames = 10

// LinePolicy chooses the line to price a game at from the games before it
type LinePolicy func(prior models.History) float64

// FixedLine prices every game at the same line
func FixedLine(line float64) LinePolicy {
	return func(models.History) float64 { return line }
}

// TrailingMeanLine sets the line at the half-point nearest the mean of the
// last n games, so a replayed game can never push.
func TrailingMeanLine(n int) LinePolicy {
	return func(prior models.History) float64 {
		values := prior.Values()
		if n > 0 && len(values) > n {
			values = values[len(values)-n:]
		}
		if len(values) == 0 {
			return 0.5
		}
		return math.Floor(stat.Mean(values, nil)) + 0.5
	}
}

// WalkForwardConfig configures a historical replay of one entity and statistic
type WalkForwardConfig struct {
	EntityID     string
	Statistic    string
	Direction    models.Direction
	AmericanOdds int
	// Line defaults to TrailingMeanLine(DefaultTrailingGames).
	Line  LinePolicy
	Stake decimal.Decimal
}

// WalkForwardResult holds every replayed game and the metrics they produce
type WalkForwardResult struct {
	Predictions []models.PredictionResult `json:"predictions"`
	Outcomes    []models.Outcome          `json:"outcomes"`
	Skipped     int                       `json:"skipped"`
	// Metrics covers every priced game; Selected covers positive-EV games only.
	Metrics  Metrics `json:"metrics"`
	Selected Metrics `json:"selected"`
}

// ConsistencyScore returns the fraction of game days with non-negative profit
// among positive-EV selections
func (w WalkForwardResult) ConsistencyScore() float64 {
	if len(w.Selected.ByDay) == 0 {
		return 0
	}
	profitable := 0
	for _, d := range w.Selected.ByDay {
		if d.ProfitLoss >= 0 {
			profitable++
		}
	}
	return float64(profitable) / float64(len(w.Selected.ByDay))
}

// ToJSON exports the replay result
func (w WalkForwardResult) ToJSON() string {
	data, _ := json.Marshal(w)
	return string(data)
}

// RunWalkForward prices each game k of history using only games before k and
// settles it against game k. The first priced game is the shortest prefix the
// evaluator accepts.
func RunWalkForward(ctx context.Context, evaluator *pipeline.Evaluator, history models.History, cfg WalkForwardConfig) (WalkForwardResult, error) {
	if evaluator == nil {
		return WalkForwardResult{}, fmt.Errorf("evaluator is required")
	}
	if !cfg.Direction.Valid() {
		return WalkForwardResult{}, fmt.Errorf("%w: direction %q", models.ErrInvalidCandidate, cfg.Direction)
	}
	if cfg.Line == nil {
		cfg.Line = TrailingMeanLine(DefaultTrailingGames)
	}
	if !cfg.Stake.IsPositive() {
		cfg.Stake = models.DefaultStake
	}

	h := history.Sorted()
	minGames := evaluator.Settings().Features.MinGames
	if len(h) <= minGames {
		return WalkForwardResult{}, fmt.Errorf("%w: %d games, need more than %d", models.ErrInsufficientData, len(h), minGames)
	}

	result := WalkForwardResult{}
	var selected []models.Outcome
	for k := minGames; k < len(h); k++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		prior := h[:k:k]
		game := h[k]
		c := models.NewCandidate(cfg.EntityID, cfg.Statistic, cfg.Line(prior), cfg.Direction, cfg.AmericanOdds)

		r, err := evaluator.Evaluate(ctx, c, prior)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, err
		}
		if err != nil {
			result.Skipped++
			continue
		}
		gameDate := game.Date
		r.GameDate = &gameDate

		o, err := Settle(r, game, cfg.Stake, game.Date)
		if err != nil {
			result.Skipped++
			continue
		}

		result.Predictions = append(result.Predictions, r)
		result.Outcomes = append(result.Outcomes, o)
		if r.IsPositiveEV() {
			selected = append(selected, o)
		}
	}

	result.Metrics = CalculateMetrics(result.Outcomes)
	result.Selected = CalculateMetrics(selected)
	return result, nil
}

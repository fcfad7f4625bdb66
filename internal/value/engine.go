// Package value converts calibrated probabilities and quoted odds into
// expected value, Kelly sizing, and ranking signals.
package value

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/yourusername/propedge/internal/models"
)

// Config holds the value engine constants
type Config struct {
	// KellyExponent penalises small Kelly fractions in the ranking score.
	KellyExponent float64 `json:"kelly_exponent"`
	// SampleSaturation is the training row count at which the sample component maxes out.
	SampleSaturation int     `json:"sample_saturation"`
	SampleWeight     float64 `json:"sample_weight"`
	IntervalWeight   float64 `json:"interval_weight"`
	// DegeneratePenalty multiplies the confidence score when no ensemble was fit.
	DegeneratePenalty float64 `json:"degenerate_penalty"`
	// FractionalKelly scales the Kelly fraction when sizing stakes.
	FractionalKelly float64 `json:"fractional_kelly"`
	// MaxStakeFraction caps a single stake as a fraction of bankroll.
	MaxStakeFraction float64 `json:"max_stake_fraction"`
}

// DefaultConfig returns the default value engine constants
func DefaultConfig() Config {
	return Config{
		KellyExponent:     1.5,
		SampleSaturation:  50,
		SampleWeight:      0.6,
		IntervalWeight:    0.4,
		DegeneratePenalty: 0.5,
		FractionalKelly:   0.25,
		MaxStakeFraction:  0.05,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	switch {
	case c.KellyExponent < 1:
		return fmt.Errorf("kelly_exponent must be at least 1")
	case c.SampleSaturation <= 0:
		return fmt.Errorf("sample_saturation must be positive")
	case c.SampleWeight < 0 || c.IntervalWeight < 0 || c.SampleWeight+c.IntervalWeight > 1+1e-9:
		return fmt.Errorf("confidence weights must be non-negative and sum to at most 1")
	case c.DegeneratePenalty < 0 || c.DegeneratePenalty > 1:
		return fmt.Errorf("degenerate_penalty must be in [0, 1]")
	case c.FractionalKelly <= 0 || c.FractionalKelly > 1:
		return fmt.Errorf("fractional_kelly must be in (0, 1]")
	case c.MaxStakeFraction <= 0 || c.MaxStakeFraction > 1:
		return fmt.Errorf("max_stake_fraction must be in (0, 1]")
	}
	return nil
}

// Samples describes the data behind a probability estimate
type Samples struct {
	Historical int
	Training   int
	Degenerate bool
}

// Engine computes value metrics
type Engine struct {
	cfg Config
}

// NewEngine creates a value engine
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate prices a probability and interval at the given decimal odds
func (e *Engine) Evaluate(p float64, ci [2]float64, decimalOdds float64) (models.PredictionResult, error) {
	return e.EvaluateWithSamples(p, ci, decimalOdds, Samples{})
}

// EvaluateWithSamples is Evaluate with the sample counts that feed the confidence score
func (e *Engine) EvaluateWithSamples(p float64, ci [2]float64, decimalOdds float64, s Samples) (models.PredictionResult, error) {
	if math.IsNaN(decimalOdds) || math.IsInf(decimalOdds, 0) || decimalOdds <= 1 {
		return models.PredictionResult{}, fmt.Errorf("%w: decimal odds %v", models.ErrInvalidOdds, decimalOdds)
	}
	if math.IsNaN(p) || math.IsNaN(ci[0]) || math.IsNaN(ci[1]) {
		return models.PredictionResult{}, fmt.Errorf("%w: NaN probability", models.ErrInvalidProbability)
	}
	p = clampUnit(p)
	lo, hi := clampUnit(ci[0]), clampUnit(ci[1])
	if lo > hi {
		lo, hi = hi, lo
	}

	ev := ExpectedValue(p, decimalOdds)
	kelly := KellyFraction(p, decimalOdds)

	return models.PredictionResult{
		DecimalOdds:         decimalOdds,
		Probability:         p,
		ProbabilityCI:       [2]float64{lo, hi},
		ExpectedValue:       ev,
		EVCI:                [2]float64{ExpectedValue(lo, decimalOdds), ExpectedValue(hi, decimalOdds)},
		KellyFraction:       kelly,
		RankingScore:        e.RankingScore(ev, kelly),
		ConfidenceScore:     e.ConfidenceScore(s.Training, hi-lo, s.Degenerate),
		SampleSize:          s.Historical,
		TrainingSampleCount: s.Training,
		Degenerate:          s.Degenerate,
	}, nil
}

// ExpectedValue returns the expected profit per unit stake
func ExpectedValue(p, decimalOdds float64) float64 {
	return p*(decimalOdds-1) - (1 - p)
}

// KellyFraction returns the full-Kelly bankroll fraction clamped to [0, 1]
func KellyFraction(p, decimalOdds float64) float64 {
	b := decimalOdds - 1
	if b <= 0 {
		return 0
	}
	return clampUnit((b*p - (1 - p)) / b)
}

// RankingScore returns EV * kelly^exponent; zero when there is no stake
func (e *Engine) RankingScore(ev, kelly float64) float64 {
	if kelly <= 0 {
		return 0
	}
	return ev * math.Pow(kelly, e.cfg.KellyExponent)
}

// ConfidenceScore blends sample depth and interval tightness into [0, 1]
func (e *Engine) ConfidenceScore(trainingRows int, ciWidth float64, degenerate bool) float64 {
	sample := math.Min(1, float64(trainingRows)/float64(e.cfg.SampleSaturation))
	interval := math.Max(0, 1-ciWidth)
	score := e.cfg.SampleWeight*sample + e.cfg.IntervalWeight*interval
	if degenerate {
		score *= e.cfg.DegeneratePenalty
	}
	return clampUnit(score)
}

// Stake sizes a bet at fractional Kelly, capped at MaxStakeFraction of bankroll
func (e *Engine) Stake(r models.PredictionResult, bankroll decimal.Decimal) decimal.Decimal {
	if r.KellyFraction <= 0 || !bankroll.IsPositive() {
		return decimal.Zero
	}
	fraction := math.Min(r.KellyFraction*e.cfg.FractionalKelly, e.cfg.MaxStakeFraction)
	return bankroll.Mul(decimal.NewFromFloat(fraction)).Round(2)
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

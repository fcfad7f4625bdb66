// Package features turns an entity's ordered history and a quoted line into
// training rows, a live row, and recency weights.
package features

import (
	"fmt"
	"math"
)

// Config holds the feature engineering constants
type Config struct {
	// MinGames is the shortest history that can be priced.
	MinGames int `json:"min_games"`
	// MinLookback is the first history index that gets a training row.
	MinLookback int `json:"min_lookback"`
	// HitRateBand is the +/- distance from the line that counts as a comparable prior game.
	HitRateBand float64 `json:"hit_rate_band"`
	// Epsilon substitutes for zero denominators.
	Epsilon float64 `json:"epsilon"`
	// DecayPerDay is lambda in exp(-lambda * days).
	DecayPerDay float64 `json:"decay_per_day"`
	// MinWeight floors every sample weight.
	MinWeight float64 `json:"min_weight"`
}

// DefaultConfig returns the defaults. A 10-day-old game keeps half the weight of the newest.
func DefaultConfig() Config {
	return Config{
		MinGames:    10,
		MinLookback: 3,
		HitRateBand: 1.0,
		Epsilon:     1e-6,
		DecayPerDay: math.Ln2 / 10,
		MinWeight:   1e-6,
	}
}

// HalfLifeDays returns the number of days for a weight to halve
func (c Config) HalfLifeDays() float64 {
	if c.DecayPerDay <= 0 {
		return math.Inf(1)
	}
	return math.Ln2 / c.DecayPerDay
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.MinLookback < 1 {
		return fmt.Errorf("min_lookback must be at least 1, got %d", c.MinLookback)
	}
	if c.MinGames <= c.MinLookback {
		return fmt.Errorf("min_games (%d) must exceed min_lookback (%d)", c.MinGames, c.MinLookback)
	}
	if c.HitRateBand < 0 {
		return fmt.Errorf("hit_rate_band must be non-negative")
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive")
	}
	if c.DecayPerDay < 0 {
		return fmt.Errorf("decay_per_day must be non-negative")
	}
	if c.MinWeight <= 0 || c.MinWeight > 1 {
		return fmt.Errorf("min_weight must be in (0, 1]")
	}
	return nil
}

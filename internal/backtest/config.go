// Package backtest settles stored predictions against realised statistics and
// replays the pricing pipeline over history to measure how it would have done.
package backtest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/propedge/internal/config"
	"github.com/yourusername/propedge/internal/models"
)

// Config holds tracking and replay settings
type Config struct {
	// Stake is the flat amount settled per prediction.
	Stake decimal.Decimal
	// Bankroll seeds Monte Carlo runs and equity curves.
	Bankroll decimal.Decimal
	// SimulationRuns is the number of Monte Carlo iterations.
	SimulationRuns int
	// SettleAfter is how old a prediction must be before settlement is attempted.
	SettleAfter time.Duration
	Seed        int64
}

// DefaultConfig returns the tracking defaults
func DefaultConfig() Config {
	return Config{
		Stake:          models.DefaultStake,
		Bankroll:       decimal.NewFromInt(1000),
		SimulationRuns: 1000,
		SettleAfter:    24 * time.Hour,
		Seed:           1,
	}
}

// FromConfig converts app config to tracking config
func FromConfig(cfg *config.TrackingConfig) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("tracking config is required")
	}

	out := DefaultConfig()
	out.Stake = decimal.NewFromFloat(cfg.Stake)
	out.Bankroll = decimal.NewFromFloat(cfg.Bankroll)
	if cfg.SimulationRuns > 0 {
		out.SimulationRuns = cfg.SimulationRuns
	}
	out.SettleAfter = time.Duration(cfg.SettleAfterDays) * 24 * time.Hour

	return out, out.Validate()
}

// Validate validates tracking config parameters
func (c Config) Validate() error {
	if !c.Stake.IsPositive() {
		return fmt.Errorf("stake must be positive")
	}
	if !c.Bankroll.IsPositive() {
		return fmt.Errorf("bankroll must be positive")
	}
	if c.SimulationRuns <= 0 {
		return fmt.Errorf("simulation runs must be positive")
	}
	if c.SettleAfter < 0 {
		return fmt.Errorf("settle after cannot be negative")
	}
	return nil
}

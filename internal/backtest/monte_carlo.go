package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/propedge/internal/models"
)

// MonteCarloConfig configures monte carlo simulation
type MonteCarloConfig struct {
	Iterations int
	Seed       int64
	Bankroll   float64
	// FractionalKelly and MaxStakeFraction size each stake from the running bankroll.
	FractionalKelly  float64
	MaxStakeFraction float64
}

// MonteCarloResult represents the simulated distribution of final bankrolls
type MonteCarloResult struct {
	Iterations          int                `json:"iterations"`
	Bets                int                `json:"bets"`
	MeanReturn          float64            `json:"mean_return"`
	StdReturn           float64            `json:"std_return"`
	VaR95               float64            `json:"var_95"`
	VaR99               float64            `json:"var_99"`
	ProbabilityOfProfit float64            `json:"probability_of_profit"`
	ProbabilityOfRuin   float64            `json:"probability_of_ruin"`
	ConfidenceIntervals map[string]float64 `json:"confidence_intervals"`
	Distribution        []float64          `json:"distribution"`
}

// RunMonteCarlo simulates staking fractional Kelly on every positive-EV result
// in order, drawing each hit from the result's calibrated probability. The same
// seed always yields the same distribution.
func RunMonteCarlo(ctx context.Context, results []models.PredictionResult, cfg MonteCarloConfig) (MonteCarloResult, error) {
	if cfg.Iterations <= 0 {
		cfg.Iterations = 1000
	}
	if cfg.Bankroll <= 0 {
		return MonteCarloResult{}, fmt.Errorf("bankroll must be positive")
	}
	if cfg.FractionalKelly <= 0 || cfg.MaxStakeFraction <= 0 {
		return MonteCarloResult{}, fmt.Errorf("stake fractions must be positive")
	}

	bets := make([]models.PredictionResult, 0, len(results))
	for _, r := range results {
		if r.IsPositiveEV() && r.KellyFraction > 0 && r.DecimalOdds > 1 {
			bets = append(bets, r)
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	distribution := make([]float64, cfg.Iterations)

	for i := 0; i < cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return MonteCarloResult{}, err
		}
		bankroll := cfg.Bankroll
		for _, bet := range bets {
			stake := bankroll * math.Min(bet.KellyFraction*cfg.FractionalKelly, cfg.MaxStakeFraction)
			if rng.Float64() < bet.Probability {
				bankroll += stake * (bet.DecimalOdds - 1)
			} else {
				bankroll -= stake
			}
			if bankroll <= 0 {
				bankroll = 0
				break
			}
		}
		distribution[i] = bankroll
	}

	sorted := append([]float64(nil), distribution...)
	sort.Float64s(sorted)
	mean, std := stat.PopMeanStdDev(sorted, nil)
	ret := func(v float64) float64 { return (v - cfg.Bankroll) / cfg.Bankroll }

	return MonteCarloResult{
		Iterations:          cfg.Iterations,
		Bets:                len(bets),
		MeanReturn:          ret(mean),
		StdReturn:           std / cfg.Bankroll,
		VaR95:               ret(percentile(sorted, 0.05)),
		VaR99:               ret(percentile(sorted, 0.01)),
		ProbabilityOfProfit: probabilityAbove(sorted, cfg.Bankroll),
		ProbabilityOfRuin:   probabilityAtOrBelow(sorted, 0),
		ConfidenceIntervals: CalculateConfidenceIntervals(sorted, []float64{0.9, 0.95, 0.99}),
		Distribution:        distribution,
	}, nil
}

// CalculateConfidenceIntervals returns the width of the central interval at
// each level. sorted must be in ascending order.
func CalculateConfidenceIntervals(sorted []float64, levels []float64) map[string]float64 {
	results := make(map[string]float64)
	for _, level := range levels {
		p := (1.0 - level) / 2.0
		results[formatPercent(level)] = percentile(sorted, 1.0-p) - percentile(sorted, p)
	}
	return results
}

// ToJSON exports the simulation result
func (m MonteCarloResult) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

func probabilityAbove(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v > threshold {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

func probabilityAtOrBelow(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v <= threshold {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

func formatPercent(level float64) string {
	return fmt.Sprintf("%.0f%%", level*100)
}

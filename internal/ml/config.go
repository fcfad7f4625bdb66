package ml

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

// Config holds the model trainer settings
type Config struct {
	NumTrees        int `json:"num_trees"`
	MaxDepth        int `json:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split"`
	MinSamplesLeaf  int `json:"min_samples_leaf"`
	// BalancedClassWeight scales sample weights by n/(2*n_class).
	BalancedClassWeight bool `json:"balanced_class_weight"`
	// VarianceThreshold drops near-constant feature columns.
	VarianceThreshold float64 `json:"variance_threshold"`
	// MinSelectedFeatures and SelectFraction set K = min(max(MinSelected, Fraction*m), m).
	MinSelectedFeatures int     `json:"min_selected_features"`
	SelectFraction      float64 `json:"select_fraction"`
	// ConfidenceLevel is the two-sided normal interval level.
	ConfidenceLevel float64 `json:"confidence_level"`
	// BaselineHalfWidth is the interval half width when no ensemble is fit.
	BaselineHalfWidth float64 `json:"baseline_half_width"`
	Seed              int64   `json:"seed"`
}

// DefaultConfig returns the default trainer settings
func DefaultConfig() Config {
	return Config{
		NumTrees:            200,
		MaxDepth:            12,
		MinSamplesSplit:     10,
		MinSamplesLeaf:      5,
		BalancedClassWeight: true,
		VarianceThreshold:   0.01,
		MinSelectedFeatures: 10,
		SelectFraction:      0.8,
		ConfidenceLevel:     0.95,
		BaselineHalfWidth:   0.2,
		Seed:                42,
	}
}

// Validate checks the trainer settings
func (c Config) Validate() error {
	switch {
	case c.NumTrees <= 0:
		return fmt.Errorf("num_trees must be positive")
	case c.MaxDepth <= 0:
		return fmt.Errorf("max_depth must be positive")
	case c.MinSamplesSplit < 2:
		return fmt.Errorf("min_samples_split must be at least 2")
	case c.MinSamplesLeaf < 1:
		return fmt.Errorf("min_samples_leaf must be at least 1")
	case c.VarianceThreshold < 0:
		return fmt.Errorf("variance_threshold must be non-negative")
	case c.MinSelectedFeatures < 1:
		return fmt.Errorf("min_selected_features must be at least 1")
	case c.SelectFraction <= 0 || c.SelectFraction > 1:
		return fmt.Errorf("select_fraction must be in (0, 1]")
	case c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1:
		return fmt.Errorf("confidence_level must be in (0, 1)")
	case c.BaselineHalfWidth < 0 || c.BaselineHalfWidth > 0.5:
		return fmt.Errorf("baseline_half_width must be in [0, 0.5]")
	}
	return nil
}

// ZScore returns the two-sided normal quantile for the confidence level (1.96 at 95%)
func (c Config) ZScore() float64 {
	return distuv.UnitNormal.Quantile(1 - (1-c.ConfidenceLevel)/2)
}

package ml

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/propedge/internal/models"
)

// syntheticRows builds rows where column 0 separates the classes and the
// remaining columns are noise.
func syntheticRows(n, width int, seed int64) []models.FeatureVector {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]models.FeatureVector, n)
	for i := range rows {
		target := i%2 == 0
		vals := make([]float64, width)
		for j := range vals {
			vals[j] = rng.Float64() * 10
		}
		if target {
			vals[0] = 5 + rng.Float64()
		} else {
			vals[0] = rng.Float64()
		}
		rows[i] = models.FeatureVector{Values: vals, Target: target, HasTarget: true, Weight: 1}
	}
	return rows
}

func liveRow(width int, signal float64) models.FeatureVector {
	vals := make([]float64, width)
	for j := range vals {
		vals[j] = 5
	}
	vals[0] = signal
	return models.FeatureVector{Values: vals}
}

func TestTrainSeparableData(t *testing.T) {
	tr := NewTrainer(DefaultConfig(), nil)
	m, err := tr.Train(syntheticRows(80, 12, 1), nil)
	require.NoError(t, err)
	assert.False(t, m.Degenerate)
	assert.Len(t, m.Features(), 10)
	assert.Contains(t, m.Features(), 0)
	assert.Len(t, m.FeatureVariance, 10)

	hi, err := m.Predict(liveRow(12, 5.5))
	require.NoError(t, err)
	lo, err := m.Predict(liveRow(12, 0.5))
	require.NoError(t, err)

	assert.Equal(t, SourceEnsemble, hi.Source)
	assert.Equal(t, 200, hi.Votes)
	assert.Greater(t, hi.Probability, 0.7)
	assert.Less(t, lo.Probability, 0.3)

	for _, p := range []Prediction{hi, lo} {
		assert.GreaterOrEqual(t, p.Probability, p.CI[0])
		assert.LessOrEqual(t, p.Probability, p.CI[1])
		assert.GreaterOrEqual(t, p.CI[0], 0.0)
		assert.LessOrEqual(t, p.CI[1], 1.0)
	}
}

func TestTrainDeterministic(t *testing.T) {
	rows := syntheticRows(60, 17, 3)
	live := liveRow(17, 3)

	a, err := NewTrainer(DefaultConfig(), nil).Train(rows, nil)
	require.NoError(t, err)
	b, err := NewTrainer(DefaultConfig(), nil).Train(rows, nil)
	require.NoError(t, err)

	pa, err := a.Predict(live)
	require.NoError(t, err)
	pb, err := b.Predict(live)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
	assert.Equal(t, a.Features(), b.Features())
}

func TestTrainDegenerateTarget(t *testing.T) {
	rows := syntheticRows(20, 5, 4)
	for i := range rows {
		rows[i].Target = true
	}
	m, err := NewTrainer(DefaultConfig(), nil).Train(rows, nil)
	require.NoError(t, err)
	assert.True(t, m.Degenerate)
	assert.Equal(t, 1.0, m.Baseline)

	p, err := m.Predict(liveRow(5, 1))
	require.NoError(t, err)
	assert.Equal(t, SourceBaseline, p.Source)
	assert.Equal(t, 1.0, p.Probability)
	assert.InDelta(t, 0.8, p.CI[0], 1e-12)
	assert.Equal(t, 1.0, p.CI[1])
}

func TestTrainNoVarianceFallsBackToBaseline(t *testing.T) {
	rows := make([]models.FeatureVector, 10)
	for i := range rows {
		rows[i] = models.FeatureVector{Values: []float64{1, 2, 3}, Target: i < 3, HasTarget: true}
	}
	m, err := NewTrainer(DefaultConfig(), nil).Train(rows, nil)
	require.NoError(t, err)
	assert.False(t, m.Degenerate)
	assert.Empty(t, m.Features())

	p, err := m.Predict(models.FeatureVector{Values: []float64{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, SourceBaseline, p.Source)
	assert.InDelta(t, 0.3, p.Probability, 1e-12)
}

func TestTrainErrors(t *testing.T) {
	tr := NewTrainer(DefaultConfig(), nil)

	_, err := tr.Train(nil, nil)
	assert.ErrorIs(t, err, ErrNoTrainingRows)

	rows := syntheticRows(10, 4, 5)
	rows[3].Values = rows[3].Values[:2]
	_, err = tr.Train(rows, nil)
	assert.ErrorIs(t, err, ErrFeatureMismatch)

	_, err = tr.Train(syntheticRows(10, 4, 5), []float64{1, 2})
	assert.ErrorIs(t, err, ErrWeightMismatch)

	weights := make([]float64, 10)
	_, err = tr.Train(syntheticRows(10, 4, 5), weights)
	assert.ErrorIs(t, err, ErrInvalidWeight)

	rows = syntheticRows(10, 4, 5)
	rows[0].HasTarget = false
	_, err = tr.Train(rows, nil)
	assert.ErrorIs(t, err, ErrMissingTarget)
}

func TestPredictWidthMismatch(t *testing.T) {
	m, err := NewTrainer(DefaultConfig(), nil).Train(syntheticRows(30, 6, 6), nil)
	require.NoError(t, err)
	_, err = m.Predict(liveRow(5, 1))
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestPredictSanitizesNaN(t *testing.T) {
	m, err := NewTrainer(DefaultConfig(), nil).Train(syntheticRows(30, 6, 7), nil)
	require.NoError(t, err)
	live := liveRow(6, math.NaN())
	p, err := m.Predict(live)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(p.Probability))
}

func TestSampleWeightsShiftPrediction(t *testing.T) {
	// Identical features, so the ensemble reduces to the weighted base rate.
	rows := make([]models.FeatureVector, 40)
	weights := make([]float64, 40)
	for i := range rows {
		rows[i] = models.FeatureVector{Values: []float64{float64(i % 2)}, Target: i < 20, HasTarget: true}
		weights[i] = 1
		if i < 20 {
			weights[i] = 4
		}
	}
	cfg := DefaultConfig()
	cfg.BalancedClassWeight = false
	cfg.VarianceThreshold = 0
	m, err := NewTrainer(cfg, nil).Train(rows, weights)
	require.NoError(t, err)

	p, err := m.Predict(models.FeatureVector{Values: []float64{0}})
	require.NoError(t, err)
	assert.Greater(t, p.Probability, 0.6)
}

func TestConfigZScore(t *testing.T) {
	assert.InDelta(t, 1.96, DefaultConfig().ZScore(), 1e-3)
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.ConfidenceLevel = 1
	assert.Error(t, cfg.Validate())
}

package value

import (
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/propedge/internal/models"
)

func TestExpectedValueMonotone(t *testing.T) {
	for _, d := range []float64{1.2, 1.909, 2.5, 6} {
		prev := math.Inf(-1)
		for p := 0.0; p <= 1.0; p += 0.01 {
			ev := ExpectedValue(p, d)
			assert.Greater(t, ev, prev, "EV not increasing in p at p=%v d=%v", p, d)
			prev = ev
		}
	}
	for _, p := range []float64{0.05, 0.3, 0.52, 0.75} {
		prev := math.Inf(-1)
		for d := 1.01; d <= 10; d += 0.05 {
			ev := ExpectedValue(p, d)
			assert.Greater(t, ev, prev, "EV not increasing in d at p=%v d=%v", p, d)
			prev = ev
		}
	}
}

func TestKellyBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10000; i++ {
		p := rng.Float64()
		d := 1 + rng.Float64()*20 + 1e-6
		k := KellyFraction(p, d)
		assert.GreaterOrEqual(t, k, 0.0)
		assert.LessOrEqual(t, k, 1.0)
		if ExpectedValue(p, d) <= 0 {
			assert.Equal(t, 0.0, k, "p=%v d=%v", p, d)
		}
	}
}

func TestEvaluateScenario(t *testing.T) {
	e := NewEngine(DefaultConfig())
	d, err := models.AmericanToDecimal(-110)
	require.NoError(t, err)

	r, err := e.EvaluateWithSamples(0.55, [2]float64{0.45, 0.65}, d, Samples{Historical: 10, Training: 7})
	require.NoError(t, err)

	assert.InDelta(t, 0.55*(d-1)-0.45, r.ExpectedValue, 1e-12)
	assert.Greater(t, r.ExpectedValue, 0.0)
	assert.InDelta(t, r.ExpectedValue/(d-1), r.KellyFraction, 1e-12)
	assert.InDelta(t, r.ExpectedValue*math.Pow(r.KellyFraction, 1.5), r.RankingScore, 1e-12)
	assert.Less(t, r.EVCI[0], r.ExpectedValue)
	assert.Greater(t, r.EVCI[1], r.ExpectedValue)
	assert.InDelta(t, 0.6*7.0/50.0+0.4*0.8, r.ConfidenceScore, 1e-12)
	assert.Equal(t, 10, r.SampleSize)
	assert.Equal(t, 7, r.TrainingSampleCount)
	assert.True(t, r.IsFinite())
}

func TestEvaluateNegativeEV(t *testing.T) {
	e := NewEngine(DefaultConfig())
	r, err := e.Evaluate(0.40, [2]float64{0.3, 0.5}, 1.909)
	require.NoError(t, err)
	assert.Less(t, r.ExpectedValue, 0.0)
	assert.Equal(t, 0.0, r.KellyFraction)
	assert.Equal(t, 0.0, r.RankingScore)
	assert.False(t, math.Signbit(r.RankingScore))
}

func TestEvaluateIdempotent(t *testing.T) {
	e := NewEngine(DefaultConfig())
	a, err := e.Evaluate(0.6123, [2]float64{0.5, 0.7}, 2.1)
	require.NoError(t, err)
	b, err := e.Evaluate(0.6123, [2]float64{0.5, 0.7}, 2.1)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEvaluateRejectsInvalidInputs(t *testing.T) {
	e := NewEngine(DefaultConfig())
	_, err := e.Evaluate(0.5, [2]float64{0.4, 0.6}, 1.0)
	assert.ErrorIs(t, err, models.ErrInvalidOdds)
	_, err = e.Evaluate(0.5, [2]float64{0.4, 0.6}, math.NaN())
	assert.ErrorIs(t, err, models.ErrInvalidOdds)
	_, err = e.Evaluate(math.NaN(), [2]float64{0.4, 0.6}, 2)
	assert.ErrorIs(t, err, models.ErrInvalidProbability)
}

func TestEvaluateOrdersInterval(t *testing.T) {
	e := NewEngine(DefaultConfig())
	r, err := e.Evaluate(1.2, [2]float64{0.9, -0.1}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Probability)
	assert.Equal(t, [2]float64{0, 0.9}, r.ProbabilityCI)
}

func TestConfidenceScore(t *testing.T) {
	e := NewEngine(DefaultConfig())
	assert.InDelta(t, 1.0, e.ConfidenceScore(80, 0, false), 1e-12)
	assert.InDelta(t, 0.0, e.ConfidenceScore(0, 1.5, false), 1e-12)
	assert.Less(t, e.ConfidenceScore(10, 0.4, false), e.ConfidenceScore(40, 0.4, false))
	assert.Less(t, e.ConfidenceScore(40, 0.6, false), e.ConfidenceScore(40, 0.2, false))
	assert.InDelta(t, 0.5*e.ConfidenceScore(40, 0.4, false), e.ConfidenceScore(40, 0.4, true), 1e-12)
}

func TestStake(t *testing.T) {
	e := NewEngine(DefaultConfig())
	bankroll := decimal.NewFromInt(1000)

	stake := e.Stake(models.PredictionResult{KellyFraction: 0.1}, bankroll)
	assert.True(t, stake.Equal(decimal.NewFromInt(25)), "got %s", stake)

	stake = e.Stake(models.PredictionResult{KellyFraction: 0.9}, bankroll)
	assert.True(t, stake.Equal(decimal.NewFromInt(50)), "got %s", stake)

	assert.True(t, e.Stake(models.PredictionResult{}, bankroll).IsZero())
	assert.True(t, e.Stake(models.PredictionResult{KellyFraction: 0.5}, decimal.Zero).IsZero())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.SampleWeight = 0.9
	assert.Error(t, cfg.Validate())
	cfg = DefaultConfig()
	cfg.KellyExponent = 0.5
	assert.Error(t, cfg.Validate())
}

package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/propedge/internal/models"
)

func TestWeighterHalfLife(t *testing.T) {
	w := NewWeighter(DefaultConfig())
	assert.InDelta(t, 1.0, w.Weight(0), 1e-12)
	assert.InDelta(t, 0.5, w.Weight(10), 1e-9)
	assert.InDelta(t, 0.25, w.Weight(20), 1e-9)
	assert.Equal(t, 1.0, w.Weight(-3))
}

func TestWeighterFloor(t *testing.T) {
	cfg := DefaultConfig()
	w := NewWeighter(cfg)
	assert.Equal(t, cfg.MinWeight, w.Weight(10000))
}

func TestWeightsNotNormalised(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	h := makeHistory(scenarioValues...)
	rows, live, err := b.Build(h, 22.5, models.DirectionOver)
	require.NoError(t, err)

	w := NewWeighter(DefaultConfig())
	weights := w.Apply(rows, live.Date)
	require.Len(t, weights, len(rows))

	sum := 0.0
	for i, wt := range weights {
		assert.Greater(t, wt, 0.0)
		assert.Equal(t, wt, rows[i].Weight)
		if i > 0 {
			assert.Greater(t, wt, weights[i-1], "newer rows weigh more")
		}
		sum += wt
	}
	assert.Greater(t, sum, 1.0)
	assert.InDelta(t, 1.0, weights[len(weights)-1], 1e-12)
}

func TestWeightsWithoutDates(t *testing.T) {
	w := NewWeighter(DefaultConfig())
	rows := make([]models.FeatureVector, 3)
	weights := w.Weights(rows, time.Time{})
	assert.InDelta(t, w.Weight(3), weights[0], 1e-12)
	assert.InDelta(t, w.Weight(1), weights[2], 1e-12)
}

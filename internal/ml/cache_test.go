package ml

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/propedge/internal/models"
)

func cacheHistory() models.History {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.History{
		{Date: start, Value: 20},
		{Date: start.AddDate(0, 0, 1), Value: 25},
	}
}

func TestCacheKeyChangesWithInputs(t *testing.T) {
	c := models.NewCandidate("p1", "points", 22.5, models.DirectionOver, -110)
	h := cacheHistory()
	base := NewCacheKey(c, h, DefaultConfig())

	assert.Equal(t, base, NewCacheKey(c, h, DefaultConfig()))

	other := c
	other.Line = 23.5
	assert.NotEqual(t, base, NewCacheKey(other, h, DefaultConfig()))

	h2 := cacheHistory()
	h2[1].Value = 26
	assert.NotEqual(t, base, NewCacheKey(c, h2, DefaultConfig()))

	cfg := DefaultConfig()
	cfg.Seed = 7
	assert.NotEqual(t, base, NewCacheKey(c, h, cfg))
	assert.NotEmpty(t, base.String())
}

func TestResultCacheGetSet(t *testing.T) {
	rc := NewResultCache(time.Hour, 10)
	defer rc.Clear()
	ctx := context.Background()

	key := NewCacheKey(models.NewCandidate("p1", "points", 22.5, models.DirectionOver, -110), cacheHistory())
	_, ok := rc.Get(ctx, key)
	assert.False(t, ok)

	rc.Set(ctx, key, models.PredictionResult{Probability: 0.55})
	got, ok := rc.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, 0.55, got.Probability)

	hits, misses, ratio := rc.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.InDelta(t, 0.5, ratio, 1e-12)
}

func TestResultCacheMaxSize(t *testing.T) {
	rc := NewResultCache(time.Hour, 1)
	ctx := context.Background()

	a := CacheKey{CandidateID: "a"}
	b := CacheKey{CandidateID: "b"}
	rc.Set(ctx, a, models.PredictionResult{})
	rc.Set(ctx, b, models.PredictionResult{})

	assert.Equal(t, 1, rc.ItemCount())
	_, ok := rc.Get(ctx, b)
	assert.False(t, ok)
}

func TestResultCacheClear(t *testing.T) {
	rc := NewResultCache(time.Hour, 10)
	ctx := context.Background()
	rc.Set(ctx, CacheKey{CandidateID: "a"}, models.PredictionResult{})
	rc.Clear()
	assert.Equal(t, 0, rc.ItemCount())
	hits, misses, _ := rc.Stats()
	assert.Zero(t, hits+misses)
}

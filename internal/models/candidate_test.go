package models

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("OVER")
	require.NoError(t, err)
	assert.Equal(t, DirectionOver, d)

	d, err = ParseDirection("under")
	require.NoError(t, err)
	assert.Equal(t, DirectionUnder, d)

	_, err = ParseDirection("Unknown")
	assert.ErrorIs(t, err, ErrInvalidCandidate)
}

func TestDirectionHit(t *testing.T) {
	assert.True(t, DirectionOver.Hit(23, 22.5))
	assert.False(t, DirectionOver.Hit(22, 22.5))
	assert.True(t, DirectionUnder.Hit(22, 22.5))
	assert.False(t, DirectionUnder.Hit(23, 22.5))
	assert.False(t, DirectionOver.Hit(22, 22))
	assert.False(t, DirectionUnder.Hit(22, 22))
}

func TestNewCandidateStableID(t *testing.T) {
	a := NewCandidate("jokic", "Points", 25.5, DirectionOver, -110)
	b := NewCandidate("jokic", "points", 25.5, DirectionOver, -110)
	c := NewCandidate("jokic", "points", 25.5, DirectionUnder, -110)

	assert.Equal(t, "points", a.Statistic)
	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestCandidateValidate(t *testing.T) {
	valid := NewCandidate("p1", "rebounds", 8.5, DirectionUnder, 120)
	assert.NoError(t, valid.Validate())

	noEntity := valid
	noEntity.EntityID = ""
	assert.ErrorIs(t, noEntity.Validate(), ErrInvalidCandidate)

	badOdds := valid
	badOdds.AmericanOdds = 10
	assert.ErrorIs(t, badOdds.Validate(), ErrInvalidOdds)

	badDir := valid
	badDir.Direction = "Sideways"
	assert.ErrorIs(t, badDir.Validate(), ErrInvalidCandidate)
}

func TestNormalizeStatistic(t *testing.T) {
	assert.Equal(t, "threes", NormalizeStatistic("Made Threes"))
	assert.Equal(t, "assists", NormalizeStatistic(" AST "))
	assert.Equal(t, "pra", NormalizeStatistic("PRA"))
}

func TestHistorySortedAndBefore(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	h := History{
		{Date: base.AddDate(0, 0, 2), Value: 3},
		{Date: base, Value: 1},
		{Date: base.AddDate(0, 0, 1), Value: 2},
	}
	assert.False(t, h.IsSorted())

	sorted := h.Sorted()
	assert.True(t, sorted.IsSorted())
	assert.Equal(t, []float64{1, 2, 3}, sorted.Values())
	assert.Equal(t, 3.0, h[0].Value, "receiver must not be reordered")

	assert.Len(t, sorted.Before(base.AddDate(0, 0, 2)), 2)
	assert.Equal(t, 3.0, sorted.Latest().Value)
}

func TestReasonFor(t *testing.T) {
	tests := []struct {
		err  error
		want SkipReason
	}{
		{fmt.Errorf("build: %w", ErrInsufficientData), SkipInsufficientData},
		{fmt.Errorf("odds: %w", ErrInvalidOdds), SkipInvalidOdds},
		{ErrNotFound, SkipHistoryUnavailable},
		{context.Canceled, SkipCancelled},
		{&SkipError{Reason: SkipFiltered, Err: errors.New("under filtered")}, SkipFiltered},
		{errors.New("boom"), SkipInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReasonFor(tt.err), tt.err.Error())
	}
	assert.Equal(t, SkipReason(""), ReasonFor(nil))
}

package features

import (
	"math"
	"time"

	"github.com/yourusername/propedge/internal/models"
)

// Weighter assigns recency-decayed sample weights
type Weighter struct {
	decay float64
	floor float64
}

// NewWeighter creates a weighter from the feature config
func NewWeighter(cfg Config) *Weighter {
	return &Weighter{decay: cfg.DecayPerDay, floor: cfg.MinWeight}
}

// Weight returns exp(-lambda*days), floored so no row is discarded
func (w *Weighter) Weight(days float64) float64 {
	if days < 0 {
		days = 0
	}
	return math.Max(w.floor, math.Exp(-w.decay*days))
}

// Weights returns one weight per row measured back from asOf. Weights are not
// normalised. Rows without a date fall back to their distance from the end of
// the slice in games.
func (w *Weighter) Weights(rows []models.FeatureVector, asOf time.Time) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		var days float64
		if asOf.IsZero() || r.Date.IsZero() {
			days = float64(len(rows) - i)
		} else {
			days = asOf.Sub(r.Date).Hours() / 24
		}
		out[i] = w.Weight(days)
	}
	return out
}

// Apply writes weights onto the rows and returns them
func (w *Weighter) Apply(rows []models.FeatureVector, asOf time.Time) []float64 {
	weights := w.Weights(rows, asOf)
	for i := range rows {
		rows[i].Weight = weights[i]
	}
	return weights
}

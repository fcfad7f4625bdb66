package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/propedge/internal/calibration"
	"github.com/yourusername/propedge/internal/logger"
	"github.com/yourusername/propedge/internal/models"
	"github.com/yourusername/propedge/internal/repository"
	"github.com/yourusername/propedge/internal/value"
)

// Recalibrator re-prices stored predictions under the current calibration
// policy without retraining. The stored raw and implied probabilities are
// reused; the interval keeps its stored width around the new point.
type Recalibrator struct {
	predictions repository.PredictionRepository
	calibrator  *calibration.Calibrator
	engine      *value.Engine
	logger      *logger.TrackingLogger
}

// NewRecalibrator creates a recalibrator
func NewRecalibrator(predictions repository.PredictionRepository, c *calibration.Calibrator, e *value.Engine, log *logrus.Logger) *Recalibrator {
	if log == nil {
		log = logger.Discard()
	}
	return &Recalibrator{
		predictions: predictions,
		calibrator:  c,
		engine:      e,
		logger:      logger.NewTrackingLogger(log),
	}
}

// Reprice returns r priced under the current policy
func (rc *Recalibrator) Reprice(r models.PredictionResult) (models.PredictionResult, error) {
	p := rc.calibrator.Calibrate(r.RawProbability, r.ImpliedProbability)
	shift := p - r.Probability
	ci := [2]float64{r.ProbabilityCI[0] + shift, r.ProbabilityCI[1] + shift}

	priced, err := rc.engine.EvaluateWithSamples(p, ci, r.DecimalOdds, value.Samples{
		Historical: r.SampleSize,
		Training:   r.TrainingSampleCount,
		Degenerate: r.Degenerate,
	})
	if err != nil {
		return models.PredictionResult{}, err
	}

	out := r
	out.Probability = priced.Probability
	out.ProbabilityCI = priced.ProbabilityCI
	out.ExpectedValue = priced.ExpectedValue
	out.EVCI = priced.EVCI
	out.KellyFraction = priced.KellyFraction
	out.RankingScore = priced.RankingScore
	out.ConfidenceScore = priced.ConfidenceScore
	out.Edge = priced.Probability - r.ImpliedProbability
	return out, nil
}

// RecalibrateRange re-prices predictions generated in [start, end] and persists
// the ones whose pricing changed. It returns the number updated.
func (rc *Recalibrator) RecalibrateRange(ctx context.Context, start, end time.Time) (int, error) {
	stored, err := rc.predictions.GetByRange(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to load predictions: %w", err)
	}

	updated := 0
	for _, r := range stored {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		repriced, err := rc.Reprice(r)
		if err != nil {
			rc.logger.LogUnresolved(r, err)
			continue
		}
		if samePricing(r, repriced) {
			continue
		}

		if err := rc.predictions.UpdatePricing(ctx, &repriced); err != nil {
			return updated, fmt.Errorf("failed to update prediction %s: %w", r.ID, err)
		}
		rc.logger.LogRecalibration(r.ID.String(), r.Probability, repriced.Probability, r.ExpectedValue, repriced.ExpectedValue)
		updated++
	}

	return updated, nil
}

func samePricing(a, b models.PredictionResult) bool {
	const eps = 1e-12
	return math.Abs(a.Probability-b.Probability) < eps &&
		math.Abs(a.ExpectedValue-b.ExpectedValue) < eps &&
		math.Abs(a.ProbabilityCI[0]-b.ProbabilityCI[0]) < eps &&
		math.Abs(a.ProbabilityCI[1]-b.ProbabilityCI[1]) < eps &&
		math.Abs(a.ConfidenceScore-b.ConfidenceScore) < eps
}

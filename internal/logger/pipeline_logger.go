package logger

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/propedge/internal/models"
)

// PipelineLogger provides dedicated logging for candidate evaluation.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// LogEvaluation logs a priced candidate.
func (pl *PipelineLogger) LogEvaluation(r models.PredictionResult, cacheHit bool, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"candidate_id":     r.CandidateID.String(),
		"entity_id":        r.EntityID,
		"statistic":        r.Statistic,
		"line":             r.Line,
		"direction":        string(r.Direction),
		"american_odds":    r.AmericanOdds,
		"raw_probability":  r.RawProbability,
		"probability":      r.Probability,
		"expected_value":   r.ExpectedValue,
		"kelly_fraction":   r.KellyFraction,
		"confidence_score": r.ConfidenceScore,
		"sample_size":      r.SampleSize,
		"cache_hit":        cacheHit,
		"duration_ms":      float64(duration.Microseconds()) / 1000,
	}).Debug("Candidate evaluated")
}

// LogSkip logs a candidate that could not be priced.
func (pl *PipelineLogger) LogSkip(c models.Candidate, reason models.SkipReason, err error) {
	entry := pl.WithFields(logrus.Fields{
		"entity_id": c.EntityID,
		"statistic": c.Statistic,
		"line":      c.Line,
		"direction": string(c.Direction),
		"reason":    string(reason),
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	if reason == models.SkipInternal {
		entry.Error("Candidate skipped")
		return
	}
	entry.Info("Candidate skipped")
}

// LogDegenerate logs a model that fell back to the empirical hit rate.
func (pl *PipelineLogger) LogDegenerate(c models.Candidate, trainingRows int, baseline float64) {
	pl.WithFields(logrus.Fields{
		"entity_id":     c.EntityID,
		"statistic":     c.Statistic,
		"line":          c.Line,
		"training_rows": trainingRows,
		"baseline":      baseline,
	}).Warn("Degenerate training target")
}

// LogBatchSummary logs the outcome of a batch run.
func (pl *PipelineLogger) LogBatchSummary(candidates, priced, skipped, positiveEV int, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"candidates":  candidates,
		"priced":      priced,
		"skipped":     skipped,
		"positive_ev": positiveEV,
		"duration_ms": duration.Milliseconds(),
	}).Info("Batch evaluation completed")
}

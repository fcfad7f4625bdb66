package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/propedge/internal/models"
)

// TrackingLogger provides the audit trail for settlement and recalibration.
type TrackingLogger struct {
	*logrus.Entry
}

// NewTrackingLogger creates a new tracking logger.
func NewTrackingLogger(baseLogger *logrus.Logger) *TrackingLogger {
	return &TrackingLogger{
		Entry: baseLogger.WithField("component", "tracking"),
	}
}

// LogSettlement logs a settled prediction.
func (tl *TrackingLogger) LogSettlement(o models.Outcome) {
	tl.WithFields(logrus.Fields{
		"prediction_id": o.PredictionID.String(),
		"entity_id":     o.EntityID,
		"statistic":     o.Statistic,
		"line":          o.Line,
		"direction":     string(o.Direction),
		"actual_value":  o.ActualValue,
		"hit":           o.Hit,
		"stake":         o.Stake.String(),
		"profit_loss":   o.ProfitLoss.String(),
	}).Info("Prediction settled")
}

// LogUnresolved logs a prediction whose result is not yet available.
func (tl *TrackingLogger) LogUnresolved(r models.PredictionResult, err error) {
	tl.WithFields(logrus.Fields{
		"prediction_id": r.ID.String(),
		"entity_id":     r.EntityID,
		"statistic":     r.Statistic,
	}).WithError(err).Debug("Prediction not yet resolvable")
}

// LogRecalibration logs a stored prediction repriced under the current policy.
func (tl *TrackingLogger) LogRecalibration(id string, oldProbability, newProbability, oldEV, newEV float64) {
	tl.WithFields(logrus.Fields{
		"prediction_id":   id,
		"old_probability": oldProbability,
		"new_probability": newProbability,
		"old_ev":          oldEV,
		"new_ev":          newEV,
	}).Debug("Prediction recalibrated")
}

// LogTrackingSummary logs totals for a settlement pass.
func (tl *TrackingLogger) LogTrackingSummary(settled, pending int, hitRate, roi float64) {
	tl.WithFields(logrus.Fields{
		"settled":  settled,
		"pending":  pending,
		"hit_rate": hitRate,
		"roi":      roi,
	}).Info("Tracking pass completed")
}

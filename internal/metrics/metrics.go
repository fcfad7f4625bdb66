// Package metrics provides the centralized Prometheus metrics registry for propedge.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	EvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propedge",
		Name:      "evaluations_total",
		Help:      "Total number of candidate evaluations by status",
	}, []string{"status"}) // priced, skipped, cached

	SkipsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propedge",
		Name:      "skips_total",
		Help:      "Total number of skipped candidates by reason",
	}, []string{"reason"})

	DegenerateModelsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "propedge",
		Name:      "degenerate_models_total",
		Help:      "Total number of evaluations priced from a degenerate model",
	})

	HistoryBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "propedge",
		Name:      "history_breaker_trips_total",
		Help:      "Total number of history store circuit breaker trips",
	})
)

// Gauge metrics
var (
	LastBatchCandidates = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "propedge",
		Name:      "last_batch_candidates",
		Help:      "Number of candidates in the last batch run",
	})
	PositiveEVCandidates = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "propedge",
		Name:      "positive_ev_candidates",
		Help:      "Number of positive EV candidates in the last batch run",
	})
	ResultCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "propedge",
		Name:      "result_cache_hit_ratio",
		Help:      "Hit ratio of the evaluation result cache",
	})
)

// Histogram metrics
var (
	EvaluationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "propedge",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of a single candidate evaluation in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	BatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "propedge",
		Name:      "batch_duration_seconds",
		Help:      "Duration of batch runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
	CalibratedProbability = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "propedge",
		Name:      "calibrated_probability",
		Help:      "Distribution of calibrated probabilities",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(EvaluationsTotal)
		registry.MustRegister(SkipsTotal)
		registry.MustRegister(DegenerateModelsTotal)
		registry.MustRegister(HistoryBreakerTripsTotal)

		registry.MustRegister(LastBatchCandidates)
		registry.MustRegister(PositiveEVCandidates)
		registry.MustRegister(ResultCacheHitRatio)

		registry.MustRegister(EvaluationDuration)
		registry.MustRegister(BatchDuration)
		registry.MustRegister(CalibratedProbability)

		registry.MustRegister(SettlementsTotal)
		registry.MustRegister(TrackedProfitLoss)
		registry.MustRegister(TrackedHitRate)
		registry.MustRegister(TrackedBrierScore)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler. It also exposes collectors
// registered on the default registry, such as the model trainer's.
func Handler() http.Handler {
	return promhttp.HandlerFor(
		prometheus.Gatherers{GetRegistry(), prometheus.DefaultGatherer},
		promhttp.HandlerOpts{},
	)
}

// RecordEvaluation records a priced candidate.
func RecordEvaluation(durationSeconds, probability float64, cached, degenerate bool) {
	status := "priced"
	if cached {
		status = "cached"
	}
	EvaluationsTotal.WithLabelValues(status).Inc()
	EvaluationDuration.Observe(durationSeconds)
	CalibratedProbability.Observe(probability)
	if degenerate {
		DegenerateModelsTotal.Inc()
	}
}

// RecordSkip records a skipped candidate.
func RecordSkip(reason string) {
	EvaluationsTotal.WithLabelValues("skipped").Inc()
	SkipsTotal.WithLabelValues(reason).Inc()
}

// RecordBatch records a finished batch run.
func RecordBatch(durationSeconds float64, candidates, positiveEV int) {
	BatchDuration.Observe(durationSeconds)
	LastBatchCandidates.Set(float64(candidates))
	PositiveEVCandidates.Set(float64(positiveEV))
}

// RecordBreakerTrip records the history breaker opening.
func RecordBreakerTrip() {
	HistoryBreakerTripsTotal.Inc()
}

// UpdateCacheHitRatio updates the result cache hit ratio gauge.
func UpdateCacheHitRatio(ratio float64) {
	ResultCacheHitRatio.Set(ratio)
}

package ml

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MLTrainingTotal tracks trained models by prediction source
	MLTrainingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propedge_ml_training_total",
			Help: "Total number of per-entity models trained",
		},
		[]string{"mode"}, // ensemble, baseline
	)

	// MLTrainingDuration tracks model training latency
	MLTrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "propedge_ml_training_duration_seconds",
			Help:    "Per-entity model training latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// MLDegenerateTotal tracks single-class training targets
	MLDegenerateTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "propedge_ml_degenerate_targets_total",
			Help: "Total number of trainings with a single-class target",
		},
	)

	// MLCacheHitRatio tracks result cache hit ratio
	MLCacheHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "propedge_ml_result_cache_hit_ratio",
			Help: "Evaluation result cache hit ratio",
		},
	)
)

func recordTraining(m *ModelArtifact, elapsed time.Duration) {
	mode := SourceEnsemble
	if m.forest == nil {
		mode = SourceBaseline
	}
	MLTrainingTotal.WithLabelValues(mode).Inc()
	MLTrainingDuration.Observe(elapsed.Seconds())
	if m.Degenerate {
		MLDegenerateTotal.Inc()
	}
}

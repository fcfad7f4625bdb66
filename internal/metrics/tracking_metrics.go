package metrics

import "github.com/prometheus/client_golang/prometheus"

// Tracking counter vectors
var (
	SettlementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "propedge",
		Name:      "settlements_total",
		Help:      "Total number of settled predictions by result",
	}, []string{"result"}) // hit, miss
)

// Tracking gauges
var (
	TrackedProfitLoss = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "propedge",
		Name:      "tracked_profit_loss",
		Help:      "Cumulative flat-stake profit and loss of tracked predictions",
	})
	TrackedHitRate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "propedge",
		Name:      "tracked_hit_rate",
		Help:      "Hit rate of tracked predictions by statistic",
	}, []string{"statistic"})
	TrackedBrierScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "propedge",
		Name:      "tracked_brier_score",
		Help:      "Brier score of tracked predictions",
	})
)

// RecordSettlement records a settled prediction.
func RecordSettlement(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	SettlementsTotal.WithLabelValues(result).Inc()
}

// UpdateTrackingSummary updates the tracking gauges.
func UpdateTrackingSummary(profitLoss, brier float64, hitRateByStatistic map[string]float64) {
	TrackedProfitLoss.Set(profitLoss)
	TrackedBrierScore.Set(brier)
	for stat, rate := range hitRateByStatistic {
		TrackedHitRate.WithLabelValues(stat).Set(rate)
	}
}

package backtest

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/propedge/internal/models"
)

// CalibrationBucketWidth is the width of each predicted-probability bucket
const CalibrationBucketWidth = 0.1

// Breakdown summarises outcomes sharing a key (statistic or day)
type Breakdown struct {
	Key        string  `json:"key"`
	Bets       int     `json:"bets"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	HitRate    float64 `json:"hit_rate"`
	ProfitLoss float64 `json:"profit_loss"`
	ROI        float64 `json:"roi"`
}

// CalibrationBucket compares predicted and realised hit rates for
// predictions whose probability fell in [Lower, Upper)
type CalibrationBucket struct {
	Lower         float64 `json:"lower"`
	Upper         float64 `json:"upper"`
	Count         int     `json:"count"`
	MeanPredicted float64 `json:"mean_predicted"`
	HitRate       float64 `json:"hit_rate"`
}

// Gap returns realised minus predicted hit rate
func (b CalibrationBucket) Gap() float64 {
	return b.HitRate - b.MeanPredicted
}

// Metrics represents tracked performance over a set of outcomes
type Metrics struct {
	TotalBets       int       `json:"total_bets"`
	Wins            int       `json:"wins"`
	Losses          int       `json:"losses"`
	HitRate         float64   `json:"hit_rate"`
	TotalStaked     float64   `json:"total_staked"`
	TotalProfitLoss float64   `json:"total_profit_loss"`
	ROI             float64   `json:"roi"`
	ProfitFactor    float64   `json:"profit_factor"`
	AverageWin      float64   `json:"average_win"`
	AverageLoss     float64   `json:"average_loss"`
	LargestWin      float64   `json:"largest_win"`
	LargestLoss     float64   `json:"largest_loss"`
	Expectancy      float64   `json:"expectancy"`
	// MaxDrawdown is the largest peak-to-trough fall of cumulative profit, in stake currency.
	MaxDrawdown float64 `json:"max_drawdown"`
	// BrierScore is the mean squared error of probability against hit.
	BrierScore  float64             `json:"brier_score"`
	Calibration []CalibrationBucket `json:"calibration"`
	ByStatistic []Breakdown         `json:"by_statistic"`
	ByDay       []Breakdown         `json:"by_day"`
	StartDate   time.Time           `json:"start_date"`
	EndDate     time.Time           `json:"end_date"`
}

// ToJSON exports metrics to JSON
func (m Metrics) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

// CalculateMetrics calculates metrics from settled outcomes
func CalculateMetrics(outcomes []models.Outcome) Metrics {
	metrics := Metrics{}
	if len(outcomes) == 0 {
		return metrics
	}

	ordered := sortOutcomes(outcomes)
	metrics.StartDate = ordered[0].GameDate
	metrics.EndDate = ordered[len(ordered)-1].GameDate
	metrics.TotalBets = len(ordered)

	staked, net := decimal.Zero, decimal.Zero
	brier := 0.0
	for _, o := range ordered {
		staked = staked.Add(o.Stake)
		net = net.Add(o.ProfitLoss)
		if o.Hit {
			metrics.Wins++
		}
		brier += math.Pow(o.Probability-boolToFloat(o.Hit), 2)
	}
	metrics.Losses = metrics.TotalBets - metrics.Wins
	metrics.HitRate = float64(metrics.Wins) / float64(metrics.TotalBets)
	metrics.TotalStaked = staked.InexactFloat64()
	metrics.TotalProfitLoss = net.InexactFloat64()
	if staked.IsPositive() {
		metrics.ROI = net.Div(staked).InexactFloat64()
	}
	metrics.BrierScore = brier / float64(metrics.TotalBets)

	metrics.AverageWin, metrics.AverageLoss, metrics.LargestWin, metrics.LargestLoss = calculateBetStats(ordered)
	metrics.ProfitFactor = calculateProfitFactor(ordered)
	metrics.Expectancy = metrics.TotalProfitLoss / float64(metrics.TotalBets)
	metrics.MaxDrawdown = calculateMaxDrawdown(ordered)

	metrics.Calibration = calibrationBuckets(ordered)
	metrics.ByStatistic = breakdown(ordered, func(o models.Outcome) string { return o.Statistic })
	metrics.ByDay = breakdown(ordered, func(o models.Outcome) string { return o.GameDate.UTC().Format("2006-01-02") })
	return metrics
}

func sortOutcomes(outcomes []models.Outcome) []models.Outcome {
	ordered := append([]models.Outcome(nil), outcomes...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].GameDate.Before(ordered[j].GameDate)
	})
	return ordered
}

func calculateMaxDrawdown(ordered []models.Outcome) float64 {
	maxDD := 0.0
	peak := 0.0
	cumulative := 0.0
	for _, o := range ordered {
		cumulative += o.ProfitLoss.InexactFloat64()
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func calculateProfitFactor(outcomes []models.Outcome) float64 {
	grossProfit := 0.0
	grossLoss := 0.0
	for _, o := range outcomes {
		pl := o.ProfitLoss.InexactFloat64()
		if pl > 0 {
			grossProfit += pl
		} else {
			grossLoss += math.Abs(pl)
		}
	}
	if grossLoss == 0 {
		if grossProfit > 0 {
			return 999
		}
		return 0
	}
	return grossProfit / grossLoss
}

func calculateBetStats(outcomes []models.Outcome) (avgWin, avgLoss, largestWin, largestLoss float64) {
	wins, losses := 0, 0
	winSum, lossSum := 0.0, 0.0
	for _, o := range outcomes {
		pl := o.ProfitLoss.InexactFloat64()
		if pl > 0 {
			wins++
			winSum += pl
			largestWin = math.Max(largestWin, pl)
		} else if pl < 0 {
			losses++
			lossSum += pl
			largestLoss = math.Min(largestLoss, pl)
		}
	}
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}
	return avgWin, avgLoss, largestWin, largestLoss
}

func calibrationBuckets(outcomes []models.Outcome) []CalibrationBucket {
	n := int(math.Round(1 / CalibrationBucketWidth))
	sums := make([]float64, n)
	hits := make([]int, n)
	counts := make([]int, n)
	for _, o := range outcomes {
		i := int(o.Probability / CalibrationBucketWidth)
		if i >= n {
			i = n - 1
		}
		if i < 0 {
			i = 0
		}
		counts[i]++
		sums[i] += o.Probability
		if o.Hit {
			hits[i]++
		}
	}

	buckets := make([]CalibrationBucket, 0, n)
	for i := 0; i < n; i++ {
		if counts[i] == 0 {
			continue
		}
		buckets = append(buckets, CalibrationBucket{
			Lower:         float64(i) * CalibrationBucketWidth,
			Upper:         float64(i+1) * CalibrationBucketWidth,
			Count:         counts[i],
			MeanPredicted: sums[i] / float64(counts[i]),
			HitRate:       float64(hits[i]) / float64(counts[i]),
		})
	}
	return buckets
}

func breakdown(outcomes []models.Outcome, key func(models.Outcome) string) []Breakdown {
	index := map[string]int{}
	var out []Breakdown
	staked := map[string]decimal.Decimal{}
	profit := map[string]decimal.Decimal{}

	for _, o := range outcomes {
		k := key(o)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Breakdown{Key: k})
		}
		out[i].Bets++
		if o.Hit {
			out[i].Wins++
		} else {
			out[i].Losses++
		}
		staked[k] = staked[k].Add(o.Stake)
		profit[k] = profit[k].Add(o.ProfitLoss)
	}

	for i := range out {
		k := out[i].Key
		out[i].HitRate = float64(out[i].Wins) / float64(out[i].Bets)
		out[i].ProfitLoss = profit[k].InexactFloat64()
		if staked[k].IsPositive() {
			out[i].ROI = profit[k].Div(staked[k]).InexactFloat64()
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

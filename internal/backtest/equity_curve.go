package backtest

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/propedge/internal/models"
)

// EquityPoint represents the bankroll at the close of a game day
type EquityPoint struct {
	Time     time.Time `json:"time"`
	Value    float64   `json:"value"`
	Drawdown float64   `json:"drawdown"`
	DailyPnL float64   `json:"daily_pnl"`
}

// EquityCurve represents a time-series of equity points
type EquityCurve []EquityPoint

// BuildEquityCurve replays outcomes in game-date order from a starting
// bankroll, one point per game day. Drawdown is a fraction of the running peak.
func BuildEquityCurve(outcomes []models.Outcome, bankroll decimal.Decimal) EquityCurve {
	if len(outcomes) == 0 {
		return EquityCurve{}
	}

	curve := EquityCurve{}
	value := bankroll
	peak := bankroll.InexactFloat64()
	day := decimal.Zero
	for i, o := range sortOutcomes(outcomes) {
		date := o.GameDate.UTC().Truncate(24 * time.Hour)
		if i > 0 && !date.Equal(curve[len(curve)-1].Time) {
			day = decimal.Zero
		}
		value = value.Add(o.ProfitLoss)
		day = day.Add(o.ProfitLoss)

		v := value.InexactFloat64()
		peak = math.Max(peak, v)
		point := EquityPoint{Time: date, Value: v, DailyPnL: day.InexactFloat64()}
		if peak > 0 {
			point.Drawdown = (peak - v) / peak
		}

		if len(curve) > 0 && curve[len(curve)-1].Time.Equal(date) {
			curve[len(curve)-1] = point
		} else {
			curve = append(curve, point)
		}
	}
	return curve
}

// MaxDrawdown returns the largest fractional drawdown on the curve
func (e EquityCurve) MaxDrawdown() float64 {
	maxDD := 0.0
	for _, p := range e {
		maxDD = math.Max(maxDD, p.Drawdown)
	}
	return maxDD
}

// GetReturns calculates periodic returns from equity curve
func (e EquityCurve) GetReturns() []float64 {
	if len(e) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(e)-1)
	for i := 1; i < len(e); i++ {
		prev := e[i-1].Value
		curr := e[i].Value
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (curr-prev)/prev)
	}
	return returns
}

// GetVolatility calculates the population standard deviation of returns
func (e EquityCurve) GetVolatility() float64 {
	returns := e.GetReturns()
	if len(returns) == 0 {
		return 0
	}
	return math.Sqrt(stat.PopVariance(returns, nil))
}

// ToCSV exports equity curve to CSV string
func (e EquityCurve) ToCSV() string {
	var buf bytes.Buffer
	buf.WriteString("time,value,drawdown,daily_pnl\n")
	for _, point := range e {
		buf.WriteString(point.Time.Format("2006-01-02"))
		buf.WriteString(",")
		buf.WriteString(formatFloat(point.Value))
		buf.WriteString(",")
		buf.WriteString(formatFloat(point.Drawdown))
		buf.WriteString(",")
		buf.WriteString(formatFloat(point.DailyPnL))
		buf.WriteString("\n")
	}
	return buf.String()
}

// ToJSON exports equity curve to JSON string
func (e EquityCurve) ToJSON() string {
	data, _ := json.Marshal(e)
	return string(data)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

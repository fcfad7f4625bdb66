package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// GenerateConsoleReport formats metrics for terminal output
func GenerateConsoleReport(title string, m Metrics) string {
	var builder strings.Builder
	builder.WriteString(title + "\n")
	builder.WriteString(strings.Repeat("=", len(title)) + "\n")
	if m.TotalBets == 0 {
		builder.WriteString("No settled predictions\n")
		return builder.String()
	}

	builder.WriteString(fmt.Sprintf("Period: %s to %s\n", m.StartDate.Format("2006-01-02"), m.EndDate.Format("2006-01-02")))
	builder.WriteString(fmt.Sprintf("Bets: %d (%d won, %d lost)\n", m.TotalBets, m.Wins, m.Losses))
	builder.WriteString(fmt.Sprintf("Hit Rate: %.1f%%\n", m.HitRate*100))
	builder.WriteString(fmt.Sprintf("Profit/Loss: %.2f\n", m.TotalProfitLoss))
	builder.WriteString(fmt.Sprintf("ROI: %.1f%%\n", m.ROI*100))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f\n", m.MaxDrawdown))
	builder.WriteString(fmt.Sprintf("Profit Factor: %.2f\n", m.ProfitFactor))
	builder.WriteString(fmt.Sprintf("Brier Score: %.4f\n", m.BrierScore))

	if len(m.Calibration) > 0 {
		builder.WriteString("\nCalibration\n")
		for _, b := range m.Calibration {
			builder.WriteString(fmt.Sprintf("  %.1f-%.1f  n=%-4d predicted %.3f  realised %.3f\n",
				b.Lower, b.Upper, b.Count, b.MeanPredicted, b.HitRate))
		}
	}
	if len(m.ByStatistic) > 0 {
		builder.WriteString("\nBy Statistic\n")
		for _, s := range m.ByStatistic {
			builder.WriteString(fmt.Sprintf("  %-10s bets=%-4d hit %.1f%%  p/l %.2f  roi %.1f%%\n",
				s.Key, s.Bets, s.HitRate*100, s.ProfitLoss, s.ROI*100))
		}
	}
	return builder.String()
}

// WriteBreakdownCSV writes per-day cumulative profit, the series the
// performance dashboard plots
func WriteBreakdownCSV(w io.Writer, m Metrics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "bets", "wins", "profit_loss", "cumulative"}); err != nil {
		return err
	}
	cumulative := 0.0
	for _, d := range m.ByDay {
		cumulative += d.ProfitLoss
		row := []string{
			d.Key,
			fmt.Sprintf("%d", d.Bets),
			fmt.Sprintf("%d", d.Wins),
			fmt.Sprintf("%.2f", d.ProfitLoss),
			fmt.Sprintf("%.2f", cumulative),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportJSON writes metrics as JSON to outputPath, creating parent directories
func ExportJSON(m Metrics, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte(m.ToJSON()), 0o644)
}

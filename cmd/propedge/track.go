package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/propedge/internal/backtest"
	"github.com/yourusername/propedge/internal/logger"
	"github.com/yourusername/propedge/internal/models"
	"github.com/yourusername/propedge/internal/pipeline"
)

const dateLayout = "2006-01-02"

var (
	trackFrom     string
	trackTo       string
	trackJSONPath string
	trackCSVPath  string
	simulateRuns  int
	simulateSeed  int64
	replayEntity  string
	replayStat    string
	replayDir     string
	replayOdds    string
	replayLine    float64
	replayHistory string
	replayJSON    bool
)

func init() {
	for _, c := range []*cobra.Command{recalibrateCmd, reportCmd, simulateCmd} {
		c.Flags().StringVar(&trackFrom, "from", "", "Start date (YYYY-MM-DD); defaults to 30 days ago")
		c.Flags().StringVar(&trackTo, "to", "", "End date (YYYY-MM-DD); defaults to today")
	}
	reportCmd.Flags().StringVar(&trackJSONPath, "json", "", "Write metrics as JSON to this path")
	reportCmd.Flags().StringVar(&trackCSVPath, "csv", "", "Write the daily breakdown as CSV to this path")

	simulateCmd.Flags().IntVar(&simulateRuns, "runs", 0, "Simulation runs; the configured count is used when zero")
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", 1, "Random seed")

	f := replayCmd.Flags()
	f.StringVar(&replayEntity, "entity", "", "Player or entity ID")
	f.StringVar(&replayStat, "stat", "points", "Statistic")
	f.StringVar(&replayDir, "direction", "Over", "Over or Under")
	f.StringVar(&replayOdds, "odds", "-110", "American odds assumed for every replayed game")
	f.Float64Var(&replayLine, "line", 0, "Fixed line; the trailing ten-game mean is used when zero")
	f.StringVar(&replayHistory, "history", "", "Game log CSV; the store is used when empty")
	f.BoolVar(&replayJSON, "json", false, "Print the full replay as JSON")
	_ = replayCmd.MarkFlagRequired("entity")

	trackCmd.AddCommand(settleCmd, recalibrateCmd, reportCmd, simulateCmd, replayCmd)
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Settle, recalibrate and report on saved predictions",
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Settle saved predictions against recorded results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.close()

		report, err := settle(ctx, st)
		if err != nil {
			return err
		}
		fmt.Printf("Settled %d predictions, %d pending, hit rate %.1f%%, ROI %.2f%%\n",
			len(report.Outcomes), report.Pending, report.HitRate()*100, report.ROI()*100)
		return nil
	},
}

// settle runs one settlement pass over the store
func settle(ctx context.Context, st *store) (*backtest.SettlementReport, error) {
	tc, err := backtest.FromConfig(&cfg.Tracking)
	if err != nil {
		return nil, err
	}
	settler, err := backtest.NewSettler(st.repos, tc, appLog)
	if err != nil {
		return nil, err
	}
	return settler.SettlePending(ctx, time.Now().UTC())
}

var recalibrateCmd = &cobra.Command{
	Use:   "recalibrate",
	Short: "Re-price saved predictions with the current calibration policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start, end, err := dateRange()
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.close()

		evaluator, err := newEvaluator()
		if err != nil {
			return err
		}
		rc := pipeline.NewRecalibrator(st.repos.Prediction, evaluator.Calibrator(), evaluator.Engine(), appLog)
		updated, err := rc.RecalibrateRange(ctx, start, end)
		if err != nil {
			return err
		}
		fmt.Printf("Recalibrated %d predictions between %s and %s\n",
			updated, start.Format(dateLayout), end.Format(dateLayout))
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report performance of settled predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start, end, err := dateRange()
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.close()

		tc, err := backtest.FromConfig(&cfg.Tracking)
		if err != nil {
			return err
		}
		settler, err := backtest.NewSettler(st.repos, tc, appLog)
		if err != nil {
			return err
		}
		m, err := settler.Performance(ctx, start, end)
		if err != nil {
			return err
		}

		title := fmt.Sprintf("Performance %s to %s", start.Format(dateLayout), end.Format(dateLayout))
		fmt.Print(backtest.GenerateConsoleReport(title, m))

		if trackJSONPath != "" {
			if err := backtest.ExportJSON(m, trackJSONPath); err != nil {
				return err
			}
		}
		if trackCSVPath != "" {
			f, err := os.Create(trackCSVPath)
			if err != nil {
				return fmt.Errorf("failed to create breakdown file: %w", err)
			}
			defer f.Close()
			if err := backtest.WriteBreakdownCSV(f, m); err != nil {
				return err
			}
		}
		return nil
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Monte carlo the bankroll over saved positive-EV predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start, end, err := dateRange()
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.close()

		results, err := st.repos.Prediction.GetByRange(ctx, start, end)
		if err != nil {
			return err
		}

		runs := simulateRuns
		if runs <= 0 {
			runs = cfg.Tracking.SimulationRuns
		}
		res, err := backtest.RunMonteCarlo(ctx, results, backtest.MonteCarloConfig{
			Iterations:       runs,
			Seed:             simulateSeed,
			Bankroll:         cfg.Tracking.Bankroll,
			FractionalKelly:  cfg.Value.FractionalKelly,
			MaxStakeFraction: cfg.Value.MaxStakeFraction,
		})
		if err != nil {
			return err
		}

		appLog.WithFields(logrus.Fields{
			"predictions": len(results),
			"bets":        res.Bets,
			"iterations":  res.Iterations,
		}).Info("Simulation complete")

		fmt.Printf("Bets per run:        %d\n", res.Bets)
		fmt.Printf("Mean return:         %.2f%%\n", res.MeanReturn*100)
		fmt.Printf("Std dev:             %.2f%%\n", res.StdReturn*100)
		fmt.Printf("VaR 95 / 99:         %.2f%% / %.2f%%\n", res.VaR95*100, res.VaR99*100)
		fmt.Printf("P(profit):           %.1f%%\n", res.ProbabilityOfProfit*100)
		fmt.Printf("P(ruin):             %.1f%%\n", res.ProbabilityOfRuin*100)
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Walk forward through one player's history pricing each game from the ones before it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dir, err := models.ParseDirection(replayDir)
		if err != nil {
			return err
		}
		odds, err := models.ParseAmericanOdds(replayOdds)
		if err != nil {
			return err
		}

		c := models.NewCandidate(replayEntity, replayStat, 0, dir, odds)
		var loader pipeline.HistoryLoader
		if replayHistory != "" {
			if loader, err = loadHistoryFile(replayHistory); err != nil {
				return err
			}
		} else {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.close()
			loader = newRepositoryLoader(st.repos)
		}
		history, err := loader.Load(ctx, c)
		if err != nil {
			return fmt.Errorf("failed to load history for %s: %w", c, err)
		}

		evaluator, err := newEvaluator()
		if err != nil {
			return err
		}

		wf := backtest.WalkForwardConfig{
			EntityID:     c.EntityID,
			Statistic:    c.Statistic,
			Direction:    dir,
			AmericanOdds: odds,
			Stake:        decimal.NewFromFloat(cfg.Tracking.Stake),
		}
		if replayLine > 0 {
			wf.Line = backtest.FixedLine(replayLine)
		}

		res, err := backtest.RunWalkForward(ctx, evaluator, history, wf)
		if err != nil {
			return err
		}

		trackLog := logger.NewTrackingLogger(appLog)
		trackLog.LogTrackingSummary(len(res.Outcomes), res.Skipped, res.Metrics.HitRate, res.Metrics.ROI)

		if replayJSON {
			fmt.Println(res.ToJSON())
			return nil
		}
		fmt.Print(backtest.GenerateConsoleReport("Replay: every game", res.Metrics))
		fmt.Print(backtest.GenerateConsoleReport("Replay: positive EV only", res.Selected))
		fmt.Printf("Consistency: %.1f%% of betting days profitable, %d games skipped\n",
			res.ConsistencyScore()*100, res.Skipped)
		return nil
	},
}

// dateRange parses --from and --to as UTC days, ending at the close of the last day
func dateRange() (time.Time, time.Time, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	start, end := today.AddDate(0, 0, -30), today

	if trackFrom != "" {
		t, err := time.Parse(dateLayout, trackFrom)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date: %w", err)
		}
		start = t
	}
	if trackTo != "" {
		t, err := time.Parse(dateLayout, trackTo)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to date: %w", err)
		}
		end = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", end.Format(dateLayout), start.Format(dateLayout))
	}
	return start, end.Add(24*time.Hour - time.Nanosecond), nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/propedge/internal/datasource"
	"github.com/yourusername/propedge/internal/pipeline"
)

var (
	batchOddsFile string
	batchHistory  string
	batchSave     bool
	batchJSON     bool
)

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchOddsFile, "odds-file", "", "Odds file (.json or .csv); the configured feed is used when empty")
	f.StringVar(&batchHistory, "history", "", "Game log CSV; the store is used when empty")
	f.BoolVar(&batchSave, "save", false, "Persist priced results for tracking")
	f.BoolVar(&batchJSON, "json", false, "Print results as JSON")
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Price every candidate from an odds file or feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.close()

		var loader pipeline.HistoryLoader = newRepositoryLoader(st.repos)
		if batchHistory != "" {
			if loader, err = loadHistoryFile(batchHistory); err != nil {
				return err
			}
		}
		evaluator, err := newEvaluator()
		if err != nil {
			return err
		}

		report, err := runBatchPass(ctx, st, evaluator, loader, batchOddsFile, batchSave)
		if report != nil {
			if printErr := printReport(report); printErr != nil {
				return printErr
			}
		}
		return err
	},
}

// runBatchPass fetches candidates, prices them and optionally persists the results
func runBatchPass(ctx context.Context, st *store, evaluator *pipeline.Evaluator, loader pipeline.HistoryLoader, oddsFile string, save bool) (*pipeline.Report, error) {
	source, err := datasource.NewFactory(cfg, appLog).NewCandidateSource(oddsFile)
	if err != nil {
		return nil, err
	}
	candidates, err := source.FetchCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates from %s: %w", source.Name(), err)
	}

	report, runErr := pipeline.NewBatch(evaluator, loader, batchOptions(), appLog).RunCandidates(ctx, candidates)
	if save && report != nil && len(report.Results) > 0 {
		if err := st.repos.Prediction.SaveBatch(ctx, report.Results); err != nil {
			return report, fmt.Errorf("failed to save predictions: %w", err)
		}
		appLog.WithField("saved", len(report.Results)).Info("Predictions saved")
	}
	return report, runErr
}

func printReport(report *pipeline.Report) error {
	if batchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report.Results)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tSTAT\tSIDE\tLINE\tODDS\tPROB\tEDGE\tEV\tKELLY\tCONF")
	for _, r := range report.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%+d\t%.3f\t%+.3f\t%+.3f\t%.3f\t%.2f\n",
			r.EntityID, r.Statistic, r.Direction, r.Line, r.AmericanOdds,
			r.Probability, r.Edge, r.ExpectedValue, r.KellyFraction, r.ConfidenceScore)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d candidates, %d priced, %d positive EV, %d skipped in %s\n",
		report.Candidates, len(report.Results), report.PositiveEV(), len(report.Skips), report.Duration.Round(1e6))
	for reason, n := range report.SkipsByReason() {
		fmt.Printf("  skipped %-20s %d\n", reason, n)
	}
	return nil
}

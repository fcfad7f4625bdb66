package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yourusername/propedge/internal/datasource"
	"github.com/yourusername/propedge/internal/models"
	"github.com/yourusername/propedge/internal/pipeline"
)

var (
	evalEntity    string
	evalStatistic string
	evalLine      float64
	evalDirection string
	evalOdds      string
	evalHistory   string
	evalSave      bool
)

func init() {
	f := evaluateCmd.Flags()
	f.StringVar(&evalEntity, "entity", "", "Player or entity ID")
	f.StringVar(&evalStatistic, "stat", "points", "Statistic (points, rebounds, assists, threes, ...)")
	f.Float64Var(&evalLine, "line", 0, "Quoted line")
	f.StringVar(&evalDirection, "direction", "Over", "Over or Under")
	f.StringVar(&evalOdds, "odds", "-110", "American odds, e.g. -110 or +150")
	f.StringVar(&evalHistory, "history", "", "Game log CSV; the store is used when empty")
	f.BoolVar(&evalSave, "save", false, "Persist the priced result")
	_ = evaluateCmd.MarkFlagRequired("entity")
	_ = evaluateCmd.MarkFlagRequired("line")
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Price a single candidate",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEvaluate(cmd.Context())
	},
}

func runEvaluate(ctx context.Context) error {
	dir, err := models.ParseDirection(evalDirection)
	if err != nil {
		return err
	}
	odds, err := models.ParseAmericanOdds(evalOdds)
	if err != nil {
		return err
	}
	c := models.NewCandidate(evalEntity, evalStatistic, evalLine, dir, odds)

	evaluator, err := newEvaluator()
	if err != nil {
		return err
	}

	var st *store
	if evalHistory == "" || evalSave {
		if st, err = openStore(ctx); err != nil {
			return err
		}
		defer st.close()
	}

	var loader pipeline.HistoryLoader
	if evalHistory != "" {
		if loader, err = loadHistoryFile(evalHistory); err != nil {
			return err
		}
	} else {
		loader = newRepositoryLoader(st.repos)
	}

	history, err := loader.Load(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to load history for %s: %w", c, err)
	}

	r, err := evaluator.Evaluate(ctx, c, history)
	if err != nil {
		return fmt.Errorf("failed to price %s (%s): %w", c, models.ReasonFor(err), err)
	}

	if evalSave {
		if err := st.repos.Prediction.Save(ctx, &r); err != nil {
			return fmt.Errorf("failed to save prediction: %w", err)
		}
	}

	stake := evaluator.Engine().Stake(r, decimal.NewFromFloat(cfg.Tracking.Bankroll))
	out := struct {
		models.PredictionResult
		SuggestedStake string `json:"suggested_stake"`
	}{r, stake.StringFixed(2)}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// loadHistoryFile reads a game log CSV into an in-memory loader
func loadHistoryFile(path string) (pipeline.StaticLoader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	series, err := datasource.ParseObservationsCSV(f)
	if err != nil {
		return nil, err
	}
	loader := make(pipeline.StaticLoader, len(series))
	for key, h := range series {
		loader[pipeline.StaticKey(key.EntityID, key.Statistic)] = h
	}
	return loader, nil
}

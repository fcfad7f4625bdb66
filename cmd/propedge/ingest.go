package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/propedge/internal/datasource"
)

var ingestFile string

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "Game log CSV (player, statistic, date, value)")
	_ = ingestCmd.MarkFlagRequired("file")
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load game logs into the history store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(ingestFile)
		if err != nil {
			return fmt.Errorf("failed to open game log: %w", err)
		}
		defer f.Close()

		series, err := datasource.ParseObservationsCSV(f)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.close()

		total := 0
		for key, h := range series {
			if err := st.repos.History.UpsertObservations(ctx, key.EntityID, key.Statistic, h); err != nil {
				return fmt.Errorf("failed to store %s %s: %w", key.EntityID, key.Statistic, err)
			}
			total += len(h)
		}

		appLog.WithFields(logrus.Fields{
			"series":       len(series),
			"observations": total,
		}).Info("Game logs ingested")
		fmt.Printf("Ingested %d observations across %d series\n", total, len(series))
		return nil
	},
}

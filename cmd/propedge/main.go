// Package main provides the propedge command line: pricing, batch runs,
// history ingestion, outcome tracking and the scheduler.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/propedge/internal/config"
	"github.com/yourusername/propedge/internal/database"
	"github.com/yourusername/propedge/internal/logger"
	"github.com/yourusername/propedge/internal/ml"
	"github.com/yourusername/propedge/internal/pipeline"
	"github.com/yourusername/propedge/internal/repository"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	logLevel   string
	appLog     *logrus.Logger
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(evaluateCmd, batchCmd, ingestCmd, trackCmd, scheduleCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:           "propedge",
	Short:         "Price player prop candidates and track how they settle",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog = logger.NewLoggerWithFormat(cfg.App.LogLevel, cfg.App.LogFormat)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"storage":     cfg.Storage.Driver,
	}).Debug("Configuration loaded")
	return nil
}

// store is an open persistence backend
type store struct {
	repos  *repository.Repositories
	pinger interface{ Ping(context.Context) error }
	close  func()
}

// openStore opens the configured storage driver
func openStore(ctx context.Context) (*store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := database.NewDB(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
		repos, err := repository.NewPostgresRepositories(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		appLog.WithField("host", cfg.Database.Host).Info("Database connection established")
		return &store{repos: repos, pinger: db, close: db.Close}, nil

	default:
		db, err := database.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		repos, err := repository.NewSQLiteRepositories(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		appLog.WithField("path", cfg.Storage.SQLitePath).Debug("SQLite store opened")
		return &store{repos: repos, pinger: db, close: func() {
			if err := db.Close(); err != nil {
				appLog.WithError(err).Warn("Failed to close sqlite store")
			}
		}}, nil
	}
}

// newEvaluator builds the pricing chain from configuration
func newEvaluator() (*pipeline.Evaluator, error) {
	settings := pipeline.Settings{
		Features:    cfg.ToFeatures(),
		Model:       cfg.ToModel(),
		Calibration: cfg.ToCalibration(),
		Value:       cfg.ToValue(),
	}

	opts := []pipeline.Option{pipeline.WithLogger(appLog)}
	if cfg.Batch.CacheEnabled {
		opts = append(opts, pipeline.WithCache(ml.NewResultCache(cfg.CacheTTL(), cfg.Batch.CacheMaxSize)))
	}
	return pipeline.NewEvaluator(settings, opts...)
}

// newRepositoryLoader wraps the history store in the circuit breaker
func newRepositoryLoader(repos *repository.Repositories) *pipeline.RepositoryLoader {
	return pipeline.NewRepositoryLoader(repos.History, cfg.Batch.HistoryLimit, pipeline.BreakerConfig{
		MaxFailures: uint32(cfg.Batch.BreakerMaxFailures),
		Timeout:     cfg.BreakerTimeout(),
	}, appLog)
}

// batchOptions maps the batch section onto run options
func batchOptions() pipeline.BatchOptions {
	opts := pipeline.BatchOptions{
		Workers:       cfg.Batch.Workers,
		OversOnly:     cfg.Batch.OversOnly,
		MaxCandidates: cfg.Batch.MaxCandidates,
	}
	if cfg.Batch.MinExpectedValue != 0 {
		threshold := cfg.Batch.MinExpectedValue
		opts.MinExpectedValue = &threshold
	}
	return opts
}

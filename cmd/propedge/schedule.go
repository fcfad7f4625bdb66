package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"

	"github.com/yourusername/propedge/internal/health"
	"github.com/yourusername/propedge/internal/scheduler"
)

var scheduleOddsFile string

func init() {
	scheduleCmd.Flags().StringVar(&scheduleOddsFile, "odds-file", "", "Odds file re-read on every batch; the configured feed is used when empty")
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run batch pricing and settlement on their cron schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchedule(cmd.Context())
	},
}

func runSchedule(parent context.Context) error {
	if !cfg.Schedule.Enabled {
		return fmt.Errorf("scheduling is disabled; set schedule.enabled in %s", configFile)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	evaluator, err := newEvaluator()
	if err != nil {
		return err
	}
	loader := newRepositoryLoader(st.repos)

	sched := scheduler.NewScheduler(appLog)
	if cfg.Schedule.BatchCron != "" {
		err := sched.Schedule("batch", cfg.Schedule.BatchCron, 30*time.Minute, func(ctx context.Context) error {
			report, err := runBatchPass(ctx, st, evaluator, loader, scheduleOddsFile, true)
			if report != nil {
				appLog.WithFields(logrus.Fields{
					"priced":      len(report.Results),
					"positive_ev": report.PositiveEV(),
					"skipped":     len(report.Skips),
				}).Info("Scheduled batch finished")
			}
			return err
		})
		if err != nil {
			return err
		}
	}
	if cfg.Schedule.SettleCron != "" {
		err := sched.Schedule("settle", cfg.Schedule.SettleCron, 10*time.Minute, func(ctx context.Context) error {
			_, err := settle(ctx, st)
			return err
		})
		if err != nil {
			return err
		}
	}
	if len(sched.Jobs()) == 0 {
		return fmt.Errorf("no schedules configured; set schedule.batch_cron or schedule.settle_cron")
	}

	srv := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Port:        cfg.Health.Port,
		MetricsPath: metricsPath(),
		Logger:      appLog,
		DB:          st.pinger,
		Checks: map[string]health.Check{
			"history_breaker": func(context.Context) error {
				if loader.State() == gobreaker.StateOpen {
					return fmt.Errorf("history circuit breaker is open")
				}
				return nil
			},
		},
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}

	if err := sched.Start(); err != nil {
		return err
	}
	srv.SetReady(true)
	appLog.WithFields(logrus.Fields{
		"jobs":     sched.Jobs(),
		"next_run": sched.GetNextRun(),
	}).Info("Scheduler running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		appLog.WithField("signal", sig).Info("Shutdown signal received")
	case <-ctx.Done():
	}

	srv.SetReady(false)
	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Warn("Scheduler did not stop cleanly")
	}
	cancel()
	return srv.Shutdown()
}

func metricsPath() string {
	if !cfg.Metrics.Enabled {
		return ""
	}
	if cfg.Metrics.Path == "" {
		return "/metrics"
	}
	return cfg.Metrics.Path
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/propedge/internal/logger"
	"github.com/yourusername/propedge/internal/metrics"
	"github.com/yourusername/propedge/internal/models"
)

var errOversOnly = errors.New("only Over candidates are priced")

// Job is one candidate to price. A nil History is fetched through the batch loader.
type Job struct {
	Candidate models.Candidate
	History   models.History
	GameDate  *time.Time
}

// Skip records a candidate that was not priced
type Skip struct {
	Candidate models.Candidate
	Reason    models.SkipReason
	Err       error
}

// BatchOptions tunes a batch run
type BatchOptions struct {
	Workers       int
	OversOnly     bool
	MaxCandidates int
	// MinExpectedValue drops priced results below the threshold when set.
	MinExpectedValue *float64
}

// Report is the outcome of a batch run. Results are sorted by ranking score, then EV, descending.
type Report struct {
	Results    []models.PredictionResult
	Skips      []Skip
	Candidates int
	Duration   time.Duration
}

// PositiveEV returns the number of results with strictly positive expected value
func (r *Report) PositiveEV() int {
	n := 0
	for i := range r.Results {
		if r.Results[i].IsPositiveEV() {
			n++
		}
	}
	return n
}

// SkipsByReason counts skips per reason
func (r *Report) SkipsByReason() map[models.SkipReason]int {
	out := make(map[models.SkipReason]int)
	for _, s := range r.Skips {
		out[s.Reason]++
	}
	return out
}

// Batch prices many candidates concurrently. Each job owns its history and
// model; one failing job never aborts the rest.
type Batch struct {
	evaluator *Evaluator
	loader    HistoryLoader
	opts      BatchOptions
	logger    *logger.PipelineLogger
}

// NewBatch creates a batch runner. loader may be nil when every job carries its history.
func NewBatch(e *Evaluator, loader HistoryLoader, opts BatchOptions, log *logrus.Logger) *Batch {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Batch{
		evaluator: e,
		loader:    loader,
		opts:      opts,
		logger:    logger.NewPipelineLogger(log),
	}
}

// RunCandidates prices candidates whose histories come from the loader
func (b *Batch) RunCandidates(ctx context.Context, candidates []models.Candidate) (*Report, error) {
	jobs := make([]Job, len(candidates))
	for i, c := range candidates {
		jobs[i] = Job{Candidate: c}
	}
	return b.Run(ctx, jobs)
}

type slot struct {
	result *models.PredictionResult
	skip   *Skip
}

// Run prices jobs across the worker pool. When ctx is cancelled no new jobs
// are scheduled; unscheduled jobs are reported as cancelled skips and the
// context error is returned alongside the partial report.
func (b *Batch) Run(ctx context.Context, jobs []Job) (*Report, error) {
	start := time.Now()
	slots := make([]slot, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(b.opts.Workers)

	for i := range jobs {
		if err := ctx.Err(); err != nil {
			slots[i].skip = &Skip{Candidate: jobs[i].Candidate, Reason: models.SkipCancelled, Err: err}
			continue
		}
		i := i
		g.Go(func() error {
			slots[i] = b.runJob(ctx, jobs[i])
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Candidates: len(jobs)}
	for _, s := range slots {
		switch {
		case s.result != nil:
			report.Results = append(report.Results, *s.result)
		case s.skip != nil:
			report.Skips = append(report.Skips, *s.skip)
		}
	}

	sort.SliceStable(report.Results, func(i, j int) bool {
		a, c := report.Results[i], report.Results[j]
		if a.RankingScore != c.RankingScore {
			return a.RankingScore > c.RankingScore
		}
		return a.ExpectedValue > c.ExpectedValue
	})
	if b.opts.MaxCandidates > 0 && len(report.Results) > b.opts.MaxCandidates {
		report.Results = report.Results[:b.opts.MaxCandidates]
	}

	report.Duration = time.Since(start)
	positive := report.PositiveEV()
	metrics.RecordBatch(report.Duration.Seconds(), report.Candidates, positive)
	b.logger.LogBatchSummary(report.Candidates, len(report.Results), len(report.Skips), positive, report.Duration)

	return report, ctx.Err()
}

func (b *Batch) runJob(ctx context.Context, job Job) slot {
	c := job.Candidate

	if b.opts.OversOnly && c.Direction != models.DirectionOver {
		return b.skip(c, &models.SkipError{Reason: models.SkipFiltered, Err: errOversOnly})
	}

	history := job.History
	if history == nil {
		if b.loader == nil {
			return b.skip(c, fmt.Errorf("%w: no loader configured", models.ErrHistoryUnavailable))
		}
		var err error
		if history, err = b.loader.Load(ctx, c); err != nil {
			return b.skip(c, err)
		}
	}

	result, err := b.safeEvaluate(ctx, c, history)
	if err != nil {
		return b.skip(c, err)
	}
	result.GameDate = job.GameDate

	if threshold := b.opts.MinExpectedValue; threshold != nil && result.ExpectedValue < *threshold {
		return b.skip(c, &models.SkipError{
			Reason: models.SkipFiltered,
			Err:    fmt.Errorf("expected value %.4f below %.4f", result.ExpectedValue, *threshold),
		})
	}

	return slot{result: &result}
}

// safeEvaluate converts a panic in one job into an internal skip
func (b *Batch) safeEvaluate(ctx context.Context, c models.Candidate, h models.History) (r models.PredictionResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("evaluation panic: %v", rec)
		}
	}()
	return b.evaluator.Evaluate(ctx, c, h)
}

func (b *Batch) skip(c models.Candidate, err error) slot {
	reason := models.ReasonFor(err)
	metrics.RecordSkip(string(reason))
	b.logger.LogSkip(c, reason, err)
	return slot{skip: &Skip{Candidate: c, Reason: reason, Err: err}}
}

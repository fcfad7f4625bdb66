// Package pipeline chains feature building, training, calibration and value
// computation into a single candidate evaluation, and fans evaluations out
// across a worker pool.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/propedge/internal/calibration"
	"github.com/yourusername/propedge/internal/features"
	"github.com/yourusername/propedge/internal/logger"
	"github.com/yourusername/propedge/internal/metrics"
	"github.com/yourusername/propedge/internal/ml"
	"github.com/yourusername/propedge/internal/models"
	"github.com/yourusername/propedge/internal/value"
)

// Settings bundles the component configurations an evaluation depends on
type Settings struct {
	Features    features.Config
	Model       ml.Config
	Calibration calibration.Config
	Value       value.Config
}

// DefaultSettings returns the default component configurations
func DefaultSettings() Settings {
	return Settings{
		Features:    features.DefaultConfig(),
		Model:       ml.DefaultConfig(),
		Calibration: calibration.DefaultConfig(),
		Value:       value.DefaultConfig(),
	}
}

// Validate checks every component configuration
func (s Settings) Validate() error {
	if err := s.Features.Validate(); err != nil {
		return fmt.Errorf("features: %w", err)
	}
	if err := s.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := s.Calibration.Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	if err := s.Value.Validate(); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	return nil
}

// Evaluator prices one candidate from its history
type Evaluator struct {
	settings   Settings
	builder    *features.Builder
	weighter   *features.Weighter
	trainer    *ml.Trainer
	calibrator *calibration.Calibrator
	engine     *value.Engine
	cache      *ml.ResultCache
	logger     *logger.PipelineLogger
	now        func() time.Time
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithCache memoises results in c
func WithCache(c *ml.ResultCache) Option {
	return func(e *Evaluator) { e.cache = c }
}

// WithLogger sets the base logger
func WithLogger(l *logrus.Logger) Option {
	return func(e *Evaluator) { e.logger = logger.NewPipelineLogger(l) }
}

// WithClock overrides the time source used for GeneratedAt
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// NewEvaluator creates an evaluator
func NewEvaluator(s Settings, opts ...Option) (*Evaluator, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	e := &Evaluator{
		settings:   s,
		builder:    features.NewBuilder(s.Features),
		weighter:   features.NewWeighter(s.Features),
		calibrator: calibration.New(s.Calibration),
		engine:     value.NewEngine(s.Value),
		logger:     logger.NewPipelineLogger(logger.Discard()),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.trainer = ml.NewTrainer(s.Model, e.logger.Entry)

	return e, nil
}

// Settings returns the evaluator configuration
func (e *Evaluator) Settings() Settings {
	return e.settings
}

// Calibrator returns the calibrator in use
func (e *Evaluator) Calibrator() *calibration.Calibrator {
	return e.calibrator
}

// Engine returns the value engine in use
func (e *Evaluator) Engine() *value.Engine {
	return e.engine
}

// Evaluate runs the full chain for one candidate. History may be unsorted; it is
// never modified. Errors map onto skip reasons through models.ReasonFor.
func (e *Evaluator) Evaluate(ctx context.Context, c models.Candidate, history models.History) (models.PredictionResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return models.PredictionResult{}, err
	}
	if err := c.Validate(); err != nil {
		return models.PredictionResult{}, err
	}
	if c.ID == uuid.Nil {
		c.ID = c.StableID()
	}

	d, err := c.DecimalOdds()
	if err != nil {
		return models.PredictionResult{}, err
	}
	implied, err := c.ImpliedProbability()
	if err != nil {
		return models.PredictionResult{}, err
	}

	var key ml.CacheKey
	if e.cache != nil {
		key = ml.NewCacheKey(c, history, e.settings)
		if cached, ok := e.cache.Get(ctx, key); ok {
			e.stamp(&cached)
			e.record(cached, true, time.Since(start))
			return cached, nil
		}
	}

	rows, live, err := e.builder.Build(history, c.Line, c.Direction)
	if err != nil {
		return models.PredictionResult{}, err
	}
	weights := e.weighter.Apply(rows, live.Date)

	artifact, err := e.trainer.Train(rows, weights)
	if err != nil {
		return models.PredictionResult{}, fmt.Errorf("failed to train model: %w", err)
	}
	if artifact.Degenerate {
		e.logger.LogDegenerate(c, artifact.TrainingSamples, artifact.Baseline)
	}

	pred, err := artifact.Predict(live)
	if err != nil {
		return models.PredictionResult{}, fmt.Errorf("failed to predict: %w", err)
	}

	p, ci := e.calibrator.CalibrateInterval(pred.Probability, pred.CI, implied)
	result, err := e.engine.EvaluateWithSamples(p, ci, d, value.Samples{
		Historical: len(history),
		Training:   artifact.TrainingSamples,
		Degenerate: artifact.Degenerate,
	})
	if err != nil {
		return models.PredictionResult{}, err
	}

	result.ApplyCandidate(c)
	result.RawProbability = pred.Probability
	result.ImpliedProbability = implied
	result.Edge = result.Probability - implied

	if e.cache != nil {
		e.cache.Set(ctx, key, result)
	}
	e.stamp(&result)
	e.record(result, false, time.Since(start))

	return result, nil
}

func (e *Evaluator) stamp(r *models.PredictionResult) {
	r.ID = uuid.New()
	r.GeneratedAt = e.now().UTC()
}

func (e *Evaluator) record(r models.PredictionResult, cached bool, elapsed time.Duration) {
	metrics.RecordEvaluation(elapsed.Seconds(), r.Probability, cached, r.Degenerate && !cached)
	if e.cache != nil {
		_, _, ratio := e.cache.Stats()
		metrics.UpdateCacheHitRatio(ratio)
	}
	e.logger.LogEvaluation(r, cached, elapsed)
}

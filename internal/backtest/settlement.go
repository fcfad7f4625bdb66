package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/propedge/internal/logger"
	"github.com/yourusername/propedge/internal/metrics"
	"github.com/yourusername/propedge/internal/models"
	"github.com/yourusername/propedge/internal/repository"
)

// outcomeNamespace seeds outcome IDs derived from prediction IDs
var outcomeNamespace = uuid.MustParse("0b7d4e52-8c39-4a61-b2f0-5e9a1c3d7f84")

// Settle resolves a prediction against the realised statistic. A value equal
// to the line is a loss for either side.
func Settle(r models.PredictionResult, actual models.Observation, stake decimal.Decimal, settledAt time.Time) (models.Outcome, error) {
	if r.ID == uuid.Nil {
		return models.Outcome{}, models.ErrInvalidID
	}
	if !r.Direction.Valid() {
		return models.Outcome{}, fmt.Errorf("%w: direction %q", models.ErrInvalidCandidate, r.Direction)
	}

	hit := r.Direction.Hit(actual.Value, r.Line)
	pl, err := models.CalculateProfitLoss(hit, r.AmericanOdds, stake)
	if err != nil {
		return models.Outcome{}, err
	}

	return models.Outcome{
		ID:           uuid.NewSHA1(outcomeNamespace, r.ID[:]),
		PredictionID: r.ID,
		EntityID:     r.EntityID,
		Statistic:    r.Statistic,
		Line:         r.Line,
		Direction:    r.Direction,
		AmericanOdds: r.AmericanOdds,
		Probability:  r.Probability,
		ActualValue:  actual.Value,
		Hit:          hit,
		Stake:        stake,
		ProfitLoss:   pl.Round(2),
		GameDate:     actual.Date,
		SettledAt:    settledAt,
	}, nil
}

// SettlementReport summarises one settlement pass
type SettlementReport struct {
	Outcomes []models.Outcome
	// Pending counts predictions whose game has no recorded result yet.
	Pending int
}

// HitRate returns the fraction of settled outcomes that hit
func (s *SettlementReport) HitRate() float64 {
	if len(s.Outcomes) == 0 {
		return 0
	}
	hits := 0
	for _, o := range s.Outcomes {
		if o.Hit {
			hits++
		}
	}
	return float64(hits) / float64(len(s.Outcomes))
}

// ROI returns total profit over total staked for the pass
func (s *SettlementReport) ROI() float64 {
	staked := decimal.Zero
	profit := decimal.Zero
	for _, o := range s.Outcomes {
		staked = staked.Add(o.Stake)
		profit = profit.Add(o.ProfitLoss)
	}
	if staked.IsZero() {
		return 0
	}
	return profit.Div(staked).InexactFloat64()
}

// Settler settles stored predictions once their results are recorded
type Settler struct {
	history     repository.HistoryRepository
	predictions repository.PredictionRepository
	outcomes    repository.OutcomeRepository
	cfg         Config
	logger      *logger.TrackingLogger
}

// NewSettler creates a settler over the given repositories
func NewSettler(repos *repository.Repositories, cfg Config, log *logrus.Logger) (*Settler, error) {
	if repos == nil || repos.History == nil || repos.Prediction == nil || repos.Outcome == nil {
		return nil, fmt.Errorf("history, prediction and outcome repositories are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Settler{
		history:     repos.History,
		predictions: repos.Prediction,
		outcomes:    repos.Outcome,
		cfg:         cfg,
		logger:      logger.NewTrackingLogger(log),
	}, nil
}

// SettlePending settles every unsettled prediction generated at least
// SettleAfter before now. Predictions without a recorded result stay pending.
func (s *Settler) SettlePending(ctx context.Context, now time.Time) (*SettlementReport, error) {
	pending, err := s.predictions.GetUnsettled(ctx, now.Add(-s.cfg.SettleAfter))
	if err != nil {
		return nil, fmt.Errorf("failed to load unsettled predictions: %w", err)
	}

	report := &SettlementReport{}
	for _, r := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		actual, err := s.history.GetFirstOnOrAfter(ctx, r.EntityID, r.Statistic, settlementAnchor(r))
		if errors.Is(err, models.ErrNotFound) {
			s.logger.LogUnresolved(r, err)
			report.Pending++
			continue
		}
		if err != nil {
			return report, fmt.Errorf("failed to load result for %s: %w", r.ID, err)
		}

		o, err := Settle(r, actual, s.cfg.Stake, now)
		if err != nil {
			s.logger.LogUnresolved(r, err)
			report.Pending++
			continue
		}

		if err := s.outcomes.Insert(ctx, &o); err != nil && !errors.Is(err, models.ErrDuplicateKey) {
			return report, fmt.Errorf("failed to record outcome for %s: %w", r.ID, err)
		}
		if err := s.predictions.MarkSettled(ctx, r.ID, now); err != nil {
			return report, fmt.Errorf("failed to mark %s settled: %w", r.ID, err)
		}

		metrics.RecordSettlement(o.Hit)
		s.logger.LogSettlement(o)
		report.Outcomes = append(report.Outcomes, o)
	}

	s.logger.LogTrackingSummary(len(report.Outcomes), report.Pending, report.HitRate(), report.ROI())
	return report, nil
}

// Performance computes metrics over outcomes whose game date falls in
// [start, end] and publishes the tracking gauges.
func (s *Settler) Performance(ctx context.Context, start, end time.Time) (Metrics, error) {
	outcomes, err := s.outcomes.GetByRange(ctx, start, end)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to load outcomes: %w", err)
	}

	m := CalculateMetrics(outcomes)
	hitRates := make(map[string]float64, len(m.ByStatistic))
	for _, b := range m.ByStatistic {
		hitRates[b.Key] = b.HitRate
	}
	metrics.UpdateTrackingSummary(m.TotalProfitLoss, m.BrierScore, hitRates)
	return m, nil
}

// settlementAnchor is the earliest date whose result can settle r
func settlementAnchor(r models.PredictionResult) time.Time {
	if r.GameDate != nil {
		return r.GameDate.UTC().Truncate(24 * time.Hour)
	}
	return r.GeneratedAt.UTC().Truncate(24 * time.Hour)
}

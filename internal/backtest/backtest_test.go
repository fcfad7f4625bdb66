package backtest

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/propedge/internal/config"
	"github.com/yourusername/propedge/internal/database"
	"github.com/yourusername/propedge/internal/models"
	"github.com/yourusername/propedge/internal/pipeline"
	"github.com/yourusername/propedge/internal/repository"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func prediction(entity, stat string, line float64, dir models.Direction, odds int, p float64) models.PredictionResult {
	c := models.NewCandidate(entity, stat, line, dir, odds)
	d, _ := models.AmericanToDecimal(odds)
	implied, _ := models.ImpliedProbability(odds)
	r := models.PredictionResult{
		ID:                 uuid.New(),
		DecimalOdds:        d,
		ImpliedProbability: implied,
		RawProbability:     p,
		Probability:        p,
		ProbabilityCI:      [2]float64{p - 0.1, p + 0.1},
	}
	r.ApplyCandidate(c)
	return r
}

func outcome(stat string, gameDay int, p float64, hit bool, pl string) models.Outcome {
	return models.Outcome{
		PredictionID: uuid.New(),
		EntityID:     "player-1",
		Statistic:    stat,
		Probability:  p,
		Hit:          hit,
		Stake:        models.DefaultStake,
		ProfitLoss:   decimal.RequireFromString(pl),
		GameDate:     day(gameDay),
	}
}

func sampleOutcomes() []models.Outcome {
	return []models.Outcome{
		outcome("points", 3, 0.71, true, "150"),
		outcome("points", 1, 0.62, true, "90.91"),
		outcome("rebounds", 1, 0.55, false, "-100"),
		outcome("points", 2, 0.66, false, "-100"),
	}
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name   string
		dir    models.Direction
		odds   int
		actual float64
		hit    bool
		pl     string
	}{
		{"over hit at -110", models.DirectionOver, -110, 25, true, "90.91"},
		{"over miss", models.DirectionOver, -110, 20, false, "-100"},
		{"push is a loss", models.DirectionOver, -110, 22.5, false, "-100"},
		{"under push is a loss", models.DirectionUnder, -110, 22.5, false, "-100"},
		{"under hit at +150", models.DirectionUnder, 150, 18, true, "150"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := prediction("player-1", "points", 22.5, tt.dir, tt.odds, 0.55)
			o, err := Settle(r, models.Observation{Date: day(1), Value: tt.actual}, models.DefaultStake, day(2))
			require.NoError(t, err)
			assert.Equal(t, tt.hit, o.Hit)
			assert.True(t, o.ProfitLoss.Equal(decimal.RequireFromString(tt.pl)), "got %s", o.ProfitLoss)
			assert.Equal(t, r.ID, o.PredictionID)
			assert.Equal(t, tt.actual, o.ActualValue)
			assert.True(t, o.GameDate.Equal(day(1)))
		})
	}
}

func TestSettleStableOutcomeID(t *testing.T) {
	r := prediction("player-1", "points", 22.5, models.DirectionOver, -110, 0.55)
	a, err := Settle(r, models.Observation{Date: day(1), Value: 25}, models.DefaultStake, day(2))
	require.NoError(t, err)
	b, err := Settle(r, models.Observation{Date: day(1), Value: 25}, models.DefaultStake, day(3))
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	r.ID = uuid.Nil
	_, err = Settle(r, models.Observation{Date: day(1), Value: 25}, models.DefaultStake, day(2))
	assert.ErrorIs(t, err, models.ErrInvalidID)
}

func TestCalculateMetrics(t *testing.T) {
	m := CalculateMetrics(sampleOutcomes())

	assert.Equal(t, 4, m.TotalBets)
	assert.Equal(t, 2, m.Wins)
	assert.Equal(t, 2, m.Losses)
	assert.InDelta(t, 0.5, m.HitRate, 1e-12)
	assert.InDelta(t, 400, m.TotalStaked, 1e-9)
	assert.InDelta(t, 40.91, m.TotalProfitLoss, 1e-9)
	assert.InDelta(t, 40.91/400, m.ROI, 1e-9)
	assert.InDelta(t, 0.9666/4, m.BrierScore, 1e-9)
	assert.InDelta(t, 200, m.MaxDrawdown, 1e-9)
	assert.InDelta(t, 240.91/200, m.ProfitFactor, 1e-9)
	assert.InDelta(t, 150, m.LargestWin, 1e-9)
	assert.InDelta(t, -100, m.LargestLoss, 1e-9)
	assert.True(t, m.StartDate.Equal(day(1)))
	assert.True(t, m.EndDate.Equal(day(3)))

	require.Len(t, m.Calibration, 3)
	assert.InDelta(t, 0.5, m.Calibration[0].Lower, 1e-12)
	assert.Equal(t, 1, m.Calibration[0].Count)
	assert.Equal(t, 0.0, m.Calibration[0].HitRate)
	assert.Equal(t, 2, m.Calibration[1].Count)
	assert.InDelta(t, 0.64, m.Calibration[1].MeanPredicted, 1e-12)
	assert.InDelta(t, 0.5, m.Calibration[1].HitRate, 1e-12)
	assert.InDelta(t, 1-0.71, m.Calibration[2].Gap(), 1e-12)

	require.Len(t, m.ByStatistic, 2)
	assert.Equal(t, "points", m.ByStatistic[0].Key)
	assert.Equal(t, 3, m.ByStatistic[0].Bets)
	assert.InDelta(t, 140.91, m.ByStatistic[0].ProfitLoss, 1e-9)
	assert.Equal(t, "rebounds", m.ByStatistic[1].Key)
	assert.InDelta(t, -1, m.ByStatistic[1].ROI, 1e-12)

	require.Len(t, m.ByDay, 3)
	assert.Equal(t, "2024-01-02", m.ByDay[0].Key)
	assert.Equal(t, 2, m.ByDay[0].Bets)
	assert.InDelta(t, -9.09, m.ByDay[0].ProfitLoss, 1e-9)
}

func TestCalculateMetricsEmpty(t *testing.T) {
	m := CalculateMetrics(nil)
	assert.Equal(t, 0, m.TotalBets)
	assert.Equal(t, 0.0, m.ROI)
	assert.Empty(t, m.Calibration)
}

func TestBuildEquityCurve(t *testing.T) {
	curve := BuildEquityCurve(sampleOutcomes(), decimal.NewFromInt(1000))
	require.Len(t, curve, 3)

	assert.InDelta(t, 990.91, curve[0].Value, 1e-9)
	assert.InDelta(t, -9.09, curve[0].DailyPnL, 1e-9)
	assert.InDelta(t, 890.91, curve[1].Value, 1e-9)
	assert.InDelta(t, 1040.91, curve[2].Value, 1e-9)
	assert.InDelta(t, 200/1090.91, curve.MaxDrawdown(), 1e-9)
	assert.Len(t, curve.GetReturns(), 2)
	assert.Greater(t, curve.GetVolatility(), 0.0)
	assert.True(t, strings.HasPrefix(curve.ToCSV(), "time,value,drawdown,daily_pnl\n2024-01-02,"))
}

func TestRunMonteCarlo(t *testing.T) {
	slate := []models.PredictionResult{
		{Probability: 0.6, DecimalOdds: 2.0, ExpectedValue: 0.2, KellyFraction: 0.2},
		{Probability: 0.55, DecimalOdds: 2.1, ExpectedValue: 0.155, KellyFraction: 0.14},
		{Probability: 0.3, DecimalOdds: 2.0, ExpectedValue: -0.4},
	}
	cfg := MonteCarloConfig{Iterations: 500, Seed: 42, Bankroll: 1000, FractionalKelly: 0.25, MaxStakeFraction: 0.05}

	a, err := RunMonteCarlo(context.Background(), slate, cfg)
	require.NoError(t, err)
	b, err := RunMonteCarlo(context.Background(), slate, cfg)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 500, a.Iterations)
	assert.Equal(t, 2, a.Bets)
	assert.Len(t, a.Distribution, 500)
	assert.Equal(t, 0.0, a.ProbabilityOfRuin)
	assert.Greater(t, a.ProbabilityOfProfit, 0.0)
	assert.LessOrEqual(t, a.VaR99, a.VaR95)
	assert.Contains(t, a.ConfidenceIntervals, "95%")
	for _, v := range a.Distribution {
		assert.InDelta(t, 1000, v, 1000*0.05*2*1.1+1e-9)
	}
}

func TestRunMonteCarloNoBets(t *testing.T) {
	slate := []models.PredictionResult{{Probability: 0.3, DecimalOdds: 2.0, ExpectedValue: -0.4}}
	res, err := RunMonteCarlo(context.Background(), slate, MonteCarloConfig{Iterations: 10, Bankroll: 100, FractionalKelly: 0.25, MaxStakeFraction: 0.05})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Bets)
	assert.Equal(t, 0.0, res.MeanReturn)
	assert.Equal(t, 0.0, res.ProbabilityOfProfit)

	_, err = RunMonteCarlo(context.Background(), slate, MonteCarloConfig{Bankroll: 0, FractionalKelly: 0.25, MaxStakeFraction: 0.05})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RunMonteCarlo(ctx, slate, MonteCarloConfig{Bankroll: 100, FractionalKelly: 0.25, MaxStakeFraction: 0.05})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrailingMeanLine(t *testing.T) {
	policy := TrailingMeanLine(3)
	h := models.History{{Value: 100}, {Value: 20}, {Value: 22}, {Value: 25}}
	assert.Equal(t, 22.5, policy(h))
	assert.Equal(t, 0.5, policy(nil))
	assert.Equal(t, 30.5, FixedLine(30.5)(h))
}

func walkForwardHistory() models.History {
	values := []float64{20, 22, 25, 19, 30, 28, 24, 26, 21, 23, 27, 18, 25, 24}
	h := make(models.History, len(values))
	for i, v := range values {
		h[i] = models.Observation{Date: day(3 * i), Value: v}
	}
	return h
}

func newTestEvaluator(t *testing.T) *pipeline.Evaluator {
	t.Helper()
	s := pipeline.DefaultSettings()
	s.Model.NumTrees = 25
	e, err := pipeline.NewEvaluator(s, pipeline.WithClock(func() time.Time { return day(100) }))
	require.NoError(t, err)
	return e
}

func TestRunWalkForward(t *testing.T) {
	e := newTestEvaluator(t)
	h := walkForwardHistory()

	res, err := RunWalkForward(context.Background(), e, h, WalkForwardConfig{
		EntityID:     "player-1",
		Statistic:    "points",
		Direction:    models.DirectionOver,
		AmericanOdds: -110,
	})
	require.NoError(t, err)

	minGames := e.Settings().Features.MinGames
	assert.Equal(t, len(h)-minGames, len(res.Predictions)+res.Skipped)
	require.Len(t, res.Outcomes, len(res.Predictions))
	assert.Equal(t, len(res.Outcomes), res.Metrics.TotalBets)

	policy := TrailingMeanLine(DefaultTrailingGames)
	for i, o := range res.Outcomes {
		r := res.Predictions[i]
		require.NotNil(t, r.GameDate)
		assert.True(t, o.GameDate.Equal(*r.GameDate))
		assert.Equal(t, o.PredictionID, r.ID)

		k := -1
		for j := range h {
			if h[j].Date.Equal(o.GameDate) {
				k = j
			}
		}
		require.GreaterOrEqual(t, k, minGames)
		assert.Equal(t, policy(h[:k]), r.Line)
		assert.Equal(t, h[k].Value > r.Line, o.Hit)
	}
}

func TestRunWalkForwardNoLookAhead(t *testing.T) {
	e := newTestEvaluator(t)
	cfg := WalkForwardConfig{EntityID: "player-1", Statistic: "points", Direction: models.DirectionOver, AmericanOdds: -110, Line: FixedLine(22.5)}

	h := walkForwardHistory()
	base, err := RunWalkForward(context.Background(), e, h, cfg)
	require.NoError(t, err)

	changed := append(models.History(nil), h...)
	changed[len(changed)-1].Value = 60
	mutated, err := RunWalkForward(context.Background(), e, changed, cfg)
	require.NoError(t, err)

	require.Equal(t, len(base.Predictions), len(mutated.Predictions))
	require.NotEmpty(t, base.Predictions)
	for i := range base.Predictions {
		assert.Equal(t, base.Predictions[i].Probability, mutated.Predictions[i].Probability, "game %d", i)
	}
}

func TestRunWalkForwardInsufficientHistory(t *testing.T) {
	e := newTestEvaluator(t)
	_, err := RunWalkForward(context.Background(), e, walkForwardHistory()[:5], WalkForwardConfig{
		EntityID: "player-1", Statistic: "points", Direction: models.DirectionOver, AmericanOdds: -110,
	})
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = RunWalkForward(context.Background(), nil, walkForwardHistory(), WalkForwardConfig{})
	assert.Error(t, err)
}

func setupSettler(t *testing.T) (*Settler, *repository.Repositories) {
	t.Helper()
	repos, err := repository.NewSQLiteRepositories(database.SetupTestSQLite(t))
	require.NoError(t, err)
	s, err := NewSettler(repos, DefaultConfig(), nil)
	require.NoError(t, err)
	return s, repos
}

func TestSettlePending(t *testing.T) {
	ctx := context.Background()
	s, repos := setupSettler(t)

	settled := prediction("player-1", "points", 22.5, models.DirectionOver, -110, 0.58)
	gameDate := day(1).Add(19 * time.Hour)
	settled.GameDate = &gameDate
	settled.GeneratedAt = day(1).Add(10 * time.Hour)
	require.NoError(t, repos.Prediction.Save(ctx, &settled))

	waiting := prediction("player-2", "rebounds", 8.5, models.DirectionUnder, 120, 0.5)
	waiting.GeneratedAt = day(1).Add(11 * time.Hour)
	require.NoError(t, repos.Prediction.Save(ctx, &waiting))

	require.NoError(t, repos.History.UpsertObservations(ctx, "player-1", "points", []models.Observation{
		{Date: day(0), Value: 10},
		{Date: day(1), Value: 25},
	}))

	report, err := s.SettlePending(ctx, day(4))
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, 1, report.Pending)
	o := report.Outcomes[0]
	assert.Equal(t, settled.ID, o.PredictionID)
	assert.Equal(t, 25.0, o.ActualValue)
	assert.True(t, o.Hit)
	assert.InDelta(t, 1.0, report.HitRate(), 1e-12)
	assert.InDelta(t, 0.9091, report.ROI(), 1e-9)

	again, err := s.SettlePending(ctx, day(4))
	require.NoError(t, err)
	assert.Empty(t, again.Outcomes)
	assert.Equal(t, 1, again.Pending)

	m, err := s.Performance(ctx, day(0), day(10))
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalBets)
	assert.InDelta(t, 90.91, m.TotalProfitLoss, 1e-9)
}

func TestSettlePendingRespectsSettleAfter(t *testing.T) {
	ctx := context.Background()
	s, repos := setupSettler(t)

	r := prediction("player-1", "points", 22.5, models.DirectionOver, -110, 0.58)
	r.GeneratedAt = day(1)
	require.NoError(t, repos.Prediction.Save(ctx, &r))
	require.NoError(t, repos.History.UpsertObservations(ctx, "player-1", "points", []models.Observation{{Date: day(1), Value: 30}}))

	report, err := s.SettlePending(ctx, day(1).Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	assert.Equal(t, 0, report.Pending)
}

func TestNewSettlerValidates(t *testing.T) {
	_, err := NewSettler(nil, DefaultConfig(), nil)
	assert.Error(t, err)

	repos, err := repository.NewSQLiteRepositories(database.SetupTestSQLite(t))
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Stake = decimal.Zero
	_, err = NewSettler(repos, cfg, nil)
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	cfg, err := FromConfig(&config.TrackingConfig{Stake: 50, Bankroll: 2000, SettleAfterDays: 2})
	require.NoError(t, err)
	assert.True(t, cfg.Stake.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 48*time.Hour, cfg.SettleAfter)
	assert.Equal(t, 1000, cfg.SimulationRuns)

	_, err = FromConfig(nil)
	assert.Error(t, err)
}

func TestReports(t *testing.T) {
	m := CalculateMetrics(sampleOutcomes())

	report := GenerateConsoleReport("Tracked Performance", m)
	assert.Contains(t, report, "Bets: 4 (2 won, 2 lost)")
	assert.Contains(t, report, "Hit Rate: 50.0%")
	assert.Contains(t, report, "rebounds")
	assert.Contains(t, GenerateConsoleReport("Empty", Metrics{}), "No settled predictions")

	var buf bytes.Buffer
	require.NoError(t, WriteBreakdownCSV(&buf, m))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "2024-01-04,1,1,150.00,40.91", lines[3])
}

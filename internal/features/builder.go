package features

import (
	"fmt"
	"math"

	"github.com/yourusername/propedge/internal/fallback"
	"github.com/yourusername/propedge/internal/models"
)

// Feature column indices
const (
	RollMean5 = iota
	RollMean10
	LineMinusMean5
	LineMinusMean10
	LineMinusSeasonMean
	LineDifficulty
	TrendSlope5
	Momentum
	Volatility10
	Consistency
	RelForm5
	RelForm10
	Mean5TimesLine
	LineOverMean5
	VolatilityTimesLine
	ComparableHitRate
	Line
	NumFeatures
)

// FeatureNames lists feature column names in index order
var FeatureNames = [NumFeatures]string{
	"roll_mean_5",
	"roll_mean_10",
	"line_minus_mean_5",
	"line_minus_mean_10",
	"line_minus_season_mean",
	"line_difficulty",
	"trend_slope_5",
	"momentum",
	"volatility_10",
	"consistency",
	"rel_form_5",
	"rel_form_10",
	"mean5_x_line",
	"line_over_mean5",
	"volatility_x_line",
	"comparable_hit_rate",
	"line",
}

// Builder produces feature vectors from an ordered history
type Builder struct {
	cfg     Config
	hitRate *fallback.Chain[hitRateInput, float64]
}

// NewBuilder creates a feature builder
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg, hitRate: newHitRateChain(cfg.HitRateBand)}
}

// Config returns the builder configuration
func (b *Builder) Config() Config {
	return b.cfg
}

// Build returns one training row per history index >= MinLookback and a live row
// computed from the full history. Row i only sees observations before i; its
// target is observation i judged against the current line.
func (b *Builder) Build(history models.History, line float64, dir models.Direction) ([]models.FeatureVector, models.FeatureVector, error) {
	if len(history) < b.cfg.MinGames {
		return nil, models.FeatureVector{}, fmt.Errorf("%w: %d games, need %d", models.ErrInsufficientData, len(history), b.cfg.MinGames)
	}
	if !dir.Valid() {
		return nil, models.FeatureVector{}, fmt.Errorf("%w: direction %q", models.ErrInvalidCandidate, dir)
	}
	if math.IsNaN(line) || math.IsInf(line, 0) {
		return nil, models.FeatureVector{}, fmt.Errorf("%w: line %v", models.ErrInvalidCandidate, line)
	}
	if !history.IsSorted() {
		history = history.Sorted()
	}

	values := history.Values()
	rows := make([]models.FeatureVector, 0, len(values)-b.cfg.MinLookback)
	for i := b.cfg.MinLookback; i < len(values); i++ {
		rows = append(rows, models.FeatureVector{
			Date:      history[i].Date,
			Values:    b.compute(values[:i], line, dir),
			Weight:    1,
			Target:    dir.Hit(values[i], line),
			HasTarget: true,
		})
	}

	live := models.FeatureVector{
		Date:   history.Latest().Date,
		Values: b.compute(values, line, dir),
		Weight: 1,
	}
	return rows, live, nil
}

// compute derives the feature values from prior observations only.
func (b *Builder) compute(prior []float64, line float64, dir models.Direction) []float64 {
	eps := b.cfg.Epsilon
	last5 := tail(prior, 5)
	last10 := tail(prior, 10)

	mean5 := mean(last5)
	mean10 := mean(last10)
	season := mean(prior)
	std10 := stdDev(last10)

	recent3 := tail(prior, 3)
	var before3 []float64
	if len(prior) > len(recent3) {
		before3 = tail(prior[:len(prior)-len(recent3)], 3)
	}
	momentum := 0.0
	if len(before3) > 0 {
		p3 := mean(before3)
		momentum = safeDiv(mean(recent3)-p3, math.Abs(p3), eps)
	}

	f := make([]float64, NumFeatures)
	f[RollMean5] = mean5
	f[RollMean10] = mean10
	f[LineMinusMean5] = line - mean5
	f[LineMinusMean10] = line - mean10
	f[LineMinusSeasonMean] = line - season
	f[LineDifficulty] = safeDiv(line-mean10, std10, eps)
	f[TrendSlope5] = slope(last5)
	f[Momentum] = momentum
	f[Volatility10] = std10
	f[Consistency] = clamp(1-safeDiv(std10, math.Abs(mean10), eps), -1, 1)
	f[RelForm5] = safeDiv(mean5-season, math.Abs(season), eps)
	f[RelForm10] = safeDiv(mean10-season, math.Abs(season), eps)
	f[Mean5TimesLine] = mean5 * line
	f[LineOverMean5] = safeDiv(line, mean5, eps)
	f[VolatilityTimesLine] = std10 * line
	f[ComparableHitRate], _, _ = b.hitRate.Resolve(hitRateInput{prior: prior, line: line, dir: dir})
	f[Line] = line

	for i := range f {
		f[i] = finite(f[i])
	}
	return f
}

type hitRateInput struct {
	prior []float64
	line  float64
	dir   models.Direction
}

// newHitRateChain resolves the comparable-line hit rate: games within the band,
// then all prior games, then a neutral 0.5.
func newHitRateChain(band float64) *fallback.Chain[hitRateInput, float64] {
	return fallback.NewChain(
		fallback.Rule[hitRateInput, float64]{Name: "comparable", Apply: func(in hitRateInput) fallback.Opinion[float64] {
			hits, n := 0, 0
			for _, v := range in.prior {
				if math.Abs(v-in.line) <= band {
					n++
					if in.dir.Hit(v, in.line) {
						hits++
					}
				}
			}
			if n == 0 {
				return fallback.None[float64]()
			}
			return fallback.Some(float64(hits) / float64(n))
		}},
		fallback.Rule[hitRateInput, float64]{Name: "global", Apply: func(in hitRateInput) fallback.Opinion[float64] {
			if len(in.prior) == 0 {
				return fallback.None[float64]()
			}
			hits := 0
			for _, v := range in.prior {
				if in.dir.Hit(v, in.line) {
					hits++
				}
			}
			return fallback.Some(float64(hits) / float64(len(in.prior)))
		}},
		fallback.Rule[hitRateInput, float64]{Name: "neutral", Apply: func(hitRateInput) fallback.Opinion[float64] {
			return fallback.Some(0.5)
		}},
	)
}

package ml

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/propedge/internal/fallback"
	"github.com/yourusername/propedge/internal/models"
)

// Prediction sources
const (
	SourceEnsemble = "ensemble"
	SourceBaseline = "baseline"
	SourceNeutral  = "neutral"
)

// Prediction is a point probability with its confidence interval
type Prediction struct {
	Probability float64    `json:"probability"`
	CI          [2]float64 `json:"ci"`
	StdDev      float64    `json:"std_dev"`
	Votes       int        `json:"votes"`
	Source      string     `json:"source"`
}

// ModelArtifact is a fitted per-entity model. It is created for one
// evaluation and never shared between entities.
type ModelArtifact struct {
	forest          *forest
	features        []int
	inputWidth      int
	z               float64
	halfWidth       float64
	predictor       *fallback.Chain[[]float64, Prediction]
	Degenerate      bool
	Baseline        float64
	TrainingSamples int
	Positives       int
	// FeatureVariance is the in-sample population variance of each retained feature.
	FeatureVariance []float64
	// VoteDispersion is the mean in-sample standard deviation of tree votes.
	VoteDispersion float64
}

// Features returns the retained feature column indices
func (m *ModelArtifact) Features() []int {
	out := make([]int, len(m.features))
	copy(out, m.features)
	return out
}

// Trainer fits ModelArtifacts
type Trainer struct {
	cfg    Config
	logger logrus.FieldLogger
}

// NewTrainer creates a trainer. A nil logger discards output.
func NewTrainer(cfg Config, logger logrus.FieldLogger) *Trainer {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Trainer{cfg: cfg, logger: logger}
}

// Config returns the trainer configuration
func (t *Trainer) Config() Config {
	return t.cfg
}

// Train fits a model on the training rows. weights may be nil for uniform weighting.
// A single-class target does not fail: the artifact falls back to the empirical hit rate.
func (t *Trainer) Train(rows []models.FeatureVector, weights []float64) (*ModelArtifact, error) {
	start := time.Now()
	if len(rows) == 0 {
		return nil, ErrNoTrainingRows
	}
	if weights == nil {
		weights = make([]float64, len(rows))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(rows) {
		return nil, fmt.Errorf("%w: %d weights for %d rows", ErrWeightMismatch, len(weights), len(rows))
	}

	width := rows[0].Len()
	x := make([][]float64, len(rows))
	y := make([]bool, len(rows))
	positives := 0
	for i, r := range rows {
		if r.Len() != width {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrFeatureMismatch, i, r.Len(), width)
		}
		if !r.HasTarget {
			return nil, fmt.Errorf("%w: row %d", ErrMissingTarget, i)
		}
		if w := weights[i]; w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: row %d weight %v", ErrInvalidWeight, i, w)
		}
		x[i] = sanitize(r.Values)
		y[i] = r.Target
		if r.Target {
			positives++
		}
	}

	m := &ModelArtifact{
		inputWidth:      width,
		z:               t.cfg.ZScore(),
		halfWidth:       t.cfg.BaselineHalfWidth,
		Baseline:        float64(positives) / float64(len(rows)),
		TrainingSamples: len(rows),
		Positives:       positives,
	}
	defer func() {
		m.predictor = m.newPredictor()
		recordTraining(m, time.Since(start))
	}()

	if positives == 0 || positives == len(rows) {
		m.Degenerate = true
		t.logger.WithFields(logrus.Fields{
			"rows":     len(rows),
			"baseline": m.Baseline,
		}).Warn("Degenerate target, using empirical hit rate")
		return m, nil
	}

	kept, variances := varianceFilter(x, t.cfg.VarianceThreshold)
	if len(kept) == 0 {
		t.logger.WithField("rows", len(rows)).Warn("No feature passed the variance threshold, using empirical hit rate")
		return m, nil
	}

	k := selectK(len(kept), t.cfg.MinSelectedFeatures, t.cfg.SelectFraction)
	m.features = topK(kept, fScores(x, y, kept), k)
	m.FeatureVariance = make([]float64, 0, len(m.features))
	for _, f := range m.features {
		for i, kf := range kept {
			if kf == f {
				m.FeatureVariance = append(m.FeatureVariance, variances[i])
			}
		}
	}

	xs := make([][]float64, len(x))
	for i := range x {
		xs[i] = project(x[i], m.features)
	}

	w := weights
	if t.cfg.BalancedClassWeight {
		w = balancedWeights(y, weights)
	}
	params := treeParams{
		maxDepth:        t.cfg.MaxDepth,
		minSamplesSplit: t.cfg.MinSamplesSplit,
		minSamplesLeaf:  t.cfg.MinSamplesLeaf,
		maxFeatures:     maxFeaturesFor(len(m.features)),
	}
	m.forest = fitForest(xs, y, w, t.cfg.NumTrees, params, t.cfg.Seed)

	var dispersion float64
	for _, row := range xs {
		dispersion += popStdDev(m.forest.votes(row))
	}
	m.VoteDispersion = dispersion / float64(len(xs))

	t.logger.WithFields(logrus.Fields{
		"rows":      len(rows),
		"positives": positives,
		"features":  len(m.features),
		"trees":     t.cfg.NumTrees,
	}).Debug("Ensemble trained")
	return m, nil
}

// Predict scores the live row
func (m *ModelArtifact) Predict(live models.FeatureVector) (Prediction, error) {
	if live.Len() != m.inputWidth {
		return Prediction{}, fmt.Errorf("%w: live row has %d features, want %d", ErrFeatureMismatch, live.Len(), m.inputWidth)
	}
	pred, _, _ := m.predictor.Resolve(sanitize(live.Values))
	return pred, nil
}

// newPredictor orders the prediction fallbacks: the ensemble, then the
// empirical hit rate, then a neutral 0.5.
func (m *ModelArtifact) newPredictor() *fallback.Chain[[]float64, Prediction] {
	return fallback.NewChain(
		fallback.Rule[[]float64, Prediction]{Name: SourceEnsemble, Apply: func(x []float64) fallback.Opinion[Prediction] {
			if m.forest == nil {
				return fallback.None[Prediction]()
			}
			votes := m.forest.votes(project(x, m.features))
			p := stat.Mean(votes, nil)
			sd := popStdDev(votes)
			return fallback.Some(Prediction{
				Probability: clampUnit(p),
				CI:          [2]float64{clampUnit(p - m.z*sd), clampUnit(p + m.z*sd)},
				StdDev:      sd,
				Votes:       len(votes),
				Source:      SourceEnsemble,
			})
		}},
		fallback.Rule[[]float64, Prediction]{Name: SourceBaseline, Apply: func([]float64) fallback.Opinion[Prediction] {
			if m.TrainingSamples == 0 {
				return fallback.None[Prediction]()
			}
			return fallback.Some(m.intervalAround(m.Baseline, SourceBaseline))
		}},
		fallback.Rule[[]float64, Prediction]{Name: SourceNeutral, Apply: func([]float64) fallback.Opinion[Prediction] {
			return fallback.Some(m.intervalAround(0.5, SourceNeutral))
		}},
	)
}

func (m *ModelArtifact) intervalAround(p float64, source string) Prediction {
	return Prediction{
		Probability: clampUnit(p),
		CI:          [2]float64{clampUnit(p - m.halfWidth), clampUnit(p + m.halfWidth)},
		Source:      source,
	}
}

func project(x []float64, cols []int) []float64 {
	out := make([]float64, len(cols))
	for i, c := range cols {
		out[i] = x[c]
	}
	return out
}

// sanitize copies x replacing NaN and infinities with 0
func sanitize(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = v
		}
	}
	return out
}

func popStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := stat.Mean(xs, nil)
	var sq float64
	for _, v := range xs {
		sq += (v - m) * (v - m)
	}
	return math.Sqrt(sq / float64(len(xs)))
}

func clampUnit(p float64) float64 {
	if math.IsNaN(p) {
		return 0.5
	}
	return math.Max(0, math.Min(1, p))
}

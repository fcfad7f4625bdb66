package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// FeatureVector is one row of engineered features. Target is only meaningful
// when HasTarget is set (training rows); the live row carries no target.
type FeatureVector struct {
	Date      time.Time `json:"date"`
	Values    []float64 `json:"values"`
	Weight    float64   `json:"weight"`
	Target    bool      `json:"target"`
	HasTarget bool      `json:"has_target"`
}

// Len returns the number of feature values
func (f FeatureVector) Len() int {
	return len(f.Values)
}

// PredictionResult is the priced output for one candidate
type PredictionResult struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	CandidateID         uuid.UUID  `db:"candidate_id" json:"candidate_id"`
	EntityID            string     `db:"entity_id" json:"entity_id"`
	Statistic           string     `db:"statistic" json:"statistic"`
	Line                float64    `db:"line" json:"line"`
	Direction           Direction  `db:"direction" json:"direction"`
	AmericanOdds        int        `db:"american_odds" json:"american_odds"`
	DecimalOdds         float64    `db:"decimal_odds" json:"decimal_odds"`
	ImpliedProbability  float64    `db:"implied_probability" json:"implied_probability"`
	RawProbability      float64    `db:"raw_probability" json:"raw_probability"`
	Probability         float64    `db:"probability" json:"probability"`
	ProbabilityCI       [2]float64 `json:"probability_ci"`
	ExpectedValue       float64    `db:"expected_value" json:"expected_value"`
	EVCI                [2]float64 `json:"ev_ci"`
	Edge                float64    `db:"edge" json:"edge"`
	KellyFraction       float64    `db:"kelly_fraction" json:"kelly_fraction"`
	RankingScore        float64    `db:"ranking_score" json:"ranking_score"`
	ConfidenceScore     float64    `db:"confidence_score" json:"confidence_score"`
	SampleSize          int        `db:"sample_size" json:"sample_size"`
	TrainingSampleCount int        `db:"training_sample_count" json:"training_sample_count"`
	Degenerate          bool       `db:"degenerate" json:"degenerate"`
	GameDate            *time.Time `db:"game_date" json:"game_date,omitempty"`
	GeneratedAt         time.Time  `db:"generated_at" json:"generated_at"`
}

// IsPositiveEV reports whether the expected value is strictly positive
func (r *PredictionResult) IsPositiveEV() bool {
	return r.ExpectedValue > 0
}

// IsFinite reports whether every probability and EV field is finite
func (r *PredictionResult) IsFinite() bool {
	for _, v := range []float64{
		r.Probability, r.ProbabilityCI[0], r.ProbabilityCI[1],
		r.ExpectedValue, r.EVCI[0], r.EVCI[1],
		r.KellyFraction, r.RankingScore, r.ConfidenceScore,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ApplyCandidate copies the candidate identity onto the result
func (r *PredictionResult) ApplyCandidate(c Candidate) {
	r.CandidateID = c.ID
	r.EntityID = c.EntityID
	r.Statistic = c.Statistic
	r.Line = c.Line
	r.Direction = c.Direction
	r.AmericanOdds = c.AmericanOdds
}

// Candidate reconstructs the candidate the result was priced from
func (r *PredictionResult) Candidate() Candidate {
	return Candidate{
		ID:           r.CandidateID,
		EntityID:     r.EntityID,
		Statistic:    r.Statistic,
		Line:         r.Line,
		Direction:    r.Direction,
		AmericanOdds: r.AmericanOdds,
	}
}

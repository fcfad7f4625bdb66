package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Direction represents the side of a proposition (Over or Under)
type Direction string

const (
	DirectionOver  Direction = "Over"
	DirectionUnder Direction = "Under"
)

// ParseDirection parses a direction label case-insensitively
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "over", "o":
		return DirectionOver, nil
	case "under", "u":
		return DirectionUnder, nil
	default:
		return "", fmt.Errorf("%w: unknown direction %q", ErrInvalidCandidate, s)
	}
}

// Valid reports whether d is Over or Under
func (d Direction) Valid() bool {
	return d == DirectionOver || d == DirectionUnder
}

// Hit reports whether value satisfies the direction against line.
// A value equal to the line is a miss for both sides.
func (d Direction) Hit(value, line float64) bool {
	switch d {
	case DirectionOver:
		return value > line
	case DirectionUnder:
		return value < line
	default:
		return false
	}
}

// candidateNamespace seeds name-based candidate IDs
var candidateNamespace = uuid.MustParse("6f1c2a7e-3b1d-4f5e-9a51-0d8e7c4b2a10")

// Candidate is one quoted proposition to be priced
type Candidate struct {
	ID           uuid.UUID `db:"id" json:"id"`
	EntityID     string    `db:"entity_id" json:"entity_id" validate:"required"`
	Statistic    string    `db:"statistic" json:"statistic" validate:"required"`
	Line         float64   `db:"line" json:"line"`
	Direction    Direction `db:"direction" json:"direction" validate:"required,oneof=Over Under"`
	AmericanOdds int       `db:"american_odds" json:"american_odds"`
}

// NewCandidate builds a candidate with a stable name-based ID
func NewCandidate(entityID, statistic string, line float64, dir Direction, americanOdds int) Candidate {
	c := Candidate{
		EntityID:     entityID,
		Statistic:    NormalizeStatistic(statistic),
		Line:         line,
		Direction:    dir,
		AmericanOdds: americanOdds,
	}
	c.ID = c.StableID()
	return c
}

// StableID derives a deterministic ID from the candidate's identity fields
func (c Candidate) StableID() uuid.UUID {
	key := fmt.Sprintf("%s|%s|%g|%s|%d", c.EntityID, c.Statistic, c.Line, c.Direction, c.AmericanOdds)
	return uuid.NewSHA1(candidateNamespace, []byte(key))
}

// Validate checks the candidate fields the pipeline depends on
func (c Candidate) Validate() error {
	if strings.TrimSpace(c.EntityID) == "" {
		return fmt.Errorf("%w: entity id is required", ErrInvalidCandidate)
	}
	if strings.TrimSpace(c.Statistic) == "" {
		return fmt.Errorf("%w: statistic is required", ErrInvalidCandidate)
	}
	if !c.Direction.Valid() {
		return fmt.Errorf("%w: direction %q", ErrInvalidCandidate, c.Direction)
	}
	if _, err := AmericanToDecimal(c.AmericanOdds); err != nil {
		return err
	}
	return nil
}

// DecimalOdds returns the decimal odds for the candidate's american odds
func (c Candidate) DecimalOdds() (float64, error) {
	return AmericanToDecimal(c.AmericanOdds)
}

// ImpliedProbability returns the market-implied probability (1/decimal odds)
func (c Candidate) ImpliedProbability() (float64, error) {
	return ImpliedProbability(c.AmericanOdds)
}

// String returns a short human readable label
func (c Candidate) String() string {
	return fmt.Sprintf("%s %s %s %g (%+d)", c.EntityID, c.Statistic, c.Direction, c.Line, c.AmericanOdds)
}

var statisticAliases = map[string]string{
	"points":      "points",
	"pts":         "points",
	"rebounds":    "rebounds",
	"reb":         "rebounds",
	"assists":     "assists",
	"ast":         "assists",
	"threes":      "threes",
	"made threes": "threes",
	"3pm":         "threes",
	"steals":      "steals",
	"stl":         "steals",
	"blocks":      "blocks",
	"blk":         "blocks",
}

// NormalizeStatistic maps a market label onto a canonical statistic key.
// Unknown labels are lower-cased and trimmed.
func NormalizeStatistic(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if canonical, ok := statisticAliases[key]; ok {
		return canonical
	}
	return key
}

package datasource

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/propedge/internal/fallback"
	"github.com/yourusername/propedge/internal/models"
)

// MarketRecord is one runner of a raw two-outcome market as returned by a feed
type MarketRecord struct {
	MarketID   string  `json:"market_id"`
	MarketName string  `json:"market_name"`
	RunnerName string  `json:"runner_name"`
	RunnerID   string  `json:"runner_id"`
	Side       string  `json:"side,omitempty"`
	Player     string  `json:"player,omitempty"`
	Index      int     `json:"index"`
	Handicap   float64 `json:"handicap"`
	Odds       string  `json:"odds"`
}

// sideInput is what the side rules see: the runner and its market/line group
type sideInput struct {
	record MarketRecord
	group  []MarketRecord
}

// Unresolved is a market runner that could not become a candidate
type Unresolved struct {
	Record MarketRecord
	Err    error
}

// Side resolution rule names
const (
	RuleExactName   = "exact_name"
	RuleNameContent = "name_contains"
	RuleMarketOrder = "market_order"
	RuleRunnerField = "runner_field"
)

// SideResolver turns raw market runners into candidates. The side of each
// runner comes from the first rule with an opinion; runners no rule can place
// are reported as unresolved rather than guessed.
type SideResolver struct {
	chain  *fallback.Chain[sideInput, models.Direction]
	logger logrus.FieldLogger
}

// NewSideResolver creates a resolver. A nil logger uses the standard logger.
func NewSideResolver(log logrus.FieldLogger) *SideResolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SideResolver{
		chain: fallback.NewChain(
			fallback.Rule[sideInput, models.Direction]{Name: RuleExactName, Apply: exactNameRule},
			fallback.Rule[sideInput, models.Direction]{Name: RuleNameContent, Apply: nameContainsRule},
			fallback.Rule[sideInput, models.Direction]{Name: RuleMarketOrder, Apply: marketOrderRule},
			fallback.Rule[sideInput, models.Direction]{Name: RuleRunnerField, Apply: runnerFieldRule},
		),
		logger: log,
	}
}

// ResolveSide returns the side of a runner within its market/line group
func (s *SideResolver) ResolveSide(record MarketRecord, group []MarketRecord) (models.Direction, string, bool) {
	return s.chain.Resolve(sideInput{record: record, group: group})
}

// Resolve groups runners by market and line and converts each to a candidate.
// Runners without a line are ignored.
func (s *SideResolver) Resolve(records []MarketRecord) ([]models.Candidate, []Unresolved) {
	type groupKey struct {
		market string
		line   float64
	}
	groups := make(map[groupKey][]MarketRecord)
	var order []groupKey
	for _, r := range records {
		if r.Handicap == 0 || math.IsNaN(r.Handicap) {
			continue
		}
		k := groupKey{r.MarketID, r.Handicap}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	var candidates []models.Candidate
	var unresolved []Unresolved
	for _, k := range order {
		group := groups[k]
		for _, r := range group {
			c, err := s.toCandidate(r, group)
			if err != nil {
				unresolved = append(unresolved, Unresolved{Record: r, Err: err})
				continue
			}
			candidates = append(candidates, c)
		}
	}

	if len(unresolved) > 0 {
		s.logger.WithFields(logrus.Fields{
			"resolved":   len(candidates),
			"unresolved": len(unresolved),
		}).Info("Some market runners could not be resolved")
	}
	return candidates, unresolved
}

func (s *SideResolver) toCandidate(r MarketRecord, group []MarketRecord) (models.Candidate, error) {
	dir, rule, ok := s.ResolveSide(r, group)
	if !ok {
		return models.Candidate{}, fmt.Errorf("%w: no side for runner %q in market %s", models.ErrInvalidCandidate, r.RunnerName, r.MarketID)
	}

	player := playerName(r)
	if player == "" {
		return models.Candidate{}, fmt.Errorf("%w: no player for runner %q in market %s", models.ErrInvalidCandidate, r.RunnerName, r.MarketID)
	}

	odds, err := models.ParseAmericanOdds(r.Odds)
	if err != nil {
		return models.Candidate{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"market_id": r.MarketID,
		"runner":    r.RunnerName,
		"side":      string(dir),
		"rule":      rule,
	}).Debug("Resolved runner side")

	return models.NewCandidate(player, propType(r.MarketName), r.Handicap, dir, odds), nil
}

func exactNameRule(in sideInput) fallback.Opinion[models.Direction] {
	switch strings.TrimSpace(in.record.RunnerName) {
	case "Over":
		return fallback.Some(models.DirectionOver)
	case "Under":
		return fallback.Some(models.DirectionUnder)
	}
	return fallback.None[models.Direction]()
}

func nameContainsRule(in sideInput) fallback.Opinion[models.Direction] {
	return sideFromText(in.record.RunnerName)
}

// marketOrderRule assumes the first runner of a two-runner group is the Over
func marketOrderRule(in sideInput) fallback.Opinion[models.Direction] {
	if len(in.group) != 2 {
		return fallback.None[models.Direction]()
	}
	sorted := make([]MarketRecord, 2)
	copy(sorted, in.group)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	if sorted[0].Index == sorted[1].Index {
		return fallback.None[models.Direction]()
	}
	if in.record.Index == sorted[0].Index {
		return fallback.Some(models.DirectionOver)
	}
	return fallback.Some(models.DirectionUnder)
}

func runnerFieldRule(in sideInput) fallback.Opinion[models.Direction] {
	if op := sideFromText(in.record.Side); op.Definite {
		return op
	}
	return sideFromText(in.record.RunnerID)
}

func sideFromText(s string) fallback.Opinion[models.Direction] {
	upper := strings.ToUpper(s)
	switch {
	case strings.Contains(upper, "OVER"):
		return fallback.Some(models.DirectionOver)
	case strings.Contains(upper, "UNDER"):
		return fallback.Some(models.DirectionUnder)
	}
	return fallback.None[models.Direction]()
}

// playerName prefers the feed's player field, then "Player - Over" runner
// names, then the "Player - Prop" market name.
func playerName(r MarketRecord) string {
	if p := strings.TrimSpace(r.Player); p != "" {
		return p
	}
	if before, _, ok := strings.Cut(r.RunnerName, " - "); ok {
		if p := strings.TrimSpace(before); p != "" && !exactNameRule(sideInput{record: MarketRecord{RunnerName: p}}).Definite {
			return p
		}
	}
	if before, _, ok := strings.Cut(r.MarketName, " - "); ok {
		return strings.TrimSpace(before)
	}
	return ""
}

func propType(marketName string) string {
	if i := strings.LastIndex(marketName, " - "); i >= 0 {
		return strings.TrimSpace(marketName[i+3:])
	}
	return strings.TrimSpace(marketName)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/yourusername/propedge/internal/metrics"
	"github.com/yourusername/propedge/internal/models"
	"github.com/yourusername/propedge/internal/repository"
)

// HistoryLoader fetches the history a candidate is priced from
type HistoryLoader interface {
	Load(ctx context.Context, c models.Candidate) (models.History, error)
}

// BreakerConfig tunes the circuit breaker around history loads
type BreakerConfig struct {
	MaxFailures uint32
	Timeout     time.Duration
}

// RepositoryLoader loads histories from a HistoryRepository behind a circuit breaker.
// Once the store keeps failing, loads fail fast with ErrHistoryUnavailable until
// the breaker half-opens.
type RepositoryLoader struct {
	repo    repository.HistoryRepository
	limit   int
	breaker *gobreaker.CircuitBreaker
	logger  logrus.FieldLogger
}

// NewRepositoryLoader creates a loader returning at most limit observations per history
func NewRepositoryLoader(repo repository.HistoryRepository, limit int, cfg BreakerConfig, log logrus.FieldLogger) *RepositoryLoader {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	l := &RepositoryLoader{repo: repo, limit: limit, logger: log}
	l.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "history",
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// an entity with no stored history is not a store failure
			return err == nil || errors.Is(err, models.ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("History breaker state changed")
			if to == gobreaker.StateOpen {
				metrics.RecordBreakerTrip()
			}
		},
	})

	return l
}

// Load fetches the candidate's history
func (l *RepositoryLoader) Load(ctx context.Context, c models.Candidate) (models.History, error) {
	out, err := l.breaker.Execute(func() (interface{}, error) {
		return l.repo.GetHistory(ctx, c.EntityID, c.Statistic, l.limit)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", models.ErrHistoryUnavailable, err)
	}

	history, _ := out.(models.History)
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: no history for %s %s", models.ErrNotFound, c.EntityID, c.Statistic)
	}
	return history, nil
}

// State returns the breaker state
func (l *RepositoryLoader) State() gobreaker.State {
	return l.breaker.State()
}

// StaticLoader serves histories from memory keyed by entity and statistic
type StaticLoader map[string]models.History

// StaticKey returns the StaticLoader key for an entity and statistic
func StaticKey(entityID, statistic string) string {
	return entityID + "|" + models.NormalizeStatistic(statistic)
}

// Load returns the stored history or ErrNotFound
func (s StaticLoader) Load(ctx context.Context, c models.Candidate) (models.History, error) {
	h, ok := s[StaticKey(c.EntityID, c.Statistic)]
	if !ok || len(h) == 0 {
		return nil, fmt.Errorf("%w: no history for %s %s", models.ErrNotFound, c.EntityID, c.Statistic)
	}
	return h, nil
}

// Package datasource ingests quoted propositions and historical observations
// from files and HTTP odds feeds.
package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/propedge/internal/models"
)

// CandidateSource defines the interface for fetching quoted propositions
type CandidateSource interface {
	// FetchCandidates retrieves the currently quoted candidates
	FetchCandidates(ctx context.Context) ([]models.Candidate, error)

	// Name returns the name of the source
	Name() string
}

// OddsRecord is a flat quoted proposition as exported by odds scrapers
type OddsRecord struct {
	Player    string  `json:"player"`
	Prop      string  `json:"prop"`
	Line      float64 `json:"line"`
	Direction string  `json:"direction"`
	Odds      string  `json:"odds"`
}

// ToCandidate converts the record, rejecting unknown sides and suspended odds
func (r OddsRecord) ToCandidate() (models.Candidate, error) {
	dir, err := models.ParseDirection(r.Direction)
	if err != nil {
		return models.Candidate{}, err
	}
	odds, err := models.ParseAmericanOdds(r.Odds)
	if err != nil {
		return models.Candidate{}, err
	}
	c := models.NewCandidate(r.Player, r.Prop, r.Line, dir, odds)
	if err := c.Validate(); err != nil {
		return models.Candidate{}, err
	}
	return c, nil
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string
	Code    string
	Message string
	Err     error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s (%v)", e.Source, e.Code, e.Message, e.Err)
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
)

var (
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidData          = errors.New("invalid data format")
	ErrUnsupportedFormat    = errors.New("unsupported file format")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

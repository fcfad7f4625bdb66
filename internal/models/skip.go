package models

import (
	"context"
	"errors"
	"fmt"
)

// SkipReason classifies why a candidate was not priced
type SkipReason string

const (
	SkipInsufficientData   SkipReason = "insufficient_data"
	SkipInvalidOdds        SkipReason = "invalid_odds"
	SkipInvalidCandidate   SkipReason = "invalid_candidate"
	SkipHistoryUnavailable SkipReason = "history_unavailable"
	SkipFiltered           SkipReason = "filtered"
	SkipCancelled          SkipReason = "cancelled"
	SkipInternal           SkipReason = "internal"
)

// SkipError carries a typed reason alongside the underlying cause
type SkipError struct {
	Reason SkipReason
	Err    error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped (%s): %v", e.Reason, e.Err)
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

// NewSkipError wraps err with the reason derived from it
func NewSkipError(err error) *SkipError {
	return &SkipError{Reason: ReasonFor(err), Err: err}
}

// ReasonFor maps an evaluation error onto a skip reason
func ReasonFor(err error) SkipReason {
	var skip *SkipError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &skip):
		return skip.Reason
	case errors.Is(err, ErrInsufficientData):
		return SkipInsufficientData
	case errors.Is(err, ErrInvalidOdds):
		return SkipInvalidOdds
	case errors.Is(err, ErrInvalidCandidate), errors.Is(err, ErrInvalidProbability):
		return SkipInvalidCandidate
	case errors.Is(err, ErrHistoryUnavailable), errors.Is(err, ErrNotFound):
		return SkipHistoryUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return SkipCancelled
	default:
		return SkipInternal
	}
}

package models

import "errors"

// Custom errors
var (
	ErrInsufficientData   = errors.New("insufficient historical data")
	ErrInvalidOdds        = errors.New("invalid american odds")
	ErrInvalidProbability = errors.New("invalid probability")
	ErrInvalidCandidate   = errors.New("invalid candidate")
	ErrHistoryUnavailable = errors.New("history unavailable")
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateKey       = errors.New("duplicate key violation")
	ErrInvalidID          = errors.New("invalid ID format")
)

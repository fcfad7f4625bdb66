// Package ml trains per-entity bagged tree ensembles and produces probability
// estimates with ensemble-dispersion confidence intervals.
package ml

import "errors"

var (
	// ErrNoTrainingRows indicates the trainer received no rows
	ErrNoTrainingRows = errors.New("no training rows")

	// ErrFeatureMismatch indicates rows of differing width
	ErrFeatureMismatch = errors.New("feature vector width mismatch")

	// ErrWeightMismatch indicates the weight slice does not match the rows
	ErrWeightMismatch = errors.New("weights do not match training rows")

	// ErrInvalidWeight indicates a non-positive or non-finite sample weight
	ErrInvalidWeight = errors.New("invalid sample weight")

	// ErrMissingTarget indicates a training row without a target
	ErrMissingTarget = errors.New("training row has no target")
)

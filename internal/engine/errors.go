package engine

import "errors"

var (
	// ErrLimitExceeded is returned when a selection exceeds
	// model.MaxSelectionSize relics. Fatal to the call, never retried.
	ErrLimitExceeded = errors.New("relic selection exceeds maximum size")

	// ErrInvalidInput is returned for nil or malformed relic/context input,
	// before any computation runs.
	ErrInvalidInput = errors.New("invalid calculation input")
)

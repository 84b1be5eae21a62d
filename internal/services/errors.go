package services

import (
	"errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Aggregation errors
	ErrNoAttempts = errors.New("user has no completed quiz attempts")

	// Synthesizer errors
	ErrUpstreamUnavailable = errors.New("report synthesizer service unavailable")
	ErrMalformedOutput     = errors.New("synthesizer output could not be parsed as a report")
	ErrIncompleteOutput    = errors.New("synthesizer output is missing required report sections")

	// Orchestration errors
	ErrSelectionFailed = errors.New("eligible user selection failed")
)

// IsUserFailure reports whether err is an isolated per-user pipeline failure,
// as opposed to an infrastructure failure that should abort the whole run.
func IsUserFailure(err error) bool {
	return errors.Is(err, ErrNoAttempts) ||
		errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrMalformedOutput) ||
		errors.Is(err, ErrIncompleteOutput)
}

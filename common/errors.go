package common

import "errors"

// Error kinds. Every error produced by the program wraps exactly one of these
// so callers can use errors.Is to decide what to do.
var (
	ErrConfigIncomplete = errors.New("configuration is incomplete")
	ErrInvalidInput     = errors.New("invalid input")
	ErrAuthExpired      = errors.New("access token is invalid or expired")
	ErrTokenRejected    = errors.New("access token still rejected after refresh")
	ErrRequestFailed    = errors.New("request failed")
	ErrResolutionFailed = errors.New("gallery resolution failed")
	ErrWorkdirConflict  = errors.New("workdir conflict")
)

// ExitCode maps error to program exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfigIncomplete), errors.Is(err, ErrInvalidInput):
		return 2
	default:
		return 1
	}
}

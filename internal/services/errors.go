// Package services holds the error taxonomy shared by every external
// collaborator client and by the cache-backed stages.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the resource is absent upstream (missing video, no
	// captions). Never retried.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable: transient upstream failure. Surfaced, not retried
	// by the core.
	ErrUnavailable = errors.New("service unavailable")
	// ErrRateLimited: upstream throttling. Surfaced, not retried by the core.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidResponse: the producer returned something unusable.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrIO: cache read/write failure. Fatal to the run.
	ErrIO = errors.New("io error")
)

// Wrap tags err with one of the sentinel markers above while keeping the
// original error in the chain.
func Wrap(marker error, op string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, op, err)
	}
	return fmt.Errorf("%w: %s", marker, op)
}

// Kind maps an error to its taxonomy name for result reporting.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnavailable):
		return "service_unavailable"
	case errors.Is(err, ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, ErrIO):
		return "io_error"
	default:
		return "error"
	}
}

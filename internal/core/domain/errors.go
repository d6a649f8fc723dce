package domain

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies the outcome of a failed remote call.
type FailureKind string

const (
	FailureTransient         FailureKind = "transient"
	FailureResourceExhausted FailureKind = "resource_exhausted"
	FailurePermanent         FailureKind = "permanent"
	FailureConfiguration     FailureKind = "configuration"
)

var (
	// ErrResourceExhausted marks a rate-limit signal from the remote service.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrTransient marks a failure that may succeed on a later attempt.
	ErrTransient = errors.New("transient failure")

	// ErrPermanent marks a failure that must not be retried.
	ErrPermanent = errors.New("permanent failure")

	// ErrConfiguration is returned for invalid settings or requests that can never be served.
	ErrConfiguration = errors.New("configuration error")
)

// ResourceExhausted wraps err as a rate-limit signal.
func ResourceExhausted(err error) error {
	return wrap(ErrResourceExhausted, err)
}

// Transient wraps err as a retryable failure.
func Transient(err error) error {
	return wrap(ErrTransient, err)
}

// Permanent wraps err as a non-retryable failure.
func Permanent(err error) error {
	return wrap(ErrPermanent, err)
}

// Configuration builds a configuration error from a format string.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func wrap(kind, err error) error {
	if err == nil {
		return kind
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Classify maps an error returned by a remote call to its failure kind.
// Unmarked errors are treated as transient; a cancelled context is permanent
// while an expired per-attempt deadline is transient.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, ErrConfiguration):
		return FailureConfiguration
	case errors.Is(err, ErrPermanent):
		return FailurePermanent
	case errors.Is(err, ErrResourceExhausted):
		return FailureResourceExhausted
	case errors.Is(err, ErrTransient):
		return FailureTransient
	case errors.Is(err, context.Canceled):
		return FailurePermanent
	default:
		return FailureTransient
	}
}

// Retryable reports whether a failure of this kind may be attempted again.
func (k FailureKind) Retryable() bool {
	return k == FailureTransient || k == FailureResourceExhausted
}

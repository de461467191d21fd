package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
)

// Classification decides whether the bus retries a failed handler.
type Classification int

const (
	// ClassificationTransient indicates retry will likely help.
	// Examples: timeouts, flaky downstream calls.
	ClassificationTransient Classification = iota

	// ClassificationPermanent indicates retry won't help.
	// Examples: schema mismatch, business-rule rejection.
	ClassificationPermanent
)

// String returns the classification name.
func (c Classification) String() string {
	switch c {
	case ClassificationTransient:
		return "transient"
	case ClassificationPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// HandlerError wraps a handler failure with its retry classification.
type HandlerError struct {
	Classification Classification
	Err            error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s handler error: %v", e.Classification, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable.
func Transient(err error) *HandlerError {
	return &HandlerError{Classification: ClassificationTransient, Err: err}
}

// Permanent wraps err as not retryable.
func Permanent(err error) *HandlerError {
	return &HandlerError{Classification: ClassificationPermanent, Err: err}
}

// Classify determines how the bus treats a handler failure. Explicitly
// wrapped errors keep their classification; domain errors are permanent
// (retrying a business-rule rejection cannot succeed); timeouts and
// everything unclassified are retried.
func Classify(err error) Classification {
	var herr *HandlerError
	if errors.As(err, &herr) {
		return herr.Classification
	}
	if domain.IsDomainError(err) {
		return ClassificationPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassificationTransient
	}
	return ClassificationTransient
}

// PublishError indicates the publish itself failed, before any handler ran.
// The only cause today is the serialization self-check.
type PublishError struct {
	EventType string
	Err       error
}

// Error implements the error interface.
func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish %s: %v", e.EventType, e.Err)
}

// Unwrap returns the underlying error.
func (e *PublishError) Unwrap() error {
	return e.Err
}

package domain

import (
	"errors"
	"fmt"
)

// domainError is the marker implemented by every business rule violation.
// Handlers use IsDomainError to decide between compensation and retry.
type domainError interface {
	error
	domainError()
}

// IsDomainError reports whether err (or anything it wraps) is a business
// rule violation rather than an infrastructure failure.
func IsDomainError(err error) bool {
	var de domainError
	return errors.As(err, &de)
}

// InvalidStateError indicates an operation was attempted in a status that
// does not permit it.
type InvalidStateError struct {
	Operation string
	Current   OrderStatus
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s order in status %s", e.Operation, e.Current)
}

func (e *InvalidStateError) domainError() {}

// InsufficientInventoryError indicates a reservation exceeded the stock on hand.
type InsufficientInventoryError struct {
	BookID    BookID
	Requested int
	Available int
}

// Error implements the error interface.
func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for book %s: requested %d, available %d",
		e.BookID, e.Requested, e.Available)
}

func (e *InsufficientInventoryError) domainError() {}

// OrderValidationError indicates an order failed a precondition check,
// e.g. confirming with no lines or no shipping address.
type OrderValidationError struct {
	Reason string
}

// Error implements the error interface.
func (e *OrderValidationError) Error() string {
	return fmt.Sprintf("order validation failed: %s", e.Reason)
}

func (e *OrderValidationError) domainError() {}

// CurrencyMismatchError indicates arithmetic between different currencies.
type CurrencyMismatchError struct {
	Left  Currency
	Right Currency
}

// Error implements the error interface.
func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: %s vs %s", e.Left, e.Right)
}

func (e *CurrencyMismatchError) domainError() {}

// InvalidValueError indicates a value object was constructed from invalid input.
type InvalidValueError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidValueError) domainError() {}

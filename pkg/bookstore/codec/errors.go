package codec

import "fmt"

// EncodeError indicates an event could not be serialized to JSON.
type EncodeError struct {
	EventType string
	Err       error
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode %s: %v", e.EventType, e.Err)
}

// Unwrap returns the underlying error.
func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DecodeError indicates input could not be parsed back into an event.
// InputPreview carries a truncated copy of the offending input so failures
// are diagnosable without unbounded payloads ending up in logs.
type DecodeError struct {
	Reason       string
	InputPreview string
	Err          error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode event: %s (input: %q)", e.Reason, e.InputPreview)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnsupportedSchemaVersionError indicates the event's schema version falls
// outside the supported range.
type UnsupportedSchemaVersionError struct {
	Version int
	Min     int
	Max     int
}

// Error implements the error interface.
func (e *UnsupportedSchemaVersionError) Error() string {
	return fmt.Sprintf("unsupported schema version %d (supported: %d-%d)", e.Version, e.Min, e.Max)
}

// MissingFieldError indicates a required field was absent or nil.
type MissingFieldError struct {
	EventType string
	Field     string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %s", e.EventType, e.Field)
}

// InvalidFieldError indicates a field held a value that fails validation.
type InvalidFieldError struct {
	EventType string
	Field     string
	Reason    string
}

// Error implements the error interface.
func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s: invalid field %s: %s", e.EventType, e.Field, e.Reason)
}

// UnsupportedEventTypeError indicates an envelope named an event type not
// known to the codec.
type UnsupportedEventTypeError struct {
	EventType string
}

// Error implements the error interface.
func (e *UnsupportedEventTypeError) Error() string {
	return fmt.Sprintf("unsupported event type %q", e.EventType)
}

// EnvelopeError indicates serialized output failed the envelope shape check.
type EnvelopeError struct {
	Reason string
}

// Error implements the error interface.
func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("invalid event envelope: %s", e.Reason)
}

// Package observability provides structured logging and metrics for the
// order saga: correlation-id-tagged logging via slog (Go stdlib) and
// metrics via OpenTelemetry.
//
// All features have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"sort"

	"github.com/google/uuid"
)

// Logger is the structured logging contract used pervasively by handlers.
// Every entry names the emitting component and, where available, carries
// the correlation id of the saga instance it belongs to.
type Logger interface {
	Debug(component, message string, correlationID *uuid.UUID, attrs map[string]string)
	Info(component, message string, correlationID *uuid.UUID, attrs map[string]string)
	Warn(component, message string, correlationID *uuid.UUID, attrs map[string]string)
	Error(component, message string, correlationID *uuid.UUID, attrs map[string]string)
}

// SlogLogger adapts a *slog.Logger to the Logger contract.
type SlogLogger struct {
	logger *slog.Logger
}

// Compile-time interface check.
var _ Logger = (*SlogLogger)(nil)

// NewSlogLogger wraps the given slog logger. A nil argument uses
// slog.Default().
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// Debug logs at debug level.
func (l *SlogLogger) Debug(component, message string, correlationID *uuid.UUID, attrs map[string]string) {
	l.logger.Debug(message, logAttrs(component, correlationID, attrs)...)
}

// Info logs at info level.
func (l *SlogLogger) Info(component, message string, correlationID *uuid.UUID, attrs map[string]string) {
	l.logger.Info(message, logAttrs(component, correlationID, attrs)...)
}

// Warn logs at warn level.
func (l *SlogLogger) Warn(component, message string, correlationID *uuid.UUID, attrs map[string]string) {
	l.logger.Warn(message, logAttrs(component, correlationID, attrs)...)
}

// Error logs at error level.
func (l *SlogLogger) Error(component, message string, correlationID *uuid.UUID, attrs map[string]string) {
	l.logger.Error(message, logAttrs(component, correlationID, attrs)...)
}

// logAttrs flattens component, correlation id, and free-form attributes
// into slog args. Attributes are sorted so log lines are deterministic.
func logAttrs(component string, correlationID *uuid.UUID, attrs map[string]string) []any {
	args := make([]any, 0, 2+len(attrs))
	args = append(args, slog.String("component", component))
	if correlationID != nil {
		args = append(args, slog.String("correlation_id", correlationID.String()))
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, slog.String(k, attrs[k]))
	}
	return args
}

// NoopLogger discards everything. Use in tests and when logging is disabled.
type NoopLogger struct{}

// Compile-time interface check.
var _ Logger = NoopLogger{}

// Debug does nothing.
func (NoopLogger) Debug(_, _ string, _ *uuid.UUID, _ map[string]string) {}

// Info does nothing.
func (NoopLogger) Info(_, _ string, _ *uuid.UUID, _ map[string]string) {}

// Warn does nothing.
func (NoopLogger) Warn(_, _ string, _ *uuid.UUID, _ map[string]string) {}

// Error does nothing.
func (NoopLogger) Error(_, _ string, _ *uuid.UUID, _ map[string]string) {}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current event schema version. It is stamped into
// every new event's metadata and checked by the serializer and by handlers.
const SchemaVersion = 1

// Metadata is attached to every domain event.
//
// EventID is the idempotency key for handler execution. CorrelationID ties
// together all events produced by one user action; it defaults to the event's
// own id and is re-stamped via WithCorrelationID before publish.
type Metadata struct {
	EventID       uuid.UUID         `json:"event_id"`
	OccurredAt    time.Time         `json:"occurred_at"`
	CorrelationID uuid.UUID         `json:"correlation_id"`
	EventVersion  int               `json:"event_version"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// NewMetadata creates metadata for a freshly emitted event.
// The correlation id starts out equal to the event id.
func NewMetadata() Metadata {
	id := uuid.New()
	return Metadata{
		EventID:       id,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: id,
		EventVersion:  SchemaVersion,
	}
}

// Meta returns the metadata itself. It exists so that embedding Metadata
// satisfies the Event interface's metadata accessor.
func (m Metadata) Meta() Metadata {
	return m
}

// WithCorrelationID returns a copy of the metadata with the correlation id
// replaced. The receiver is not modified.
func (m Metadata) WithCorrelationID(id uuid.UUID) Metadata {
	m.CorrelationID = id
	return m
}

// WithAttribute returns a copy of the metadata with one attribute added.
func (m Metadata) WithAttribute(key, value string) Metadata {
	attrs := make(map[string]string, len(m.Attributes)+1)
	for k, v := range m.Attributes {
		attrs[k] = v
	}
	attrs[key] = value
	m.Attributes = attrs
	return m
}

// Event is the closed interface over all domain event variants.
// Events are immutable values; WithCorrelationID returns a re-stamped copy.
type Event interface {
	// EventType returns the variant name used in the serialized envelope.
	EventType() string

	// Meta returns the event metadata.
	Meta() Metadata

	// WithCorrelationID returns a copy of the event whose metadata carries
	// the given correlation id.
	WithCorrelationID(id uuid.UUID) Event
}

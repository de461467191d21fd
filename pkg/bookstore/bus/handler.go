package bus

import (
	"context"
	"fmt"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
)

// Handler is the type-erased handler contract the bus dispatches against.
// Handlers reacting to multiple event types implement it directly; handlers
// for one event type implement EventHandler and are wrapped by the typed
// Subscribe methods.
type Handler interface {
	// HandleEvent processes one event. The context carries the per-attempt
	// timeout set by the bus.
	HandleEvent(ctx context.Context, evt domain.Event) error

	// CanHandle reports whether this handler reacts to the event's
	// runtime variant.
	CanHandle(evt domain.Event) bool

	// Name identifies the handler in logs, metrics, and dead-letter entries.
	Name() string

	// SupportsSchemaVersion reports whether the handler understands events
	// of the given schema version. Unsupported events are dead-lettered
	// without execution.
	SupportsSchemaVersion(version int) bool
}

// EventHandler is a handler for one concrete event type.
type EventHandler[E domain.Event] interface {
	Handle(ctx context.Context, evt E) error
	Name() string
}

// SchemaVersioner lets an EventHandler override the default schema version
// support (current version only).
type SchemaVersioner interface {
	SupportsSchemaVersion(version int) bool
}

// typedHandler adapts an EventHandler[E] to the type-erased Handler.
type typedHandler[E domain.Event] struct {
	inner EventHandler[E]
}

// NewTypedHandler wraps a typed handler in a type-erased adapter.
func NewTypedHandler[E domain.Event](h EventHandler[E]) Handler {
	return &typedHandler[E]{inner: h}
}

// HandleEvent asserts the event to the handler's concrete type and delegates.
func (h *typedHandler[E]) HandleEvent(ctx context.Context, evt domain.Event) error {
	typed, ok := evt.(E)
	if !ok {
		return Permanent(fmt.Errorf("handler %s cannot process %s", h.inner.Name(), evt.EventType()))
	}
	return h.inner.Handle(ctx, typed)
}

// CanHandle reports whether the event is the adapted concrete type.
func (h *typedHandler[E]) CanHandle(evt domain.Event) bool {
	_, ok := evt.(E)
	return ok
}

// Name returns the wrapped handler's name.
func (h *typedHandler[E]) Name() string {
	return h.inner.Name()
}

// SupportsSchemaVersion delegates to the wrapped handler when it opts in,
// otherwise accepts only the current schema version.
func (h *typedHandler[E]) SupportsSchemaVersion(version int) bool {
	if v, ok := h.inner.(SchemaVersioner); ok {
		return v.SupportsSchemaVersion(version)
	}
	return version == domain.SchemaVersion
}

// Package saga contains the choreographed saga handlers for order
// fulfillment: the forward steps (inventory reservation, shipping,
// delivery), their compensating counterparts, notification and consistency
// checks, and the idempotency tracking that makes at-least-once delivery
// safe to act on.
package saga

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ProcessedEventStore records which events a handler has already acted on.
// Handlers check it before acting and mark events on both success and
// terminal failure, turning redelivery into a no-op.
type ProcessedEventStore interface {
	IsProcessed(ctx context.Context, handler string, eventID uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, handler string, eventID uuid.UUID) error
}

// trackerKey identifies one (handler, event) pair.
type trackerKey struct {
	handler string
	eventID uuid.UUID
}

// Tracker is the in-memory ProcessedEventStore. It lives for the process
// only; a restart forgets prior processing, so redelivery across restarts
// can reprocess events. Back it with SQLiteTracker when that matters.
type Tracker struct {
	mu   sync.Mutex
	seen map[trackerKey]struct{}
}

// Compile-time interface check.
var _ ProcessedEventStore = (*Tracker)(nil)

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[trackerKey]struct{})}
}

// IsProcessed reports whether the handler has already processed the event.
func (t *Tracker) IsProcessed(_ context.Context, handler string, eventID uuid.UUID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[trackerKey{handler: handler, eventID: eventID}]
	return ok, nil
}

// MarkProcessed records the event as processed by the handler.
func (t *Tracker) MarkProcessed(_ context.Context, handler string, eventID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[trackerKey{handler: handler, eventID: eventID}] = struct{}{}
	return nil
}

// Len returns the number of tracked (handler, event) pairs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

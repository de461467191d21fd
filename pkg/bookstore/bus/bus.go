// Package bus implements the in-memory event bus driving the order saga:
// a subscription registry with per-handler retry and timeout policy, a
// bounded dead-letter queue, and a serialization self-check before dispatch.
//
// Delivery is at-least-once: a handler may see the same event again after a
// timeout whose work actually completed. Handlers are expected to be
// idempotent; the saga package gates its handlers on processed event ids.
package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/codec"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/observability"
)

const logComponent = "event-bus"

// InMemoryBus is a single-process event bus.
//
// Handler executions within one Publish call run sequentially so that
// downstream handlers observe the state left by upstream ones; separate
// Publish calls may run concurrently.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers []Handler

	config  Config
	dlq     *DeadLetterQueue
	logger  observability.Logger
	metrics observability.MetricsRecorder

	published    atomic.Int64
	delivered    atomic.Int64
	failed       atomic.Int64
	deadLettered atomic.Int64
}

// Option configures the bus.
type Option func(*InMemoryBus)

// WithConfig sets the retry/timeout/dead-letter policy. Zero-valued fields
// keep their defaults.
func WithConfig(cfg Config) Option {
	return func(b *InMemoryBus) {
		b.config = cfg.withDefaults()
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(b *InMemoryBus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics observability.MetricsRecorder) Option {
	return func(b *InMemoryBus) {
		if metrics != nil {
			b.metrics = metrics
		}
	}
}

// New creates a bus with the default policy, a no-op logger, and no-op
// metrics unless overridden by options.
func New(opts ...Option) *InMemoryBus {
	b := &InMemoryBus{
		config:  DefaultConfig(),
		logger:  observability.NoopLogger{},
		metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.dlq = NewDeadLetterQueue(b.config.DeadLetterQueueMaxSize)
	return b
}

// Config returns the retry and dead-letter policy the bus runs with.
func (b *InMemoryBus) Config() Config {
	return b.config
}

// Subscribe registers a type-erased handler.
func (b *InMemoryBus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Typed subscription methods, one per event variant.

// SubscribeOrderConfirmed registers a handler for OrderConfirmed.
func (b *InMemoryBus) SubscribeOrderConfirmed(h EventHandler[domain.OrderConfirmed]) {
	b.Subscribe(NewTypedHandler(h))
}

// SubscribeOrderCancelled registers a handler for OrderCancelled.
func (b *InMemoryBus) SubscribeOrderCancelled(h EventHandler[domain.OrderCancelled]) {
	b.Subscribe(NewTypedHandler(h))
}

// SubscribeOrderShipped registers a handler for OrderShipped.
func (b *InMemoryBus) SubscribeOrderShipped(h EventHandler[domain.OrderShipped]) {
	b.Subscribe(NewTypedHandler(h))
}

// SubscribeOrderDelivered registers a handler for OrderDelivered.
func (b *InMemoryBus) SubscribeOrderDelivered(h EventHandler[domain.OrderDelivered]) {
	b.Subscribe(NewTypedHandler(h))
}

// SubscribeInventoryReserved registers a handler for InventoryReserved.
func (b *InMemoryBus) SubscribeInventoryReserved(h EventHandler[domain.InventoryReserved]) {
	b.Subscribe(NewTypedHandler(h))
}

// SubscribeInventoryReleased registers a handler for InventoryReleased.
func (b *InMemoryBus) SubscribeInventoryReleased(h EventHandler[domain.InventoryReleased]) {
	b.Subscribe(NewTypedHandler(h))
}

// SubscribeInventoryReservationFailed registers a handler for InventoryReservationFailed.
func (b *InMemoryBus) SubscribeInventoryReservationFailed(h EventHandler[domain.InventoryReservationFailed]) {
	b.Subscribe(NewTypedHandler(h))
}

// SubscribeShippingFailed registers a handler for ShippingFailed.
func (b *InMemoryBus) SubscribeShippingFailed(h EventHandler[domain.ShippingFailed]) {
	b.Subscribe(NewTypedHandler(h))
}

// SubscribeDeliveryFailed registers a handler for DeliveryFailed.
func (b *InMemoryBus) SubscribeDeliveryFailed(h EventHandler[domain.DeliveryFailed]) {
	b.Subscribe(NewTypedHandler(h))
}

// SubscribeSagaCompensationStarted registers a handler for SagaCompensationStarted.
func (b *InMemoryBus) SubscribeSagaCompensationStarted(h EventHandler[domain.SagaCompensationStarted]) {
	b.Subscribe(NewTypedHandler(h))
}

// SubscribeSagaCompensationCompleted registers a handler for SagaCompensationCompleted.
func (b *InMemoryBus) SubscribeSagaCompensationCompleted(h EventHandler[domain.SagaCompensationCompleted]) {
	b.Subscribe(NewTypedHandler(h))
}

// Publish dispatches an event to every matching handler.
//
// A failed serialization self-check fails the publish before any handler
// runs. Handler failures never do: after retries are exhausted (or
// immediately for permanent errors) the failure is recorded in the
// dead-letter queue and dispatch continues with the remaining handlers.
func (b *InMemoryBus) Publish(ctx context.Context, evt domain.Event) error {
	start := time.Now()

	if err := b.selfCheck(evt); err != nil {
		b.logError(evt, "event failed serialization self-check", map[string]string{
			"error": err.Error(),
		})
		return &PublishError{EventType: evt.EventType(), Err: err}
	}

	b.published.Add(1)
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if !h.CanHandle(evt) {
			continue
		}
		version := evt.Meta().EventVersion
		if !h.SupportsSchemaVersion(version) {
			now := time.Now().UTC()
			b.deadLetter(ctx, DeadLetterEntry{
				Event:          evt,
				HandlerName:    h.Name(),
				Err:            Permanent(fmt.Errorf("handler %s does not support schema version %d", h.Name(), version)),
				Classification: ClassificationPermanent,
				AttemptCount:   0,
				FirstFailedAt:  now,
				LastFailedAt:   now,
			})
			continue
		}
		b.dispatch(ctx, evt, h)
	}

	b.metrics.RecordPublish(ctx, evt.EventType(), time.Since(start))
	return nil
}

// selfCheck round-trips the event through the codec and verifies identity
// fields survive. It guards against schema regressions before any handler
// observes the event.
func (b *InMemoryBus) selfCheck(evt domain.Event) error {
	data, err := codec.Serialize(evt)
	if err != nil {
		return err
	}
	decoded, err := codec.Deserialize(data)
	if err != nil {
		return err
	}
	if decoded.EventType() != evt.EventType() ||
		decoded.Meta().EventID != evt.Meta().EventID ||
		decoded.Meta().CorrelationID != evt.Meta().CorrelationID {
		return fmt.Errorf("round trip produced a different event for %s", evt.EventType())
	}
	return nil
}

// dispatch runs one handler with the retry policy and dead-letters terminal
// failures.
func (b *InMemoryBus) dispatch(ctx context.Context, evt domain.Event, h Handler) {
	var (
		lastErr        error
		classification Classification
		firstFailedAt  time.Time
		attempts       int
	)

	for attempt := 1; attempt <= b.config.MaxRetryAttempts; attempt++ {
		attempts = attempt
		attemptStart := time.Now()
		err := b.runAttempt(ctx, evt, h)
		b.metrics.RecordHandlerExecution(ctx, h.Name(), evt.EventType(), time.Since(attemptStart), err)

		if err == nil {
			b.delivered.Add(1)
			b.logDebug(evt, "handler completed", map[string]string{
				"handler": h.Name(),
				"attempt": fmt.Sprintf("%d", attempt),
			})
			return
		}

		lastErr = err
		classification = Classify(err)
		if firstFailedAt.IsZero() {
			firstFailedAt = time.Now().UTC()
		}
		b.logWarn(evt, "handler attempt failed", map[string]string{
			"handler":        h.Name(),
			"attempt":        fmt.Sprintf("%d", attempt),
			"classification": classification.String(),
			"error":          err.Error(),
		})

		if classification == ClassificationPermanent {
			break
		}
		if attempt < b.config.MaxRetryAttempts {
			select {
			case <-time.After(b.config.RetryDelay):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = b.config.MaxRetryAttempts
			}
		}
	}

	b.failed.Add(1)
	b.deadLetter(ctx, DeadLetterEntry{
		Event:          evt,
		HandlerName:    h.Name(),
		Err:            lastErr,
		Classification: classification,
		AttemptCount:   attempts,
		FirstFailedAt:  firstFailedAt,
		LastFailedAt:   time.Now().UTC(),
	})
}

// runAttempt executes one handler attempt under the configured timeout.
// A timed-out attempt is abandoned and counts as a transient failure; its
// goroutine may still be running, which is why delivery is at-least-once.
func (b *InMemoryBus) runAttempt(ctx context.Context, evt domain.Event, h Handler) error {
	attemptCtx, cancel := context.WithTimeout(ctx, b.config.HandlerTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- h.HandleEvent(attemptCtx, evt)
	}()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		return Transient(fmt.Errorf("handler %s timed out after %s", h.Name(), b.config.HandlerTimeout))
	}
}

func (b *InMemoryBus) deadLetter(ctx context.Context, entry DeadLetterEntry) {
	b.dlq.Enqueue(entry)
	b.deadLettered.Add(1)
	b.metrics.RecordDeadLetter(ctx, entry.HandlerName, entry.Event.EventType())
	b.logError(entry.Event, "event routed to dead-letter queue", map[string]string{
		"handler":        entry.HandlerName,
		"attempts":       fmt.Sprintf("%d", entry.AttemptCount),
		"classification": entry.Classification.String(),
		"error":          fmt.Sprintf("%v", entry.Err),
	})
}

// DeadLetterEntries returns a copy of the dead-letter queue, oldest first.
func (b *InMemoryBus) DeadLetterEntries() []DeadLetterEntry {
	return b.dlq.Entries()
}

// DeadLetterLen returns the current dead-letter queue length.
func (b *InMemoryBus) DeadLetterLen() int {
	return b.dlq.Len()
}

// Stats is a snapshot of the bus counters. DeadLettered counts all entries
// ever enqueued, including evicted ones.
type Stats struct {
	Published    int64
	Delivered    int64
	Failed       int64
	DeadLettered int64
}

// Stats returns a snapshot of the bus counters.
func (b *InMemoryBus) Stats() Stats {
	return Stats{
		Published:    b.published.Load(),
		Delivered:    b.delivered.Load(),
		Failed:       b.failed.Load(),
		DeadLettered: b.deadLettered.Load(),
	}
}

func (b *InMemoryBus) logDebug(evt domain.Event, msg string, attrs map[string]string) {
	correlation := evt.Meta().CorrelationID
	b.logger.Debug(logComponent, msg, &correlation, withEventType(evt, attrs))
}

func (b *InMemoryBus) logWarn(evt domain.Event, msg string, attrs map[string]string) {
	correlation := evt.Meta().CorrelationID
	b.logger.Warn(logComponent, msg, &correlation, withEventType(evt, attrs))
}

func (b *InMemoryBus) logError(evt domain.Event, msg string, attrs map[string]string) {
	correlation := evt.Meta().CorrelationID
	b.logger.Error(logComponent, msg, &correlation, withEventType(evt, attrs))
}

func withEventType(evt domain.Event, attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	out["event_type"] = evt.EventType()
	return out
}

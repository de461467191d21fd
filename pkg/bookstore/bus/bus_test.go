package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
)

// fakeHandler implements Handler directly so tests can script its behavior.
type fakeHandler struct {
	mu       sync.Mutex
	name     string
	handles  func(evt domain.Event) bool
	versions func(version int) bool
	results  []error
	calls    int
	block    time.Duration
}

func newFakeHandler(name string, results ...error) *fakeHandler {
	return &fakeHandler{name: name, results: results}
}

func (h *fakeHandler) HandleEvent(ctx context.Context, _ domain.Event) error {
	if h.block > 0 {
		select {
		case <-time.After(h.block):
		case <-ctx.Done():
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	call := h.calls
	h.calls++
	if call < len(h.results) {
		return h.results[call]
	}
	return nil
}

func (h *fakeHandler) CanHandle(evt domain.Event) bool {
	if h.handles != nil {
		return h.handles(evt)
	}
	return true
}

func (h *fakeHandler) Name() string { return h.name }

func (h *fakeHandler) SupportsSchemaVersion(version int) bool {
	if h.versions != nil {
		return h.versions(version)
	}
	return version == domain.SchemaVersion
}

func (h *fakeHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func fastConfig() Config {
	return Config{
		MaxRetryAttempts:       3,
		RetryDelay:             time.Millisecond,
		HandlerTimeout:         50 * time.Millisecond,
		DeadLetterQueueMaxSize: 10,
	}
}

func deliveredEvent() domain.Event {
	return domain.NewOrderDelivered(domain.NewOrderID())
}

func TestPublishDispatchesToMatchingHandlers(t *testing.T) {
	b := New(WithConfig(fastConfig()))

	matching := newFakeHandler("matching")
	other := newFakeHandler("other")
	other.handles = func(evt domain.Event) bool {
		return evt.EventType() == domain.EventTypeOrderShipped
	}
	b.Subscribe(matching)
	b.Subscribe(other)

	if err := b.Publish(context.Background(), deliveredEvent()); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if got := matching.callCount(); got != 1 {
		t.Errorf("matching handler called %d times, want 1", got)
	}
	if got := other.callCount(); got != 0 {
		t.Errorf("non-matching handler called %d times, want 0", got)
	}
}

func TestPublishRetriesTransientErrors(t *testing.T) {
	b := New(WithConfig(fastConfig()))
	h := newFakeHandler("flaky",
		Transient(errors.New("first failure")),
		Transient(errors.New("second failure")),
		nil,
	)
	b.Subscribe(h)

	if err := b.Publish(context.Background(), deliveredEvent()); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if got := h.callCount(); got != 3 {
		t.Errorf("handler called %d times, want 3", got)
	}
	if got := b.DeadLetterLen(); got != 0 {
		t.Errorf("dead-letter queue has %d entries, want 0", got)
	}
}

func TestPublishExhaustedRetriesDeadLetter(t *testing.T) {
	b := New(WithConfig(fastConfig()))
	h := newFakeHandler("always-failing",
		Transient(errors.New("fail 1")),
		Transient(errors.New("fail 2")),
		Transient(errors.New("fail 3")),
	)
	b.Subscribe(h)

	if err := b.Publish(context.Background(), deliveredEvent()); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if got := h.callCount(); got != 3 {
		t.Errorf("handler called %d times, want 3", got)
	}
	entries := b.DeadLetterEntries()
	if len(entries) != 1 {
		t.Fatalf("dead-letter queue has %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.HandlerName != "always-failing" {
		t.Errorf("entry handler = %q, want %q", entry.HandlerName, "always-failing")
	}
	if entry.AttemptCount != 3 {
		t.Errorf("entry attempts = %d, want 3", entry.AttemptCount)
	}
	if entry.Classification != ClassificationTransient {
		t.Errorf("entry classification = %s, want transient", entry.Classification)
	}
	if entry.FirstFailedAt.IsZero() || entry.LastFailedAt.IsZero() || entry.AddedAt.IsZero() {
		t.Error("entry timestamps should be set")
	}
}

func TestPublishPermanentErrorStopsImmediately(t *testing.T) {
	b := New(WithConfig(fastConfig()))
	h := newFakeHandler("rejecting", Permanent(errors.New("schema mismatch")))
	b.Subscribe(h)

	if err := b.Publish(context.Background(), deliveredEvent()); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if got := h.callCount(); got != 1 {
		t.Errorf("handler called %d times, want 1 (no retry for permanent)", got)
	}
	entries := b.DeadLetterEntries()
	if len(entries) != 1 {
		t.Fatalf("dead-letter queue has %d entries, want 1", len(entries))
	}
	if entries[0].Classification != ClassificationPermanent {
		t.Errorf("classification = %s, want permanent", entries[0].Classification)
	}
}

func TestPublishDomainErrorIsPermanent(t *testing.T) {
	b := New(WithConfig(fastConfig()))
	h := newFakeHandler("domain-failing", &domain.OrderValidationError{Reason: "no lines"})
	b.Subscribe(h)

	if err := b.Publish(context.Background(), deliveredEvent()); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if got := h.callCount(); got != 1 {
		t.Errorf("handler called %d times, want 1", got)
	}
}

func TestPublishTimeoutIsTransient(t *testing.T) {
	cfg := fastConfig()
	cfg.HandlerTimeout = 10 * time.Millisecond
	b := New(WithConfig(cfg))
	h := newFakeHandler("slow")
	h.block = 200 * time.Millisecond
	b.Subscribe(h)

	if err := b.Publish(context.Background(), deliveredEvent()); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	entries := b.DeadLetterEntries()
	if len(entries) != 1 {
		t.Fatalf("dead-letter queue has %d entries, want 1", len(entries))
	}
	if entries[0].AttemptCount != cfg.MaxRetryAttempts {
		t.Errorf("attempts = %d, want %d (timeouts are retried)", entries[0].AttemptCount, cfg.MaxRetryAttempts)
	}
	if entries[0].Classification != ClassificationTransient {
		t.Errorf("classification = %s, want transient", entries[0].Classification)
	}
}

func TestPublishContinuesAfterHandlerFailure(t *testing.T) {
	b := New(WithConfig(fastConfig()))
	failing := newFakeHandler("failing", Permanent(errors.New("nope")))
	succeeding := newFakeHandler("succeeding")
	b.Subscribe(failing)
	b.Subscribe(succeeding)

	if err := b.Publish(context.Background(), deliveredEvent()); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if got := succeeding.callCount(); got != 1 {
		t.Errorf("second handler called %d times, want 1", got)
	}
}

func TestPublishSelfCheckFailure(t *testing.T) {
	b := New(WithConfig(fastConfig()))
	h := newFakeHandler("never-called")
	b.Subscribe(h)

	evt := domain.NewOrderDelivered(domain.NewOrderID())
	evt.Metadata.EventID = uuid.Nil

	err := b.Publish(context.Background(), evt)

	var pubErr *PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublishError, got %v", err)
	}
	if got := h.callCount(); got != 0 {
		t.Errorf("handler called %d times, want 0", got)
	}
	if got := b.DeadLetterLen(); got != 0 {
		t.Errorf("dead-letter queue has %d entries, want 0", got)
	}
}

func TestPublishUnsupportedVersionDeadLettersWithoutExecution(t *testing.T) {
	b := New(WithConfig(fastConfig()))
	h := newFakeHandler("v2-only")
	h.versions = func(version int) bool { return version == 2 }
	b.Subscribe(h)

	if err := b.Publish(context.Background(), deliveredEvent()); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if got := h.callCount(); got != 0 {
		t.Errorf("handler called %d times, want 0", got)
	}
	entries := b.DeadLetterEntries()
	if len(entries) != 1 {
		t.Fatalf("dead-letter queue has %d entries, want 1", len(entries))
	}
	if entries[0].AttemptCount != 0 {
		t.Errorf("attempts = %d, want 0", entries[0].AttemptCount)
	}
	if entries[0].Classification != ClassificationPermanent {
		t.Errorf("classification = %s, want permanent", entries[0].Classification)
	}
}

func TestDeadLetterQueueBound(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxRetryAttempts = 1
	cfg.DeadLetterQueueMaxSize = 3
	b := New(WithConfig(cfg))
	b.Subscribe(newFakeHandler("failing",
		Permanent(errors.New("e1")), Permanent(errors.New("e2")), Permanent(errors.New("e3")),
		Permanent(errors.New("e4")), Permanent(errors.New("e5")),
	))

	var published []domain.Event
	for i := 0; i < 5; i++ {
		evt := deliveredEvent()
		published = append(published, evt)
		if err := b.Publish(context.Background(), evt); err != nil {
			t.Fatalf("publish %d failed: %v", i, err)
		}
	}

	entries := b.DeadLetterEntries()
	if len(entries) != 3 {
		t.Fatalf("dead-letter queue has %d entries, want 3", len(entries))
	}
	// oldest evicted: entries are for the last three published events
	for i, entry := range entries {
		want := published[i+2].Meta().EventID
		if entry.Event.Meta().EventID != want {
			t.Errorf("entry %d holds event %s, want %s", i, entry.Event.Meta().EventID, want)
		}
	}
	if got := b.Stats().DeadLettered; got != 5 {
		t.Errorf("total dead-lettered = %d, want 5", got)
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := New(WithConfig(fastConfig()))
	h := newFakeHandler("counter")
	b.Subscribe(h)

	const goroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Publish(context.Background(), deliveredEvent()); err != nil {
				t.Errorf("publish failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := h.callCount(); got != goroutines {
		t.Errorf("handler called %d times, want %d", got, goroutines)
	}
	stats := b.Stats()
	if stats.Published != goroutines {
		t.Errorf("published = %d, want %d", stats.Published, goroutines)
	}
	if stats.Delivered != goroutines {
		t.Errorf("delivered = %d, want %d", stats.Delivered, goroutines)
	}
}

func TestStats(t *testing.T) {
	b := New(WithConfig(fastConfig()))
	b.Subscribe(newFakeHandler("ok"))
	b.Subscribe(newFakeHandler("bad", Permanent(errors.New("always")), Permanent(errors.New("always"))))

	for i := 0; i < 2; i++ {
		if err := b.Publish(context.Background(), deliveredEvent()); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	stats := b.Stats()
	if stats.Published != 2 {
		t.Errorf("published = %d, want 2", stats.Published)
	}
	if stats.Delivered != 2 {
		t.Errorf("delivered = %d, want 2", stats.Delivered)
	}
	if stats.Failed != 2 {
		t.Errorf("failed = %d, want 2", stats.Failed)
	}
}

func TestConfigDefaults(t *testing.T) {
	b := New(WithConfig(Config{MaxRetryAttempts: 5}))

	if b.config.MaxRetryAttempts != 5 {
		t.Errorf("max attempts = %d, want 5", b.config.MaxRetryAttempts)
	}
	if b.config.RetryDelay != time.Second {
		t.Errorf("retry delay = %s, want 1s", b.config.RetryDelay)
	}
	if b.config.HandlerTimeout != 30*time.Second {
		t.Errorf("handler timeout = %s, want 30s", b.config.HandlerTimeout)
	}
	if b.config.DeadLetterQueueMaxSize != 1000 {
		t.Errorf("dlq max size = %d, want 1000", b.config.DeadLetterQueueMaxSize)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Classification
	}{
		{name: "explicit transient", err: Transient(errors.New("x")), want: ClassificationTransient},
		{name: "explicit permanent", err: Permanent(errors.New("x")), want: ClassificationPermanent},
		{name: "wrapped permanent", err: fmt.Errorf("outer: %w", Permanent(errors.New("x"))), want: ClassificationPermanent},
		{name: "domain error", err: &domain.InsufficientInventoryError{Requested: 5, Available: 2}, want: ClassificationPermanent},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: ClassificationTransient},
		{name: "unclassified", err: errors.New("anything"), want: ClassificationTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

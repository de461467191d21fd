package bus

import (
	"sync"
	"time"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/domain"
)

// DeadLetterEntry captures one terminally failed (event, handler) pair.
type DeadLetterEntry struct {
	Event          domain.Event
	HandlerName    string
	Err            error
	Classification Classification
	AttemptCount   int
	FirstFailedAt  time.Time
	LastFailedAt   time.Time
	AddedAt        time.Time
}

// DeadLetterQueue retains failed events for inspection instead of dropping
// them. It is bounded: when full, the oldest entry is evicted.
type DeadLetterQueue struct {
	mu      sync.Mutex
	entries []DeadLetterEntry
	maxSize int
}

// NewDeadLetterQueue creates a queue holding at most maxSize entries.
// Non-positive sizes fall back to the default bound.
func NewDeadLetterQueue(maxSize int) *DeadLetterQueue {
	if maxSize <= 0 {
		maxSize = DefaultConfig().DeadLetterQueueMaxSize
	}
	return &DeadLetterQueue{maxSize: maxSize}
}

// Enqueue appends an entry, evicting the oldest when the queue is full.
func (q *DeadLetterQueue) Enqueue(entry DeadLetterEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry.AddedAt = time.Now().UTC()
	if len(q.entries) >= q.maxSize {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, entry)
}

// Entries returns a copy of the queue contents, oldest first.
func (q *DeadLetterQueue) Entries() []DeadLetterEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DeadLetterEntry(nil), q.entries...)
}

// Len returns the number of retained entries.
func (q *DeadLetterQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// MaxSize returns the configured bound.
func (q *DeadLetterQueue) MaxSize() int {
	return q.maxSize
}

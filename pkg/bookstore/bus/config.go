package bus

import "time"

// Config holds the retry, timeout, and dead-letter policy of the bus.
type Config struct {
	// MaxRetryAttempts is the total number of attempts per handler,
	// including the first one.
	MaxRetryAttempts int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration

	// HandlerTimeout bounds a single handler attempt. An elapsed timeout
	// counts as a transient failure.
	HandlerTimeout time.Duration

	// DeadLetterQueueMaxSize bounds the dead-letter queue; the oldest
	// entry is evicted when it is full.
	DeadLetterQueueMaxSize int
}

// DefaultConfig returns the default bus policy.
func DefaultConfig() Config {
	return Config{
		MaxRetryAttempts:       3,
		RetryDelay:             1000 * time.Millisecond,
		HandlerTimeout:         30 * time.Second,
		DeadLetterQueueMaxSize: 1000,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = def.MaxRetryAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = def.HandlerTimeout
	}
	if c.DeadLetterQueueMaxSize <= 0 {
		c.DeadLetterQueueMaxSize = def.DeadLetterQueueMaxSize
	}
	return c
}

// Package config loads application settings from YAML or JSON files and
// projects them onto the typed configuration structs the rest of the
// system consumes.
package config

import (
	"time"

	"github.com/iced-penguin/bookstore-order-management/pkg/bookstore/bus"
)

// Config wraps a map[string]any for type-safe value extraction. Accessors
// return the given default when a key is missing or holds an
// incompatible type.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map. A nil map yields an empty
// Config.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// Sub returns the nested section under key, or an empty Config when the
// key is missing or not a mapping.
func (c Config) Sub(key string) Config {
	v, ok := c.data[key]
	if !ok {
		return New(nil)
	}
	switch m := v.(type) {
	case map[string]any:
		return New(m)
	case map[any]any:
		// older yaml decoders produce any-keyed maps
		converted := make(map[string]any, len(m))
		for k, val := range m {
			if s, ok := k.(string); ok {
				converted[s] = val
			}
		}
		return New(converted)
	}
	return New(nil)
}

// String returns the string value for key, or defaultVal.
func (c Config) String(key, defaultVal string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal.
func (c Config) Bool(key string, defaultVal bool) bool {
	if b, ok := c.data[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal. Floats convert
// only when they carry no fractional part.
func (c Config) Int(key string, defaultVal int) int {
	switch val := c.data[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Duration returns the duration value for key, or defaultVal. Strings
// are parsed with time.ParseDuration; bare numbers are seconds.
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	switch val := c.data[key].(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case float64:
		return time.Duration(val * float64(time.Second))
	case time.Duration:
		return val
	}
	return defaultVal
}

// Has reports whether key exists.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// BusConfig projects the event_bus section onto bus.Config. Missing keys
// fall back to the bus defaults.
func (c Config) BusConfig() bus.Config {
	section := c.Sub("event_bus")
	defaults := bus.DefaultConfig()
	return bus.Config{
		MaxRetryAttempts:       section.Int("max_retry_attempts", defaults.MaxRetryAttempts),
		RetryDelay:             section.Duration("retry_delay", defaults.RetryDelay),
		HandlerTimeout:         section.Duration("handler_timeout", defaults.HandlerTimeout),
		DeadLetterQueueMaxSize: section.Int("dead_letter_queue_max_size", defaults.DeadLetterQueueMaxSize),
	}
}

// TrackerPath returns the SQLite path for the processed-event tracker.
// Empty means in-memory tracking.
func (c Config) TrackerPath() string {
	return c.Sub("tracker").String("path", "")
}

// LowStockThreshold returns the quantity at or below which inventory is
// reported as low stock.
func (c Config) LowStockThreshold() int {
	return c.Sub("inventory").Int("low_stock_threshold", 5)
}

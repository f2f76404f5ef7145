package gormstore

import "github.com/velmie/chatrelay"

const defaultTable = "outbox_messages"

// Config defines GORM store behavior.
type Config struct {
	Table string
	// FetchLimit caps FetchUnsent, zero returns every unsent row.
	FetchLimit int
	Generator  chatrelay.IDGenerator
	Clock      chatrelay.Clock
}

func (c Config) withDefaults() Config {
	if c.Table == "" {
		c.Table = defaultTable
	}
	if c.Generator == nil {
		c.Generator = chatrelay.NewMessageID
	}
	if c.Clock == nil {
		c.Clock = chatrelay.SystemClock{}
	}

	return c
}

// Option configures the GORM store.
type Option func(*Config)

// WithTable sets the outbox table name.
func WithTable(name string) Option {
	return func(c *Config) {
		c.Table = name
	}
}

// WithFetchLimit caps how many unsent rows a fetch returns.
func WithFetchLimit(limit int) Option {
	return func(c *Config) {
		c.FetchLimit = limit
	}
}

// WithGenerator sets the id generator used when enqueueing messages without an id.
func WithGenerator(gen chatrelay.IDGenerator) Option {
	return func(c *Config) {
		c.Generator = gen
	}
}

// WithClock sets the clock stamping created_at on enqueue.
func WithClock(clock chatrelay.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

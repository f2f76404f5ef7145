package mysql

import "github.com/velmie/chatrelay"

const defaultTable = "outbox_messages"

// Config defines MySQL store behavior.
type Config struct {
	Table string
	// FetchLimit caps FetchUnsent, zero returns every unsent row.
	FetchLimit int
	Generator  chatrelay.IDGenerator
}

func (c Config) withDefaults() Config {
	if c.Table == "" {
		c.Table = defaultTable
	}
	if c.Generator == nil {
		c.Generator = chatrelay.NewMessageID
	}

	return c
}

// Option configures the MySQL store.
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

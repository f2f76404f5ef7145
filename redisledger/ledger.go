// Package redisledger records confirmed deliveries in Redis so a message whose sent flag
// could not be committed is not delivered twice.
package redisledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/velmie/chatrelay"
)

const (
	defaultPrefix = "chatrelay:delivered:"
	defaultTTL    = 7 * 24 * time.Hour
)

// ErrClientRequired indicates a missing Redis client.
var ErrClientRequired = errors.New("chatrelay redis: client is required")

// Config defines ledger key layout and retention.
type Config struct {
	Prefix string
	// TTL bounds how long a record survives when Forget is never reached.
	TTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}

	return c
}

// Option configures the ledger.
type Option func(*Config)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Config) {
		c.Prefix = prefix
	}
}

// WithTTL sets the record expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.TTL = ttl
	}
}

// Ledger implements chatrelay.Ledger with one key per delivered message.
type Ledger struct {
	client redis.UniversalClient
	cfg    Config
}

var _ chatrelay.Ledger = (*Ledger)(nil)

// New constructs a ledger over client.
func New(client redis.UniversalClient, opts ...Option) (*Ledger, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Ledger{client: client, cfg: cfg.withDefaults()}, nil
}

// Delivered reports whether a delivery was recorded for id.
func (l *Ledger) Delivered(ctx context.Context, id string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("chatrelay redis: exists %s: %w", id, err)
	}

	return n > 0, nil
}

// Record stores the delivery time as unix milliseconds.
func (l *Ledger) Record(ctx context.Context, id string, at time.Time) error {
	value := strconv.FormatInt(at.UnixMilli(), 10)
	if err := l.client.Set(ctx, l.key(id), value, l.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("chatrelay redis: set %s: %w", id, err)
	}

	return nil
}

// DeliveredAt returns the recorded delivery time, or false when none exists.
func (l *Ledger) DeliveredAt(ctx context.Context, id string) (time.Time, bool, error) {
	ms, err := l.client.Get(ctx, l.key(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("chatrelay redis: get %s: %w", id, err)
	}

	return time.UnixMilli(ms).UTC(), true, nil
}

// Forget removes the record for id.
func (l *Ledger) Forget(ctx context.Context, id string) error {
	if err := l.client.Del(ctx, l.key(id)).Err(); err != nil {
		return fmt.Errorf("chatrelay redis: del %s: %w", id, err)
	}

	return nil
}

func (l *Ledger) key(id string) string {
	return l.cfg.Prefix + id
}

package chatrelay

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInterval    = 10 * time.Second
	defaultSendTimeout = 30 * time.Second
	tracerName         = "github.com/velmie/chatrelay"
)

// Config defines how the Scheduler dispatches and how the Runner schedules ticks.
// Scheduler and Runner share one option set, each reads the fields it needs.
type Config struct {
	// Interval between ticks (Runner).
	Interval time.Duration
	// RunOnStart fires one tick as soon as Run starts (Runner).
	RunOnStart bool
	// SendTimeout bounds a single Sink.Send call, reply wait included (Scheduler).
	SendTimeout    time.Duration
	Ledger         Ledger
	FailureHandler FailureHandler
	Clock          Clock
	Logger         Logger
	Metrics        Metrics
	Tracer         trace.Tracer
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = defaultSendTimeout
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	if c.Tracer == nil {
		c.Tracer = otel.Tracer(tracerName)
	}

	return c
}

// Option configures Scheduler and Runner behavior.
type Option func(*Config)

// WithInterval sets the fixed delay between ticks.
func WithInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.Interval = interval
	}
}

// WithRunOnStart runs a tick immediately when Run starts instead of waiting one interval.
func WithRunOnStart(enabled bool) Option {
	return func(c *Config) {
		c.RunOnStart = enabled
	}
}

// WithSendTimeout bounds each send.
func WithSendTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.SendTimeout = timeout
	}
}

// WithLedger enables the delivery ledger.
func WithLedger(ledger Ledger) Option {
	return func(c *Config) {
		c.Ledger = ledger
	}
}

// WithFailureHandler registers a callback for failed sends.
func WithFailureHandler(handler FailureHandler) Option {
	return func(c *Config) {
		c.FailureHandler = handler
	}
}

// WithClock sets the time source.
func WithClock(clock Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics Metrics) Option {
	return func(c *Config) {
		c.Metrics = metrics
	}
}

// WithTracer sets the tracer used for tick and dispatch spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Config) {
		c.Tracer = tracer
	}
}

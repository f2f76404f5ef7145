package chatrelay

import (
	"sync/atomic"
	"time"
)

// Metrics captures relay-level telemetry.
type Metrics interface {
	// ObserveTickDuration records how long a tick took.
	ObserveTickDuration(duration time.Duration)
	// AddDelivered counts sends the sink confirmed, matching TickResult.Delivered.
	AddDelivered(count int)
	// AddFailed counts sends that failed.
	AddFailed(count int)
	// AddMissing counts messages that vanished before they could be marked.
	AddMissing(count int)
	// AddSkipped counts sends skipped because the ledger already had a delivery.
	AddSkipped(count int)
	// SetPending updates the number of unsent messages seen by the last fetch.
	SetPending(count int)
}

// NopMetrics is a no-op metrics recorder.
type NopMetrics struct{}

// ObserveTickDuration implements Metrics.
func (NopMetrics) ObserveTickDuration(time.Duration) {}

// AddDelivered implements Metrics.
func (NopMetrics) AddDelivered(int) {}

// AddFailed implements Metrics.
func (NopMetrics) AddFailed(int) {}

// AddMissing implements Metrics.
func (NopMetrics) AddMissing(int) {}

// AddSkipped implements Metrics.
func (NopMetrics) AddSkipped(int) {}

// SetPending implements Metrics.
func (NopMetrics) SetPending(int) {}

// Counters is an in-process Metrics implementation safe for concurrent use.
type Counters struct {
	ticks     atomic.Int64
	tickNanos atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	missing   atomic.Int64
	skipped   atomic.Int64
	pending   atomic.Int64
}

// CountersSnapshot is a point-in-time copy of Counters.
type CountersSnapshot struct {
	Ticks     int64
	TickTime  time.Duration
	Delivered int64
	Failed    int64
	Missing   int64
	Skipped   int64
	Pending   int64
}

// ObserveTickDuration implements Metrics.
func (c *Counters) ObserveTickDuration(d time.Duration) {
	c.ticks.Add(1)
	c.tickNanos.Add(int64(d))
}

// AddDelivered implements Metrics.
func (c *Counters) AddDelivered(n int) { c.delivered.Add(int64(n)) }

// AddFailed implements Metrics.
func (c *Counters) AddFailed(n int) { c.failed.Add(int64(n)) }

// AddMissing implements Metrics.
func (c *Counters) AddMissing(n int) { c.missing.Add(int64(n)) }

// AddSkipped implements Metrics.
func (c *Counters) AddSkipped(n int) { c.skipped.Add(int64(n)) }

// SetPending implements Metrics.
func (c *Counters) SetPending(n int) { c.pending.Store(int64(n)) }

// Snapshot returns the current values.
func (c *Counters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		Ticks:     c.ticks.Load(),
		TickTime:  time.Duration(c.tickNanos.Load()),
		Delivered: c.delivered.Load(),
		Failed:    c.failed.Load(),
		Missing:   c.missing.Load(),
		Skipped:   c.skipped.Load(),
		Pending:   c.pending.Load(),
	}
}

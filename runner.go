package chatrelay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Runner drives a Scheduler on a fixed interval and guarantees ticks never overlap.
type Runner struct {
	scheduler *Scheduler
	cfg       Config

	tickMu  sync.Mutex
	running atomic.Bool
	state   atomic.Int32
}

// NewRunner constructs a Runner for the scheduler.
func NewRunner(scheduler *Scheduler, opts ...Option) *Runner {
	if scheduler == nil {
		panic("chatrelay: nil Scheduler")
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Runner{
		scheduler: scheduler,
		cfg:       cfg.withDefaults(),
	}
	r.state.Store(int32(StateStopped))

	return r
}

// State reports the current lifecycle state.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Run fires a tick every interval until ctx is canceled.
//
// Cancellation stops the timer before its next fire. A tick in progress finishes the message
// it is sending and returns early, remaining messages stay unsent. Tick errors are logged and
// never end the loop. Run returns nil after cancellation.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrRunnerRunning
	}
	defer r.running.Store(false)

	r.setState(StateIdle)
	defer r.setState(StateStopped)

	r.cfg.Logger.Info("relay runner started", "interval", r.cfg.Interval.String())
	if r.cfg.RunOnStart {
		r.runTick(ctx)
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.cfg.Logger.Info("relay runner stopped")

			return nil
		case <-ticker.C:
			r.runTick(ctx)
		}
	}
}

// TickNow runs one tick, waiting for any tick in progress to finish first.
func (r *Runner) TickNow(ctx context.Context) (TickResult, error) {
	return r.tick(ctx)
}

// setState waits for a tick started by TickNow so its state restore is not lost.
func (r *Runner) setState(state State) {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	r.state.Store(int32(state))
}

func (r *Runner) runTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// Errors are logged in tick, the next fire starts from a fresh fetch.
	_, _ = r.tick(ctx)
}

func (r *Runner) tick(ctx context.Context) (result TickResult, err error) {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	prev := r.state.Swap(int32(StateRunning))
	defer r.state.CompareAndSwap(int32(StateRunning), prev)

	id := uuid.NewString()
	ctx = WithTickID(ctx, id)

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrTickPanic, rec)
			r.cfg.Logger.Error("relay tick panic", "tick_id", id, "panic", rec)
		}
	}()

	result, err = r.scheduler.Tick(ctx)
	if err != nil {
		r.cfg.Logger.Error("relay tick aborted", "tick_id", id, "err", err)

		return result, err
	}
	if result.Fetched > 0 {
		r.cfg.Logger.Info("relay tick done",
			"tick_id", id,
			"fetched", result.Fetched,
			"delivered", result.Delivered,
			"failed", result.Failed,
			"missing", result.Missing,
			"skipped", result.Skipped,
			"deferred", result.Deferred,
			"duration", result.Duration.String(),
		)
	}

	return result, nil
}

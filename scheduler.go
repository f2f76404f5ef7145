package chatrelay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TickResult summarizes one fetch-dispatch-mark cycle.
type TickResult struct {
	Fetched   int
	Delivered int
	Replied   int
	Failed    int
	Missing   int
	// Skipped counts messages marked without sending because the ledger had a delivery.
	Skipped int
	// Deferred counts messages left for a later tick because the tick was stopped.
	Deferred int
	Duration time.Duration
}

// Scheduler runs ticks against a Store and a Sink.
// A Scheduler is not safe for concurrent ticks, use a Runner to serialize them.
type Scheduler struct {
	store Store
	sink  Sink
	cfg   Config
}

type tickIDKey struct{}

// NewScheduler constructs a Scheduler with defaults and optional settings.
func NewScheduler(store Store, sink Sink, opts ...Option) *Scheduler {
	if store == nil {
		panic("chatrelay: nil Store")
	}
	if sink == nil {
		panic("chatrelay: nil Sink")
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Scheduler{
		store: store,
		sink:  sink,
		cfg:   cfg.withDefaults(),
	}
}

// Tick fetches unsent messages and forwards them in fetch order.
//
// Send failures are logged and leave the message unsent, they never abort the tick.
// A store error aborts the tick and is returned, messages not reached stay unsent.
// Once ctx is canceled the tick finishes the message in flight and stops.
func (s *Scheduler) Tick(ctx context.Context) (result TickResult, err error) {
	start := s.cfg.Clock.Now()
	ctx, span := s.cfg.Tracer.Start(ctx, "chatrelay.tick")
	defer span.End()

	defer func() {
		result.Duration = s.cfg.Clock.Now().Sub(start)
		s.cfg.Metrics.ObserveTickDuration(result.Duration)
		span.SetAttributes(
			attribute.Int("chatrelay.fetched", result.Fetched),
			attribute.Int("chatrelay.delivered", result.Delivered),
			attribute.Int("chatrelay.failed", result.Failed),
		)
	}()

	messages, err := s.store.FetchUnsent(ctx)
	if err != nil {
		s.cfg.Logger.Error("outbox fetch failed", "tick_id", tickID(ctx), "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch unsent")

		return result, fmt.Errorf("chatrelay: fetch unsent: %w", err)
	}
	result.Fetched = len(messages)
	s.cfg.Metrics.SetPending(len(messages))
	if len(messages) == 0 {
		return result, nil
	}

	for i := range messages {
		if ctx.Err() != nil {
			result.Deferred = len(messages) - i
			s.cfg.Logger.Info("tick stopped before batch end", "tick_id", tickID(ctx), "deferred", result.Deferred)

			return result, nil
		}
		if err := s.dispatch(ctx, messages[i], &result); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "mark sent")

			return result, err
		}
	}

	return result, nil
}

func (s *Scheduler) dispatch(ctx context.Context, msg Message, result *TickResult) error {
	// The message in flight is finished even if the tick is being stopped.
	opCtx := context.WithoutCancel(ctx)
	logger := s.cfg.Logger

	if s.alreadyDelivered(opCtx, msg.ID) {
		logger.Info("delivery already recorded, marking without send", "tick_id", tickID(ctx), "message_id", msg.ID)
		result.Skipped++
		s.cfg.Metrics.AddSkipped(1)
	} else {
		delivery, err := s.send(opCtx, msg)
		if err != nil {
			logger.Error("message dispatch failed",
				"tick_id", tickID(ctx),
				"message_id", msg.ID,
				"chat_id", msg.ChatID,
				"reason", FailureReason(err),
			)
			result.Failed++
			s.cfg.Metrics.AddFailed(1)
			if s.cfg.FailureHandler != nil {
				s.cfg.FailureHandler(opCtx, msg, err)
			}

			return nil
		}
		result.Delivered++
		s.cfg.Metrics.AddDelivered(1)
		if delivery.Replied {
			result.Replied++
			logger.Info("message delivered with reply", "tick_id", tickID(ctx), "message_id", msg.ID, "reply", delivery.Reply)
		} else {
			logger.Debug("message delivered", "tick_id", tickID(ctx), "message_id", msg.ID)
		}
		s.recordDelivery(opCtx, msg.ID)
	}

	if err := s.store.MarkSent(opCtx, msg.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Warn("message vanished before mark sent", "tick_id", tickID(ctx), "message_id", msg.ID)
			result.Missing++
			s.cfg.Metrics.AddMissing(1)

			return nil
		}
		logger.Error("mark sent failed, aborting tick", "tick_id", tickID(ctx), "message_id", msg.ID, "err", err)

		return fmt.Errorf("chatrelay: mark sent %s: %w", msg.ID, err)
	}
	s.forgetDelivery(opCtx, msg.ID)

	return nil
}

func (s *Scheduler) send(ctx context.Context, msg Message) (Delivery, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	ctx, span := s.cfg.Tracer.Start(ctx, "chatrelay.dispatch",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("chatrelay.message_id", msg.ID),
			attribute.String("chatrelay.chat_id", msg.ChatID),
		),
	)
	defer span.End()

	delivery, err := s.sink.Send(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, FailureReason(err))

		return Delivery{}, err
	}
	span.SetAttributes(attribute.Bool("chatrelay.replied", delivery.Replied))

	return delivery, nil
}

func (s *Scheduler) alreadyDelivered(ctx context.Context, id string) bool {
	if s.cfg.Ledger == nil {
		return false
	}
	ok, err := s.cfg.Ledger.Delivered(ctx, id)
	if err != nil {
		s.cfg.Logger.Warn("ledger lookup failed", "message_id", id, "err", err)

		return false
	}

	return ok
}

func (s *Scheduler) recordDelivery(ctx context.Context, id string) {
	if s.cfg.Ledger == nil {
		return
	}
	if err := s.cfg.Ledger.Record(ctx, id, s.cfg.Clock.Now()); err != nil {
		s.cfg.Logger.Warn("ledger record failed", "message_id", id, "err", err)
	}
}

func (s *Scheduler) forgetDelivery(ctx context.Context, id string) {
	if s.cfg.Ledger == nil {
		return
	}
	if err := s.cfg.Ledger.Forget(ctx, id); err != nil {
		s.cfg.Logger.Debug("ledger forget failed", "message_id", id, "err", err)
	}
}

// WithTickID attaches a tick correlation id used in log entries.
func WithTickID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tickIDKey{}, id)
}

func tickID(ctx context.Context) string {
	id, _ := ctx.Value(tickIDKey{}).(string)

	return id
}

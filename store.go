package chatrelay

import (
	"context"
	"time"
)

// Store is the outbox as seen by the relay.
type Store interface {
	// FetchUnsent returns every message with sent=false, oldest first.
	// An empty slice is a valid result.
	FetchUnsent(ctx context.Context) ([]Message, error)
	// MarkSent sets sent=true for the message. It returns an error wrapping ErrNotFound
	// when the id does not exist. Marking an already sent message succeeds.
	MarkSent(ctx context.Context, id string) error
}

// PendingCounter reports how many messages are still unsent.
type PendingCounter interface {
	// PendingCount returns the current number of unsent messages.
	PendingCount(ctx context.Context) (int, error)
}

// Ledger remembers ids whose delivery was confirmed by the sink.
//
// The scheduler consults it before sending so that a message delivered in a tick whose
// MarkSent failed is not sent a second time.
type Ledger interface {
	// Delivered reports whether a confirmed delivery was recorded for id.
	Delivered(ctx context.Context, id string) (bool, error)
	// Record stores a confirmed delivery.
	Record(ctx context.Context, id string, at time.Time) error
	// Forget drops the record once the sent flag is committed.
	Forget(ctx context.Context, id string) error
}

package chatrelay

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxIDLength is the longest message id the stores accept.
const MaxIDLength = 64

// Message is an inbound chat message waiting in the outbox.
type Message struct {
	// ID is assigned by the upstream writer and is the idempotency key for forwarding.
	ID            string
	ChatID        string
	ItemID        string
	AuthorID      string
	ChannelUserID string
	Content       string
	// Sent flips from false to true once, after the sink confirmed delivery.
	Sent      bool
	CreatedAt time.Time
}

// Validate checks the fields an upstream writer must provide.
// An empty ID is allowed, stores generate one on enqueue.
func (m Message) Validate() error {
	if m.ChatID == "" {
		return ErrChatIDRequired
	}
	if m.Content == "" {
		return ErrContentRequired
	}
	if len(m.ID) > MaxIDLength {
		return fmt.Errorf("%w: %d > %d", ErrIDTooLong, len(m.ID), MaxIDLength)
	}

	return nil
}

// IDGenerator produces message ids for rows enqueued without one.
type IDGenerator func() (string, error)

// NewMessageID returns a time-ordered UUIDv7 string.
func NewMessageID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("chatrelay: generate id: %w", err)
	}

	return id.String(), nil
}

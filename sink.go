package chatrelay

import (
	"context"
	"errors"
	"fmt"
)

// Delivery is the outcome of a successful send.
type Delivery struct {
	// Reply holds the synchronous reply text when Replied is true.
	Reply   string
	Replied bool
}

// Sink hands messages to the external messaging channel.
type Sink interface {
	// Send delivers msg.Content. A nil error means the channel accepted the message,
	// a non-nil error means it did not and the message must stay unsent.
	Send(ctx context.Context, msg Message) (Delivery, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, msg Message) (Delivery, error)

// Send implements Sink.
func (fn SinkFunc) Send(ctx context.Context, msg Message) (Delivery, error) {
	return fn(ctx, msg)
}

// DeliveryError is a rejected or failed send with a short reason.
type DeliveryError struct {
	Reason string
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return "delivery failed: " + e.Reason
	}

	return fmt.Sprintf("delivery failed: %s: %v", e.Reason, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// FailureReason extracts a short reason from a send error for logging.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	var derr *DeliveryError
	if errors.As(err, &derr) && derr.Reason != "" {
		return derr.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	return err.Error()
}

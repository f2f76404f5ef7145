package chatrelay

import "context"

// FailureHandler is called after a send failed and the message was left unsent.
// It must not block for long, it runs inside the tick.
type FailureHandler func(ctx context.Context, msg Message, err error)

// FailureHandlers fans a failure out to several handlers in order.
func FailureHandlers(handlers ...FailureHandler) FailureHandler {
	return func(ctx context.Context, msg Message, err error) {
		for _, h := range handlers {
			if h != nil {
				h(ctx, msg, err)
			}
		}
	}
}

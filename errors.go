package chatrelay

import "errors"

var (
	// ErrNotFound is returned by Store.MarkSent when no message with the id exists.
	ErrNotFound = errors.New("chatrelay message not found")
	// ErrRunnerRunning is returned when Run is called on a Runner that is already running.
	ErrRunnerRunning = errors.New("chatrelay runner is already running")
	// ErrTickPanic indicates that a tick panicked and was recovered.
	ErrTickPanic = errors.New("chatrelay tick panic")
	// ErrChatIDRequired is returned when Message.ChatID is empty.
	ErrChatIDRequired = errors.New("chatrelay chat id is required")
	// ErrContentRequired is returned when Message.Content is empty.
	ErrContentRequired = errors.New("chatrelay content is required")
	// ErrIDTooLong is returned when Message.ID exceeds MaxIDLength.
	ErrIDTooLong = errors.New("chatrelay message id is too long")
)

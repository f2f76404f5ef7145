package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/velmie/chatrelay"
)

const sentryFlushTimeout = 2 * time.Second

// SetupSentry initializes the global sentry hub. An empty dsn disables reporting.
func SetupSentry(dsn, environment, release string) (bool, error) {
	if dsn == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	})
	if err != nil {
		return false, fmt.Errorf("telemetry: sentry init: %w", err)
	}

	return true, nil
}

// FlushSentry waits for buffered events.
func FlushSentry() {
	sentry.Flush(sentryFlushTimeout)
}

// ReportFailure returns a chatrelay.FailureHandler that sends dispatch failures to hub.
// A nil hub uses the current global hub.
func ReportFailure(hub *sentry.Hub) chatrelay.FailureHandler {
	return func(_ context.Context, msg chatrelay.Message, err error) {
		h := hub
		if h == nil {
			h = sentry.CurrentHub()
		}
		h.WithScope(func(scope *sentry.Scope) {
			scope.SetLevel(sentry.LevelWarning)
			scope.SetTag("chat_id", msg.ChatID)
			scope.SetTag("reason", chatrelay.FailureReason(err))
			scope.SetExtra("message_id", msg.ID)
			h.CaptureException(err)
		})
	}
}

// ReportFatal reports a startup failure and flushes before the process exits.
func ReportFatal(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
	FlushSentry()
}

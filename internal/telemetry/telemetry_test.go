package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/velmie/chatrelay"
)

func TestSetupTracingDisabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "", "chat-relay")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSchedulerSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := newProvider(sdktrace.WithSyncer(exporter), "chat-relay-test")
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	store := &oneShotStore{msgs: []chatrelay.Message{{ID: "1", ChatID: "c", Content: "hi"}}}
	sink := chatrelay.SinkFunc(func(context.Context, chatrelay.Message) (chatrelay.Delivery, error) {
		return chatrelay.Delivery{}, nil
	})
	scheduler := chatrelay.NewScheduler(store, sink, chatrelay.WithTracer(provider.Tracer("test")))

	_, err := scheduler.Tick(context.Background())
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	require.Equal(t, "chatrelay.dispatch", spans[0].Name)
	require.Equal(t, "chatrelay.tick", spans[1].Name)
	require.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	require.Contains(t, spans[1].Resource.Attributes(), attribute.String("service.name", "chat-relay-test"))
}

type recordingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *recordingTransport) Configure(sentry.ClientOptions) {}
func (t *recordingTransport) Flush(time.Duration) bool { return true }
func (t *recordingTransport) Close() {}
func (t *recordingTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func TestReportFailure(t *testing.T) {
	transport := &recordingTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:       "https://public@sentry.example.com/1",
		Transport: transport,
	})
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())

	handler := ReportFailure(hub)
	handler(context.Background(),
		chatrelay.Message{ID: "m1", ChatID: "u2i-1"},
		&chatrelay.DeliveryError{Reason: "timeout", Err: errors.New("deadline")},
	)

	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.Len(t, transport.events, 1)
	event := transport.events[0]
	require.Equal(t, sentry.LevelWarning, event.Level)
	require.Equal(t, "timeout", event.Tags["reason"])
	require.Equal(t, "u2i-1", event.Tags["chat_id"])
}

func TestSetupSentryDisabled(t *testing.T) {
	enabled, err := SetupSentry("", "test", "dev")
	require.NoError(t, err)
	require.False(t, enabled)
}

type oneShotStore struct {
	msgs []chatrelay.Message
}

func (s *oneShotStore) FetchUnsent(context.Context) ([]chatrelay.Message, error) {
	msgs := s.msgs
	s.msgs = nil
	return msgs, nil
}

func (s *oneShotStore) MarkSent(context.Context, string) error { return nil }

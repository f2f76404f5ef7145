package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velmie/chatrelay"
	"github.com/velmie/chatrelay/gormstore"
	"github.com/velmie/chatrelay/internal/config"
)

func testConfig(dsn, sinkURL string) config.Config {
	return config.Config{
		Relay: config.Relay{Interval: time.Hour, SendTimeout: time.Second, RunOnStart: true},
		Store: config.Store{Driver: "sqlite", DSN: dsn, Table: "outbox_messages", Migrate: true},
		Sink:  config.Sink{URL: sinkURL, Timeout: time.Second},
		Log:   config.Log{Level: "info", Format: "json"},
		Telemetry: config.Telemetry{
			ServiceName: "chat-relay-test",
		},
	}
}

func seed(t *testing.T, dsn string, contents ...string) {
	t.Helper()
	db, err := gormstore.Open("sqlite", dsn)
	require.NoError(t, err)
	defer gormstore.Close(db)

	store, err := gormstore.New(db)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	for _, content := range contents {
		_, err := store.Enqueue(context.Background(), nil, chatrelay.Message{ChatID: "u2i-1", Content: content})
		require.NoError(t, err)
	}
}

func pending(t *testing.T, dsn string) int {
	t.Helper()
	db, err := gormstore.Open("sqlite", dsn)
	require.NoError(t, err)
	defer gormstore.Close(db)

	store, err := gormstore.New(db)
	require.NoError(t, err)
	n, err := store.PendingCount(context.Background())
	require.NoError(t, err)
	return n
}

func TestRunDeliversPendingMessages(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "outbox.db")
	seed(t, dsn, "hello", "world")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if received.Add(1) == 2 {
			cancel()
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	done := make(chan error, 1)
	go func() { done <- run(ctx, testConfig(dsn, srv.URL), zap.NewNop()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop")
	}
	require.Equal(t, int32(2), received.Load())
	require.Zero(t, pending(t, dsn))
}

func TestRunFailsWhenStoreUnreachable(t *testing.T) {
	cfg := testConfig("unused", "http://127.0.0.1:1")
	cfg.Store.Driver = "oracle"

	err := run(context.Background(), cfg, zap.NewNop())
	require.ErrorIs(t, err, gormstore.ErrUnsupportedDriver)
}

func TestOpenLedger(t *testing.T) {
	ledger, closeLedger, err := openLedger(context.Background(), config.Ledger{})
	require.NoError(t, err)
	require.Nil(t, ledger)
	closeLedger()

	mr := miniredis.RunT(t)
	ledger, closeLedger, err = openLedger(context.Background(), config.Ledger{RedisAddr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	require.NotNil(t, ledger)
	require.NoError(t, ledger.Record(context.Background(), "m1", time.Now()))
	require.True(t, mr.Exists("chatrelay:delivered:m1"))
	closeLedger()

	_, _, err = openLedger(context.Background(), config.Ledger{RedisAddr: "127.0.0.1:1"})
	require.Error(t, err)
}

func TestRelayOptions(t *testing.T) {
	cfg := testConfig("unused", "http://127.0.0.1:1")
	base := relayOptions(cfg, chatrelay.NopLogger{}, chatrelay.NopMetrics{}, nil, false)
	full := relayOptions(cfg, chatrelay.NopLogger{}, chatrelay.NopMetrics{}, nopLedger{}, true)
	require.Len(t, full, len(base)+2)
}

type nopLedger struct{}

func (nopLedger) Delivered(context.Context, string) (bool, error) { return false, nil }
func (nopLedger) Record(context.Context, string, time.Time) error { return nil }
func (nopLedger) Forget(context.Context, string) error { return nil }

package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/velmie/chatrelay"
)

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

type fakeExecutor struct {
	query string
	args  []any
}

func (f *fakeExecutor) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.query = query
	f.args = args
	return fakeResult{}, nil
}

type fixedGenerator struct {
	id    string
	calls int
}

func (g *fixedGenerator) New() (string, error) {
	g.calls++
	return g.id, nil
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()
	return &Store{cfg: cfg, queries: newQueries(cfg.Table), table: cfg.Table}
}

func TestStoreEnqueueGeneratesID(t *testing.T) {
	gen := &fixedGenerator{id: "generated-1"}
	store := newTestStore(t, WithGenerator(gen.New))
	fakeExec := &fakeExecutor{}

	id, err := store.Enqueue(context.Background(), fakeExec, chatrelay.Message{
		ChatID:  "u2i-1",
		ItemID:  "item-7",
		Content: "is it still available?",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if id != "generated-1" {
		t.Fatalf("expected generated id, got %q", id)
	}
	if gen.calls != 1 {
		t.Fatalf("expected generator to be called once")
	}
	if !strings.HasPrefix(fakeExec.query, "INSERT INTO outbox_messages") {
		t.Fatalf("unexpected query %q", fakeExec.query)
	}
	if len(fakeExec.args) != 6 {
		t.Fatalf("expected 6 args, got %d", len(fakeExec.args))
	}
	if fakeExec.args[0] != "generated-1" || fakeExec.args[5] != "is it still available?" {
		t.Fatalf("unexpected args %v", fakeExec.args)
	}
}

func TestStoreEnqueueKeepsUpstreamID(t *testing.T) {
	gen := &fixedGenerator{id: "unused"}
	store := newTestStore(t, WithGenerator(gen.New))

	id, err := store.Enqueue(context.Background(), &fakeExecutor{}, chatrelay.Message{ID: "avito-42", ChatID: "c", Content: "x"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if id != "avito-42" || gen.calls != 0 {
		t.Fatalf("expected upstream id to be kept, got %q (calls %d)", id, gen.calls)
	}
}

func TestStoreEnqueueValidates(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Enqueue(context.Background(), &fakeExecutor{}, chatrelay.Message{ChatID: "c"})
	if !errors.Is(err, chatrelay.ErrContentRequired) {
		t.Fatalf("expected ErrContentRequired, got %v", err)
	}
	_, err = store.Enqueue(context.Background(), nil, chatrelay.Message{ChatID: "c", Content: "x"})
	if !errors.Is(err, ErrExecutorRequired) {
		t.Fatalf("expected ErrExecutorRequired, got %v", err)
	}
}

func TestNewStoreValidation(t *testing.T) {
	if _, err := NewStore(nil); !errors.Is(err, ErrDBRequired) {
		t.Fatalf("expected ErrDBRequired, got %v", err)
	}
	db := &sql.DB{}
	if _, err := NewStore(db, WithTable("bad-name")); !errors.Is(err, ErrInvalidTableName) {
		t.Fatalf("expected ErrInvalidTableName, got %v", err)
	}
	if _, err := NewStore(db, WithFetchLimit(-1)); !errors.Is(err, ErrInvalidFetchLimit) {
		t.Fatalf("expected ErrInvalidFetchLimit, got %v", err)
	}
	store, err := NewStore(db, WithTable("relay.outbox_messages"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if store.Table() != "relay.outbox_messages" {
		t.Fatalf("unexpected table %q", store.Table())
	}
}

func TestQueriesOnlyFlipSent(t *testing.T) {
	q := newQueries("outbox_messages")
	if q.markSent != "UPDATE outbox_messages SET sent = 1 WHERE id = ? AND sent = 0" {
		t.Fatalf("unexpected mark query %q", q.markSent)
	}
	if !strings.Contains(q.selectUnsent, "WHERE sent = 0 ORDER BY seq ASC") {
		t.Fatalf("unexpected select query %q", q.selectUnsent)
	}
	if !strings.HasSuffix(q.selectUnsentPage, "LIMIT ?") {
		t.Fatalf("expected paged select to end with LIMIT, got %q", q.selectUnsentPage)
	}
}

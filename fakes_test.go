package chatrelay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// memStore is an ordered in-memory outbox.
type memStore struct {
	mu       sync.Mutex
	rows     []Message
	fetchErr error
	markErr  map[string]error
	marks    []string
	fetches  int
}

func newMemStore(msgs ...Message) *memStore {
	return &memStore{rows: append([]Message(nil), msgs...), markErr: map[string]error{}}
}

func (s *memStore) FetchUnsent(_ context.Context) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := make([]Message, 0, len(s.rows))
	for _, m := range s.rows {
		if !m.Sent {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks = append(s.marks, id)
	if err := s.markErr[id]; err != nil {
		return err
	}
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].Sent = true
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *memStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return
		}
	}
}

func (s *memStore) sent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.rows {
		if m.ID == id {
			return m.Sent
		}
	}
	return false
}

// recordingSink records calls and returns scripted outcomes per message id.
type recordingSink struct {
	mu      sync.Mutex
	calls   []Message
	errs    map[string]error
	replies map[string]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{errs: map[string]error{}, replies: map[string]string{}}
}

func (s *recordingSink) Send(_ context.Context, msg Message) (Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, msg)
	if err := s.errs[msg.ID]; err != nil {
		return Delivery{}, err
	}
	if reply, ok := s.replies[msg.ID]; ok {
		return Delivery{Reply: reply, Replied: true}, nil
	}
	return Delivery{}, nil
}

func (s *recordingSink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for _, m := range s.calls {
		out = append(out, m.ID)
	}
	return out
}

// logEntry is one captured log call.
type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

// find returns the first entry at level whose args contain key=value.
func (l *captureLogger) find(level, key string, value any) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level != level {
			continue
		}
		for i := 0; i+1 < len(e.args); i += 2 {
			if e.args[i] == key && e.args[i+1] == value {
				return e, true
			}
		}
	}
	return logEntry{}, false
}

func (e logEntry) arg(key string) any {
	for i := 0; i+1 < len(e.args); i += 2 {
		if e.args[i] == key {
			return e.args[i+1]
		}
	}
	return nil
}

type memLedger struct {
	mu        sync.Mutex
	delivered map[string]time.Time
	lookupErr error
	forgotten []string
}

func newMemLedger() *memLedger {
	return &memLedger{delivered: map[string]time.Time{}}
}

func (l *memLedger) Delivered(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lookupErr != nil {
		return false, l.lookupErr
	}
	_, ok := l.delivered[id]
	return ok, nil
}

func (l *memLedger) Record(_ context.Context, id string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delivered[id] = at
	return nil
}

func (l *memLedger) Forget(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.delivered, id)
	l.forgotten = append(l.forgotten, id)
	return nil
}

var errStoreDown = errors.New("store unavailable")

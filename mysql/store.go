package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/velmie/chatrelay"
)

// Executor allows enqueuing within an existing transaction.
type Executor interface {
	// ExecContext executes a statement with the provided context.
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store implements chatrelay.Store on a MySQL table.
type Store struct {
	db      *sql.DB
	cfg     Config
	queries queries
	table   string
}

var _ chatrelay.Store = (*Store)(nil)
var _ chatrelay.PendingCounter = (*Store)(nil)

// NewStore constructs a MySQL store with validated configuration.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrDBRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()
	if cfg.FetchLimit < 0 {
		return nil, ErrInvalidFetchLimit
	}

	table, err := sanitizeTableName(cfg.Table)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		cfg:     cfg,
		queries: newQueries(table),
		table:   table,
	}, nil
}

// MustNewStore constructs a MySQL store or panics on error.
func MustNewStore(db *sql.DB, opts ...Option) *Store {
	store, err := NewStore(db, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

// Table returns the sanitized table name.
func (s *Store) Table() string {
	return s.table
}

// Migrate creates the outbox table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	schema, err := Schema(s.table)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("chatrelay mysql: create table failed: %w", err)
	}

	return nil
}

// Enqueue inserts an unsent message using the provided executor (transaction preferred).
// It is the write path of the ingestion side, the relay itself never calls it.
func (s *Store) Enqueue(ctx context.Context, exec Executor, msg chatrelay.Message) (string, error) {
	if exec == nil {
		return "", ErrExecutorRequired
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}

	id := msg.ID
	if id == "" {
		var err error
		id, err = s.cfg.Generator()
		if err != nil {
			return "", fmt.Errorf("chatrelay mysql: generate id failed: %w", err)
		}
	}

	_, err := exec.ExecContext(
		ctx,
		s.queries.insert,
		id,
		msg.ChatID,
		msg.ItemID,
		msg.AuthorID,
		msg.ChannelUserID,
		msg.Content,
	)
	if err != nil {
		return "", fmt.Errorf("chatrelay mysql: insert failed: %w", err)
	}

	return id, nil
}

// FetchUnsent returns unsent messages in insertion order.
func (s *Store) FetchUnsent(ctx context.Context) ([]chatrelay.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if s.cfg.FetchLimit > 0 {
		rows, err = s.db.QueryContext(ctx, s.queries.selectUnsentPage, s.cfg.FetchLimit)
	} else {
		rows, err = s.db.QueryContext(ctx, s.queries.selectUnsent)
	}
	if err != nil {
		return nil, fmt.Errorf("chatrelay mysql: select failed: %w", err)
	}
	defer rows.Close()

	messages := make([]chatrelay.Message, 0, s.cfg.FetchLimit)
	for rows.Next() {
		var (
			msg       chatrelay.Message
			createdAt time.Time
		)
		if err := rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.ItemID,
			&msg.AuthorID,
			&msg.ChannelUserID,
			&msg.Content,
			&msg.Sent,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("chatrelay mysql: scan failed: %w", err)
		}
		msg.CreatedAt = createdAt.UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatrelay mysql: rows failed: %w", err)
	}

	return messages, nil
}

// MarkSent flips sent to 1. Marking an already sent row succeeds, a missing row
// returns an error wrapping chatrelay.ErrNotFound.
func (s *Store) MarkSent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.queries.markSent, id)
	if err != nil {
		return fmt.Errorf("chatrelay mysql: mark sent failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("chatrelay mysql: rows affected failed: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var sent bool
	err = s.db.QueryRowContext(ctx, s.queries.sentByID, id).Scan(&sent)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", chatrelay.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("chatrelay mysql: lookup failed: %w", err)
	}

	return nil
}

// PendingCount returns the number of unsent rows.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, s.queries.countPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("chatrelay mysql: pending count failed: %w", err)
	}

	return count, nil
}

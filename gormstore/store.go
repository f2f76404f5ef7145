package gormstore

import (
	"context"
	"fmt"
	"regexp"

	"gorm.io/gorm"

	"github.com/velmie/chatrelay"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// Store implements chatrelay.Store on a GORM connection.
type Store struct {
	db  *gorm.DB
	cfg Config
}

var _ chatrelay.Store = (*Store)(nil)
var _ chatrelay.PendingCounter = (*Store)(nil)

// New constructs a store with validated configuration.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
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
	if !tableNamePattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, cfg.Table)
	}

	return &Store{db: db, cfg: cfg}, nil
}

// Table returns the outbox table name.
func (s *Store) Table() string {
	return s.cfg.Table
}

// Migrate creates or updates the outbox table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Table(s.cfg.Table).AutoMigrate(&messageRow{}); err != nil {
		return fmt.Errorf("chatrelay gorm: migrate failed: %w", err)
	}

	return nil
}

// Enqueue inserts an unsent message through tx, or through the store's connection when tx is nil.
func (s *Store) Enqueue(ctx context.Context, tx *gorm.DB, msg chatrelay.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	if tx == nil {
		tx = s.db
	}

	id := msg.ID
	if id == "" {
		var err error
		id, err = s.cfg.Generator()
		if err != nil {
			return "", fmt.Errorf("chatrelay gorm: generate id failed: %w", err)
		}
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.cfg.Clock.Now()
	}

	row := messageRow{
		MessageID:     id,
		ChatID:        msg.ChatID,
		ItemID:        msg.ItemID,
		AuthorID:      msg.AuthorID,
		ChannelUserID: msg.ChannelUserID,
		Content:       msg.Content,
		CreatedAt:     createdAt.UTC(),
	}
	if err := tx.WithContext(ctx).Table(s.cfg.Table).Create(&row).Error; err != nil {
		return "", fmt.Errorf("chatrelay gorm: insert failed: %w", err)
	}

	return id, nil
}

// FetchUnsent returns unsent messages in insertion order.
func (s *Store) FetchUnsent(ctx context.Context) ([]chatrelay.Message, error) {
	query := s.db.WithContext(ctx).
		Table(s.cfg.Table).
		Where("sent = ?", false).
		Order("seq ASC")
	if s.cfg.FetchLimit > 0 {
		query = query.Limit(s.cfg.FetchLimit)
	}

	var rows []messageRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("chatrelay gorm: select failed: %w", err)
	}

	messages := make([]chatrelay.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.message())
	}

	return messages, nil
}

// MarkSent flips sent to true. Marking an already sent row succeeds, a missing row
// returns an error wrapping chatrelay.ErrNotFound.
func (s *Store) MarkSent(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Table(s.cfg.Table).
		Where("id = ? AND sent = ?", id, false).
		Update("sent", true)
	if res.Error != nil {
		return fmt.Errorf("chatrelay gorm: mark sent failed: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Table(s.cfg.Table).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("chatrelay gorm: lookup failed: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", chatrelay.ErrNotFound, id)
	}

	return nil
}

// PendingCount returns the number of unsent rows.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Table(s.cfg.Table).Where("sent = ?", false).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("chatrelay gorm: pending count failed: %w", err)
	}

	return int(count), nil
}

package gormstore

import (
	"time"

	"github.com/velmie/chatrelay"
)

type messageRow struct {
	Seq           uint64    `gorm:"column:seq;primaryKey;autoIncrement;index:idx_sent_seq,priority:2"`
	MessageID     string    `gorm:"column:id;type:varchar(64);not null;uniqueIndex"`
	ChatID        string    `gorm:"column:chat_id;type:varchar(128);not null"`
	ItemID        string    `gorm:"column:item_id;type:varchar(128)"`
	AuthorID      string    `gorm:"column:author_id;type:varchar(128)"`
	ChannelUserID string    `gorm:"column:channel_user_id;type:varchar(128)"`
	Content       string    `gorm:"column:content;type:text;not null"`
	Sent          bool      `gorm:"column:sent;not null;default:false;index:idx_sent_seq,priority:1"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
}

func (r messageRow) message() chatrelay.Message {
	return chatrelay.Message{
		ID:            r.MessageID,
		ChatID:        r.ChatID,
		ItemID:        r.ItemID,
		AuthorID:      r.AuthorID,
		ChannelUserID: r.ChannelUserID,
		Content:       r.Content,
		Sent:          r.Sent,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

// TableName is the default table, WithTable overrides it per query.
func (messageRow) TableName() string { return defaultTable }

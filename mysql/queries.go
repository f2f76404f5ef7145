package mysql

import "fmt"

const columns = "id, chat_id, item_id, author_id, channel_user_id, content, sent, created_at"

type queries struct {
	insert           string
	selectUnsent     string
	selectUnsentPage string
	markSent         string
	sentByID         string
	countPending     string
}

func newQueries(table string) queries {
	return queries{
		insert: fmt.Sprintf(
			"INSERT INTO %s (id, chat_id, item_id, author_id, channel_user_id, content, sent) VALUES (?, ?, ?, ?, ?, ?, 0)",
			table,
		),
		selectUnsent:     fmt.Sprintf("SELECT %s FROM %s WHERE sent = 0 ORDER BY seq ASC", columns, table),
		selectUnsentPage: fmt.Sprintf("SELECT %s FROM %s WHERE sent = 0 ORDER BY seq ASC LIMIT ?", columns, table),
		markSent:         fmt.Sprintf("UPDATE %s SET sent = 1 WHERE id = ? AND sent = 0", table),
		sentByID:         fmt.Sprintf("SELECT sent FROM %s WHERE id = ?", table),
		countPending:     fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE sent = 0", table),
	}
}

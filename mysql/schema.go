package mysql

import "fmt"

const schemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	seq BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	id VARCHAR(64) NOT NULL,
	chat_id VARCHAR(128) NOT NULL,
	item_id VARCHAR(128) NOT NULL DEFAULT '',
	author_id VARCHAR(128) NOT NULL DEFAULT '',
	channel_user_id VARCHAR(128) NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	sent BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	PRIMARY KEY (id),
	UNIQUE KEY ux_seq (seq),
	INDEX idx_sent_seq (sent, seq)
) DEFAULT CHARSET=utf8mb4;`

// Schema returns the CREATE TABLE statement for an outbox table.
func Schema(table string) (string, error) {
	name, err := sanitizeTableName(table)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(schemaTemplate, name), nil
}

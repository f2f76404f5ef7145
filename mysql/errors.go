package mysql

import "errors"

var (
	// ErrDBRequired is returned when a nil *sql.DB is provided.
	ErrDBRequired = errors.New("chatrelay mysql: db is required")
	// ErrExecutorRequired is returned when enqueue is called with a nil executor.
	ErrExecutorRequired = errors.New("chatrelay mysql: executor is required")
	// ErrTableNameRequired is returned when the table name is empty.
	ErrTableNameRequired = errors.New("chatrelay mysql: table name is required")
	// ErrInvalidTableName is returned when the table name has disallowed characters.
	ErrInvalidTableName = errors.New("chatrelay mysql: invalid table name")
	// ErrInvalidFetchLimit is returned when the fetch limit is negative.
	ErrInvalidFetchLimit = errors.New("chatrelay mysql: fetch limit must be non-negative")
)

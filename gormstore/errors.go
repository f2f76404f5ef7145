package gormstore

import "errors"

var (
	// ErrDBRequired indicates a missing *gorm.DB.
	ErrDBRequired = errors.New("chatrelay gorm: db is required")
	// ErrInvalidTableName indicates the table name is not a plain identifier.
	ErrInvalidTableName = errors.New("chatrelay gorm: invalid table name")
	// ErrInvalidFetchLimit indicates a negative fetch limit.
	ErrInvalidFetchLimit = errors.New("chatrelay gorm: fetch limit must be >= 0")
	// ErrUnsupportedDriver indicates Open got a driver other than postgres or sqlite.
	ErrUnsupportedDriver = errors.New("chatrelay gorm: unsupported driver")
)

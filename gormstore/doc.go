// Package gormstore implements the chatrelay outbox on PostgreSQL or SQLite through GORM.
//
// Rows are ordered by an auto-increment seq primary key. The message id is a unique
// secondary key so SQLite keeps a monotonic rowid.
package gormstore

// Package mysql provides a MySQL 8.0+ outbox store for chatrelay.
//
// Messages are ordered by an AUTO_INCREMENT seq column, so "oldest first" is insertion order
// and does not depend on clock precision. The relay only reads rows with sent = 0 and flips
// sent to 1 by id; see Schema for the table layout.
package mysql

// Package sqlite stores documents, chunks and conversation turns in one
// SQLite file using the pure-Go modernc.org/sqlite driver.
//
// The schema lives in migrations/NNN_name.up.sql and is applied on open.
// Timestamps are Unix nanoseconds so ordering is exact. The database runs
// in WAL mode, so a watcher may write while searches read.
package sqlite

package db

import "errors"

// ErrKeyNotFound is returned by Cache.Get on a miss.
var ErrKeyNotFound = errors.New("db: key not found")

// Operation names carried by Error.
const (
	OpGet     = "GET"
	OpSet     = "SET"
	OpIncr    = "INCR"
	OpInsert  = "INSERT"
	OpSelect  = "SELECT"
	OpDelete  = "DELETE"
	OpMigrate = "MIGRATE"
)

// Error records which storage operation failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "db " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

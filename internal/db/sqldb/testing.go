package sqldb

import (
	"context"
	"fmt"
	"sync/atomic"
)

var memSeq atomic.Int64

// OpenMemory opens a private, migrated in-memory SQLite database.
func OpenMemory(ctx context.Context) (*DB, error) {
	dsn := fmt.Sprintf("file:imageuplift_mem_%d?mode=memory&cache=shared&_foreign_keys=on", memSeq.Add(1))
	return Open(ctx, Config{Driver: string(SQLite), DSN: dsn})
}

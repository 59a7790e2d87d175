package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

// Engine owns the single Badger instance the node persists state in.
// It hands out DbTx handles rather than raw get/put: every caller goes
// through a transaction, never touches keys directly.
type Engine struct {
	db *badger.DB
}

// OpenEngine opens (creating if absent) a Badger database rooted at dir.
func OpenEngine(dir string) (*Engine, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger at %s: %w", dir, err)
	}
	return &Engine{db: db}, nil
}

// Close releases the underlying database handle.
func (e *Engine) Close() error {
	if err := e.db.Close(); err != nil {
		return fmt.Errorf("storage: close badger: %w", err)
	}
	return nil
}

// BeginTx opens a new snapshot-isolated read-write transaction. The
// returned DbTx is not safe for concurrent use by multiple goroutines.
func (e *Engine) BeginTx() *DbTx {
	return newDbTx(e.db.NewTransaction(true))
}

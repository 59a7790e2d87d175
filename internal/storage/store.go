package storage

import "errors"

// ErrWriteConflict is returned from DbTx.Commit when a concurrently
// committed transaction wrote a key this transaction read or wrote,
// Badger's first-committer-wins optimistic concurrency check. Callers
// surface this and never retry internally.
var ErrWriteConflict = errors.New("storage: write conflict")

// ErrSavepointNotSet is logged (not returned — the rollback is a no-op)
// when RollbackToSavepoint is called without a prior SetSavepoint.
var ErrSavepointNotSet = errors.New("storage: no savepoint set")

// KV is one key/value pair as returned by prefix iteration.
type KV struct {
	Key   []byte
	Value []byte
}

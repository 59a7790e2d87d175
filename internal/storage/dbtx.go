package storage

import (
	"log"
	"sort"

	"github.com/dgraph-io/badger/v3"
)

// writeOp is one buffered mutation recorded on a DbTx's overlay. value
// is nil for a delete.
type writeOp struct {
	key     []byte
	value   []byte
	deleted bool
}

// DbTx is a snapshot-isolated handle over one Badger transaction.
// Writes are buffered in an in-memory overlay rather than applied to the
// underlying *badger.Txn immediately; this is what makes savepoints
// possible over a backend that has no native notion of them. Reads
// consult the overlay first, then fall through to the Badger snapshot,
// which is how a dbtx observes its own uncommitted writes.
type DbTx struct {
	txn *badger.Txn

	log       []writeOp
	savepoint *int // index into log; nil if no savepoint is set

	committed bool
}

func newDbTx(txn *badger.Txn) *DbTx {
	return &DbTx{txn: txn}
}

// overlayLookup scans the write log backwards for the most recent
// operation touching key. Scanning from the end gives last-write-wins
// semantics without needing to maintain a second map alongside the log
// (the log itself must stay the source of truth so SetSavepoint/
// RollbackToSavepoint can simply slice it).
func (tx *DbTx) overlayLookup(key []byte) (op writeOp, found bool) {
	for i := len(tx.log) - 1; i >= 0; i-- {
		if string(tx.log[i].key) == string(key) {
			return tx.log[i], true
		}
	}
	return writeOp{}, false
}

// GetBytes reads key's value, observing this dbtx's own uncommitted
// writes layered over the underlying snapshot.
func (tx *DbTx) GetBytes(key []byte) ([]byte, error) {
	if op, ok := tx.overlayLookup(key); ok {
		if op.deleted {
			return nil, nil
		}
		return append([]byte(nil), op.value...), nil
	}
	item, err := tx.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// InsertBytes buffers key=value and returns the prior value, if any.
func (tx *DbTx) InsertBytes(key, value []byte) ([]byte, error) {
	prior, err := tx.GetBytes(key)
	if err != nil {
		return nil, err
	}
	tx.log = append(tx.log, writeOp{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
	return prior, nil
}

// Remove buffers a delete of key and returns its prior value, if any.
func (tx *DbTx) Remove(key []byte) ([]byte, error) {
	prior, err := tx.GetBytes(key)
	if err != nil {
		return nil, err
	}
	tx.log = append(tx.log, writeOp{key: append([]byte(nil), key...), deleted: true})
	return prior, nil
}

// FindByPrefix returns every (key, value) pair whose key strictly starts
// with prefix, in ascending lexicographic order, merging this dbtx's own
// buffered writes over the underlying snapshot.
func (tx *DbTx) FindByPrefix(prefix []byte) ([]KV, error) {
	merged := make(map[string][]byte)
	tombstoned := make(map[string]bool)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := tx.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		k := append([]byte(nil), item.Key()...)
		v, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		merged[string(k)] = v
	}

	// Overlay writes take precedence; replay the log in order so the
	// final state for each key matches what Commit will persist.
	for _, op := range tx.log {
		if len(op.key) < len(prefix) || string(op.key[:len(prefix)]) != string(prefix) {
			continue
		}
		if op.deleted {
			delete(merged, string(op.key))
			tombstoned[string(op.key)] = true
			continue
		}
		delete(tombstoned, string(op.key))
		merged[string(op.key)] = op.value
	}

	out := make([]KV, 0, len(merged))
	for k, v := range merged {
		out = append(out, KV{Key: []byte(k), Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i].Key) < string(out[j].Key) })
	return out, nil
}

// SetSavepoint marks the current end of the write log. Savepoints are
// single-shot per dbtx: calling it again simply moves the mark, it does
// not stack.
func (tx *DbTx) SetSavepoint() {
	mark := len(tx.log)
	tx.savepoint = &mark
}

// RollbackToSavepoint discards every write buffered since the last
// SetSavepoint call, without touching the underlying Badger transaction.
// Rolling back with no savepoint set is a no-op that logs a warning.
func (tx *DbTx) RollbackToSavepoint() {
	if tx.savepoint == nil {
		log.Printf("storage: rollback requested: %v", ErrSavepointNotSet)
		return
	}
	tx.log = tx.log[:*tx.savepoint]
}

// Commit replays the buffered write log into the underlying Badger
// transaction and commits it. Badger's first-committer-wins optimistic
// conflict check fires here; a conflicting commit surfaces as
// ErrWriteConflict and is never retried internally.
func (tx *DbTx) Commit() error {
	for _, op := range tx.log {
		if op.deleted {
			if err := tx.txn.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := tx.txn.Set(op.key, op.value); err != nil {
			return err
		}
	}
	err := tx.txn.Commit()
	if err == badger.ErrConflict {
		return ErrWriteConflict
	}
	if err != nil {
		return err
	}
	tx.committed = true
	return nil
}

// Discard releases the underlying Badger transaction without committing.
// Safe to call after Commit; dropping an in-flight dbtx this way leaves
// no partial writes visible.
func (tx *DbTx) Discard() {
	tx.txn.Discard()
}

package storage

import (
	"encoding/binary"

	"github.com/rechain/fedicore/pkg/types"
)

// moduleSubspacePrefix is the single byte every module-prefixed key is
// tagged with, distinguishing module subspaces from the core's own
// prefixes 0x01-0x06 in the persisted state layout.
const moduleSubspacePrefix = 0xAA

// ModuleView wraps a DbTx and transparently prepends
// (moduleSubspacePrefix, instance) to every key, giving each module
// instance an isolated subspace. It forwards commit/rollback semantics
// to the underlying DbTx unchanged and offers no way to read outside
// its own subspace.
type ModuleView struct {
	tx       *DbTx
	instance types.ModuleInstanceId
}

// NewModuleView builds a module-prefixed view over tx for instance.
func NewModuleView(tx *DbTx, instance types.ModuleInstanceId) *ModuleView {
	return &ModuleView{tx: tx, instance: instance}
}

func (v *ModuleView) namespacedKey(key []byte) []byte {
	out := make([]byte, 0, 3+len(key))
	out = append(out, moduleSubspacePrefix)
	var inst [2]byte
	binary.BigEndian.PutUint16(inst[:], uint16(v.instance))
	out = append(out, inst[:]...)
	out = append(out, key...)
	return out
}

// GetBytes reads key from this module's subspace.
func (v *ModuleView) GetBytes(key []byte) ([]byte, error) {
	return v.tx.GetBytes(v.namespacedKey(key))
}

// InsertBytes writes key=value into this module's subspace.
func (v *ModuleView) InsertBytes(key, value []byte) ([]byte, error) {
	return v.tx.InsertBytes(v.namespacedKey(key), value)
}

// Remove deletes key from this module's subspace.
func (v *ModuleView) Remove(key []byte) ([]byte, error) {
	return v.tx.Remove(v.namespacedKey(key))
}

// FindByPrefix iterates this module's subspace under the given
// module-relative prefix, stripping the subspace tag back off each
// returned key so callers never see it.
func (v *ModuleView) FindByPrefix(prefix []byte) ([]KV, error) {
	full := v.namespacedKey(prefix)
	rows, err := v.tx.FindByPrefix(full)
	if err != nil {
		return nil, err
	}
	stripLen := len(full) - len(prefix)
	out := make([]KV, len(rows))
	for i, r := range rows {
		out[i] = KV{Key: r.Key[stripLen:], Value: r.Value}
	}
	return out, nil
}

// SetSavepoint/RollbackToSavepoint forward to the underlying DbTx: a
// savepoint is a property of the whole epoch-wide transaction, not of
// any one module's view of it.
func (v *ModuleView) SetSavepoint() { v.tx.SetSavepoint() }

func (v *ModuleView) RollbackToSavepoint() { v.tx.RollbackToSavepoint() }

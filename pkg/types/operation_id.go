package types

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// OperationId is a 256-bit opaque identifier correlating a user-visible
// operation across its lifetime. It is either random (see
// NewRandomOperationId) or derived from a transaction hash.
type OperationId [32]byte

// NewRandomOperationId fills an OperationId with fresh randomness: a v4
// UUID supplies the low 16 bytes and the high 16 bytes are zero, since
// 128 bits of entropy is ample for collision avoidance here and a
// second UUID draw buys nothing.
func NewRandomOperationId() OperationId {
	var id OperationId
	u := uuid.New()
	copy(id[16:], u[:])
	return id
}

// OperationIdFromTxHash derives an OperationId from a transaction's hash,
// used when the operation IS the transaction rather than some unrelated
// client-side workflow.
func OperationIdFromTxHash(h TxHash) OperationId {
	return OperationId(h)
}

func (o OperationId) String() string {
	return hex.EncodeToString(o[:])
}

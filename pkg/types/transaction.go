package types

import (
	"crypto/sha256"
	"encoding/hex"
)

// TxHash is the consensus encoding digest that identifies a Transaction.
type TxHash [32]byte

func (h TxHash) String() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether h is the all-zero hash, used as the genesis
// previous_hash for EpochHistory entry 0.
func (h TxHash) IsZero() bool { return h == TxHash{} }

// OutPoint identifies one output of one transaction.
type OutPoint struct {
	TxHash TxHash
	OutIdx uint64
}

// Transaction is an atomic, ordered sequence of typed inputs and outputs
// signed by the aggregate of the public keys returned by its inputs'
// validators.
//
// Invariant (enforced by the pipeline, not by this type): sum of input
// amounts equals sum of output amounts plus fees.
type Transaction struct {
	Inputs    []DynInput
	Outputs   []DynOutput
	Signature []byte
}

// SigningDigest returns the bytes a transaction's Signature is computed
// over: the canonical encoding of its inputs and outputs, deliberately
// excluding the signature itself.
func (tx *Transaction) SigningDigest(enc Encoder) ([]byte, error) {
	b, err := enc.EncodeInputsOutputs(tx.Inputs, tx.Outputs)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}

// Hash returns the transaction's tx_hash: the digest of its full
// canonical encoding, signature included.
func (tx *Transaction) Hash(enc Encoder) (TxHash, error) {
	b, err := enc.EncodeTransaction(tx)
	if err != nil {
		return TxHash{}, err
	}
	return sha256.Sum256(b), nil
}

// Encoder is the subset of pkg/codec's encoding surface the types
// package needs, expressed as an interface here to avoid a dependency
// cycle (pkg/codec depends on pkg/types, not the reverse).
type Encoder interface {
	EncodeInputsOutputs(inputs []DynInput, outputs []DynOutput) ([]byte, error)
	EncodeTransaction(tx *Transaction) ([]byte, error)
}

// AcceptedTransaction is persisted under AcceptedTransactionKey(tx_hash)
// once a transaction's inputs and outputs have been successfully applied.
type AcceptedTransaction struct {
	Epoch       uint64
	Transaction Transaction
}

// OutputResult is the {amount, fee} (and, for inputs, pub_keys) tuple
// produced by validating or applying one input or output.
type OutputResult struct {
	Amount  int64
	Fee     int64
	PubKeys [][]byte
}

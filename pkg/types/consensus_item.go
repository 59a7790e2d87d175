package types

import "fmt"

// ConsensusItemKind discriminates the tagged union ConsensusItem carries.
type ConsensusItemKind uint8

const (
	// ConsensusItemEpochInfo carries one guardian's signature share over
	// the previous epoch's hash.
	ConsensusItemEpochInfo ConsensusItemKind = iota
	// ConsensusItemTransaction carries a full client transaction.
	ConsensusItemTransaction
	// ConsensusItemModule carries a module-owned dynamic consensus item.
	ConsensusItemModule
)

func (k ConsensusItemKind) String() string {
	switch k {
	case ConsensusItemEpochInfo:
		return "EpochInfo"
	case ConsensusItemTransaction:
		return "Transaction"
	case ConsensusItemModule:
		return "Module"
	default:
		return fmt.Sprintf("ConsensusItemKind(%d)", uint8(k))
	}
}

// EpochSignatureShare is one guardian's Ed25519 signature over the
// previous epoch's hash, proposed as an EpochInfo consensus item.
type EpochSignatureShare struct {
	Peer      PeerId
	Signature []byte
}

// ConsensusItem is one of: an epoch signature share, a client
// transaction, or a module-specific item.
type ConsensusItem struct {
	Kind        ConsensusItemKind
	EpochInfo   *EpochSignatureShare
	Transaction *Transaction
	Module      *DynModuleConsensusItem
}

// NewEpochInfoItem builds a ConsensusItem carrying an epoch signature
// share.
func NewEpochInfoItem(share EpochSignatureShare) ConsensusItem {
	return ConsensusItem{Kind: ConsensusItemEpochInfo, EpochInfo: &share}
}

// NewTransactionItem builds a ConsensusItem carrying a transaction.
func NewTransactionItem(tx Transaction) ConsensusItem {
	return ConsensusItem{Kind: ConsensusItemTransaction, Transaction: &tx}
}

// NewModuleItem builds a ConsensusItem carrying a module-owned item.
func NewModuleItem(item DynModuleConsensusItem) ConsensusItem {
	return ConsensusItem{Kind: ConsensusItemModule, Module: &item}
}

package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/rechain/fedicore/pkg/codec"
	"github.com/rechain/fedicore/pkg/types"
)

// Persisted state layout prefixes. Module subspaces live under
// moduleSubspacePrefix (0xAA), distinct from these core prefixes.
const (
	PrefixAcceptedTransaction byte = 0x01
	PrefixRejectedTransaction byte = 0x02
	PrefixProposedTransaction byte = 0x03
	PrefixDropPeer            byte = 0x04
	PrefixEpochHistory        byte = 0x05
	PrefixLastEpoch           byte = 0x06
)

func AcceptedTransactionKey(h types.TxHash) []byte {
	return append([]byte{PrefixAcceptedTransaction}, h[:]...)
}

func RejectedTransactionKey(h types.TxHash) []byte {
	return append([]byte{PrefixRejectedTransaction}, h[:]...)
}

func ProposedTransactionKey(h types.TxHash) []byte {
	return append([]byte{PrefixProposedTransaction}, h[:]...)
}

func DropPeerKey(p types.PeerId) []byte {
	b := make([]byte, 3)
	b[0] = PrefixDropPeer
	binary.BigEndian.PutUint16(b[1:], uint16(p))
	return b
}

func EpochHistoryKey(epoch uint64) []byte {
	b := make([]byte, 9)
	b[0] = PrefixEpochHistory
	binary.BigEndian.PutUint64(b[1:], epoch)
	return b
}

func LastEpochKey() []byte { return []byte{PrefixLastEpoch} }

// PutAcceptedTransaction persists tx as accepted at epoch.
func PutAcceptedTransaction(tx *DbTx, c *codec.Codec, h types.TxHash, at types.AcceptedTransaction) error {
	b, err := c.EncodeAcceptedTransaction(at)
	if err != nil {
		return fmt.Errorf("storage: encode accepted transaction: %w", err)
	}
	_, err = tx.InsertBytes(AcceptedTransactionKey(h), b)
	return err
}

// GetAcceptedTransaction returns the accepted record for h, or
// (_, false, nil) if no such record exists.
func GetAcceptedTransaction(tx *DbTx, c *codec.Codec, h types.TxHash) (types.AcceptedTransaction, bool, error) {
	b, err := tx.GetBytes(AcceptedTransactionKey(h))
	if err != nil || b == nil {
		return types.AcceptedTransaction{}, false, err
	}
	at, err := c.DecodeAcceptedTransaction(b)
	if err != nil {
		return types.AcceptedTransaction{}, false, fmt.Errorf("storage: decode accepted transaction: %w", err)
	}
	return at, true, nil
}

// PutRejectedTransaction persists the human-readable rejection reason
// for h.
func PutRejectedTransaction(tx *DbTx, h types.TxHash, reason string) error {
	_, err := tx.InsertBytes(RejectedTransactionKey(h), []byte(reason))
	return err
}

// GetRejectedTransaction returns the rejection reason for h, or
// (_, false, nil) if h was not rejected.
func GetRejectedTransaction(tx *DbTx, h types.TxHash) (string, bool, error) {
	b, err := tx.GetBytes(RejectedTransactionKey(h))
	if err != nil || b == nil {
		return "", false, err
	}
	return string(b), true, nil
}

// PutProposedTransaction enqueues tx awaiting epoch inclusion.
func PutProposedTransaction(tx *DbTx, c *codec.Codec, h types.TxHash, t types.Transaction) error {
	b, err := c.EncodeTransaction(&t)
	if err != nil {
		return fmt.Errorf("storage: encode proposed transaction: %w", err)
	}
	_, err = tx.InsertBytes(ProposedTransactionKey(h), b)
	return err
}

// RemoveProposedTransaction dequeues h, returning whether it was present.
func RemoveProposedTransaction(tx *DbTx, h types.TxHash) (bool, error) {
	prior, err := tx.Remove(ProposedTransactionKey(h))
	return prior != nil, err
}

// ListProposedTransactions returns every pending transaction, decoded,
// in ascending tx_hash order.
func ListProposedTransactions(tx *DbTx, c *codec.Codec) ([]types.Transaction, error) {
	rows, err := tx.FindByPrefix([]byte{PrefixProposedTransaction})
	if err != nil {
		return nil, err
	}
	out := make([]types.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := c.DecodeTransaction(row.Value)
		if err != nil {
			return nil, fmt.Errorf("storage: decode proposed transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// PutDropPeer marks p for ejection.
func PutDropPeer(tx *DbTx, p types.PeerId) error {
	_, err := tx.InsertBytes(DropPeerKey(p), []byte{})
	return err
}

// ListDropPeers returns every peer currently marked for ejection.
func ListDropPeers(tx *DbTx) ([]types.PeerId, error) {
	rows, err := tx.FindByPrefix([]byte{PrefixDropPeer})
	if err != nil {
		return nil, err
	}
	out := make([]types.PeerId, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.PeerId(binary.BigEndian.Uint16(row.Key[1:])))
	}
	return out, nil
}

// PutEpochHistory persists h under EpochHistoryKey(epoch).
func PutEpochHistory(tx *DbTx, c *codec.Codec, epoch uint64, h types.EpochHistory) error {
	b, err := c.EncodeEpochHistory(h)
	if err != nil {
		return fmt.Errorf("storage: encode epoch history: %w", err)
	}
	_, err = tx.InsertBytes(EpochHistoryKey(epoch), b)
	return err
}

// GetEpochHistory returns the epoch history entry for epoch, or
// (_, false, nil) if it has not been recorded.
func GetEpochHistory(tx *DbTx, c *codec.Codec, epoch uint64) (types.EpochHistory, bool, error) {
	b, err := tx.GetBytes(EpochHistoryKey(epoch))
	if err != nil || b == nil {
		return types.EpochHistory{}, false, err
	}
	h, err := c.DecodeEpochHistory(b)
	if err != nil {
		return types.EpochHistory{}, false, fmt.Errorf("storage: decode epoch history: %w", err)
	}
	return h, true, nil
}

// PutLastEpoch updates LastEpochKey to point at epoch.
func PutLastEpoch(tx *DbTx, epoch uint64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, epoch)
	_, err := tx.InsertBytes(LastEpochKey(), b)
	return err
}

// GetLastEpoch returns the highest-numbered epoch recorded, or
// (_, false, nil) if no epoch has ever been processed.
func GetLastEpoch(tx *DbTx) (uint64, bool, error) {
	b, err := tx.GetBytes(LastEpochKey())
	if err != nil || b == nil {
		return 0, false, err
	}
	return binary.BigEndian.Uint64(b), true, nil
}

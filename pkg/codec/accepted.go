package codec

import (
	"fmt"

	"github.com/rechain/fedicore/pkg/types"
)

// EncodeAcceptedTransaction canonically encodes an AcceptedTransaction
// for storage under AcceptedTransactionKey.
func (c *Codec) EncodeAcceptedTransaction(at types.AcceptedTransaction) ([]byte, error) {
	txBytes, err := c.EncodeTransaction(&at.Transaction)
	if err != nil {
		return nil, fmt.Errorf("codec: encode accepted transaction: %w", err)
	}
	w := newWriter()
	w.WriteUint64(at.Epoch)
	w.WriteBytes(txBytes)
	return w.Bytes(), nil
}

// DecodeAcceptedTransaction decodes bytes produced by
// EncodeAcceptedTransaction.
func (c *Codec) DecodeAcceptedTransaction(b []byte) (types.AcceptedTransaction, error) {
	r := newReader(b)
	epoch, err := r.ReadUint64()
	if err != nil {
		return types.AcceptedTransaction{}, err
	}
	txBytes, err := r.ReadBytes()
	if err != nil {
		return types.AcceptedTransaction{}, err
	}
	tx, err := c.DecodeTransaction(txBytes)
	if err != nil {
		return types.AcceptedTransaction{}, fmt.Errorf("codec: decode accepted transaction: %w", err)
	}
	return types.AcceptedTransaction{Epoch: epoch, Transaction: tx}, nil
}

// Package testmodule is a minimal UTXO-shaped Module implementation used
// to exercise the transaction pipeline and epoch processor in tests: not
// a real mint/wallet/lightning module, only the smallest plug-in that
// can spend and create a typed output so internal/consensus's pipeline
// has something real to run.
package testmodule

import (
	"encoding/binary"
	"fmt"

	"github.com/rechain/fedicore/pkg/types"
)

// NotePayload is a spendable note of value: the module's only output
// type, and (by reference) its only input type.
type NotePayload struct {
	Amount int64
	PubKey []byte
}

func (n NotePayload) Encode() ([]byte, error) {
	b := make([]byte, 8+4+len(n.PubKey))
	binary.BigEndian.PutUint64(b[:8], uint64(n.Amount))
	binary.BigEndian.PutUint32(b[8:12], uint32(len(n.PubKey)))
	copy(b[12:], n.PubKey)
	return b, nil
}

func (n NotePayload) Equal(other types.ModulePayload) bool {
	o, ok := other.(NotePayload)
	if !ok || o.Amount != n.Amount || len(o.PubKey) != len(n.PubKey) {
		return false
	}
	for i := range n.PubKey {
		if n.PubKey[i] != o.PubKey[i] {
			return false
		}
	}
	return true
}

func (n NotePayload) String() string {
	return fmt.Sprintf("Note(amount=%d)", n.Amount)
}

func decodeNotePayload(b []byte) (types.ModulePayload, error) {
	if len(b) < 12 {
		return nil, fmt.Errorf("testmodule: note payload too short: %d bytes", len(b))
	}
	amount := int64(binary.BigEndian.Uint64(b[:8]))
	n := binary.BigEndian.Uint32(b[8:12])
	if len(b) < 12+int(n) {
		return nil, fmt.Errorf("testmodule: note payload pubkey truncated")
	}
	pub := append([]byte(nil), b[12:12+n]...)
	return NotePayload{Amount: amount, PubKey: pub}, nil
}

// SpendPayload is an input: a reference to the OutPoint of a previously
// applied NotePayload output this transaction consumes.
type SpendPayload struct {
	Spend types.OutPoint
}

func (s SpendPayload) Encode() ([]byte, error) {
	b := make([]byte, 40)
	copy(b[:32], s.Spend.TxHash[:])
	binary.BigEndian.PutUint64(b[32:], s.Spend.OutIdx)
	return b, nil
}

func (s SpendPayload) Equal(other types.ModulePayload) bool {
	o, ok := other.(SpendPayload)
	return ok && o.Spend == s.Spend
}

func (s SpendPayload) String() string {
	return fmt.Sprintf("Spend(%s:%d)", s.Spend.TxHash, s.Spend.OutIdx)
}

func decodeSpendPayload(b []byte) (types.ModulePayload, error) {
	if len(b) != 40 {
		return nil, fmt.Errorf("testmodule: spend payload wrong size: %d bytes", len(b))
	}
	var h types.TxHash
	copy(h[:], b[:32])
	idx := binary.BigEndian.Uint64(b[32:])
	return SpendPayload{Spend: types.OutPoint{TxHash: h, OutIdx: idx}}, nil
}

// OutcomePayload answers an output_status query: whether the note at
// that OutPoint is still unspent, and its amount.
type OutcomePayload struct {
	Spent  bool
	Amount int64
}

func (o OutcomePayload) Encode() ([]byte, error) {
	b := make([]byte, 9)
	if o.Spent {
		b[0] = 1
	}
	binary.BigEndian.PutUint64(b[1:], uint64(o.Amount))
	return b, nil
}

func (o OutcomePayload) Equal(other types.ModulePayload) bool {
	p, ok := other.(OutcomePayload)
	return ok && p.Spent == o.Spent && p.Amount == o.Amount
}

func (o OutcomePayload) String() string {
	return fmt.Sprintf("Outcome(spent=%v amount=%d)", o.Spent, o.Amount)
}

func decodeOutcomePayload(b []byte) (types.ModulePayload, error) {
	if len(b) != 9 {
		return nil, fmt.Errorf("testmodule: outcome payload wrong size: %d bytes", len(b))
	}
	return OutcomePayload{Spent: b[0] == 1, Amount: int64(binary.BigEndian.Uint64(b[1:]))}, nil
}

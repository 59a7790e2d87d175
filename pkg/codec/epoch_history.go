package codec

import (
	"fmt"

	"github.com/rechain/fedicore/pkg/types"
)

// DecodeConsensusOutcome is the inverse of EncodeConsensusOutcome,
// needed to read an EpochHistory entry's outcome back out of storage.
func (c *Codec) DecodeConsensusOutcome(b []byte) (types.ConsensusOutcome, error) {
	r := newReader(b)
	epoch, err := r.ReadUint64()
	if err != nil {
		return types.ConsensusOutcome{}, err
	}
	nPeers, err := r.ReadUint32()
	if err != nil {
		return types.ConsensusOutcome{}, err
	}
	contributions := make(map[types.PeerId][]types.ConsensusItem, nPeers)
	for i := uint32(0); i < nPeers; i++ {
		peer, err := r.ReadUint16()
		if err != nil {
			return types.ConsensusOutcome{}, err
		}
		nItems, err := r.ReadUint32()
		if err != nil {
			return types.ConsensusOutcome{}, err
		}
		items := make([]types.ConsensusItem, nItems)
		for j := uint32(0); j < nItems; j++ {
			item, err := c.decodeConsensusItem(r)
			if err != nil {
				return types.ConsensusOutcome{}, fmt.Errorf("codec: decode item %d for peer %d: %w", j, peer, err)
			}
			items[j] = item
		}
		contributions[types.PeerId(peer)] = items
	}
	return types.ConsensusOutcome{Epoch: epoch, Contributions: contributions}, nil
}

func encodeThresholdSig(w *writer, sig *types.ThresholdSig) {
	if sig == nil {
		w.WriteUint8(0)
		return
	}
	w.WriteUint8(1)
	peers := make([]types.PeerId, 0, len(sig.Shares))
	for p := range sig.Shares {
		peers = append(peers, p)
	}
	sortPeers(peers)
	w.WriteUint32(uint32(len(peers)))
	for _, p := range peers {
		w.WriteUint16(uint16(p))
		w.WriteBytes(sig.Shares[p])
	}
}

func decodeThresholdSig(r *reader) (*types.ThresholdSig, error) {
	present, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	shares := make(map[types.PeerId][]byte, n)
	for i := uint32(0); i < n; i++ {
		peer, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		sig, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		shares[types.PeerId(peer)] = sig
	}
	return &types.ThresholdSig{Shares: shares}, nil
}

func sortPeers(peers []types.PeerId) {
	for i := 1; i < len(peers); i++ {
		for j := i; j > 0 && peers[j-1] > peers[j]; j-- {
			peers[j-1], peers[j] = peers[j], peers[j-1]
		}
	}
}

// EncodeEpochHistory canonically encodes an EpochHistory entry for
// storage under EpochHistoryKey.
func (c *Codec) EncodeEpochHistory(h types.EpochHistory) ([]byte, error) {
	outcomeBytes, err := c.EncodeConsensusOutcome(h.Outcome)
	if err != nil {
		return nil, fmt.Errorf("codec: encode epoch history outcome: %w", err)
	}
	w := newWriter()
	w.WriteBytes(outcomeBytes)
	w.buf.Write(h.Hash[:])
	w.buf.Write(h.PreviousHash[:])
	encodeThresholdSig(w, h.LastSignature)
	return w.Bytes(), nil
}

// DecodeEpochHistory is the inverse of EncodeEpochHistory.
func (c *Codec) DecodeEpochHistory(b []byte) (types.EpochHistory, error) {
	r := newReader(b)
	outcomeBytes, err := r.ReadBytes()
	if err != nil {
		return types.EpochHistory{}, err
	}
	outcome, err := c.DecodeConsensusOutcome(outcomeBytes)
	if err != nil {
		return types.EpochHistory{}, fmt.Errorf("codec: decode epoch history outcome: %w", err)
	}
	var hash, prev types.TxHash
	hashBytes, err := r.ReadFixed(32)
	if err != nil {
		return types.EpochHistory{}, err
	}
	copy(hash[:], hashBytes)
	prevBytes, err := r.ReadFixed(32)
	if err != nil {
		return types.EpochHistory{}, err
	}
	copy(prev[:], prevBytes)
	sig, err := decodeThresholdSig(r)
	if err != nil {
		return types.EpochHistory{}, err
	}
	return types.EpochHistory{Outcome: outcome, Hash: hash, PreviousHash: prev, LastSignature: sig}, nil
}

package codec

import (
	"crypto/sha256"

	"github.com/rechain/fedicore/pkg/types"
)

// ComputeEpochHash implements the epoch hash chain:
// hash_n = H(encode(outcome_n) || hash_{n-1}).
func (c *Codec) ComputeEpochHash(outcome types.ConsensusOutcome, previousHash types.TxHash) (types.TxHash, error) {
	encoded, err := c.EncodeConsensusOutcome(outcome)
	if err != nil {
		return types.TxHash{}, err
	}
	h := sha256.New()
	h.Write(encoded)
	h.Write(previousHash[:])
	var out types.TxHash
	copy(out[:], h.Sum(nil))
	return out, nil
}

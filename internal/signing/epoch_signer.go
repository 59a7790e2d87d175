// Package signing implements epoch threshold signing: each guardian
// signs the previous epoch's hash with an Ed25519 keypair, and a quorum
// of valid shares is aggregated into a ThresholdSig once enough
// guardians have contributed one.
//
// Ed25519 has no linear signature aggregation, so the "aggregate" is
// the set of individually-verified (peer, signature) pairs that crossed
// the federation's threshold, not a single compact signature.
package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sort"

	"github.com/rechain/fedicore/pkg/types"
)

// EpochSigner holds one guardian's Ed25519 keypair and produces
// EpochInfo signature shares over a previous epoch's hash.
type EpochSigner struct {
	peer types.PeerId
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewEpochSigner generates a fresh Ed25519 keypair for peer.
func NewEpochSigner(peer types.PeerId) (*EpochSigner, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("signing: generate ed25519 key: %w", err)
	}
	return &EpochSigner{peer: peer, pub: pub, priv: priv}, nil
}

// LoadEpochSigner wraps an already-provisioned keypair, e.g. loaded from
// the federation's DKG output at startup.
func LoadEpochSigner(peer types.PeerId, priv ed25519.PrivateKey) *EpochSigner {
	return &EpochSigner{peer: peer, pub: priv.Public().(ed25519.PublicKey), priv: priv}
}

// PublicKey returns this guardian's public key, to be distributed to
// every other guardian as part of the federation's epoch public-key set.
func (s *EpochSigner) PublicKey() ed25519.PublicKey { return s.pub }

// Sign produces this guardian's EpochInfo share over hash, the last
// persisted epoch's hash.
func (s *EpochSigner) Sign(hash types.TxHash) types.EpochSignatureShare {
	return types.EpochSignatureShare{
		Peer:      s.peer,
		Signature: ed25519.Sign(s.priv, hash[:]),
	}
}

// ThresholdVerifier holds the federation's epoch public-key set and
// aggregates EpochInfo shares against it.
type ThresholdVerifier struct {
	pubKeys   map[types.PeerId]ed25519.PublicKey
	threshold int
}

// NewThresholdVerifier builds a verifier requiring at least threshold
// valid shares to consider a hash signed.
func NewThresholdVerifier(pubKeys map[types.PeerId]ed25519.PublicKey, threshold int) *ThresholdVerifier {
	return &ThresholdVerifier{pubKeys: pubKeys, threshold: threshold}
}

// Aggregate verifies every share in shares against hash using the
// federation's public-key set. If at least the threshold verify, it
// returns a ThresholdSig holding exactly those shares; otherwise the
// signature is nil. Either way contributingPeers (sorted ascending)
// lists the peers whose shares did verify, so the caller can drop the
// epoch's contributors that withheld or botched theirs.
func (v *ThresholdVerifier) Aggregate(hash types.TxHash, shares []types.EpochSignatureShare) (sig *types.ThresholdSig, contributingPeers []types.PeerId) {
	valid := make(map[types.PeerId][]byte)
	for _, share := range shares {
		pub, ok := v.pubKeys[share.Peer]
		if !ok {
			continue
		}
		if ed25519.Verify(pub, hash[:], share.Signature) {
			valid[share.Peer] = share.Signature
		}
	}

	contributingPeers = make([]types.PeerId, 0, len(valid))
	for p := range valid {
		contributingPeers = append(contributingPeers, p)
	}
	sort.Slice(contributingPeers, func(i, j int) bool { return contributingPeers[i] < contributingPeers[j] })

	if len(valid) >= v.threshold {
		return &types.ThresholdSig{Shares: valid}, contributingPeers
	}
	return nil, contributingPeers
}

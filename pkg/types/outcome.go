package types

import "sort"

// ConsensusOutcome is the ordered batch the BFT layer delivers for one
// epoch: every contributing peer's ordered list of consensus items.
// Outcomes arrive with strictly increasing Epoch; the BFT layer is
// responsible for redelivering any outcome past LastEpochKey on restart.
type ConsensusOutcome struct {
	Epoch         uint64
	Contributions map[PeerId][]ConsensusItem
}

// SortedPeers returns the contributing peer ids in ascending order, the
// canonical iteration order the encoding rules require for any
// consensus-visible map.
func (o ConsensusOutcome) SortedPeers() []PeerId {
	peers := make([]PeerId, 0, len(o.Contributions))
	for p := range o.Contributions {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers
}

// ConsensusProposal is what get_consensus_proposal returns to the BFT
// layer to broadcast as this guardian's contribution to the next epoch.
type ConsensusProposal struct {
	Items     []ConsensusItem
	DropPeers []PeerId
}

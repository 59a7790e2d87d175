package types

// ThresholdSig is the result of aggregating EpochInfo shares over a
// previous epoch's hash. Ed25519 has no linear signature aggregation,
// so the "aggregate" is the set of individually-verified shares that
// crossed the threshold, not a single compact signature. It is valid
// exactly when len(Shares) >= the federation's configured threshold.
type ThresholdSig struct {
	Shares map[PeerId][]byte
}

// EpochHistory is one immutable (once signed) entry in the epoch hash
// chain: hash_n = H(encode(outcome_n) || hash_{n-1}).
type EpochHistory struct {
	Outcome       ConsensusOutcome
	Hash          TxHash
	PreviousHash  TxHash
	LastSignature *ThresholdSig
}

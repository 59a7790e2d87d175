// Package consensus drives the transaction pipeline and the epoch
// processor: admission and validation of client transactions, and the
// begin/process/end-epoch phases each BFT outcome is applied through,
// one atomic database transaction per phase. The BFT engine itself is
// external; this package only consumes its ordered outcomes and hands
// back proposals.
package consensus

import (
	"crypto/ed25519"
	"log"
	"sync"
	"time"

	"github.com/rechain/fedicore/internal/archive"
	"github.com/rechain/fedicore/internal/modules"
	"github.com/rechain/fedicore/internal/signing"
	"github.com/rechain/fedicore/internal/storage"
	"github.com/rechain/fedicore/pkg/codec"
	"github.com/rechain/fedicore/pkg/types"
)

// Processor is the epoch processor and transaction pipeline of one
// guardian. It exposes the BFT engine's inbound/outbound interfaces and
// the submission/query API as plain exported Go methods; any transport
// in front of them belongs to the caller.
type Processor struct {
	engine   *storage.Engine
	registry *modules.Registry
	codec    *codec.Codec
	signer   *signing.EpochSigner
	verifier *signing.ThresholdVerifier
	archiver *archive.Archiver

	// mu makes ProcessConsensusOutcome single-flight.
	mu sync.Mutex

	notifyCh     chan struct{}
	proposalTick time.Duration
}

// NewProcessor wires a Processor over engine's database, registry's
// modules, and signer/verifier for epoch threshold signing. archiver may
// be nil: archival is a best-effort convenience, never required for
// epoch processing to proceed.
func NewProcessor(engine *storage.Engine, registry *modules.Registry, signer *signing.EpochSigner, verifier *signing.ThresholdVerifier, archiver *archive.Archiver) *Processor {
	return &Processor{
		engine:       engine,
		registry:     registry,
		codec:        codec.NewCodec(registry.BuildDecoderRegistry()),
		signer:       signer,
		verifier:     verifier,
		archiver:     archiver,
		notifyCh:     make(chan struct{}, 1),
		proposalTick: 200 * time.Millisecond,
	}
}

// Codec exposes the processor's shared codec, e.g. for callers that need
// to compute a transaction's hash before submitting it.
func (p *Processor) Codec() *codec.Codec { return p.codec }

// epochItems is the demultiplexed shape of one ConsensusOutcome:
// epoch signature shares, transactions, and module consensus items
// grouped by owning module instance.
type epochItems struct {
	shares       []types.EpochSignatureShare
	transactions []types.Transaction
	moduleItems  map[types.ModuleInstanceId][]modules.PeerItem
}

// demux walks outcome's contributions in ascending peer id order (the
// canonical iteration order for any consensus-visible map) and buckets
// every item by kind, preserving the order transactions were delivered
// in.
func demux(outcome types.ConsensusOutcome) epochItems {
	out := epochItems{moduleItems: make(map[types.ModuleInstanceId][]modules.PeerItem)}
	for _, peer := range outcome.SortedPeers() {
		for _, item := range outcome.Contributions[peer] {
			switch item.Kind {
			case types.ConsensusItemEpochInfo:
				out.shares = append(out.shares, *item.EpochInfo)
			case types.ConsensusItemTransaction:
				out.transactions = append(out.transactions, *item.Transaction)
			case types.ConsensusItemModule:
				out.moduleItems[item.Module.Instance] = append(out.moduleItems[item.Module.Instance], modules.PeerItem{Peer: peer, Item: *item.Module})
			}
		}
	}
	return out
}

// ProcessConsensusOutcome is the BFT engine's inbound interface: it
// consumes one ConsensusOutcome and runs phases A (begin_epoch), B
// (transactions), C (end_epoch) and D (audit) against the database,
// each phase in its own atomic dbtx, committed in order A->B->C. It is
// single-flight: the BFT layer is expected to feed outcomes
// sequentially, and the lock makes that an enforced invariant rather
// than an assumption.
func (p *Processor) ProcessConsensusOutcome(outcome types.ConsensusOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := demux(outcome)

	p.runBeginEpoch(items)
	p.runTransactions(outcome.Epoch, items)
	p.runEndEpoch(outcome, items)
	p.runAudit()

	p.notifyProposal()
}

// runBeginEpoch is phase A: every module sees this epoch's module
// consensus items before any transaction is applied.
func (p *Processor) runBeginEpoch(items epochItems) {
	dbtx := p.engine.BeginTx()
	defer dbtx.Discard()
	for _, mod := range p.registry.Ordered() {
		view := storage.NewModuleView(dbtx, mod.Instance())
		if err := mod.BeginConsensusEpoch(view, items.moduleItems[mod.Instance()]); err != nil {
			log.Fatalf("consensus: begin_consensus_epoch module %d: %v", mod.Instance(), err)
		}
	}
	if err := dbtx.Commit(); err != nil {
		log.Fatalf("consensus: commit begin_epoch: %v", err)
	}
}

// runTransactions is phase B: apply every transaction in BFT-delivered
// order against shared per-module verification caches built from the
// union of all inputs in the batch.
func (p *Processor) runTransactions(epoch uint64, items epochItems) {
	dbtx := p.engine.BeginTx()
	defer dbtx.Discard()

	caches := p.buildCaches(items.transactions)

	for _, tx := range items.transactions {
		h, err := tx.Hash(p.codec)
		if err != nil {
			log.Fatalf("consensus: hash transaction: %v", err)
		}

		if _, err := storage.RemoveProposedTransaction(dbtx, h); err != nil {
			log.Fatalf("consensus: remove proposed transaction: %v", err)
		}

		dbtx.SetSavepoint()

		if _, accepted, err := storage.GetAcceptedTransaction(dbtx, p.codec, h); err != nil {
			log.Fatalf("consensus: lookup accepted transaction: %v", err)
		} else if accepted {
			// Already decided earlier in this same batch or a prior
			// redelivery: skip, do not re-apply.
			continue
		}

		if err := p.applyTransaction(dbtx, caches, tx, h, epoch); err != nil {
			dbtx.RollbackToSavepoint()
			if err := storage.PutRejectedTransaction(dbtx, h, err.Error()); err != nil {
				log.Fatalf("consensus: persist rejection: %v", err)
			}
		}
	}

	if err := dbtx.Commit(); err != nil {
		log.Fatalf("consensus: commit transactions phase: %v", err)
	}
}

// buildCaches builds one VerificationCache per module instance from the
// union of every transaction's inputs in the batch, not one per
// transaction, so batch-wide precomputation is shared.
func (p *Processor) buildCaches(transactions []types.Transaction) *modules.VerificationCaches {
	byInstance := make(map[types.ModuleInstanceId][]types.DynInput)
	for _, tx := range transactions {
		for _, in := range tx.Inputs {
			byInstance[in.Instance] = append(byInstance[in.Instance], in)
		}
	}
	caches := modules.NewVerificationCaches()
	for instance, inputs := range byInstance {
		mod, ok := p.registry.ByInstance(instance)
		if !ok {
			continue
		}
		caches.Set(instance, mod.BuildVerificationCache(inputs))
	}
	return caches
}

// applyTransaction runs ApplyInput on every input, verifies the
// transaction signature, runs ApplyOutput on every output in
// declaration order, and enforces the funding balance.
func (p *Processor) applyTransaction(dbtx *storage.DbTx, caches *modules.VerificationCaches, tx types.Transaction, h types.TxHash, epoch uint64) error {
	ic := modules.NewInterconnect(p.registry, dbtx)

	var pubKeys []ed25519.PublicKey
	var totalIn, totalFee int64
	for _, in := range tx.Inputs {
		mod, ok := p.registry.ByInstance(in.Instance)
		if !ok {
			return &UnknownModuleError{Instance: in.Instance}
		}
		view := storage.NewModuleView(dbtx, in.Instance)
		res, err := mod.ApplyInput(ic, view, in, caches.Get(in.Instance))
		if err != nil {
			return &ModuleError{TxHash: h, Err: err}
		}
		totalIn += res.Amount
		totalFee += res.Fee
		for _, pk := range res.PubKeys {
			pubKeys = append(pubKeys, ed25519.PublicKey(pk))
		}
	}

	digest, err := tx.SigningDigest(p.codec)
	if err != nil {
		return err
	}
	if !VerifyTransactionSignature(pubKeys, digest, tx.Signature) {
		return ErrInvalidSignature
	}

	var totalOut int64
	for idx, out := range tx.Outputs {
		mod, ok := p.registry.ByInstance(out.Instance)
		if !ok {
			return &UnknownModuleError{Instance: out.Instance}
		}
		view := storage.NewModuleView(dbtx, out.Instance)
		outPoint := types.OutPoint{TxHash: h, OutIdx: uint64(idx)}
		res, err := mod.ApplyOutput(view, out, outPoint)
		if err != nil {
			return &ModuleError{TxHash: h, Err: err}
		}
		totalOut += res.Amount
		totalFee += res.Fee
	}

	if totalIn != totalOut+totalFee {
		return &UnbalancedTransactionError{Inputs: totalIn, Outputs: totalOut, Fee: totalFee}
	}

	return storage.PutAcceptedTransaction(dbtx, p.codec, h, types.AcceptedTransaction{Epoch: epoch, Transaction: tx})
}

// runEndEpoch is phase C: persist this epoch's history, threshold-sign
// the *previous* epoch's hash from this epoch's EpochInfo shares, run
// EndConsensusEpoch on every module, and persist the union of all drop
// requests.
func (p *Processor) runEndEpoch(outcome types.ConsensusOutcome, items epochItems) {
	dbtx := p.engine.BeginTx()
	defer dbtx.Discard()

	epochPeers := outcome.SortedPeers()
	dropSet := make(map[types.PeerId]bool)

	previousHash := types.TxHash{}
	if outcome.Epoch > 0 {
		if prev, ok, err := storage.GetEpochHistory(dbtx, p.codec, outcome.Epoch-1); err != nil {
			log.Fatalf("consensus: load previous epoch history: %v", err)
		} else if ok {
			previousHash = prev.Hash
			if prev.LastSignature == nil && p.verifier != nil {
				sig, contributing := p.verifier.Aggregate(prev.Hash, items.shares)
				if sig != nil {
					prev.LastSignature = sig
					if err := storage.PutEpochHistory(dbtx, p.codec, outcome.Epoch-1, prev); err != nil {
						log.Fatalf("consensus: persist threshold-signed previous epoch: %v", err)
					}
				}
				// Once any guardian has started signing the previous hash,
				// every epoch contributor that supplied no valid share is
				// dropped, whether or not the threshold was reached. An
				// epoch where nobody signed yet bans no one.
				if len(contributing) > 0 {
					contributingSet := make(map[types.PeerId]bool, len(contributing))
					for _, peer := range contributing {
						contributingSet[peer] = true
					}
					for _, peer := range epochPeers {
						if !contributingSet[peer] {
							dropSet[peer] = true
						}
					}
				}
			}
		}
	}

	hash, err := p.codec.ComputeEpochHash(outcome, previousHash)
	if err != nil {
		log.Fatalf("consensus: compute epoch hash: %v", err)
	}
	history := types.EpochHistory{Outcome: outcome, Hash: hash, PreviousHash: previousHash}
	if err := storage.PutEpochHistory(dbtx, p.codec, outcome.Epoch, history); err != nil {
		log.Fatalf("consensus: persist epoch history: %v", err)
	}

	for _, mod := range p.registry.Ordered() {
		view := storage.NewModuleView(dbtx, mod.Instance())
		dropped, err := mod.EndConsensusEpoch(view, epochPeers)
		if err != nil {
			log.Fatalf("consensus: end_consensus_epoch module %d: %v", mod.Instance(), err)
		}
		for _, peer := range dropped {
			dropSet[peer] = true
		}
	}

	for peer := range dropSet {
		if err := storage.PutDropPeer(dbtx, peer); err != nil {
			log.Fatalf("consensus: persist drop peer: %v", err)
		}
	}

	if err := storage.PutLastEpoch(dbtx, outcome.Epoch); err != nil {
		log.Fatalf("consensus: persist last epoch pointer: %v", err)
	}

	if err := dbtx.Commit(); err != nil {
		log.Fatalf("consensus: commit end_epoch: %v", err)
	}

	if p.archiver != nil {
		p.archiver.Enqueue(outcome.Epoch, history)
	}
}

// runAudit is phase D: every module contributes its signed balance, and
// a negative federation-wide sum means the books don't balance, which is
// fatal.
func (p *Processor) runAudit() {
	dbtx := p.engine.BeginTx()
	defer dbtx.Discard()

	audit := modules.NewAudit()
	for _, mod := range p.registry.Ordered() {
		view := storage.NewModuleView(dbtx, mod.Instance())
		if err := mod.Audit(view, audit); err != nil {
			log.Fatalf("consensus: audit module %d: %v", mod.Instance(), err)
		}
	}

	if sum := audit.Sum(); sum < 0 {
		log.Fatalf("consensus: federation audit sum negative: %d (by module: %v)", sum, audit.ByModule())
	}
}

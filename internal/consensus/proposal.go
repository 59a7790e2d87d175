package consensus

import (
	"context"
	"log"
	"time"

	"github.com/rechain/fedicore/internal/storage"
	"github.com/rechain/fedicore/pkg/types"
)

// notifyProposal wakes anyone blocked in AwaitConsensusProposal. The
// channel is size-1 and the send is non-blocking, so any number of
// submissions or epoch completions that land before the waiter next
// looks coalesce into a single wake-up.
func (p *Processor) notifyProposal() {
	select {
	case p.notifyCh <- struct{}{}:
	default:
	}
}

// AwaitConsensusProposal blocks until this guardian has something new to
// propose for the next epoch: a freshly submitted transaction, a
// module's own proposal becoming non-empty, or the proposal tick
// elapsing as a latency bound. It never returns an error; a cancelled
// ctx simply returns immediately with nothing new guaranteed.
func (p *Processor) AwaitConsensusProposal(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticker := time.NewTicker(p.proposalTick)
	defer ticker.Stop()

	// Each module is awaited on its own goroutine and dbtx, so the first
	// module with something to propose wakes the caller.
	mods := p.registry.Ordered()
	moduleReady := make(chan struct{}, len(mods))
	for _, mod := range mods {
		go func() {
			dbtx := p.engine.BeginTx()
			defer dbtx.Discard()
			mod.AwaitConsensusProposal(ctx, storage.NewModuleView(dbtx, mod.Instance()))
			moduleReady <- struct{}{}
		}()
	}

	select {
	case <-ctx.Done():
	case <-p.notifyCh:
	case <-ticker.C:
	case <-moduleReady:
	}
}

// GetConsensusProposal is the BFT engine's outbound interface: it
// assembles this guardian's contribution to the next epoch from pending
// peer drops, proposed transactions awaiting inclusion, every module's
// own proposal, and — when the last persisted epoch's hash still needs a
// threshold signature — this guardian's EpochInfo share over it.
func (p *Processor) GetConsensusProposal() (types.ConsensusProposal, error) {
	dbtx := p.engine.BeginTx()
	defer dbtx.Discard()

	dropPeers, err := storage.ListDropPeers(dbtx)
	if err != nil {
		return types.ConsensusProposal{}, err
	}

	var items []types.ConsensusItem

	if p.signer != nil {
		if epoch, ok, err := storage.GetLastEpoch(dbtx); err != nil {
			return types.ConsensusProposal{}, err
		} else if ok {
			hist, ok, err := storage.GetEpochHistory(dbtx, p.codec, epoch)
			if err != nil {
				return types.ConsensusProposal{}, err
			}
			if ok && hist.LastSignature == nil {
				items = append(items, types.NewEpochInfoItem(p.signer.Sign(hist.Hash)))
			}
		}
	}

	proposed, err := storage.ListProposedTransactions(dbtx, p.codec)
	if err != nil {
		return types.ConsensusProposal{}, err
	}
	for _, tx := range proposed {
		items = append(items, types.NewTransactionItem(tx))
	}

	for _, mod := range p.registry.Ordered() {
		view := storage.NewModuleView(dbtx, mod.Instance())
		modItems, err := mod.ConsensusProposal(view)
		if err != nil {
			log.Fatalf("consensus: module %d consensus_proposal: %v", mod.Instance(), err)
		}
		for _, item := range modItems {
			items = append(items, types.NewModuleItem(item))
		}
	}

	return types.ConsensusProposal{Items: items, DropPeers: dropPeers}, nil
}

package consensus

import (
	"fmt"

	"github.com/rechain/fedicore/internal/modules"
	"github.com/rechain/fedicore/internal/storage"
	"github.com/rechain/fedicore/pkg/types"
)

// TransactionStatus is a transaction_status answer: a transaction has
// been accepted (with the current outcome of each of its outputs),
// rejected (with a human-readable reason), is still proposed awaiting
// epoch inclusion, or is unknown.
type TransactionStatus struct {
	Known           bool
	Accepted        bool
	AcceptedAt      types.AcceptedTransaction
	Outputs         []types.DynOutputOutcome
	Rejected        bool
	RejectionReason string
	Proposed        bool
}

// TransactionStatus answers a transaction_status query for h.
func (p *Processor) TransactionStatus(h types.TxHash) (TransactionStatus, error) {
	dbtx := p.engine.BeginTx()
	defer dbtx.Discard()

	if at, ok, err := storage.GetAcceptedTransaction(dbtx, p.codec, h); err != nil {
		return TransactionStatus{}, err
	} else if ok {
		outputs := make([]types.DynOutputOutcome, len(at.Transaction.Outputs))
		for idx, out := range at.Transaction.Outputs {
			mod, ok := p.registry.ByInstance(out.Instance)
			if !ok {
				return TransactionStatus{}, &UnknownModuleError{Instance: out.Instance}
			}
			view := storage.NewModuleView(dbtx, out.Instance)
			outcome, err := mod.OutputStatus(view, types.OutPoint{TxHash: h, OutIdx: uint64(idx)})
			if err != nil {
				return TransactionStatus{}, err
			}
			outputs[idx] = outcome
		}
		return TransactionStatus{Known: true, Accepted: true, AcceptedAt: at, Outputs: outputs}, nil
	}

	if reason, ok, err := storage.GetRejectedTransaction(dbtx, h); err != nil {
		return TransactionStatus{}, err
	} else if ok {
		return TransactionStatus{Known: true, Rejected: true, RejectionReason: reason}, nil
	}

	proposed, err := storage.ListProposedTransactions(dbtx, p.codec)
	if err != nil {
		return TransactionStatus{}, err
	}
	for _, tx := range proposed {
		th, err := tx.Hash(p.codec)
		if err != nil {
			return TransactionStatus{}, err
		}
		if th == h {
			return TransactionStatus{Known: true, Proposed: true}, nil
		}
	}

	return TransactionStatus{}, nil
}

// EpochHistoryAt answers an epoch_history query for epoch, returning
// (_, false, nil) if that epoch has not been processed yet.
func (p *Processor) EpochHistoryAt(epoch uint64) (types.EpochHistory, bool, error) {
	dbtx := p.engine.BeginTx()
	defer dbtx.Discard()
	return storage.GetEpochHistory(dbtx, p.codec, epoch)
}

// LastEpoch answers the highest epoch this guardian has processed.
func (p *Processor) LastEpoch() (uint64, bool, error) {
	dbtx := p.engine.BeginTx()
	defer dbtx.Discard()
	return storage.GetLastEpoch(dbtx)
}

// OutputStatus answers an output_status query by recovering which module
// owns out from the accepted transaction that produced it (an OutPoint
// is only a (tx_hash, out_idx) pair and carries no module instance id)
// and delegating to that module's own implementation.
func (p *Processor) OutputStatus(out types.OutPoint) (types.DynOutputOutcome, error) {
	dbtx := p.engine.BeginTx()
	defer dbtx.Discard()

	at, ok, err := storage.GetAcceptedTransaction(dbtx, p.codec, out.TxHash)
	if err != nil {
		return types.DynOutputOutcome{}, err
	}
	if !ok || int(out.OutIdx) >= len(at.Transaction.Outputs) {
		return types.DynOutputOutcome{}, fmt.Errorf("consensus: output_status: no such output %s:%d", out.TxHash, out.OutIdx)
	}
	instance := at.Transaction.Outputs[out.OutIdx].Instance

	mod, ok := p.registry.ByInstance(instance)
	if !ok {
		return types.DynOutputOutcome{}, &UnknownModuleError{Instance: instance}
	}
	view := storage.NewModuleView(dbtx, instance)
	return mod.OutputStatus(view, out)
}

// AuditReport runs a fresh, read-only federation-wide audit and returns
// its per-module breakdown and total, for an operator-facing diagnostic
// query distinct from the fatal in-band audit phase D runs after every
// epoch.
func (p *Processor) AuditReport() (total int64, byModule map[types.ModuleInstanceId]int64, err error) {
	dbtx := p.engine.BeginTx()
	defer dbtx.Discard()

	audit := modules.NewAudit()
	for _, mod := range p.registry.Ordered() {
		view := storage.NewModuleView(dbtx, mod.Instance())
		if err := mod.Audit(view, audit); err != nil {
			return 0, nil, err
		}
	}
	return audit.Sum(), audit.ByModule(), nil
}

package consensus

import (
	"crypto/ed25519"
	"fmt"

	"github.com/rechain/fedicore/internal/modules"
	"github.com/rechain/fedicore/internal/storage"
	"github.com/rechain/fedicore/pkg/types"
)

// SubmitTransaction is the client-facing admission pipeline: validate tx
// against the current database snapshot without mutating it, then
// enqueue it under ProposedTransactionKey for the next epoch's proposal
// if it looks sound.
//
// SubmitTransaction is idempotent on a transaction that has already been
// decided, since a client may retry a submission it never saw the
// outcome of. Note that this holds for rejected hashes too: resubmitting
// a transaction that was rejected in a past epoch returns success, not
// the stored rejection. storage.ErrWriteConflict is returned unwrapped
// and is never retried internally: optimistic concurrency failures are
// the caller's to retry.
func (p *Processor) SubmitTransaction(tx types.Transaction) (types.TxHash, error) {
	h, err := tx.Hash(p.codec)
	if err != nil {
		return types.TxHash{}, fmt.Errorf("consensus: hash submitted transaction: %w", err)
	}

	dbtx := p.engine.BeginTx()
	defer dbtx.Discard()

	if _, accepted, err := storage.GetAcceptedTransaction(dbtx, p.codec, h); err != nil {
		return types.TxHash{}, err
	} else if accepted {
		return h, nil
	}
	if _, rejected, err := storage.GetRejectedTransaction(dbtx, h); err != nil {
		return types.TxHash{}, err
	} else if rejected {
		return h, nil
	}

	if err := p.validateTransaction(dbtx, tx, h); err != nil {
		return types.TxHash{}, err
	}

	if err := storage.PutProposedTransaction(dbtx, p.codec, h, tx); err != nil {
		return types.TxHash{}, err
	}

	if err := dbtx.Commit(); err != nil {
		return types.TxHash{}, err
	}

	p.notifyProposal()
	return h, nil
}

// validateTransaction runs ValidateInput/ValidateOutput against dbtx's
// snapshot, without mutating it, and checks the transaction signature
// and funding balance. It mirrors applyTransaction's structure but
// calls the read-only Validate* methods and never persists anything.
func (p *Processor) validateTransaction(dbtx *storage.DbTx, tx types.Transaction, h types.TxHash) error {
	ic := modules.NewInterconnect(p.registry, dbtx)

	cache := p.buildCaches([]types.Transaction{tx})

	var pubKeys []ed25519.PublicKey
	var totalIn, totalFee int64
	for _, in := range tx.Inputs {
		mod, ok := p.registry.ByInstance(in.Instance)
		if !ok {
			return &UnknownModuleError{Instance: in.Instance}
		}
		view := storage.NewModuleView(dbtx, in.Instance)
		res, err := mod.ValidateInput(ic, view, cache.Get(in.Instance), in)
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
	for _, out := range tx.Outputs {
		mod, ok := p.registry.ByInstance(out.Instance)
		if !ok {
			return &UnknownModuleError{Instance: out.Instance}
		}
		view := storage.NewModuleView(dbtx, out.Instance)
		res, err := mod.ValidateOutput(view, out)
		if err != nil {
			return &ModuleError{TxHash: h, Err: err}
		}
		totalOut += res.Amount
		totalFee += res.Fee
	}

	if totalIn != totalOut+totalFee {
		return &UnbalancedTransactionError{Inputs: totalIn, Outputs: totalOut, Fee: totalFee}
	}
	return nil
}

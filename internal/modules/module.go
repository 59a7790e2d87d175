// Package modules defines the plug-in contract every module instance
// (mint, wallet, lightning, ...) must satisfy to participate in
// consensus, plus the supporting types the epoch processor and
// transaction pipeline drive it with.
package modules

import (
	"context"
	"encoding/json"

	"github.com/rechain/fedicore/internal/storage"
	"github.com/rechain/fedicore/pkg/codec"
	"github.com/rechain/fedicore/pkg/types"
)

// VerificationCache is an opaque, module-owned value that may hold
// expensive per-input precomputation (e.g. batch signature verification)
// shared across every transaction in one epoch.
type VerificationCache interface{}

// PeerItem pairs one contributing peer with one module-owned consensus
// item it proposed, the shape begin_consensus_epoch consumes.
type PeerItem struct {
	Peer types.PeerId
	Item types.DynModuleConsensusItem
}

// ApiError is the error type a module's ReadAPI returns, carrying an
// opaque code alongside the message so an interconnect caller can
// distinguish "not found" from "bad request" without parsing strings.
type ApiError struct {
	Code    int
	Message string
}

func (e *ApiError) Error() string { return e.Message }

// Module is the contract a module instance implements to participate in
// consensus. Every method is invoked with dbtx already scoped to this
// module instance's own subspace (storage.ModuleView), except ReadAPI
// calls reached through the interconnect of another module, which are
// scoped to the *target* module's subspace by the interconnect itself.
//
// Determinism: given identical dbtx snapshots and identical inputs,
// ValidateInput/ApplyInput/ValidateOutput/ApplyOutput must produce
// byte-identical results and dbtx mutations across every guardian.
type Module interface {
	Kind() types.ModuleKind
	Instance() types.ModuleInstanceId

	// Decoder registers this module's input/output/outcome/consensus-item
	// decoders with the federation-wide DecoderRegistry.
	Decoder() *codec.Decoder

	// BuildVerificationCache may precompute expensive per-input checks
	// shared across every transaction in one epoch's batch.
	BuildVerificationCache(inputs []types.DynInput) VerificationCache

	// ValidateInput is a pure check against the current dbtx snapshot; it
	// must not mutate dbtx.
	ValidateInput(ic Interconnect, dbtx *storage.ModuleView, cache VerificationCache, input types.DynInput) (types.OutputResult, error)

	// ApplyInput consumes input, mutating dbtx.
	ApplyInput(ic Interconnect, dbtx *storage.ModuleView, input types.DynInput, cache VerificationCache) (types.OutputResult, error)

	// ValidateOutput is a pure check against the current dbtx snapshot.
	ValidateOutput(dbtx *storage.ModuleView, output types.DynOutput) (types.OutputResult, error)

	// ApplyOutput mutates dbtx, recording the output under outPoint.
	ApplyOutput(dbtx *storage.ModuleView, output types.DynOutput, outPoint types.OutPoint) (types.OutputResult, error)

	// BeginConsensusEpoch processes this epoch's module consensus items
	// before any transaction in the batch is applied.
	BeginConsensusEpoch(dbtx *storage.ModuleView, items []PeerItem) error

	// EndConsensusEpoch finalizes the epoch after every transaction has
	// been applied, returning peers this module wants dropped.
	EndConsensusEpoch(dbtx *storage.ModuleView, epochPeers []types.PeerId) ([]types.PeerId, error)

	// ConsensusProposal returns the items this module wants included in
	// the next epoch's outcome.
	ConsensusProposal(dbtx *storage.ModuleView) ([]types.DynModuleConsensusItem, error)

	// AwaitConsensusProposal resolves once this module has something new
	// to propose, letting the proposal builder coalesce wake-ups across
	// modules and inbound transaction traffic.
	AwaitConsensusProposal(ctx context.Context, dbtx *storage.ModuleView)

	// OutputStatus answers an output_status query for a previously
	// applied output.
	OutputStatus(dbtx *storage.ModuleView, outPoint types.OutPoint) (types.DynOutputOutcome, error)

	// Audit contributes this module's signed balance to the running
	// federation-wide audit.
	Audit(dbtx *storage.ModuleView, audit *Audit) error

	// ReadAPI answers a narrow, read-only query from another module
	// reached through the Interconnect. Implementations must not
	// mutate dbtx.
	ReadAPI(dbtx *storage.ModuleView, path string, req json.RawMessage) (json.RawMessage, error)
}

package testmodule

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rechain/fedicore/internal/modules"
	"github.com/rechain/fedicore/internal/storage"
	"github.com/rechain/fedicore/pkg/codec"
	"github.com/rechain/fedicore/pkg/types"
)

// Kind is this module's registered kind string.
const Kind types.ModuleKind = "test-ledger"

// Module is a minimal note-spending ledger: every output mints a
// NotePayload note, every input spends one by OutPoint reference. It
// keeps exactly one record per unspent note, keyed by the OutPoint that
// created it, under its own ModuleView subspace.
type Module struct {
	instance types.ModuleInstanceId
}

// New builds a ledger module bound to instance.
func New(instance types.ModuleInstanceId) *Module {
	return &Module{instance: instance}
}

func (m *Module) Kind() types.ModuleKind { return Kind }
func (m *Module) Instance() types.ModuleInstanceId { return m.instance }

func (m *Module) Decoder() *codec.Decoder {
	return &codec.Decoder{
		Input:         decodeSpendPayload,
		Output:        decodeNotePayload,
		OutputOutcome: decodeOutcomePayload,
	}
}

// BuildVerificationCache does no batch precomputation; this module's
// checks are cheap single-key lookups.
func (m *Module) BuildVerificationCache(inputs []types.DynInput) modules.VerificationCache {
	return nil
}

func noteKey(out types.OutPoint) []byte {
	b := make([]byte, 40)
	copy(b[:32], out.TxHash[:])
	for i := 0; i < 8; i++ {
		b[32+i] = byte(out.OutIdx >> (56 - 8*i))
	}
	return b
}

func (m *Module) lookupNote(dbtx *storage.ModuleView, out types.OutPoint) (NotePayload, bool, error) {
	b, err := dbtx.GetBytes(noteKey(out))
	if err != nil || b == nil {
		return NotePayload{}, false, err
	}
	p, err := decodeNotePayload(b)
	if err != nil {
		return NotePayload{}, false, err
	}
	return p.(NotePayload), true, nil
}

func (m *Module) ValidateInput(ic modules.Interconnect, dbtx *storage.ModuleView, cache modules.VerificationCache, input types.DynInput) (types.OutputResult, error) {
	spend, ok := input.Payload.(SpendPayload)
	if !ok {
		return types.OutputResult{}, fmt.Errorf("testmodule: unexpected input payload type %T", input.Payload)
	}
	note, found, err := m.lookupNote(dbtx, spend.Spend)
	if err != nil {
		return types.OutputResult{}, err
	}
	if !found {
		return types.OutputResult{}, fmt.Errorf("testmodule: no such unspent note %s:%d", spend.Spend.TxHash, spend.Spend.OutIdx)
	}
	return types.OutputResult{Amount: note.Amount, PubKeys: [][]byte{note.PubKey}}, nil
}

func (m *Module) ApplyInput(ic modules.Interconnect, dbtx *storage.ModuleView, input types.DynInput, cache modules.VerificationCache) (types.OutputResult, error) {
	spend, ok := input.Payload.(SpendPayload)
	if !ok {
		return types.OutputResult{}, fmt.Errorf("testmodule: unexpected input payload type %T", input.Payload)
	}
	note, found, err := m.lookupNote(dbtx, spend.Spend)
	if err != nil {
		return types.OutputResult{}, err
	}
	if !found {
		return types.OutputResult{}, fmt.Errorf("testmodule: no such unspent note %s:%d", spend.Spend.TxHash, spend.Spend.OutIdx)
	}
	if _, err := dbtx.Remove(noteKey(spend.Spend)); err != nil {
		return types.OutputResult{}, err
	}
	return types.OutputResult{Amount: note.Amount, PubKeys: [][]byte{note.PubKey}}, nil
}

func (m *Module) ValidateOutput(dbtx *storage.ModuleView, output types.DynOutput) (types.OutputResult, error) {
	note, ok := output.Payload.(NotePayload)
	if !ok {
		return types.OutputResult{}, fmt.Errorf("testmodule: unexpected output payload type %T", output.Payload)
	}
	if note.Amount < 0 {
		return types.OutputResult{}, fmt.Errorf("testmodule: negative note amount %d", note.Amount)
	}
	return types.OutputResult{Amount: note.Amount}, nil
}

func (m *Module) ApplyOutput(dbtx *storage.ModuleView, output types.DynOutput, outPoint types.OutPoint) (types.OutputResult, error) {
	note, ok := output.Payload.(NotePayload)
	if !ok {
		return types.OutputResult{}, fmt.Errorf("testmodule: unexpected output payload type %T", output.Payload)
	}
	encoded, err := note.Encode()
	if err != nil {
		return types.OutputResult{}, err
	}
	if _, err := dbtx.InsertBytes(noteKey(outPoint), encoded); err != nil {
		return types.OutputResult{}, err
	}
	return types.OutputResult{Amount: note.Amount}, nil
}

// BeginConsensusEpoch and EndConsensusEpoch have nothing to do: this
// module carries no module-owned consensus items.
func (m *Module) BeginConsensusEpoch(dbtx *storage.ModuleView, items []modules.PeerItem) error {
	return nil
}

func (m *Module) EndConsensusEpoch(dbtx *storage.ModuleView, epochPeers []types.PeerId) ([]types.PeerId, error) {
	return nil, nil
}

func (m *Module) ConsensusProposal(dbtx *storage.ModuleView) ([]types.DynModuleConsensusItem, error) {
	return nil, nil
}

// AwaitConsensusProposal never has anything new of its own to propose.
func (m *Module) AwaitConsensusProposal(ctx context.Context, dbtx *storage.ModuleView) {
	<-ctx.Done()
}

func (m *Module) OutputStatus(dbtx *storage.ModuleView, outPoint types.OutPoint) (types.DynOutputOutcome, error) {
	note, found, err := m.lookupNote(dbtx, outPoint)
	if err != nil {
		return types.DynOutputOutcome{}, err
	}
	if !found {
		return types.NewDynOutputOutcome(m.instance, OutcomePayload{Spent: true}), nil
	}
	return types.NewDynOutputOutcome(m.instance, OutcomePayload{Spent: false, Amount: note.Amount}), nil
}

// Audit sums every unspent note as an asset this module backs.
func (m *Module) Audit(dbtx *storage.ModuleView, audit *modules.Audit) error {
	rows, err := dbtx.FindByPrefix(nil)
	if err != nil {
		return err
	}
	var total int64
	for _, row := range rows {
		note, err := decodeNotePayload(row.Value)
		if err != nil {
			return err
		}
		total += note.(NotePayload).Amount
	}
	audit.Add(m.instance, total)
	return nil
}

func (m *Module) ReadAPI(dbtx *storage.ModuleView, path string, req json.RawMessage) (json.RawMessage, error) {
	return nil, &modules.ApiError{Code: 404, Message: fmt.Sprintf("testmodule: no such path %q", path)}
}

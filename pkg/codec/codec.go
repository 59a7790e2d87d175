package codec

import (
	"fmt"

	"github.com/rechain/fedicore/pkg/types"
)

// Codec is the canonical encoder/decoder for every consensus-visible
// type, backed by a DecoderRegistry for the module-owned dynamic values
// it can't interpret on its own. It implements types.Encoder so
// pkg/types can compute transaction hashes and signing digests without
// importing pkg/codec back (pkg/codec depends on pkg/types, never the
// reverse).
type Codec struct {
	Registry *DecoderRegistry
}

// NewCodec builds a Codec around reg. reg may be nil for encode-only use
// (e.g. hashing a transaction the caller already holds); decode calls on
// a nil-registry Codec always treat every instance id as unknown.
func NewCodec(reg *DecoderRegistry) *Codec {
	return &Codec{Registry: reg}
}

// --- dynamic value encoding -------------------------------------------------

func encodeDynInput(w *writer, d types.DynInput) error {
	payload, err := d.Payload.Encode()
	if err != nil {
		return fmt.Errorf("codec: encode input payload: %w", err)
	}
	w.WriteUint16(uint16(d.Instance))
	w.WriteBytes(payload)
	return nil
}

func encodeDynOutput(w *writer, d types.DynOutput) error {
	payload, err := d.Payload.Encode()
	if err != nil {
		return fmt.Errorf("codec: encode output payload: %w", err)
	}
	w.WriteUint16(uint16(d.Instance))
	w.WriteBytes(payload)
	return nil
}

func encodeDynModuleConsensusItem(w *writer, d types.DynModuleConsensusItem) error {
	payload, err := d.Payload.Encode()
	if err != nil {
		return fmt.Errorf("codec: encode module consensus item: %w", err)
	}
	w.WriteUint16(uint16(d.Instance))
	w.WriteBytes(payload)
	return nil
}

// EncodeDynOutputOutcome encodes a module's output-status result. Exposed
// (unlike the other encodeDyn* helpers) because output outcomes are
// served directly to callers of Processor.TransactionStatus rather than
// only nested inside a Transaction/ConsensusItem.
func (c *Codec) EncodeDynOutputOutcome(d types.DynOutputOutcome) ([]byte, error) {
	w := newWriter()
	payload, err := d.Payload.Encode()
	if err != nil {
		return nil, fmt.Errorf("codec: encode output outcome: %w", err)
	}
	w.WriteUint16(uint16(d.Instance))
	w.WriteBytes(payload)
	return w.Bytes(), nil
}

func (c *Codec) decodeDynInput(r *reader) (types.DynInput, error) {
	instance, payload, err := c.decodeDynRaw(r)
	if err != nil {
		return types.DynInput{}, err
	}
	mp, err := c.decodePayload(instance, payload, func(d *Decoder) DecodeFunc { return d.Input })
	if err != nil {
		return types.DynInput{}, err
	}
	return types.NewDynInput(instance, mp), nil
}

func (c *Codec) decodeDynOutput(r *reader) (types.DynOutput, error) {
	instance, payload, err := c.decodeDynRaw(r)
	if err != nil {
		return types.DynOutput{}, err
	}
	mp, err := c.decodePayload(instance, payload, func(d *Decoder) DecodeFunc { return d.Output })
	if err != nil {
		return types.DynOutput{}, err
	}
	return types.NewDynOutput(instance, mp), nil
}

func (c *Codec) decodeDynModuleConsensusItem(r *reader) (types.DynModuleConsensusItem, error) {
	instance, payload, err := c.decodeDynRaw(r)
	if err != nil {
		return types.DynModuleConsensusItem{}, err
	}
	mp, err := c.decodePayload(instance, payload, func(d *Decoder) DecodeFunc { return d.ModuleConsensusItem })
	if err != nil {
		return types.DynModuleConsensusItem{}, err
	}
	return types.NewDynModuleConsensusItem(instance, mp), nil
}

func (c *Codec) decodeDynRaw(r *reader) (types.ModuleInstanceId, []byte, error) {
	instance, err := r.ReadUint16()
	if err != nil {
		return 0, nil, fmt.Errorf("codec: read dyn instance id: %w", err)
	}
	payload, err := r.ReadBytes()
	if err != nil {
		return 0, nil, fmt.Errorf("codec: read dyn payload: %w", err)
	}
	return types.ModuleInstanceId(instance), payload, nil
}

// decodePayload looks up instance's decoder and invokes the kind-specific
// decode function pick selects. An unregistered instance id is not an
// error: the payload is preserved as DynUnknown so the outer structure
// still round-trips.
func (c *Codec) decodePayload(instance types.ModuleInstanceId, payload []byte, pick func(*Decoder) DecodeFunc) (types.ModulePayload, error) {
	if c.Registry != nil {
		if dec, ok := c.Registry.Get(instance); ok {
			fn := pick(dec)
			if fn == nil {
				return nil, fmt.Errorf("codec: module instance %d has no decoder registered for this value kind", instance)
			}
			return fn(payload)
		}
	}
	return types.DynUnknown{Bytes: payload}, nil
}

// --- transaction -------------------------------------------------------

// EncodeInputsOutputs implements types.Encoder.
func (c *Codec) EncodeInputsOutputs(inputs []types.DynInput, outputs []types.DynOutput) ([]byte, error) {
	w := newWriter()
	w.WriteUint32(uint32(len(inputs)))
	for _, in := range inputs {
		if err := encodeDynInput(w, in); err != nil {
			return nil, err
		}
	}
	w.WriteUint32(uint32(len(outputs)))
	for _, out := range outputs {
		if err := encodeDynOutput(w, out); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// EncodeTransaction implements types.Encoder.
func (c *Codec) EncodeTransaction(tx *types.Transaction) ([]byte, error) {
	body, err := c.EncodeInputsOutputs(tx.Inputs, tx.Outputs)
	if err != nil {
		return nil, err
	}
	w := newWriter()
	w.buf.Write(body)
	w.WriteBytes(tx.Signature)
	return w.Bytes(), nil
}

// DecodeTransaction decodes a transaction previously produced by
// EncodeTransaction.
func (c *Codec) DecodeTransaction(b []byte) (types.Transaction, error) {
	r := newReader(b)
	nIn, err := r.ReadUint32()
	if err != nil {
		return types.Transaction{}, err
	}
	inputs := make([]types.DynInput, nIn)
	for i := range inputs {
		in, err := c.decodeDynInput(r)
		if err != nil {
			return types.Transaction{}, fmt.Errorf("codec: decode input %d: %w", i, err)
		}
		inputs[i] = in
	}
	nOut, err := r.ReadUint32()
	if err != nil {
		return types.Transaction{}, err
	}
	outputs := make([]types.DynOutput, nOut)
	for i := range outputs {
		out, err := c.decodeDynOutput(r)
		if err != nil {
			return types.Transaction{}, fmt.Errorf("codec: decode output %d: %w", i, err)
		}
		outputs[i] = out
	}
	sig, err := r.ReadBytes()
	if err != nil {
		return types.Transaction{}, fmt.Errorf("codec: decode signature: %w", err)
	}
	return types.Transaction{Inputs: inputs, Outputs: outputs, Signature: sig}, nil
}

// --- consensus items & outcome -----------------------------------------

func (c *Codec) encodeConsensusItem(w *writer, item types.ConsensusItem) error {
	w.WriteUint8(uint8(item.Kind))
	switch item.Kind {
	case types.ConsensusItemEpochInfo:
		w.WriteUint16(uint16(item.EpochInfo.Peer))
		w.WriteBytes(item.EpochInfo.Signature)
	case types.ConsensusItemTransaction:
		txBytes, err := c.EncodeTransaction(item.Transaction)
		if err != nil {
			return err
		}
		w.WriteBytes(txBytes)
	case types.ConsensusItemModule:
		if err := encodeDynModuleConsensusItem(w, *item.Module); err != nil {
			return err
		}
	default:
		return fmt.Errorf("codec: unknown consensus item kind %v", item.Kind)
	}
	return nil
}

func (c *Codec) decodeConsensusItem(r *reader) (types.ConsensusItem, error) {
	kind, err := r.ReadUint8()
	if err != nil {
		return types.ConsensusItem{}, err
	}
	switch types.ConsensusItemKind(kind) {
	case types.ConsensusItemEpochInfo:
		peer, err := r.ReadUint16()
		if err != nil {
			return types.ConsensusItem{}, err
		}
		sig, err := r.ReadBytes()
		if err != nil {
			return types.ConsensusItem{}, err
		}
		return types.NewEpochInfoItem(types.EpochSignatureShare{Peer: types.PeerId(peer), Signature: sig}), nil
	case types.ConsensusItemTransaction:
		txBytes, err := r.ReadBytes()
		if err != nil {
			return types.ConsensusItem{}, err
		}
		tx, err := c.DecodeTransaction(txBytes)
		if err != nil {
			return types.ConsensusItem{}, fmt.Errorf("codec: decode transaction item: %w", err)
		}
		return types.NewTransactionItem(tx), nil
	case types.ConsensusItemModule:
		item, err := c.decodeDynModuleConsensusItem(r)
		if err != nil {
			return types.ConsensusItem{}, fmt.Errorf("codec: decode module item: %w", err)
		}
		return types.NewModuleItem(item), nil
	default:
		return types.ConsensusItem{}, fmt.Errorf("codec: unknown consensus item kind byte %d", kind)
	}
}

// EncodeConsensusOutcome canonically encodes an outcome: epoch, then
// contributions iterated in ascending peer id order, the rule every
// consensus-visible map follows.
func (c *Codec) EncodeConsensusOutcome(o types.ConsensusOutcome) ([]byte, error) {
	w := newWriter()
	w.WriteUint64(o.Epoch)
	peers := o.SortedPeers()
	w.WriteUint32(uint32(len(peers)))
	for _, p := range peers {
		w.WriteUint16(uint16(p))
		items := o.Contributions[p]
		w.WriteUint32(uint32(len(items)))
		for _, item := range items {
			if err := c.encodeConsensusItem(w, item); err != nil {
				return nil, fmt.Errorf("codec: encode item for peer %d: %w", p, err)
			}
		}
	}
	return w.Bytes(), nil
}

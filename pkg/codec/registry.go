package codec

import (
	"fmt"

	"github.com/rechain/fedicore/pkg/types"
)

// DecodeFunc turns a module's own opaque payload bytes into a typed,
// erased ModulePayload. Modules supply one per dynamic kind (input,
// output, output outcome, module consensus item, client config).
type DecodeFunc func([]byte) (types.ModulePayload, error)

// Decoder is the set of decode functions one module instance registers
// for itself.
type Decoder struct {
	Input               DecodeFunc
	Output              DecodeFunc
	OutputOutcome       DecodeFunc
	ModuleConsensusItem DecodeFunc
	ClientConfig        DecodeFunc
}

// DecoderRegistry maps ModuleInstanceId to the Decoder that module
// instance registered. It is built once at startup from the configured
// module set and is immutable thereafter.
type DecoderRegistry struct {
	decoders map[types.ModuleInstanceId]*Decoder
}

// NewDecoderRegistry builds an empty registry.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[types.ModuleInstanceId]*Decoder)}
}

// Register adds instance's decoder to the registry. Registering the same
// instance id twice is a programmer error and panics rather than
// silently overwriting.
func (reg *DecoderRegistry) Register(instance types.ModuleInstanceId, dec *Decoder) {
	if _, exists := reg.decoders[instance]; exists {
		panic(fmt.Sprintf("codec: duplicate decoder registration for module instance %d", instance))
	}
	reg.decoders[instance] = dec
}

// Get returns the Decoder registered for instance, or nil and false if no
// module registered one (an unknown module id is not an error — the
// caller falls back to DynUnknown).
func (reg *DecoderRegistry) Get(instance types.ModuleInstanceId) (*Decoder, bool) {
	d, ok := reg.decoders[instance]
	return d, ok
}

package types

import "fmt"

// ModulePayload is implemented by every concrete, module-owned value that
// travels inside a dynamic container (DynInput, DynOutput,
// DynOutputOutcome, DynModuleConsensusItem, DynClientConfig). It is the
// per-value operation set reduced to what a pure-Go interface needs:
// a canonical encoding, an equality check that a caller uses only after
// confirming both sides share a concrete type, and a debug form.
type ModulePayload interface {
	// Encode returns the canonical consensus encoding of the payload. It
	// must not include the owning module instance id; the dynamic
	// wrapper is responsible for that.
	Encode() ([]byte, error)
	// Equal reports whether two payloads of (expected) matching concrete
	// type carry the same value. Implementations that receive a
	// mismatched concrete type must return false, never panic.
	Equal(other ModulePayload) bool
	String() string
}

// DynUnknown preserves the opaque bytes of a payload whose owning module
// instance id has no registered decoder, so the outer container still
// round-trips.
type DynUnknown struct {
	Bytes []byte
}

func (u DynUnknown) Encode() ([]byte, error) { return append([]byte(nil), u.Bytes...), nil }

func (u DynUnknown) Equal(other ModulePayload) bool {
	o, ok := other.(DynUnknown)
	if !ok || len(o.Bytes) != len(u.Bytes) {
		return false
	}
	for i := range u.Bytes {
		if u.Bytes[i] != o.Bytes[i] {
			return false
		}
	}
	return true
}

func (u DynUnknown) String() string {
	return fmt.Sprintf("DynUnknown(%d bytes)", len(u.Bytes))
}

// dyn is the shared shape behind every Dyn* container: a module instance
// id plus the module-owned payload it tags.
type dyn struct {
	Instance ModuleInstanceId
	Payload  ModulePayload
}

// DynInput is a type-erased transaction input owned by some module
// instance.
type DynInput dyn

// DynOutput is a type-erased transaction output owned by some module
// instance.
type DynOutput dyn

// DynOutputOutcome is the type-erased result of applying an output,
// returned by a module's output_status query.
type DynOutputOutcome dyn

// DynModuleConsensusItem is a type-erased, module-owned consensus item
// (distinct from the core's own EpochInfo/Transaction consensus items).
type DynModuleConsensusItem dyn

// DynClientConfig is a type-erased, module-owned slice of the
// federation's public client configuration.
type DynClientConfig dyn

func newDyn(instance ModuleInstanceId, p ModulePayload) dyn {
	return dyn{Instance: instance, Payload: p}
}

// NewDynInput tags a module-owned input payload with its owning instance.
func NewDynInput(instance ModuleInstanceId, p ModulePayload) DynInput {
	return DynInput(newDyn(instance, p))
}

// NewDynOutput tags a module-owned output payload with its owning
// instance.
func NewDynOutput(instance ModuleInstanceId, p ModulePayload) DynOutput {
	return DynOutput(newDyn(instance, p))
}

// NewDynOutputOutcome tags a module-owned output-outcome payload.
func NewDynOutputOutcome(instance ModuleInstanceId, p ModulePayload) DynOutputOutcome {
	return DynOutputOutcome(newDyn(instance, p))
}

// NewDynModuleConsensusItem tags a module-owned consensus item payload.
func NewDynModuleConsensusItem(instance ModuleInstanceId, p ModulePayload) DynModuleConsensusItem {
	return DynModuleConsensusItem(newDyn(instance, p))
}

// NewDynClientConfig tags a module-owned client config payload.
func NewDynClientConfig(instance ModuleInstanceId, p ModulePayload) DynClientConfig {
	return DynClientConfig(newDyn(instance, p))
}

// Equal compares two dynamic inputs ignoring the owning instance id, for
// cross-peer comparability.
func (d DynInput) Equal(o DynInput) bool { return d.Payload.Equal(o.Payload) }

func (d DynOutput) Equal(o DynOutput) bool { return d.Payload.Equal(o.Payload) }

func (d DynOutputOutcome) Equal(o DynOutputOutcome) bool { return d.Payload.Equal(o.Payload) }

func (d DynModuleConsensusItem) Equal(o DynModuleConsensusItem) bool {
	return d.Payload.Equal(o.Payload)
}

func (d DynClientConfig) Equal(o DynClientConfig) bool { return d.Payload.Equal(o.Payload) }

func (d DynInput) String() string { return d.Payload.String() }
func (d DynOutput) String() string { return d.Payload.String() }
func (d DynOutputOutcome) String() string { return d.Payload.String() }
func (d DynModuleConsensusItem) String() string { return d.Payload.String() }
func (d DynClientConfig) String() string { return d.Payload.String() }

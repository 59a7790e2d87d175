package modules

import (
	"fmt"
	"sort"

	"github.com/rechain/fedicore/pkg/codec"
	"github.com/rechain/fedicore/pkg/types"
)

// Registry is the ordered map from ModuleInstanceId to the Module that
// owns it. It is built once at startup from the configured module set
// and is immutable thereafter.
type Registry struct {
	byInstance map[types.ModuleInstanceId]Module
	byKind     map[types.ModuleKind]types.ModuleInstanceId
	order      []types.ModuleInstanceId
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byInstance: make(map[types.ModuleInstanceId]Module),
		byKind:     make(map[types.ModuleKind]types.ModuleInstanceId),
	}
}

// Register adds mod under its own instance id and kind. Registering the
// same instance id twice is a programmer error and panics, the same
// policy codec.DecoderRegistry.Register applies.
func (r *Registry) Register(mod Module) {
	instance := mod.Instance()
	if _, exists := r.byInstance[instance]; exists {
		panic(fmt.Sprintf("modules: duplicate registration for module instance %d", instance))
	}
	r.byInstance[instance] = mod
	r.byKind[mod.Kind()] = instance
	r.order = append(r.order, instance)
	sort.Slice(r.order, func(i, j int) bool { return r.order[i] < r.order[j] })
}

// ByInstance looks up a module by its instance id.
func (r *Registry) ByInstance(id types.ModuleInstanceId) (Module, bool) {
	m, ok := r.byInstance[id]
	return m, ok
}

// ByKind looks up a module's instance id and itself by its kind, as the
// Interconnect does for a (module_name, path, ...) call.
func (r *Registry) ByKind(kind types.ModuleKind) (Module, bool) {
	id, ok := r.byKind[kind]
	if !ok {
		return nil, false
	}
	return r.byInstance[id], true
}

// Ordered returns every registered module in ascending instance id
// order, the iteration order every consensus-visible pass over the
// module set follows.
func (r *Registry) Ordered() []Module {
	out := make([]Module, len(r.order))
	for i, id := range r.order {
		out[i] = r.byInstance[id]
	}
	return out
}

// BuildDecoderRegistry assembles the federation-wide DecoderRegistry
// from every registered module's own Decoder().
func (r *Registry) BuildDecoderRegistry() *codec.DecoderRegistry {
	reg := codec.NewDecoderRegistry()
	for _, id := range r.order {
		reg.Register(id, r.byInstance[id].Decoder())
	}
	return reg
}

package modules

import (
	"encoding/json"
	"fmt"

	"github.com/rechain/fedicore/internal/storage"
	"github.com/rechain/fedicore/pkg/types"
)

// Interconnect is the narrow, synchronous interface passed into
// ValidateInput/ApplyInput, letting one module call another module's
// read-only endpoint by (module kind, path, json value). It forwards
// the same dbtx the caller was given, so cross-module reads are
// consistent within a transaction; it never permits a cross-module
// write, since Call only ever reaches a module's ReadAPI.
type Interconnect interface {
	Call(moduleKind types.ModuleKind, path string, req json.RawMessage) (json.RawMessage, error)
}

// interconnect is the concrete Interconnect implementation. It borrows
// the active DbTx for the duration of one validate/apply call and is
// never retained past it.
type interconnect struct {
	registry *Registry
	tx       *storage.DbTx
}

// NewInterconnect builds an Interconnect over tx for the duration of one
// input validation/application call.
func NewInterconnect(registry *Registry, tx *storage.DbTx) Interconnect {
	return &interconnect{registry: registry, tx: tx}
}

func (ic *interconnect) Call(moduleKind types.ModuleKind, path string, req json.RawMessage) (json.RawMessage, error) {
	mod, ok := ic.registry.ByKind(moduleKind)
	if !ok {
		return nil, &ApiError{Code: 404, Message: fmt.Sprintf("interconnect: no module registered for kind %q", moduleKind)}
	}
	view := storage.NewModuleView(ic.tx, mod.Instance())
	return mod.ReadAPI(view, path, req)
}

package modules

import (
	"sync"

	"github.com/rechain/fedicore/pkg/types"
)

// Audit accumulates each module's signed contribution to the
// federation's balance sheet: one positive/negative running total per
// module instance. A negative federation-wide sum after an epoch means
// the mint has issued more than it holds, which the processor treats as
// fatal.
type Audit struct {
	mu    sync.Mutex
	items map[types.ModuleInstanceId]int64
}

// NewAudit builds an empty audit.
func NewAudit() *Audit {
	return &Audit{items: make(map[types.ModuleInstanceId]int64)}
}

// Add records a signed amount contributed by instance. Assets are
// positive, liabilities negative; a module calls this once (or more,
// accumulating) per Module.Audit invocation.
func (a *Audit) Add(instance types.ModuleInstanceId, amount int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items[instance] += amount
}

// Sum returns the federation-wide signed total across every module.
func (a *Audit) Sum() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var total int64
	for _, v := range a.items {
		total += v
	}
	return total
}

// ByModule returns a snapshot of each module's individual contribution,
// for diagnostics when Sum() unexpectedly goes negative.
func (a *Audit) ByModule() map[types.ModuleInstanceId]int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[types.ModuleInstanceId]int64, len(a.items))
	for k, v := range a.items {
		out[k] = v
	}
	return out
}

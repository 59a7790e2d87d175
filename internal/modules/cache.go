package modules

import (
	"fmt"

	"github.com/rechain/fedicore/pkg/types"
)

// VerificationCaches holds one shared VerificationCache per module
// instance present in the current epoch's batch, built once from the
// union of all inputs before any transaction is processed.
type VerificationCaches struct {
	caches map[types.ModuleInstanceId]VerificationCache
}

// NewVerificationCaches builds an empty set.
func NewVerificationCaches() *VerificationCaches {
	return &VerificationCaches{caches: make(map[types.ModuleInstanceId]VerificationCache)}
}

// Set records the cache built for instance.
func (v *VerificationCaches) Set(instance types.ModuleInstanceId, cache VerificationCache) {
	v.caches[instance] = cache
}

// Get returns the cache built for instance. It panics on a missing key
// rather than returning an error: the caller must have built a cache for
// every module instance id that appears in the batch before processing
// any transaction, so a miss here is a bug in the epoch processor, not
// a runtime condition.
func (v *VerificationCaches) Get(instance types.ModuleInstanceId) VerificationCache {
	c, ok := v.caches[instance]
	if !ok {
		panic(fmt.Sprintf("modules: no verification cache built for module instance %d", instance))
	}
	return c
}

package consensus

import (
	"errors"
	"fmt"

	"github.com/rechain/fedicore/pkg/types"
)

// Client-visible transaction errors are returned from
// SubmitTransaction; concurrency errors (storage.ErrWriteConflict) pass
// through unwrapped and are never retried internally; decoding errors
// and consensus drop conditions never reach this layer as errors at
// all; fatal invariant violations abort the process via log.Fatalf at
// the call site that owns the dbtx lifecycle.

// ErrInvalidSignature is returned when a transaction's signature does
// not verify against the aggregate of its inputs' public keys.
var ErrInvalidSignature = errors.New("consensus: invalid transaction signature")

// UnbalancedTransactionError reports that a transaction's input amounts
// do not equal its output amounts plus fees.
type UnbalancedTransactionError struct {
	Inputs  int64
	Outputs int64
	Fee     int64
}

func (e *UnbalancedTransactionError) Error() string {
	return fmt.Sprintf("unbalanced transaction: inputs=%d outputs=%d fee=%d", e.Inputs, e.Outputs, e.Fee)
}

// ModuleError wraps an opaque error returned by a module's
// validate/apply call, tagged with the transaction it occurred in.
type ModuleError struct {
	TxHash types.TxHash
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module error for tx %s: %v", e.TxHash, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }

// UnknownModuleError reports an input/output tagged with a module
// instance id this processor has no registered module for.
type UnknownModuleError struct {
	Instance types.ModuleInstanceId
}

func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("consensus: no module registered for instance %d", e.Instance)
}

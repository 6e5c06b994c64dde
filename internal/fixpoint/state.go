package fixpoint

import (
	"github.com/pyscope-dev/pyscope/internal/calltarget"
	"github.com/pyscope-dev/pyscope/internal/sharedmem"
	"github.com/pyscope-dev/pyscope/internal/taint"
)

// State is the driver's bookkeeping per target (§3 "FixpointState"):
// whether its last widen still grew the model, the epoch it was computed
// under, and the iteration that produced it.
type State struct {
	IsPartial bool
	Epoch     string
	Iteration int
}

// ModelsHandle is the shared-memory table of per-target taint models that
// a cmd/pyscope entry point creates once and threads through Driver,
// rather than the driver reaching for a package-level cache (§9 bullet 3).
type ModelsHandle = *sharedmem.Table[calltarget.Target, *taint.Model]

// NewModelsHandle builds an empty ModelsHandle. calltarget.Target values
// hash via their own String(), so the table needs no custom keyOf.
func NewModelsHandle() ModelsHandle {
	return sharedmem.New[calltarget.Target, *taint.Model](nil)
}

// NewResultsHandle builds the companion table for whatever per-callable
// result type R the oracle in use produces (diagnostics, call summaries,
// …) — generic over R since the driver itself is agnostic to it.
func NewResultsHandle[R any]() *sharedmem.Table[calltarget.Target, R] {
	return sharedmem.New[calltarget.Target, R](nil)
}

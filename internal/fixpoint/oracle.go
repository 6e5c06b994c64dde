package fixpoint

import (
	"context"

	"github.com/pyscope-dev/pyscope/internal/calltarget"
	"github.com/pyscope-dev/pyscope/internal/taint"
)

// ModelLookup resolves another target's current-or-previous model, the
// `get_model = get(·)` the analyzer oracle is handed per §4.G step 3b.
type ModelLookup func(calltarget.Target) (*taint.Model, bool)

// Oracle analyzes one Function or Method target's define and produces its
// result (whatever shape R takes for the caller — diagnostics, a call
// summary, …) plus the taint model the driver should store and widen.
// internal/tainted provides the reference implementation; Driver only
// depends on this interface so it never imports the analyzer itself.
type Oracle[R any] interface {
	AnalyzeDefine(ctx context.Context, qualifier string, target calltarget.Target, previous *taint.Model, getModel ModelLookup) (R, *taint.Model, error)
}

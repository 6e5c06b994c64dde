// Package fixpoint implements the work-list driver of §4.G: it iterates a
// target work list to a taint-model fixpoint, dispatching each iteration's
// chunk to worker goroutines the way the teacher's intelligence gatherer
// dispatches its parallel collectors.
package fixpoint

import "github.com/pyscope-dev/pyscope/internal/diagnostics"

// InvariantViolation, NonConvergenceError and MissingInitialModelError are
// re-exported here under the names §7 gives them as homed in this package;
// the concrete types live in internal/diagnostics alongside ParseError and
// ModelVerificationError so the whole closed error taxonomy has one
// implementation.
type (
	InvariantViolation       = diagnostics.InvariantViolation
	NonConvergenceError      = diagnostics.NonConvergenceError
	MissingInitialModelError = diagnostics.MissingInitialModelError
)

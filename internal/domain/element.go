// Package domain implements the path-indexed abstract-domain tree used to
// represent taint: a recursive value {element, children} where the element
// is any lattice satisfying the Element contract and children are indexed
// by access-path Labels. See spec §3 "AbstractDomain Tree" and §4.A.
package domain

// Element is the capability interface every leaf/interior lattice value
// must satisfy. DESIGN NOTES §9 replaces the original's functor-over-a-
// lattice-module with this small interface so Tree is monomorphic over a
// concrete Element implementation rather than generic over it.
type Element interface {
	// IsBottom reports whether this value is the lattice's least element.
	IsBottom() bool
	// Join computes the least upper bound of the receiver and other.
	Join(other Element) Element
	// Widen combines the receiver (previous) with other (next) using a
	// combinator that guarantees termination over an infinite-height
	// lattice; for finite-height lattices it may simply delegate to Join.
	Widen(other Element) Element
	// LessOrEqual reports whether the receiver is below other in the lattice.
	LessOrEqual(other Element) bool
	// Subtract removes from the receiver whatever is already implied by
	// other, used to restore minimality after join/widen.
	Subtract(other Element) Element
}

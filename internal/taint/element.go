// Package taint is the Taint Abstract Model of §4.H: the per-callable
// Model (forward source state, backward sink/TITO state, analysis mode),
// all tree-valued over internal/domain, plus the breadcrumb and mode
// combinators the spec names.
package taint

import "github.com/pyscope-dev/pyscope/internal/domain"

// TraceInfo tags how a taint element arrived at a leaf: either it was
// declared there directly, or it arrived through a call site during
// propagation.
type TraceInfo interface {
	isTraceInfo()
}

// Declaration marks a leaf whose taint comes from a source/sink
// declaration rather than propagation. LeafNameProvided records whether
// the declaration named a specific leaf (`TaintSource[X]` on a field) as
// opposed to applying to the whole value.
type Declaration struct {
	LeafNameProvided bool
}

func (Declaration) isTraceInfo() {}

// CallSite marks a leaf whose taint arrived by propagating through a call.
type CallSite struct {
	Qualifier string
	Line, Col int
}

func (CallSite) isTraceInfo() {}

// ParameterSource marks a leaf whose taint comes from a callable's own
// parameter carrying a declared source annotation — used by the
// forward/backward analyzer (internal/tainted) to attribute which
// parameter a returned value's taint flowed from, without a separate
// provenance side-channel.
type ParameterSource struct {
	Name string
}

func (ParameterSource) isTraceInfo() {}

// Breadcrumb is a named tag carried along a flow, used for filtering and
// issue narration (§GLOSSARY). Dynamic breadcrumbs are computed from data
// at analysis time rather than named statically in a model declaration.
type Breadcrumb struct {
	Name    string
	Dynamic bool
}

// Element is the leaf lattice value of a ForwardTree/SinkTree: a product
// of a taint-kind set, a trace-info set, and a breadcrumb set (§3 "leaf
// element is a lattice product"). It satisfies domain.Element so it can
// be used directly as Tree.Element.
type Element struct {
	Kinds       map[string]struct{}
	Traces      map[TraceInfo]struct{}
	Breadcrumbs map[Breadcrumb]struct{}
}

// NewElement builds an Element from the given taint kind names and trace,
// with no breadcrumbs attached yet.
func NewElement(trace TraceInfo, kinds ...string) Element {
	e := Element{Kinds: make(map[string]struct{}, len(kinds)), Traces: map[TraceInfo]struct{}{trace: {}}}
	for _, k := range kinds {
		e.Kinds[k] = struct{}{}
	}
	return e
}

func (e Element) IsBottom() bool { return len(e.Kinds) == 0 }

func (e Element) Join(other domain.Element) domain.Element {
	o, ok := other.(Element)
	if !ok {
		return e
	}
	return Element{
		Kinds:       unionStrings(e.Kinds, o.Kinds),
		Traces:      unionTraces(e.Traces, o.Traces),
		Breadcrumbs: unionBreadcrumbs(e.Breadcrumbs, o.Breadcrumbs),
	}
}

// Widen delegates to Join: the taint-kind/trace/breadcrumb sets are all
// bounded by the finite vocabulary declared in the model DSL, so no
// separate widening combinator is needed at the element level — only the
// tree's recursive structure needs depth-bounded widening (internal/domain).
func (e Element) Widen(other domain.Element) domain.Element { return e.Join(other) }

func (e Element) LessOrEqual(other domain.Element) bool {
	o, ok := other.(Element)
	if !ok {
		return e.IsBottom()
	}
	return isSubsetStrings(e.Kinds, o.Kinds) && isSubsetTraces(e.Traces, o.Traces) && isSubsetBreadcrumbs(e.Breadcrumbs, o.Breadcrumbs)
}

func (e Element) Subtract(other domain.Element) domain.Element {
	o, ok := other.(Element)
	if !ok {
		return e
	}
	return Element{
		Kinds:       subtractStrings(e.Kinds, o.Kinds),
		Traces:      subtractTraces(e.Traces, o.Traces),
		Breadcrumbs: subtractBreadcrumbs(e.Breadcrumbs, o.Breadcrumbs),
	}
}

// WithBreadcrumbs returns a copy of e with crumbs added — the unit of
// work "Attach" annotations apply leaf-wise across a tree (see
// AttachBreadcrumbs in mode.go).
func (e Element) WithBreadcrumbs(crumbs []Breadcrumb) Element {
	out := Element{Kinds: e.Kinds, Traces: e.Traces, Breadcrumbs: make(map[Breadcrumb]struct{}, len(e.Breadcrumbs)+len(crumbs))}
	for b := range e.Breadcrumbs {
		out.Breadcrumbs[b] = struct{}{}
	}
	for _, b := range crumbs {
		out.Breadcrumbs[b] = struct{}{}
	}
	return out
}

func unionStrings(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func isSubsetStrings(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func subtractStrings(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a))
	for k := range a {
		if _, ok := b[k]; !ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func unionTraces(a, b map[TraceInfo]struct{}) map[TraceInfo]struct{} {
	out := make(map[TraceInfo]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func isSubsetTraces(a, b map[TraceInfo]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func subtractTraces(a, b map[TraceInfo]struct{}) map[TraceInfo]struct{} {
	out := make(map[TraceInfo]struct{}, len(a))
	for k := range a {
		if _, ok := b[k]; !ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func unionBreadcrumbs(a, b map[Breadcrumb]struct{}) map[Breadcrumb]struct{} {
	out := make(map[Breadcrumb]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func isSubsetBreadcrumbs(a, b map[Breadcrumb]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func subtractBreadcrumbs(a, b map[Breadcrumb]struct{}) map[Breadcrumb]struct{} {
	out := make(map[Breadcrumb]struct{}, len(a))
	for k := range a {
		if _, ok := b[k]; !ok {
			out[k] = struct{}{}
		}
	}
	return out
}

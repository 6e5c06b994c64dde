package taint

import "github.com/pyscope-dev/pyscope/internal/domain"

// TitoTagKind distinguishes the two TITO ("taint-in-taint-out") shapes
// named in the GLOSSARY.
type TitoTagKind int

const (
	// LocalReturn denotes "source at this parameter flows out through the
	// callable's return value."
	LocalReturn TitoTagKind = iota
	// ParameterUpdate denotes "source at this parameter flows into
	// parameter ParamIndex" (e.g. a mutating method writing through self).
	ParameterUpdate
)

// TitoTag is one member of a TitoElement's set.
type TitoTag struct {
	Kind       TitoTagKind
	ParamIndex int // only meaningful when Kind == ParameterUpdate
}

// TitoElement is the leaf lattice value of a TitoTree: a finite powerset
// over TitoTag, the same shape as Element's Kinds factor but without the
// trace/breadcrumb product since TITO facts aren't independently traced.
type TitoElement struct {
	Tags map[TitoTag]struct{}
}

// NewTitoElement builds a TitoElement from the given tags.
func NewTitoElement(tags ...TitoTag) TitoElement {
	e := TitoElement{Tags: make(map[TitoTag]struct{}, len(tags))}
	for _, t := range tags {
		e.Tags[t] = struct{}{}
	}
	return e
}

func (e TitoElement) IsBottom() bool { return len(e.Tags) == 0 }

func (e TitoElement) Join(other domain.Element) domain.Element {
	o, ok := other.(TitoElement)
	if !ok {
		return e
	}
	out := make(map[TitoTag]struct{}, len(e.Tags)+len(o.Tags))
	for t := range e.Tags {
		out[t] = struct{}{}
	}
	for t := range o.Tags {
		out[t] = struct{}{}
	}
	return TitoElement{Tags: out}
}

func (e TitoElement) Widen(other domain.Element) domain.Element { return e.Join(other) }

func (e TitoElement) LessOrEqual(other domain.Element) bool {
	o, ok := other.(TitoElement)
	if !ok {
		return e.IsBottom()
	}
	for t := range e.Tags {
		if _, found := o.Tags[t]; !found {
			return false
		}
	}
	return true
}

func (e TitoElement) Subtract(other domain.Element) domain.Element {
	o, ok := other.(TitoElement)
	if !ok {
		return e
	}
	out := make(map[TitoTag]struct{}, len(e.Tags))
	for t := range e.Tags {
		if _, found := o.Tags[t]; !found {
			out[t] = struct{}{}
		}
	}
	return TitoElement{Tags: out}
}

package taint

import "github.com/pyscope-dev/pyscope/internal/domain"

// ModeKind discriminates a Model's analysis mode (§3 "mode").
type ModeKind int

const (
	Normal ModeKind = iota
	SkipAnalysis
	Sanitize
)

// Filter is the optional kind-set filter carried by a Sanitize mode's
// three factors; a nil Filter means "no filter for this factor."
type Filter struct {
	Kinds map[string]struct{}
}

// NewFilter builds a Filter naming the given taint kinds.
func NewFilter(kinds ...string) *Filter {
	f := &Filter{Kinds: make(map[string]struct{}, len(kinds))}
	for _, k := range kinds {
		f.Kinds[k] = struct{}{}
	}
	return f
}

func unionFilter(a, b *Filter) *Filter {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := make(map[string]struct{}, len(a.Kinds)+len(b.Kinds))
	for k := range a.Kinds {
		out[k] = struct{}{}
	}
	for k := range b.Kinds {
		out[k] = struct{}{}
	}
	return &Filter{Kinds: out}
}

// Mode is the per-callable analysis mode: Normal, SkipAnalysis, or
// Sanitize with up to three optional filters (§3 "mode").
type Mode struct {
	Kind    ModeKind
	Sources *Filter
	Sinks   *Filter
	Tito    *Filter
}

// JoinMode implements §4.H's mode combinator: `join(Normal,x)=x`,
// SkipAnalysis is absorbing, Sanitize joins element-wise by unioning the
// three optional filters.
func JoinMode(a, b Mode) Mode {
	if a.Kind == SkipAnalysis || b.Kind == SkipAnalysis {
		return Mode{Kind: SkipAnalysis}
	}
	if a.Kind == Normal {
		return b
	}
	if b.Kind == Normal {
		return a
	}
	return Mode{
		Kind:    Sanitize,
		Sources: unionFilter(a.Sources, b.Sources),
		Sinks:   unionFilter(a.Sinks, b.Sinks),
		Tito:    unionFilter(a.Tito, b.Tito),
	}
}

// AttachBreadcrumbs applies crumbs to every leaf of tree — the leaf-wise
// map over the element domain §4.H's "Attach" annotations require.
// Annotations that carry breadcrumbs (`AttachToSink[Via[f]]`, etc.) are
// not themselves sources/sinks; they only force this attachment onto
// whatever taint already occupies the matching path.
func AttachBreadcrumbs(tree *domain.Tree, crumbs []Breadcrumb) *domain.Tree {
	if domain.IsBottom(tree) {
		return domain.Bottom()
	}
	var elem domain.Element = tree.Element
	if te, ok := elem.(Element); ok {
		elem = te.WithBreadcrumbs(crumbs)
	}
	var children map[domain.Label]*domain.Tree
	if len(tree.Children) > 0 {
		children = make(map[domain.Label]*domain.Tree, len(tree.Children))
		for l, c := range tree.Children {
			children[l] = AttachBreadcrumbs(c, crumbs)
		}
	}
	return &domain.Tree{Element: elem, Children: children}
}

// FilterKinds drops every kind named by filter from every Element leaf of
// tree, the leaf-wise map a `Sanitize[...]` mode applies to the forward
// and sink trees (§4.H "mode"). A nil filter is a no-op. Forward/SinkTree
// leaves are always taint.Element, so non-Element leaves pass through
// unchanged rather than being treated as an error.
func FilterKinds(tree *domain.Tree, filter *Filter) *domain.Tree {
	if domain.IsBottom(tree) || filter == nil {
		return tree
	}
	elem := tree.Element
	if te, ok := elem.(Element); ok {
		kept := make(map[string]struct{}, len(te.Kinds))
		for k := range te.Kinds {
			if _, excluded := filter.Kinds[k]; !excluded {
				kept[k] = struct{}{}
			}
		}
		elem = Element{Kinds: kept, Traces: te.Traces, Breadcrumbs: te.Breadcrumbs}
	}
	var children map[domain.Label]*domain.Tree
	if len(tree.Children) > 0 {
		children = make(map[domain.Label]*domain.Tree, len(tree.Children))
		for l, c := range tree.Children {
			children[l] = FilterKinds(c, filter)
		}
	}
	return &domain.Tree{Element: elem, Children: children}
}

package taint

import "github.com/pyscope-dev/pyscope/internal/domain"

// BackwardModel is the backward half of a Model: sink taint and TITO
// facts, both tree-valued (§3 "backward: { sink_tree; tito_tree }").
type BackwardModel struct {
	SinkTree *domain.Tree
	TitoTree *domain.Tree
}

// Model is the per-callable taint model §3 defines: forward source
// state, backward sink/TITO state, and an analysis mode.
type Model struct {
	Forward  *domain.Tree
	Backward BackwardModel
	Mode     Mode
}

// EmptyModel returns the bottom model: no forward/sink/TITO taint, Normal
// mode — the value new targets start from before any model DSL
// declaration or fixpoint iteration touches them.
func EmptyModel() *Model {
	return &Model{
		Forward:  domain.Bottom(),
		Backward: BackwardModel{SinkTree: domain.Bottom(), TitoTree: domain.Bottom()},
		Mode:     Mode{Kind: Normal},
	}
}

// Join computes the least upper bound of a and b, tree-wise and mode-wise.
func Join(a, b *Model) *Model {
	if a == nil {
		a = EmptyModel()
	}
	if b == nil {
		b = EmptyModel()
	}
	return &Model{
		Forward: domain.Join(a.Forward, b.Forward),
		Backward: BackwardModel{
			SinkTree: domain.Join(a.Backward.SinkTree, b.Backward.SinkTree),
			TitoTree: domain.Join(a.Backward.TitoTree, b.Backward.TitoTree),
		},
		Mode: JoinMode(a.Mode, b.Mode),
	}
}

// Widen combines prev and next the way the fixpoint driver's iteration
// protocol requires (§4.G step 3d), tree-wise per §4.A and mode-wise via
// the same JoinMode combinator (mode has no separate widening operator —
// its component sets are bounded by the DSL's declared vocabulary).
func Widen(prev, next *Model, depth int) *Model {
	if prev == nil {
		prev = EmptyModel()
	}
	if next == nil {
		next = EmptyModel()
	}
	return &Model{
		Forward: domain.Widen(prev.Forward, next.Forward, depth),
		Backward: BackwardModel{
			SinkTree: domain.Widen(prev.Backward.SinkTree, next.Backward.SinkTree, depth),
			TitoTree: domain.Widen(prev.Backward.TitoTree, next.Backward.TitoTree, depth),
		},
		Mode: JoinMode(prev.Mode, next.Mode),
	}
}

// LessOrEqual reports whether m is dominated by other across every tree
// factor — the comparison the fixpoint driver's convergence check (§4.G
// step 3d, "is_partial = not (widened ≤ previous)") needs.
func LessOrEqual(m, other *Model) bool {
	if m == nil {
		return true
	}
	if other == nil {
		return domain.IsBottom(m.Forward) && domain.IsBottom(m.Backward.SinkTree) && domain.IsBottom(m.Backward.TitoTree)
	}
	return treeLessOrEqual(m.Forward, other.Forward) &&
		treeLessOrEqual(m.Backward.SinkTree, other.Backward.SinkTree) &&
		treeLessOrEqual(m.Backward.TitoTree, other.Backward.TitoTree)
}

// treeLessOrEqual reports whether t ≤ other by checking that joining
// them changes nothing — domain.Tree exposes no direct ≤ operator, so
// this is expressed via the join it does provide: t ≤ other iff
// join(t,other) has no element anywhere that exceeds other, which holds
// exactly when join(t, other) equals other under Join's own idempotence.
func treeLessOrEqual(t, other *domain.Tree) bool {
	joined := domain.Join(t, other)
	return treeEqualShape(joined, other)
}

// treeEqualShape is a structural equality used only by treeLessOrEqual's
// "join changed nothing" check; it compares element LessOrEqual both ways
// at every node since Element has no direct Equal method.
func treeEqualShape(a, b *domain.Tree) bool {
	aBottom, bBottom := domain.IsBottom(a), domain.IsBottom(b)
	if aBottom || bBottom {
		return aBottom == bBottom
	}
	if !elementsEqual(a.Element, b.Element) {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for l, ac := range a.Children {
		bc, ok := b.Children[l]
		if !ok || !treeEqualShape(ac, bc) {
			return false
		}
	}
	return true
}

// ForOverrideModel derives the override-safe view of a declaring method's
// own model, per §4.G step 3c ("combine with the corresponding method's
// own for_override_model(previous)"). A base method's model is usable
// as-is wherever a subclass fails to override it, so this is the identity
// transform: it returns m itself (not a copy), or EmptyModel() when m is
// nil; it exists as its own function, rather
// than being inlined at the fixpoint call site, so a future DSL-driven
// override policy (e.g. widening SkipAnalysis across a hierarchy) has one
// place to change.
func ForOverrideModel(m *Model) *Model {
	if m == nil {
		return EmptyModel()
	}
	return m
}

func elementsEqual(a, b domain.Element) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.LessOrEqual(b) && b.LessOrEqual(a)
}

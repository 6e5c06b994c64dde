package domain

// Join computes l ⊔ r. At AnyIndex, each specific Field on one side is
// joined against the other side's AnyIndex child (the "wildcards combine
// with every specific field on the opposite side" edge case in §4.A).
// DictionaryKeys never participates in that fallback — it is disjoint from
// AnyIndex per the §3 invariant.
func Join(l, r *Tree) *Tree {
	if IsBottom(l) {
		return canonicalize(r)
	}
	if IsBottom(r) {
		return canonicalize(l)
	}

	elem := joinElement(l.Element, r.Element)
	lAny := l.Children[AnyIndex]
	rAny := r.Children[AnyIndex]

	children := make(map[Label]*Tree)
	for _, lab := range labelUnion(l.Children, r.Children) {
		switch lab.Kind {
		case FieldLabel:
			left := l.Children[lab]
			right := r.Children[lab]
			if left == nil {
				left = lAny
			}
			if right == nil {
				right = rAny
			}
			joined := Join(orBottom(left), orBottom(right))
			if !IsBottom(joined) {
				children[lab] = joined
			}
		case DictionaryKeysLabel:
			joined := Join(orBottom(l.Children[lab]), orBottom(r.Children[lab]))
			if !IsBottom(joined) {
				children[lab] = joined
			}
		case AnyIndexLabel:
			joined := Join(orBottom(lAny), orBottom(rAny))
			if !IsBottom(joined) {
				children[AnyIndex] = joined
			}
		}
	}
	return minimize(&Tree{Element: elem, Children: children})
}

// Widen combines prev and next like Join, except once descent exceeds depth
// the element-level combinator is Element.Widen and every descendant below
// that point collapses into a single element formed by recursively joining
// them (§4.A "widen"). depth < 0 is the caller's error, not this package's:
// negative depth is treated as "collapse immediately" so Widen stays total.
func Widen(prev, next *Tree, depth int) *Tree {
	if depth <= 0 {
		collapsedPrev := collapseToElement(prev)
		collapsedNext := collapseToElement(next)
		e := widenElement(collapsedPrev, collapsedNext)
		if e == nil || e.IsBottom() {
			return Bottom()
		}
		return &Tree{Element: e}
	}
	if IsBottom(prev) {
		return canonicalize(next)
	}
	if IsBottom(next) {
		return canonicalize(prev)
	}

	elem := joinElement(prev.Element, next.Element)
	lAny := prev.Children[AnyIndex]
	rAny := next.Children[AnyIndex]

	children := make(map[Label]*Tree)
	for _, lab := range labelUnion(prev.Children, next.Children) {
		switch lab.Kind {
		case FieldLabel:
			left := prev.Children[lab]
			right := next.Children[lab]
			if left == nil {
				left = lAny
			}
			if right == nil {
				right = rAny
			}
			widened := Widen(orBottom(left), orBottom(right), depth-1)
			if !IsBottom(widened) {
				children[lab] = widened
			}
		case DictionaryKeysLabel:
			widened := Widen(orBottom(prev.Children[lab]), orBottom(next.Children[lab]), depth-1)
			if !IsBottom(widened) {
				children[lab] = widened
			}
		case AnyIndexLabel:
			widened := Widen(orBottom(lAny), orBottom(rAny), depth-1)
			if !IsBottom(widened) {
				children[AnyIndex] = widened
			}
		}
	}
	return minimize(&Tree{Element: elem, Children: children})
}

func widenElement(a, b Element) Element {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return a.Widen(b)
}

// collapseToElement joins a whole subtree's elements into one, used both by
// Widen past its depth budget and by CollapseTo.
func collapseToElement(t *Tree) Element {
	if IsBottom(t) {
		return nil
	}
	acc := t.Element
	for _, c := range t.Children {
		acc = joinElement(acc, collapseToElement(c))
	}
	return acc
}

// CollapseTo bounds propagation width across a function boundary by folding
// every node deeper than depth into its ancestor's element.
func CollapseTo(t *Tree, depth int) *Tree {
	if depth <= 0 {
		e := collapseToElement(t)
		if e == nil || e.IsBottom() {
			return Bottom()
		}
		return &Tree{Element: e}
	}
	if IsBottom(t) {
		return Bottom()
	}
	children := make(map[Label]*Tree, len(t.Children))
	for lab, c := range t.Children {
		cc := CollapseTo(c, depth-1)
		if !IsBottom(cc) {
			children[lab] = cc
		}
	}
	return minimize(&Tree{Element: t.Element, Children: children})
}

// Shape collapses t's structure to match mold's: a label present in t but
// absent from mold is folded into its parent's element, so propagation
// never grows shape beyond what the callee's model declared.
func Shape(t, mold *Tree) *Tree {
	if IsBottom(t) || IsBottom(mold) {
		if IsBottom(mold) {
			e := collapseToElement(t)
			if e == nil || e.IsBottom() {
				return Bottom()
			}
			return &Tree{Element: e}
		}
		return Bottom()
	}
	children := make(map[Label]*Tree)
	overflow := t.Element
	for lab, c := range t.Children {
		if moldChild, ok := mold.Children[lab]; ok {
			shaped := Shape(c, moldChild)
			if !IsBottom(shaped) {
				children[lab] = shaped
			}
			continue
		}
		overflow = joinElement(overflow, collapseToElement(c))
	}
	return minimize(&Tree{Element: overflow, Children: children})
}

// Assign places subtree at path. When weak is set this is equivalent to a
// Join at path (used for loop-carried or conditionally-executed writes);
// otherwise it replaces the subtree, pruning any descendant whose element
// is already dominated by the joined ancestor chain (§4.A "assign").
func Assign(tree *Tree, path Path, subtree *Tree, weak bool) *Tree {
	if len(path) == 0 {
		if weak {
			return Join(tree, subtree)
		}
		return pruneDominated(canonicalize(subtree), nil)
	}
	base := tree
	if base == nil {
		base = Bottom()
	}
	head := path[0]
	child := orBottom(base.Children[head])
	newChild := Assign(child, path[1:], subtree, weak)

	children := make(map[Label]*Tree, len(base.Children))
	for l, c := range base.Children {
		children[l] = c
	}
	if IsBottom(newChild) {
		delete(children, head)
	} else {
		children[head] = newChild
	}
	return minimize(&Tree{Element: base.Element, Children: children})
}

func ancestorElement(tree *Tree) Element {
	if tree == nil {
		return nil
	}
	return tree.Element
}

// pruneDominated subtracts ancestor from every element of t, restoring
// minimality after a strong (non-weak) assign replaces a subtree outright,
// or after Join/Widen/CollapseTo/Shape recombine a node with its children.
func pruneDominated(t *Tree, ancestor Element) *Tree {
	if IsBottom(t) {
		return Bottom()
	}
	elem := t.Element
	if elem != nil && ancestor != nil {
		elem = elem.Subtract(ancestor)
		if elem == nil || elem.IsBottom() {
			elem = nil
		}
	}
	children := make(map[Label]*Tree, len(t.Children))
	combinedAncestor := joinElement(ancestor, t.Element)
	for lab, c := range t.Children {
		pc := pruneDominated(c, combinedAncestor)
		if !IsBottom(pc) {
			children[lab] = pc
		}
	}
	return &Tree{Element: elem, Children: children}
}

// Read returns the element accumulated along path (the join of every
// ancestor's element) plus the subtree found there. AnyIndex matches any
// Field label during descent unless usePreciseFields is set, per §4.A's
// read contract and invariant 5 (AnyIndex matching).
func Read(tree *Tree, path Path, usePreciseFields bool) (Element, *Tree) {
	return readAcc(tree, path, nil, usePreciseFields)
}

func readAcc(tree *Tree, path Path, acc Element, usePreciseFields bool) (Element, *Tree) {
	if tree == nil {
		return acc, Bottom()
	}
	acc = joinElement(acc, tree.Element)
	if len(path) == 0 {
		return acc, canonicalize(&Tree{Children: tree.Children})
	}
	head := path[0]
	switch head.Kind {
	case FieldLabel:
		if child, ok := tree.Children[head]; ok {
			return readAcc(child, path[1:], acc, usePreciseFields)
		}
		if !usePreciseFields {
			if any, ok := tree.Children[AnyIndex]; ok {
				return readAcc(any, path[1:], acc, usePreciseFields)
			}
		}
		return acc, Bottom()
	case DictionaryKeysLabel:
		if child, ok := tree.Children[DictionaryKeys]; ok {
			return readAcc(child, path[1:], acc, usePreciseFields)
		}
		return acc, Bottom()
	case AnyIndexLabel:
		if child, ok := tree.Children[AnyIndex]; ok {
			return readAcc(child, path[1:], acc, usePreciseFields)
		}
		return acc, Bottom()
	default:
		return acc, Bottom()
	}
}

// minimize restores the Minimality invariant of §3: an interior node's
// element must not be ≤ the join of its ancestors, and wholly-bottom
// subtrees are dropped. It canonicalizes first to drop bottom children,
// then runs the same root-down Subtract pass Assign's strong-write path
// uses (pruneDominated), starting from a nil ancestor at the root.
func minimize(t *Tree) *Tree {
	return pruneDominated(canonicalize(t), nil)
}

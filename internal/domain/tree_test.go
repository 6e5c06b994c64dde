package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(members ...string) *Tree {
	return &Tree{Element: NewStringSet(members...)}
}

func TestJoinLatticeLaws(t *testing.T) {
	x := Assign(Bottom(), Path{Field("a")}, leaf("src"), false)
	y := Assign(Bottom(), Path{Field("b")}, leaf("other"), false)

	assert.True(t, equalTrees(Join(x, x), x), "join(x,x) = x")

	xy := Join(x, y)
	yx := Join(y, x)
	assert.True(t, equalTrees(xy, yx), "join commutative")

	assert.True(t, LessOrEqualTree(x, xy))
	assert.True(t, LessOrEqualTree(y, xy))
}

func TestWideningMonotonicity(t *testing.T) {
	prev := Assign(Bottom(), Path{Field("a")}, leaf("src1"), false)
	next := Assign(Bottom(), Path{Field("a")}, leaf("src2"), false)

	w := Widen(prev, next, 4)
	assert.True(t, LessOrEqualTree(prev, w))
	assert.True(t, LessOrEqualTree(next, w))
}

func TestPathRoundTrip(t *testing.T) {
	tree := Assign(Bottom(), Path{Field("a"), Field("b")}, leaf("x"), false)
	elem, sub := Read(tree, Path{Field("a"), Field("b")}, false)
	require.NotNil(t, elem)
	ss, ok := elem.(StringSet)
	require.True(t, ok)
	assert.True(t, ss.Has("x"))
	assert.True(t, IsBottom(sub))
}

func TestAnyIndexMatchesAnyField(t *testing.T) {
	tree := Assign(Bottom(), Path{AnyIndex}, leaf("wild"), false)

	elemX, _ := Read(tree, Path{Field("x")}, false)
	elemY, _ := Read(tree, Path{Field("y")}, false)
	require.NotNil(t, elemX)
	require.NotNil(t, elemY)
	assert.True(t, elemX.(StringSet).Has("wild"))
	assert.True(t, elemY.(StringSet).Has("wild"))

	elemPrecise, _ := Read(tree, Path{Field("x")}, true)
	assert.Nil(t, elemPrecise)
}

func TestDictionaryKeysDisjointFromAnyIndex(t *testing.T) {
	tree := Assign(Bottom(), Path{AnyIndex}, leaf("wild"), false)
	elem, _ := Read(tree, Path{DictionaryKeys}, false)
	assert.Nil(t, elem, "[*] must never match dictionary-key taint")
}

func TestJoinAnyIndexWithSpecificField(t *testing.T) {
	withField := Assign(Bottom(), Path{Field("x")}, leaf("a"), false)
	withWild := Assign(Bottom(), Path{AnyIndex}, leaf("b"), false)

	joined := Join(withField, withWild)
	elemX, _ := Read(joined, Path{Field("x")}, false)
	require.NotNil(t, elemX)
	ss := elemX.(StringSet)
	assert.True(t, ss.Has("a"))
	assert.True(t, ss.Has("b"))
}

func TestMinimalityDropsBottomSubtrees(t *testing.T) {
	tree := Assign(Bottom(), Path{Field("a")}, leaf("x"), false)
	tree = Assign(tree, Path{Field("a")}, Bottom(), false)
	assert.True(t, IsBottom(tree))
}

func TestJoinSubtractsAncestorFromDominatedChild(t *testing.T) {
	l := &Tree{Element: NewStringSet("a"), Children: map[Label]*Tree{
		Field("x"): {Element: NewStringSet("b")},
	}}
	r := &Tree{Element: NewStringSet("b")}

	joined := Join(l, r)
	elem := joined.Element.(StringSet)
	assert.True(t, elem.Has("a"))
	assert.True(t, elem.Has("b"))
	assert.True(t, IsBottom(orBottom(joined.Children[Field("x")])), "child fully dominated by {a,b} must be pruned")
}

func TestCollapseToBoundsDepth(t *testing.T) {
	tree := Assign(Bottom(), Path{Field("a"), Field("b"), Field("c")}, leaf("x"), false)
	collapsed := CollapseTo(tree, 1)
	_, sub := Read(collapsed, Path{Field("a")}, true)
	assert.True(t, IsBottom(sub.Children[Field("b")]))
}

// equalTrees and LessOrEqualTree are small structural helpers used only by
// this package's own tests.
func equalTrees(a, b *Tree) bool {
	return LessOrEqualTree(a, b) && LessOrEqualTree(b, a)
}

func LessOrEqualTree(a, b *Tree) bool {
	if IsBottom(a) {
		return true
	}
	if IsBottom(b) {
		return false
	}
	if a.Element != nil {
		if b.Element == nil || !a.Element.LessOrEqual(b.Element) {
			return false
		}
	}
	for lab, ac := range a.Children {
		if !LessOrEqualTree(ac, orBottom(b.Children[lab])) {
			return false
		}
	}
	return true
}

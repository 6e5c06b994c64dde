package depgraph

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterningIsStable(t *testing.T) {
	tr := NewTracker()
	r1 := tr.Register(Key{Kind: WildcardImport, Name: "pkg.a"})
	r2 := tr.Register(Key{Kind: WildcardImport, Name: "pkg.a"})
	assert.Equal(t, r1, r2)

	r3 := tr.Register(Key{Kind: WildcardImport, Name: "pkg.b"})
	assert.NotEqual(t, r1, r3)
}

func TestInvalidateReturnsUnionAndClears(t *testing.T) {
	tr := NewTracker()
	reader1 := tr.Register(Key{Kind: TypeCheckDefine, Name: "a.f"})
	reader2 := tr.Register(Key{Kind: TypeCheckDefine, Name: "b.g"})

	tr.Read("alias", "pkg.a", reader1)
	tr.Read("alias", "pkg.a", reader2)
	tr.Read("alias", "pkg.b", reader2)

	triggered := tr.Invalidate("alias", []string{"pkg.a"})
	require.Len(t, triggered, 2)

	ids := []int{int(triggered[0]), int(triggered[1])}
	sort.Ints(ids)
	assert.Equal(t, []int{int(reader1), int(reader2)}, ids)

	// Re-invalidating the same slot now yields nothing: readers were cleared.
	again := tr.Invalidate("alias", []string{"pkg.a"})
	assert.Empty(t, again)

	// pkg.b's reader survives independently of pkg.a's invalidation.
	stillThere := tr.Invalidate("alias", []string{"pkg.b"})
	assert.Equal(t, []Registered{reader2}, stillThere)
}

package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyscope-dev/pyscope/internal/calltarget"
	"github.com/pyscope-dev/pyscope/internal/parser"
)

func TestCallSiteResolvesModuleFunction(t *testing.T) {
	src := "def helper():\n    pass\ndef main():\n    helper()\n"
	prog, errs := parser.Parse("t.pys", src)
	require.Empty(t, errs)

	b := NewBuilder()
	b.Add("t", prog)
	b.ResolveOverrides()
	g := b.Graph()

	var found bool
	for _, targets := range g.Sites {
		for _, target := range targets {
			if target == (calltarget.Function{Name: "helper"}) {
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestCallSiteResolvesPlainMethod(t *testing.T) {
	src := "class Base:\n    def greet(self):\n        self.shout()\n    def shout(self):\n        pass\n"
	prog, errs := parser.Parse("t.pys", src)
	require.Empty(t, errs)

	b := NewBuilder()
	b.Add("t", prog)
	b.ResolveOverrides()
	g := b.Graph()

	var found bool
	for _, targets := range g.Sites {
		for _, target := range targets {
			if target == calltarget.Target(calltarget.Method{Class: "Base", Name: "shout"}) {
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestOverrideGraphTracksRedeclaration(t *testing.T) {
	src := "class Base:\n    def run(self):\n        pass\nclass Child(Base):\n    def run(self):\n        pass\n"
	prog, errs := parser.Parse("t.pys", src)
	require.Empty(t, errs)

	b := NewBuilder()
	b.Add("t", prog)
	b.ResolveOverrides()
	g := b.Graph()

	overriders := g.GetOverridingTypes(calltarget.Method{Class: "Base", Name: "run"})
	require.Len(t, overriders, 1)
	assert.Equal(t, calltarget.Target(calltarget.Override{Class: "Child", Name: "run"}), overriders[0])
}

func TestCallersOfRecordsReverseEdge(t *testing.T) {
	src := "def helper():\n    pass\ndef main():\n    helper()\n"
	prog, errs := parser.Parse("t.pys", src)
	require.Empty(t, errs)

	b := NewBuilder()
	b.Add("t", prog)
	b.ResolveOverrides()
	g := b.Graph()

	callers := g.CallersOf(calltarget.Function{Name: "helper"})
	require.Len(t, callers, 1)
	assert.Equal(t, calltarget.Target(calltarget.Function{Name: "main"}), callers[0])
}

func TestSelfCallDispatchesToOverrideWhenPolymorphic(t *testing.T) {
	src := "class Base:\n    def run(self):\n        self.step()\n    def step(self):\n        pass\nclass Child(Base):\n    def step(self):\n        pass\n"
	prog, errs := parser.Parse("t.pys", src)
	require.Empty(t, errs)

	b := NewBuilder()
	b.Add("t", prog)
	b.ResolveOverrides()
	g := b.Graph()

	var found bool
	for _, targets := range g.Sites {
		for _, target := range targets {
			if target == calltarget.Target(calltarget.Override{Class: "Base", Name: "step"}) {
				found = true
			}
		}
	}
	assert.True(t, found)
}

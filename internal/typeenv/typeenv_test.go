package typeenv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyscope-dev/pyscope/internal/depgraph"
	"github.com/pyscope-dev/pyscope/internal/diagnostics"
	"github.com/pyscope-dev/pyscope/internal/sourceenv"
)

type memLoader map[string]string

func (m memLoader) Read(path sourceenv.ModulePath) (string, error) {
	content, ok := m[path.RelPath]
	if !ok {
		return "", errors.New("not found")
	}
	return content, nil
}

func newTestEnv(files map[string]string) *Environment {
	tracker := depgraph.NewTracker()
	src := sourceenv.New(memLoader(files), tracker)
	for qualifier := range files {
		src.RegisterPath(qualifier, sourceenv.ModulePath{Qualifier: qualifier, RelPath: qualifier})
	}
	return New(src, tracker)
}

func TestAliasLayerResolvesImportFrom(t *testing.T) {
	env := newTestEnv(map[string]string{"a": "from pkg.mod import Thing as T\n"})
	table := env.Alias.Get("a", nil)
	assert.Equal(t, "pkg.mod.Thing", table["T"])
}

func TestClassSummaryCollectsFieldsAndMethods(t *testing.T) {
	src := "class Foo:\n    x: int\n    def bar(self, y: int) -> str:\n        return y\n"
	env := newTestEnv(map[string]string{"a": src})
	summary := env.Classes.Get("a", "Foo", nil)
	require.NotNil(t, summary)
	assert.Contains(t, summary.Fields, "x")
	assert.Contains(t, summary.Methods, "bar")
}

func TestAttributeResolverWalksBases(t *testing.T) {
	src := "class Base:\n    x: int\nclass Derived(Base):\n    y: int\n"
	env := newTestEnv(map[string]string{"a": src})
	attr := env.Attrs.Get("a", "Derived", "x", nil)
	assert.True(t, attr.Found)
	assert.Equal(t, "Base", attr.DeclaringClass)
}

func TestAnnotatedGlobalLayer(t *testing.T) {
	env := newTestEnv(map[string]string{"a": "COUNT: int = 1\n"})
	table := env.Globals.Get("a", nil)
	assert.Contains(t, table, "COUNT")
}

func TestTypeCheckFlagsUndefinedName(t *testing.T) {
	env := newTestEnv(map[string]string{"a": "def f():\n    return undefined_thing\n"})
	diags := env.Diagnostics("a")
	require.NotEmpty(t, diags)
	assert.Equal(t, diagnostics.CodeUndefinedName, diags[0].Code)
}

func TestTypeCheckFlagsIncompatibleReturn(t *testing.T) {
	env := newTestEnv(map[string]string{"a": "def f() -> int:\n    return \"nope\"\n"})
	diags := env.Diagnostics("a")
	found := false
	for _, d := range diags {
		if d.Code == diagnostics.CodeIncompatibleReturn {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTypeCheckFlagsArityMismatch(t *testing.T) {
	src := "def f(x, y):\n    pass\nf(1)\n"
	env := newTestEnv(map[string]string{"a": src})
	diags := env.Diagnostics("a")
	found := false
	for _, d := range diags {
		if d.Code == diagnostics.CodeTooFewArguments {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTypeCheckIgnoreAllErrorsSuppressesDiagnostics(t *testing.T) {
	src := "# pyscope: ignore-all-errors\ndef f():\n    return undefined_thing\n"
	env := newTestEnv(map[string]string{"a": src})
	diags := env.Diagnostics("a")
	assert.Empty(t, diags)
}

func TestUpdatePropagatesInvalidationToTypeCheck(t *testing.T) {
	files := memLoader{"a": "def f():\n    return undefined_thing\n"}
	tracker := depgraph.NewTracker()
	src := sourceenv.New(files, tracker)
	path := sourceenv.ModulePath{Qualifier: "a", RelPath: "a"}
	src.RegisterPath("a", path)
	env := New(src, tracker)

	first := env.Diagnostics("a")
	require.NotEmpty(t, first)

	files["a"] = "def f():\n    return 1\n"
	env.Update([]sourceenv.FileEvent{{Path: path, Kind: sourceenv.CreatedOrChanged}})

	second := env.Diagnostics("a")
	for _, d := range second {
		assert.NotEqual(t, diagnostics.CodeUndefinedName, d.Code)
	}
}

package sourceenv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/depgraph"
)

type memLoader map[string]string

func (m memLoader) Read(path ModulePath) (string, error) {
	content, ok := m[path.RelPath]
	if !ok {
		return "", errors.New("not found")
	}
	return content, nil
}

func newTestEnv(files map[string]string) (*Environment, *depgraph.Tracker) {
	tracker := depgraph.NewTracker()
	env := New(memLoader(files), tracker)
	for qualifier := range files {
		env.RegisterPath(qualifier, ModulePath{Qualifier: qualifier, RelPath: qualifier})
	}
	return env, tracker
}

func TestGetParsesAndCaches(t *testing.T) {
	env, _ := newTestEnv(map[string]string{"a": "def f():\n    pass\n"})
	source := env.Get("a", nil)
	require.NotNil(t, source)
	require.Len(t, source.Program.Statements, 1)

	again := env.Get("a", nil)
	assert.Same(t, source, again)
}

func TestGetRawMissingQualifierReturnsNil(t *testing.T) {
	env, _ := newTestEnv(map[string]string{})
	assert.Nil(t, env.GetRaw("missing"))
}

func TestParseFailureYieldsAnyGetattrStub(t *testing.T) {
	env, _ := newTestEnv(map[string]string{"bad": "def (:\n"})
	source := env.Get("bad", nil)
	require.NotNil(t, source)
	require.Len(t, source.Program.Statements, 1)
	fn, ok := source.Program.Statements[0].(*ast.FunctionDef)
	require.True(t, ok)
	assert.Equal(t, "__getattr__", fn.Name)
}

func TestUpdateInvalidatesDependentAndIncludesWildcardKey(t *testing.T) {
	env, tracker := newTestEnv(map[string]string{"a": "x = 1\n"})
	dep := tracker.Register(depgraph.Key{Kind: depgraph.TypeCheckDefine, Name: "consumer"})
	env.Get("a", &dep)

	result := env.Update([]FileEvent{{Path: ModulePath{Qualifier: "a", RelPath: "a"}, Kind: CreatedOrChanged}})
	assert.Contains(t, result.InvalidatedModules, "a")
	assert.Contains(t, result.TriggeredDependencies, dep)
}

func TestOverlayFallsThroughWhenNotOverlaid(t *testing.T) {
	env, _ := newTestEnv(map[string]string{"a": "x = 1\n"})
	overlay := NewOverlay(env)
	source := overlay.Get("a", nil)
	require.NotNil(t, source)
	assign, ok := source.Program.Statements[0].(*ast.AssignStatement)
	require.True(t, ok)
	_ = assign
}

func TestOverlayServesOverlaidContentWithoutTouchingParent(t *testing.T) {
	env, parentTracker := newTestEnv(map[string]string{"a": "x = 1\n"})
	parentDep := parentTracker.Register(depgraph.Key{Kind: depgraph.TypeCheckDefine, Name: "p"})
	env.Get("a", &parentDep)

	overlay := NewOverlay(env)
	overlay.UpdateOverlaidCode(map[string]string{"a": "x = 2\n"})

	source := overlay.Get("a", nil)
	lit := source.Program.Statements[0].(*ast.AssignStatement).Value.(*ast.Literal)
	assert.Equal(t, "2", lit.Raw)

	parentSource := env.Get("a", nil)
	parentLit := parentSource.Program.Statements[0].(*ast.AssignStatement).Value.(*ast.Literal)
	assert.Equal(t, "1", parentLit.Raw)
}

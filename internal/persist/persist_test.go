package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyscope-dev/pyscope/internal/calltarget"
	"github.com/pyscope-dev/pyscope/internal/domain"
	"github.com/pyscope-dev/pyscope/internal/fixpoint"
	"github.com/pyscope-dev/pyscope/internal/modeldsl"
	"github.com/pyscope-dev/pyscope/internal/taint"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadModelsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	handle := fixpoint.NewModelsHandle()
	model := taint.EmptyModel()
	model.Forward = domain.Assign(model.Forward, domain.Path{domain.Field("return")},
		&domain.Tree{Element: taint.NewElement(taint.Declaration{LeafNameProvided: true}, "UserControlled")}, false)
	model.Backward.SinkTree = domain.Assign(model.Backward.SinkTree, domain.Path{domain.Field("param:command")},
		&domain.Tree{Element: taint.NewElement(taint.Declaration{LeafNameProvided: true}, "OSCommandInjection")}, false)
	model.Backward.TitoTree = domain.Assign(model.Backward.TitoTree, domain.Path{domain.Field("param:value")},
		&domain.Tree{Element: taint.NewTitoElement(taint.TitoTag{Kind: taint.LocalReturn})}, false)
	model.Mode = taint.Mode{Kind: taint.Sanitize, Sources: taint.NewFilter("Header")}

	target := calltarget.Function{Name: "os.system"}
	handle.Add(target, model)

	require.NoError(t, s.SaveModels("epoch-1", handle))

	loaded, err := s.LoadModels("epoch-1")
	require.NoError(t, err)

	got, ok := loaded.Get(target)
	require.True(t, ok)

	retElem, _ := domain.Read(got.Forward, domain.Path{domain.Field("return")}, true)
	re, ok := retElem.(taint.Element)
	require.True(t, ok)
	assert.Contains(t, re.Kinds, "UserControlled")

	sinkElem, _ := domain.Read(got.Backward.SinkTree, domain.Path{domain.Field("param:command")}, true)
	se, ok := sinkElem.(taint.Element)
	require.True(t, ok)
	assert.Contains(t, se.Kinds, "OSCommandInjection")

	titoElem, _ := domain.Read(got.Backward.TitoTree, domain.Path{domain.Field("param:value")}, true)
	te, ok := titoElem.(taint.TitoElement)
	require.True(t, ok)
	assert.Contains(t, te.Tags, taint.TitoTag{Kind: taint.LocalReturn})

	assert.Equal(t, taint.Sanitize, got.Mode.Kind)
	require.NotNil(t, got.Mode.Sources)
	assert.Contains(t, got.Mode.Sources.Kinds, "Header")
}

func TestLoadModelsIgnoresOtherEpochs(t *testing.T) {
	s := openTestStore(t)

	handle := fixpoint.NewModelsHandle()
	handle.Add(calltarget.Function{Name: "f"}, taint.EmptyModel())
	require.NoError(t, s.SaveModels("epoch-1", handle))

	loaded, err := s.LoadModels("epoch-2")
	require.NoError(t, err)
	assert.Empty(t, loaded.Snapshot())
}

func TestSaveAndLoadStubSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)

	result := modeldsl.Parse("rules.pysa", "def os.system(command: TaintSink[OSCommandInjection]): ...\n")
	require.Empty(t, result.Errors)

	require.NoError(t, s.SaveStubSnapshot("rules.pysa", "epoch-1", result))

	loaded, found, err := s.LoadStubSnapshot("rules.pysa", "epoch-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, loaded.Models, 1)
	assert.Equal(t, "os", loaded.Models[0].Qualifier)
	assert.Equal(t, "system", loaded.Models[0].Target)
}

func TestLoadStubSnapshotMissingReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.LoadStubSnapshot("missing.pysa", "epoch-1")
	require.NoError(t, err)
	assert.False(t, found)
}

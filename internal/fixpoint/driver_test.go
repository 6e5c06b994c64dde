package fixpoint

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pyscope-dev/pyscope/internal/calltarget"
	"github.com/pyscope-dev/pyscope/internal/callgraph"
	"github.com/pyscope-dev/pyscope/internal/domain"
	"github.com/pyscope-dev/pyscope/internal/parser"
	"github.com/pyscope-dev/pyscope/internal/taint"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stableOracle always returns the same model it's handed as "next", so the
// very first widen already satisfies ≤ previous and the target never goes
// back on the work list.
type stableOracle struct {
	model *taint.Model
}

func (o *stableOracle) AnalyzeDefine(_ context.Context, _ string, _ calltarget.Target, _ *taint.Model, _ ModelLookup) (int, *taint.Model, error) {
	return 0, o.model, nil
}

func kindModel(kind string) *taint.Model {
	m := taint.EmptyModel()
	m.Forward = &domain.Tree{Element: taint.NewElement(taint.Declaration{}, kind)}
	return m
}

func TestDriverConvergesSingleTarget(t *testing.T) {
	target := calltarget.Function{Name: "f"}
	models := NewModelsHandle()
	models.Add(target, taint.EmptyModel())

	d := New(Config[int]{
		Models: models,
		Oracle: &stableOracle{model: kindModel("UserSpecified")},
	})

	err := d.Run(context.Background(), []calltarget.Target{target})
	require.NoError(t, err)

	got, ok := models.Get(target)
	require.True(t, ok)
	elem := got.Forward.Element.(taint.Element)
	assert.Contains(t, elem.Kinds, "UserSpecified")
}

func TestDriverMissingInitialModelError(t *testing.T) {
	target := calltarget.Function{Name: "f"}
	models := NewModelsHandle()

	d := New(Config[int]{
		Models: models,
		Oracle: &stableOracle{model: kindModel("X")},
	})

	err := d.Run(context.Background(), []calltarget.Target{target})
	require.Error(t, err)
	var missing *MissingInitialModelError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, target.String(), missing.Target)
}

// growingOracle grows the forward tree by one more kind every call, so the
// target never stabilizes — used to exercise the non-convergence path.
type growingOracle struct {
	mu    sync.Mutex
	kinds []string
	calls int32
}

func (o *growingOracle) AnalyzeDefine(_ context.Context, _ string, _ calltarget.Target, previous *taint.Model, _ ModelLookup) (int, *taint.Model, error) {
	atomic.AddInt32(&o.calls, 1)
	o.mu.Lock()
	defer o.mu.Unlock()
	next := "k" + string(rune('a'+len(o.kinds)))
	o.kinds = append(o.kinds, next)
	m := taint.EmptyModel()
	m.Forward = &domain.Tree{Element: taint.NewElement(taint.Declaration{}, o.kinds...)}
	return 0, m, nil
}

func TestDriverNonConvergenceError(t *testing.T) {
	target := calltarget.Function{Name: "f"}
	models := NewModelsHandle()
	models.Add(target, taint.EmptyModel())

	d := New(Config[int]{
		Models:        models,
		Oracle:        &growingOracle{},
		MaxIterations: 3,
	})

	err := d.Run(context.Background(), []calltarget.Target{target})
	require.Error(t, err)
	var nonConv *NonConvergenceError
	require.ErrorAs(t, err, &nonConv)
	assert.Equal(t, 3, nonConv.MaxIterations)
	assert.Contains(t, nonConv.Oscillating, target.String())
}

func TestDriverExpandsWorklistToCallers(t *testing.T) {
	src := "def helper():\n    pass\ndef main():\n    helper()\n"
	prog, errs := parser.Parse("t.pys", src)
	require.Empty(t, errs)

	b := callgraph.NewBuilder()
	b.Add("t", prog)
	b.ResolveOverrides()
	graph := b.Graph()

	helper := calltarget.Function{Name: "helper"}
	main := calltarget.Function{Name: "main"}

	models := NewModelsHandle()
	models.Add(helper, taint.EmptyModel())
	models.Add(main, taint.EmptyModel())

	var mainCalls int32
	oracle := oracleFunc(func(_ context.Context, _ string, target calltarget.Target, previous *taint.Model, _ ModelLookup) (int, *taint.Model, error) {
		if target == calltarget.Target(main) {
			atomic.AddInt32(&mainCalls, 1)
			return 0, previous, nil
		}
		return 0, kindModel("Tainted"), nil
	})

	d := New(Config[int]{Graph: graph, Models: models, Oracle: oracle})
	err := d.Run(context.Background(), []calltarget.Target{helper, main})
	require.NoError(t, err)

	assert.Equal(t, int32(2), mainCalls, "main must be reprocessed once helper's model grows")
}

type oracleFunc func(context.Context, string, calltarget.Target, *taint.Model, ModelLookup) (int, *taint.Model, error)

func (f oracleFunc) AnalyzeDefine(ctx context.Context, q string, target calltarget.Target, previous *taint.Model, lookup ModelLookup) (int, *taint.Model, error) {
	return f(ctx, q, target, previous, lookup)
}

func TestDriverCombinesOverrideModels(t *testing.T) {
	method := calltarget.Method{Class: "Base", Name: "run"}
	childOverride := calltarget.Override{Class: "Child", Name: "run"}
	baseOverride := calltarget.Override{Class: "Base", Name: "run"}

	graph := &callgraph.Graph{
		Sites:     map[callgraph.Site][]calltarget.Target{},
		Overrides: map[calltarget.Method][]calltarget.Target{method: {childOverride}},
		Callers:   map[calltarget.Target][]calltarget.Target{},
	}

	models := NewModelsHandle()
	models.Add(method, kindModel("Base"))
	models.Add(childOverride, kindModel("Child"))
	models.Add(baseOverride, taint.EmptyModel())

	d := New(Config[int]{Graph: graph, Models: models, Oracle: &stableOracle{}})
	err := d.Run(context.Background(), []calltarget.Target{baseOverride})
	require.NoError(t, err)

	got, ok := models.Get(baseOverride)
	require.True(t, ok)
	elem := got.Forward.Element.(taint.Element)
	assert.Contains(t, elem.Kinds, "Base")
	assert.Contains(t, elem.Kinds, "Child")
}

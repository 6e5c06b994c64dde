package tainted

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/calltarget"
	"github.com/pyscope-dev/pyscope/internal/diagnostics"
	"github.com/pyscope-dev/pyscope/internal/domain"
	"github.com/pyscope-dev/pyscope/internal/modeldsl"
	"github.com/pyscope-dev/pyscope/internal/parser"
	"github.com/pyscope-dev/pyscope/internal/taint"
)

func mustParse(t *testing.T, file, src string) *ast.Program {
	t.Helper()
	prog, errs := parser.Parse(file, src)
	require.Empty(t, errs)
	return prog
}

func sqlInjectionRule() Rule {
	return NewRule("sql_injection", 2001, "possible SQL injection", []string{"UserControlled"}, []string{"SQL"})
}

func TestAnalyzeDefineFindsDirectSourceToSinkFlow(t *testing.T) {
	prog := mustParse(t, "pkg.pys", "def process(x):\n    os.system(x)\n")
	locator := NewMapLocator(map[string]*ast.Program{"pkg": prog})

	dsl := modeldsl.Parse("rules.pysa", "def os.system(command: TaintSink[OSCommandInjection]): ...\n")
	require.Empty(t, dsl.Errors)
	models, signatures := Seed(dsl)

	analyzer := &Analyzer{Locator: locator, Rules: nil, Signatures: signatures}
	sinkRule := NewRule("os_command_injection", 2002, "possible OS command injection", []string{"UserControlled"}, []string{"OSCommandInjection"})
	analyzer.Rules = []Rule{sinkRule}

	previous := taint.EmptyModel()
	previous.Forward = domain.Assign(previous.Forward, paramPath("x"),
		&domain.Tree{Element: taint.NewElement(taint.ParameterSource{Name: "x"}, "UserControlled")}, false)

	getModel := func(target calltarget.Target) (*taint.Model, bool) {
		m, ok := models[target]
		return m, ok
	}

	issues, newModel, err := analyzer.AnalyzeDefine(context.Background(), "pkg", calltarget.Function{Name: "process"}, previous, getModel)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, 2002, issues[0].Code)
	assert.Equal(t, diagnostics.Error, issues[0].Severity)

	// the sink reachability is also summarized back onto process's own
	// parameter, so a caller passing tainted data into x can be flagged too.
	sinkElem, _ := domain.Read(newModel.Backward.SinkTree, paramPath("x"), true)
	se, ok := sinkElem.(taint.Element)
	require.True(t, ok)
	assert.Contains(t, se.Kinds, "OSCommandInjection")
}

func TestAnalyzeDefineNoFlowWhenRuleDoesNotMatch(t *testing.T) {
	prog := mustParse(t, "pkg.pys", "def process(x):\n    os.system(x)\n")
	locator := NewMapLocator(map[string]*ast.Program{"pkg": prog})

	dsl := modeldsl.Parse("rules.pysa", "def os.system(command: TaintSink[OSCommandInjection]): ...\n")
	require.Empty(t, dsl.Errors)
	models, signatures := Seed(dsl)

	analyzer := &Analyzer{
		Locator:    locator,
		Signatures: signatures,
		Rules:      []Rule{NewRule("sql_injection", 2001, "possible SQL injection", []string{"UserControlled"}, []string{"SQL"})},
	}

	previous := taint.EmptyModel()
	previous.Forward = domain.Assign(previous.Forward, paramPath("x"),
		&domain.Tree{Element: taint.NewElement(taint.ParameterSource{Name: "x"}, "UserControlled")}, false)

	getModel := func(target calltarget.Target) (*taint.Model, bool) {
		m, ok := models[target]
		return m, ok
	}

	issues, _, err := analyzer.AnalyzeDefine(context.Background(), "pkg", calltarget.Function{Name: "process"}, previous, getModel)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestAnalyzeDefinePropagatesLocalReturnTito(t *testing.T) {
	prog := mustParse(t, "pkg.pys", "def wrap(x):\n    return identity(x)\n")
	locator := NewMapLocator(map[string]*ast.Program{"pkg": prog})

	dsl := modeldsl.Parse("rules.pysa", "def pkg.identity(value: TaintInTaintOut[LocalReturn]): ...\n")
	require.Empty(t, dsl.Errors)
	models, signatures := Seed(dsl)
	// the call site resolves the bare name "identity"; key the stub the
	// same way so the analyzer's dottedCallName fallback finds it.
	aliasModels := map[calltarget.Target]*taint.Model{calltarget.Function{Name: "identity"}: models[TargetFor("pkg", "identity")]}
	aliasSignatures := map[calltarget.Target][]string{calltarget.Function{Name: "identity"}: signatures[TargetFor("pkg", "identity")]}

	analyzer := &Analyzer{Locator: locator, Signatures: aliasSignatures}

	previous := taint.EmptyModel()
	previous.Forward = domain.Assign(previous.Forward, paramPath("x"),
		&domain.Tree{Element: taint.NewElement(taint.ParameterSource{Name: "x"}, "UserControlled")}, false)

	getModel := func(target calltarget.Target) (*taint.Model, bool) {
		m, ok := aliasModels[target]
		return m, ok
	}

	_, newModel, err := analyzer.AnalyzeDefine(context.Background(), "pkg", calltarget.Function{Name: "wrap"}, previous, getModel)
	require.NoError(t, err)

	retElem, _ := domain.Read(newModel.Forward, returnPath(), true)
	re, ok := retElem.(taint.Element)
	require.True(t, ok)
	assert.Contains(t, re.Kinds, "UserControlled")
}

func TestAnalyzeDefineSkipAnalysisLeavesModelUnchanged(t *testing.T) {
	prog := mustParse(t, "pkg.pys", "def process(x):\n    os.system(x)\n")
	locator := NewMapLocator(map[string]*ast.Program{"pkg": prog})
	analyzer := &Analyzer{Locator: locator}

	previous := taint.EmptyModel()
	previous.Mode = taint.Mode{Kind: taint.SkipAnalysis}

	issues, newModel, err := analyzer.AnalyzeDefine(context.Background(), "pkg", calltarget.Function{Name: "process"}, previous, func(calltarget.Target) (*taint.Model, bool) { return nil, false })
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Same(t, previous, newModel)
}

func TestAnalyzeDefineSanitizeFiltersDeclaredSourceKind(t *testing.T) {
	prog := mustParse(t, "pkg.pys", "def process(x):\n    return x\n")
	locator := NewMapLocator(map[string]*ast.Program{"pkg": prog})
	analyzer := &Analyzer{Locator: locator}

	previous := taint.EmptyModel()
	previous.Forward = domain.Assign(previous.Forward, paramPath("x"),
		&domain.Tree{Element: taint.NewElement(taint.ParameterSource{Name: "x"}, "UserControlled", "Header")}, false)
	previous.Mode = taint.Mode{Kind: taint.Sanitize, Sources: taint.NewFilter("UserControlled")}

	_, newModel, err := analyzer.AnalyzeDefine(context.Background(), "pkg", calltarget.Function{Name: "process"}, previous, func(calltarget.Target) (*taint.Model, bool) { return nil, false })
	require.NoError(t, err)

	retElem, _ := domain.Read(newModel.Forward, returnPath(), true)
	re, ok := retElem.(taint.Element)
	require.True(t, ok)
	assert.NotContains(t, re.Kinds, "UserControlled")
	assert.Contains(t, re.Kinds, "Header")
}

func TestAnalyzeDefineUnlocatableTargetPassesThrough(t *testing.T) {
	analyzer := &Analyzer{Locator: MapLocator{}}
	previous := taint.EmptyModel()
	issues, newModel, err := analyzer.AnalyzeDefine(context.Background(), "pkg", calltarget.Object{Name: "pkg.SECRET"}, previous, func(calltarget.Target) (*taint.Model, bool) { return nil, false })
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Same(t, previous, newModel)
}

func TestAnalyzeDefineFindsGlobalModelSourceReachingSink(t *testing.T) {
	prog := mustParse(t, "pkg.pys", "def f():\n    eval(os.environ[\"X\"])\n")
	locator := NewMapLocator(map[string]*ast.Program{"pkg": prog})

	dsl := modeldsl.Parse("rules.pysa",
		"def eval(command: TaintSink[CodeExecution]): ...\nos.environ: TaintSource[UserControlled]\n")
	require.Empty(t, dsl.Errors)
	models, signatures := Seed(dsl)

	analyzer := &Analyzer{
		Locator:    locator,
		Signatures: signatures,
		Rules:      []Rule{NewRule("eval_injection", 2003, "possible code execution", []string{"UserControlled"}, []string{"CodeExecution"})},
	}

	getModel := func(target calltarget.Target) (*taint.Model, bool) {
		m, ok := models[target]
		return m, ok
	}

	issues, _, err := analyzer.AnalyzeDefine(context.Background(), "pkg", calltarget.Function{Name: "f"}, taint.EmptyModel(), getModel)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, 2003, issues[0].Code)
}

func TestSeedBuildsSignatureOrderedParameterNames(t *testing.T) {
	dsl := modeldsl.Parse("rules.pysa", "def pkg.handler(a: TaintSource[UserControlled], b: TaintSink[SQL]): ...\n")
	require.Empty(t, dsl.Errors)
	models, signatures := Seed(dsl)

	target := TargetFor("pkg", "handler")
	require.Contains(t, models, target)
	assert.Equal(t, []string{"a", "b"}, signatures[target])
}

func TestRuleMatchesRequiresBothSourceAndSinkKind(t *testing.T) {
	rule := sqlInjectionRule()
	assert.True(t, rule.Matches(map[string]struct{}{"UserControlled": {}}, map[string]struct{}{"SQL": {}}))
	assert.False(t, rule.Matches(map[string]struct{}{"UserControlled": {}}, map[string]struct{}{"XSS": {}}))
	assert.False(t, rule.Matches(map[string]struct{}{"Header": {}}, map[string]struct{}{"SQL": {}}))
}

package modeldsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyscope-dev/pyscope/internal/diagnostics"
)

func TestParseSignatureModelWithSourceAndSink(t *testing.T) {
	src := "def pkg.handler(request: TaintSource[UserControlled], response: TaintSink[XSS] = ...) -> TaintSource[Header]: ...\n"
	result := Parse("rules.pysa", src)
	require.Empty(t, result.Errors)
	require.Len(t, result.Models, 1)

	m := result.Models[0]
	assert.Equal(t, "pkg", m.Qualifier)
	assert.Equal(t, "handler", m.Target)
	require.Len(t, m.Parameters, 2)
	assert.True(t, m.Parameters[0].Taint.IsSource)
	assert.Contains(t, m.Parameters[0].Taint.Kinds, "UserControlled")
	assert.True(t, m.Parameters[1].Taint.IsSink)
	assert.Contains(t, m.Parameters[1].Taint.Kinds, "XSS")
	assert.True(t, m.Parameters[1].HasDefault)
	require.NotNil(t, m.Return)
	assert.True(t, m.Return.IsSource)
}

func TestParseInvalidDefaultValueIsReported(t *testing.T) {
	src := "def pkg.f(x: TaintSource[A] = None): ...\n"
	result := Parse("rules.pysa", src)
	require.Len(t, result.Errors, 1)
	var verr *diagnostics.ModelVerificationError
	require.ErrorAs(t, result.Errors[0], &verr)
	assert.Equal(t, diagnostics.InvalidDefaultValue, verr.Kind)
}

func TestParseUnrecognizedDecoratorIsReported(t *testing.T) {
	src := "@NotARealDecorator\ndef pkg.f(x: TaintSource[A]): ...\n"
	result := Parse("rules.pysa", src)
	require.Len(t, result.Errors, 1)
	var verr *diagnostics.ModelVerificationError
	require.ErrorAs(t, result.Errors[0], &verr)
	assert.Equal(t, diagnostics.UnexpectedDecorators, verr.Kind)
	require.Len(t, result.Models, 1)
}

func TestParseSkipOverridesDecoratorRecorded(t *testing.T) {
	src := "@SkipOverrides\ndef pkg.Base.run(self: TaintSource[A]): ...\n"
	result := Parse("rules.pysa", src)
	require.Empty(t, result.Errors)
	assert.Contains(t, result.SkipOverrides, "pkg.Base.run")
}

func TestParseGlobalModel(t *testing.T) {
	src := "pkg.SECRET_KEY: TaintSink[Logging]\n"
	result := Parse("rules.pysa", src)
	require.Empty(t, result.Errors)
	require.Len(t, result.Globals, 1)
	assert.Equal(t, "pkg", result.Globals[0].Qualifier)
	assert.Equal(t, "SECRET_KEY", result.Globals[0].Name)
	assert.True(t, result.Globals[0].Taint.IsSink)
}

func TestParseModelQueryWithNameConstraintAndReturnsProduction(t *testing.T) {
	src := `ModelQuery(
    name="get_handlers",
    find="functions",
    where=[NameConstraint(regex="get_.*")],
    model=[Returns(TaintSource[UserControlled])]
)
`
	result := Parse("rules.pysa", src)
	require.Empty(t, result.Errors)
	require.Len(t, result.Queries, 1)

	q := result.Queries[0]
	assert.Equal(t, "get_handlers", q.Name)
	assert.Equal(t, "functions", q.Find)
	require.Len(t, q.Where, 1)
	assert.Equal(t, "NameConstraint", q.Where[0].Kind)
	assert.Equal(t, "get_.*", q.Where[0].Regex)
	require.Len(t, q.Model, 1)
	assert.Equal(t, "Returns", q.Model[0].Target)
	assert.True(t, q.Model[0].Taint.IsSource)
}

func TestParseModelQueryAnyOfConstraint(t *testing.T) {
	src := `ModelQuery(
    name="q",
    find="methods",
    where=[AnyOf(NameConstraint(regex="a"), NameConstraint(regex="b"))],
    model=[AllParameters(TaintSink[SQL], exclude=[self])]
)
`
	result := Parse("rules.pysa", src)
	require.Empty(t, result.Errors)
	require.Len(t, result.Queries, 1)
	where := result.Queries[0].Where[0]
	assert.Equal(t, "AnyOf", where.Kind)
	require.Len(t, where.Nested, 2)
	assert.Equal(t, "a", where.Nested[0].Regex)

	prod := result.Queries[0].Model[0]
	assert.Equal(t, "AllParameters", prod.Target)
	assert.Contains(t, prod.Exclude, "self")
}

func TestFilterKindsDropsUnreachableSourceKindsAndClearsEmptyAnnotations(t *testing.T) {
	src := "def pkg.handler(x: TaintSource[UserControlled], y: TaintSource[Header]): ...\n"
	result := Parse("rules.pysa", src)
	require.Empty(t, result.Errors)

	filtered := FilterKinds(result, map[string]bool{"UserControlled": true}, nil)
	require.Len(t, filtered.Models, 1)
	params := filtered.Models[0].Parameters
	require.Len(t, params, 2)
	assert.True(t, params[0].Taint.IsSource)
	assert.Equal(t, []string{"UserControlled"}, params[0].Taint.Kinds)
	assert.False(t, params[1].Taint.IsSource, "Header is unreachable once only UserControlled is kept")
	assert.Empty(t, params[1].Taint.Kinds)
}

func TestEvaluateQueriesProducesExactlyMatchingModels(t *testing.T) {
	src := `ModelQuery(
    name="handlers",
    find="functions",
    where=[NameConstraint("^handle_")],
    model=[ReturnTaint(TaintSource[UserSpecified])]
)
`
	result := Parse("rules.pysa", src)
	require.Empty(t, result.Errors)
	require.Len(t, result.Queries, 1)

	candidates := []Candidate{
		{Target: "handle_one", Kind: "functions"},
		{Target: "handle_two", Kind: "functions"},
		{Target: "handle_three", Kind: "functions"},
		{Target: "other_one", Kind: "functions"},
		{Target: "other_two", Kind: "functions"},
	}

	models := EvaluateQueries(result.Queries, candidates)
	require.Len(t, models, 3)
	for _, m := range models {
		require.NotNil(t, m.Return)
		assert.True(t, m.Return.IsSource)
		assert.Equal(t, []string{"UserSpecified"}, m.Return.Kinds)
	}
}

// fakeEnv is a minimal SignatureEnv for exercising Verify.
type fakeEnv struct {
	sigs map[string][]string
}

func (f fakeEnv) Lookup(qualifier, target string) ([]string, bool) {
	params, ok := f.sigs[qualifier+"."+target]
	return params, ok
}

func TestVerifyReportsNotInEnvironmentButKeepsOtherModels(t *testing.T) {
	src := "def pkg.missing(x: TaintSource[A]): ...\ndef pkg.real(x: TaintSource[A]): ...\n"
	result := Parse("rules.pysa", src)
	require.Empty(t, result.Errors)
	require.Len(t, result.Models, 2)

	env := fakeEnv{sigs: map[string][]string{"pkg.real": {"x"}}}
	Verify(result, env)

	require.Len(t, result.Errors, 1)
	var verr *diagnostics.ModelVerificationError
	require.ErrorAs(t, result.Errors[0], &verr)
	assert.Equal(t, diagnostics.NotInEnvironment, verr.Kind)
	assert.Equal(t, "pkg.missing", verr.Target)
	// the valid model is untouched — verification never drops a sibling rule.
	require.Len(t, result.Models, 2)
}

func TestVerifyReportsParameterMismatch(t *testing.T) {
	src := "def pkg.f(bogus: TaintSource[A]): ...\n"
	result := Parse("rules.pysa", src)
	require.Empty(t, result.Errors)

	env := fakeEnv{sigs: map[string][]string{"pkg.f": {"x", "y"}}}
	Verify(result, env)

	require.Len(t, result.Errors, 1)
	var verr *diagnostics.ModelVerificationError
	require.ErrorAs(t, result.Errors[0], &verr)
	assert.Equal(t, diagnostics.ParameterMismatch, verr.Kind)
	assert.Equal(t, diagnostics.UnexpectedKeyword, verr.Reason)
}

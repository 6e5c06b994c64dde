package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyscope-dev/pyscope/internal/ast"
)

func TestParseSimpleFunction(t *testing.T) {
	src := "def add(x: int, y: int) -> int:\n    return x + y\n"
	prog, errs := Parse("m.pys", src)
	require.Empty(t, errs)
	require.Len(t, prog.Statements, 1)

	fn, ok := prog.Statements[0].(*ast.FunctionDef)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Parameters, 2)
	assert.Equal(t, "x", fn.Parameters[0].Name)
	require.Len(t, fn.Body, 1)
	ret, ok := fn.Body[0].(*ast.ReturnStatement)
	require.True(t, ok)
	bin, ok := ret.Value.(*ast.BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
}

func TestParseClassWithDecorator(t *testing.T) {
	src := "class Foo(Base):\n    @staticmethod\n    def bar(self):\n        pass\n"
	prog, errs := Parse("m.pys", src)
	require.Empty(t, errs)
	require.Len(t, prog.Statements, 1)
	cls, ok := prog.Statements[0].(*ast.ClassDef)
	require.True(t, ok)
	assert.Equal(t, "Foo", cls.Name)
	require.Len(t, cls.Bases, 1)
	require.Len(t, cls.Body, 1)
	fn, ok := cls.Body[0].(*ast.FunctionDef)
	require.True(t, ok)
	require.Len(t, fn.Decorators, 1)
	assert.Equal(t, "staticmethod", fn.Decorators[0].Name)
}

func TestParseIfElifElse(t *testing.T) {
	src := "if x:\n    y = 1\nelif z:\n    y = 2\nelse:\n    y = 3\n"
	prog, errs := Parse("m.pys", src)
	require.Empty(t, errs)
	ifs, ok := prog.Statements[0].(*ast.IfStatement)
	require.True(t, ok)
	require.Len(t, ifs.Orelse, 1)
	elifStmt, ok := ifs.Orelse[0].(*ast.IfStatement)
	require.True(t, ok)
	require.Len(t, elifStmt.Orelse, 1)
}

func TestParseImportFromWildcard(t *testing.T) {
	src := "from pkg.mod import *\n"
	prog, errs := Parse("m.pys", src)
	require.Empty(t, errs)
	imp, ok := prog.Statements[0].(*ast.ImportFromStatement)
	require.True(t, ok)
	assert.True(t, imp.Wildcard)
	assert.Equal(t, "pkg.mod", imp.Qualifier)
}

func TestParseCallWithKeywordsAndStar(t *testing.T) {
	src := "f(1, *args, key=2)\n"
	prog, errs := Parse("m.pys", src)
	require.Empty(t, errs)
	exprStmt, ok := prog.Statements[0].(*ast.ExpressionStatement)
	require.True(t, ok)
	call, ok := exprStmt.Expr.(*ast.CallExpression)
	require.True(t, ok)
	require.Len(t, call.Arguments, 2)
	require.Len(t, call.Keywords, 1)
	assert.Equal(t, "key", call.Keywords[0].Name)
}

func TestParseModeDirective(t *testing.T) {
	src := "# pyscope: strict\ndef f():\n    pass\n"
	prog, errs := Parse("m.pys", src)
	require.Empty(t, errs)
	assert.Equal(t, ast.ModeStrict, prog.Mode)
}

func TestParseSuppressionComment(t *testing.T) {
	src := "x = bad_call()  # pys-ignore[14, 16]\n"
	prog, errs := Parse("m.pys", src)
	require.Empty(t, errs)
	require.Len(t, prog.Suppressions, 1)
	assert.Equal(t, []int{14, 16}, prog.Suppressions[0].Codes)
}

func TestParseRecoversFromBadStatement(t *testing.T) {
	src := "x = \ny = 1\n"
	_, errs := Parse("m.pys", src)
	assert.NotEmpty(t, errs)
}

func TestParseTryExceptFinally(t *testing.T) {
	src := "try:\n    risky()\nexcept ValueError as e:\n    handle(e)\nfinally:\n    cleanup()\n"
	prog, errs := Parse("m.pys", src)
	require.Empty(t, errs)
	tryStmt, ok := prog.Statements[0].(*ast.TryStatement)
	require.True(t, ok)
	require.Len(t, tryStmt.Handlers, 1)
	assert.Equal(t, "e", tryStmt.Handlers[0].Name)
	require.Len(t, tryStmt.Finally, 1)
}

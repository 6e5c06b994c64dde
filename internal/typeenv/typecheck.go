package typeenv

import (
	"sync"

	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/depgraph"
	"github.com/pyscope-dev/pyscope/internal/diagnostics"
	"github.com/pyscope-dev/pyscope/internal/typesystem"
)

const cacheTypeCheck = "typeenv.typecheck"

// funcSig is the minimum a call-site check needs about a module-level
// function: its parameter names (for keyword matching) and how many are
// required (no default).
type funcSig struct {
	names    []string
	required int
	variadic bool
}

// TypeCheckLayer is the topmost of the five layers (§4.E): it produces the
// type-check diagnostics the rest of the system exists to compute.
// Detail: a mode change (e.g. unsafe -> strict) that doesn't alter the
// AST shape only needs this layer re-run, never the ones below it.
type TypeCheckLayer struct {
	env      Source
	globals  *AnnotatedGlobalLayer
	classes  *ClassSummaryLayer
	tracker  *depgraph.Tracker

	mu    sync.RWMutex
	cache map[string][]diagnostics.Diagnostic
	keyOf map[string]depgraph.Registered
}

func NewTypeCheckLayer(env Source, globals *AnnotatedGlobalLayer, classes *ClassSummaryLayer, tracker *depgraph.Tracker) *TypeCheckLayer {
	return &TypeCheckLayer{
		env: env, globals: globals, classes: classes, tracker: tracker,
		cache: make(map[string][]diagnostics.Diagnostic), keyOf: make(map[string]depgraph.Registered),
	}
}

// Get returns the type-check diagnostics for qualifier.
func (l *TypeCheckLayer) Get(qualifier string, dependency *depgraph.Registered) []diagnostics.Diagnostic {
	selfKey := l.tracker.Register(depgraph.Key{Kind: depgraph.TypeCheckDefine, Name: qualifier})
	l.tracker.Read(cacheTypeCheck, qualifier, selfKey)
	if dependency != nil {
		l.tracker.Read(cacheTypeCheck, qualifier, *dependency)
	}

	l.mu.RLock()
	if d, ok := l.cache[qualifier]; ok {
		l.mu.RUnlock()
		return d
	}
	l.mu.RUnlock()

	source := l.env.Get(qualifier, &selfKey)
	var diags []diagnostics.Diagnostic
	if source != nil && source.Mode != ast.ModeIgnoreAllErrors {
		c := &checker{
			path:    source.Path.RelPath,
			globals: l.globals.Get(qualifier, &selfKey),
			funcs:   make(map[string]funcSig),
		}
		c.collectModuleNames(source.Program)
		diags = c.checkProgram(source.Program)
	}

	l.mu.Lock()
	l.cache[qualifier] = diags
	l.keyOf[qualifier] = selfKey
	l.mu.Unlock()
	return diags
}

// Update mirrors the lower layers; being the topmost layer, it doesn't
// report anything further upward.
func (l *TypeCheckLayer) Update(triggered []depgraph.Registered) {
	triggeredSet := make(map[depgraph.Registered]struct{}, len(triggered))
	for _, r := range triggered {
		triggeredSet[r] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	var slots []string
	for qualifier, key := range l.keyOf {
		if _, hit := triggeredSet[key]; hit {
			delete(l.cache, qualifier)
			delete(l.keyOf, qualifier)
			slots = append(slots, qualifier)
		}
	}
	l.tracker.Invalidate(cacheTypeCheck, slots)
}

// checker walks one module's AST accumulating diagnostics. It is not
// safe for concurrent use; TypeCheckLayer creates a fresh one per Get.
type checker struct {
	path    string
	globals map[string]typesystem.Type
	moduleNames map[string]bool
	funcs   map[string]funcSig
	diags   []diagnostics.Diagnostic
}

func (c *checker) collectModuleNames(prog *ast.Program) {
	c.moduleNames = make(map[string]bool)
	for _, stmt := range prog.Statements {
		switch n := stmt.(type) {
		case *ast.FunctionDef:
			c.moduleNames[n.Name] = true
			c.funcs[n.Name] = signatureOf(n)
		case *ast.ClassDef:
			c.moduleNames[n.Name] = true
		case *ast.ImportStatement:
			if n.Alias != nil {
				c.moduleNames[n.Alias.Value] = true
			} else {
				c.moduleNames[n.Qualifier] = true
			}
		case *ast.ImportFromStatement:
			for _, name := range n.Names {
				if name.Alias != "" {
					c.moduleNames[name.Alias] = true
				} else {
					c.moduleNames[name.Name] = true
				}
			}
		case *ast.AssignStatement:
			for _, t := range n.Targets {
				if ident, ok := t.(*ast.Identifier); ok {
					c.moduleNames[ident.Value] = true
				}
			}
		}
	}
}

func signatureOf(fn *ast.FunctionDef) funcSig {
	sig := funcSig{}
	for _, p := range fn.Parameters {
		if p.Variadic || p.KeywordAll {
			sig.variadic = true
			continue
		}
		sig.names = append(sig.names, p.Name)
		if p.Default == nil {
			sig.required++
		}
	}
	return sig
}

func (c *checker) checkProgram(prog *ast.Program) []diagnostics.Diagnostic {
	for _, stmt := range prog.Statements {
		c.checkStatement(stmt, c.moduleNames)
	}
	return c.diags
}

func (c *checker) emit(code int, loc ast.Position, end ast.Position, msg string) {
	c.diags = append(c.diags, diagnostics.Diagnostic{
		Code: code, Severity: diagnostics.Error,
		Location: diagnostics.Location{Path: c.path, Line: loc.Line, Col: loc.Column, EndLine: end.Line, EndCol: end.Column},
		Message: msg,
	})
}

// checkStatement recurses through one statement, using scope as the set
// of currently-bound names (module scope merged with a function's locals
// when inside a body).
func (c *checker) checkStatement(stmt ast.Statement, scope map[string]bool) {
	switch n := stmt.(type) {
	case *ast.FunctionDef:
		c.checkFunctionDef(n, scope)
	case *ast.ClassDef:
		inner := cloneScope(scope)
		for _, base := range n.Bases {
			c.checkExpr(base, scope)
		}
		for _, s := range n.Body {
			c.checkStatement(s, inner)
		}
	case *ast.AssignStatement:
		if n.Value != nil {
			c.checkExpr(n.Value, scope)
		}
		for _, t := range n.Targets {
			if ident, ok := t.(*ast.Identifier); ok {
				scope[ident.Value] = true
				continue
			}
			c.checkExpr(t, scope)
		}
		if n.Annotation != nil && n.Value != nil {
			c.checkAssignType(n)
		}
	case *ast.ReturnStatement:
		if n.Value != nil {
			c.checkExpr(n.Value, scope)
		}
	case *ast.ExpressionStatement:
		c.checkExpr(n.Expr, scope)
	case *ast.IfStatement:
		c.checkExpr(n.Condition, scope)
		for _, s := range n.Body {
			c.checkStatement(s, scope)
		}
		for _, s := range n.Orelse {
			c.checkStatement(s, scope)
		}
	case *ast.ForStatement:
		c.checkExpr(n.Iterable, scope)
		if ident, ok := n.Target.(*ast.Identifier); ok {
			scope[ident.Value] = true
		}
		for _, s := range n.Body {
			c.checkStatement(s, scope)
		}
	case *ast.WhileStatement:
		c.checkExpr(n.Condition, scope)
		for _, s := range n.Body {
			c.checkStatement(s, scope)
		}
	case *ast.TryStatement:
		for _, s := range n.Body {
			c.checkStatement(s, scope)
		}
		for _, h := range n.Handlers {
			if h.Name != "" {
				scope[h.Name] = true
			}
			for _, s := range h.Body {
				c.checkStatement(s, scope)
			}
		}
		for _, s := range n.Finally {
			c.checkStatement(s, scope)
		}
	case *ast.RaiseStatement:
		if n.Value != nil {
			c.checkExpr(n.Value, scope)
		}
	case *ast.GlobalStatement:
		for _, name := range n.Names {
			scope[name] = true
		}
	}
}

func (c *checker) checkFunctionDef(fn *ast.FunctionDef, outer map[string]bool) {
	scope := cloneScope(outer)
	for _, p := range fn.Parameters {
		scope[p.Name] = true
	}
	for _, s := range fn.Body {
		hoistAssignedNames(s, scope)
	}
	for _, s := range fn.Body {
		c.checkStatement(s, scope)
	}
	c.checkReturns(fn, scope)
}

// hoistAssignedNames pre-binds names assigned anywhere in a nested block so
// forward references within the same function don't false-positive as
// undefined, matching the target language's function-scoped binding.
func hoistAssignedNames(stmt ast.Statement, scope map[string]bool) {
	switch n := stmt.(type) {
	case *ast.AssignStatement:
		for _, t := range n.Targets {
			if ident, ok := t.(*ast.Identifier); ok {
				scope[ident.Value] = true
			}
		}
	case *ast.ForStatement:
		if ident, ok := n.Target.(*ast.Identifier); ok {
			scope[ident.Value] = true
		}
		for _, s := range n.Body {
			hoistAssignedNames(s, scope)
		}
	case *ast.IfStatement:
		for _, s := range n.Body {
			hoistAssignedNames(s, scope)
		}
		for _, s := range n.Orelse {
			hoistAssignedNames(s, scope)
		}
	case *ast.WhileStatement:
		for _, s := range n.Body {
			hoistAssignedNames(s, scope)
		}
	case *ast.TryStatement:
		for _, s := range n.Body {
			hoistAssignedNames(s, scope)
		}
		for _, h := range n.Handlers {
			if h.Name != "" {
				scope[h.Name] = true
			}
			for _, s := range h.Body {
				hoistAssignedNames(s, scope)
			}
		}
		for _, s := range n.Finally {
			hoistAssignedNames(s, scope)
		}
	case *ast.FunctionDef:
		scope[n.Name] = true
	case *ast.ClassDef:
		scope[n.Name] = true
	}
}

func cloneScope(scope map[string]bool) map[string]bool {
	out := make(map[string]bool, len(scope))
	for k, v := range scope {
		out[k] = v
	}
	return out
}

func (c *checker) checkExpr(expr ast.Expression, scope map[string]bool) {
	switch e := expr.(type) {
	case *ast.Identifier:
		if e.Value == "" || builtinNames[e.Value] || scope[e.Value] || c.globals[e.Value] != nil {
			return
		}
		c.emit(diagnostics.CodeUndefinedName, e.From, e.To, "undefined name \""+e.Value+"\"")
	case *ast.CallExpression:
		c.checkExpr(e.Function, scope)
		for _, a := range e.Arguments {
			c.checkExpr(a, scope)
		}
		for _, kw := range e.Keywords {
			c.checkExpr(kw.Value, scope)
		}
		c.checkCallArity(e, scope)
	case *ast.AttributeExpression:
		c.checkExpr(e.Value, scope)
	case *ast.SubscriptExpression:
		c.checkExpr(e.Value, scope)
		c.checkExpr(e.Index, scope)
	case *ast.BinaryExpression:
		c.checkExpr(e.Left, scope)
		c.checkExpr(e.Right, scope)
	case *ast.UnaryExpression:
		c.checkExpr(e.Operand, scope)
	case *ast.ListExpression:
		for _, el := range e.Elements {
			c.checkExpr(el, scope)
		}
	case *ast.TupleExpression:
		for _, el := range e.Elements {
			c.checkExpr(el, scope)
		}
	case *ast.DictExpression:
		for _, entry := range e.Entries {
			c.checkExpr(entry.Key, scope)
			c.checkExpr(entry.Value, scope)
		}
	case *ast.LambdaExpression:
		inner := cloneScope(scope)
		for _, p := range e.Parameters {
			inner[p.Name] = true
		}
		c.checkExpr(e.Body, inner)
	case *ast.StarredExpression:
		c.checkExpr(e.Value, scope)
	}
}

func (c *checker) checkCallArity(call *ast.CallExpression, scope map[string]bool) {
	ident, ok := call.Function.(*ast.Identifier)
	if !ok {
		return
	}
	sig, ok := c.funcs[ident.Value]
	if !ok || sig.variadic {
		return
	}
	positional := len(call.Arguments)
	if positional > len(sig.names) {
		c.emit(diagnostics.CodeTooManyArguments, call.From, call.To, "too many arguments to \""+ident.Value+"\"")
		return
	}
	if positional < sig.required && len(call.Keywords) == 0 {
		c.emit(diagnostics.CodeTooFewArguments, call.From, call.To, "too few arguments to \""+ident.Value+"\"")
		return
	}
	declared := make(map[string]bool, len(sig.names))
	for _, n := range sig.names {
		declared[n] = true
	}
	for _, kw := range call.Keywords {
		if !declared[kw.Name] {
			c.emit(diagnostics.CodeUnexpectedKeyword, call.From, call.To, "unexpected keyword argument \""+kw.Name+"\"")
		}
	}
}

func (c *checker) checkAssignType(assign *ast.AssignStatement) {
	expected := AnnotationToType(assign.Annotation)
	if IsAny(expected) {
		return
	}
	lit, ok := assign.Value.(*ast.Literal)
	if !ok {
		return
	}
	actual := LiteralType(lit)
	if _, err := typesystem.UnifyAllowExtra(expected, actual); err != nil {
		c.emit(diagnostics.CodeIncompatibleVariableType, assign.From, assign.To,
			"incompatible types in assignment: expected "+expected.String()+", got "+actual.String())
	}
}

func (c *checker) checkReturns(fn *ast.FunctionDef, scope map[string]bool) {
	if fn.Returns == nil {
		return
	}
	expected := AnnotationToType(fn.Returns)
	if IsAny(expected) {
		return
	}
	for _, stmt := range fn.Body {
		c.checkReturnsIn(stmt, expected)
	}
}

func (c *checker) checkReturnsIn(stmt ast.Statement, expected typesystem.Type) {
	switch n := stmt.(type) {
	case *ast.ReturnStatement:
		if n.Value == nil {
			return
		}
		lit, ok := n.Value.(*ast.Literal)
		if !ok {
			return
		}
		actual := LiteralType(lit)
		if _, err := typesystem.UnifyAllowExtra(expected, actual); err != nil {
			c.emit(diagnostics.CodeIncompatibleReturn, n.From, n.To,
				"incompatible return type: expected "+expected.String()+", got "+actual.String())
		}
	case *ast.IfStatement:
		for _, s := range n.Body {
			c.checkReturnsIn(s, expected)
		}
		for _, s := range n.Orelse {
			c.checkReturnsIn(s, expected)
		}
	case *ast.ForStatement:
		for _, s := range n.Body {
			c.checkReturnsIn(s, expected)
		}
	case *ast.WhileStatement:
		for _, s := range n.Body {
			c.checkReturnsIn(s, expected)
		}
	case *ast.TryStatement:
		for _, s := range n.Body {
			c.checkReturnsIn(s, expected)
		}
		for _, h := range n.Handlers {
			for _, s := range h.Body {
				c.checkReturnsIn(s, expected)
			}
		}
		for _, s := range n.Finally {
			c.checkReturnsIn(s, expected)
		}
	}
}

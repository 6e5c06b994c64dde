package tainted

import (
	"context"

	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/callgraph"
	"github.com/pyscope-dev/pyscope/internal/calltarget"
	"github.com/pyscope-dev/pyscope/internal/diagnostics"
	"github.com/pyscope-dev/pyscope/internal/domain"
	"github.com/pyscope-dev/pyscope/internal/fixpoint"
	"github.com/pyscope-dev/pyscope/internal/taint"
)

const defaultCollapseDepth = 4

// Analyzer is the reference §4.J oracle: a single linear pass over a
// define's body, tracking each local's forward taint and summarizing, at
// the end, what reaches the return value (Forward), what reaches a
// modeled sink through this callable's own parameters (Backward.SinkTree)
// and what TITO facts this callable itself declares (Backward.TitoTree,
// carried through unchanged from the seeded/previous model — this
// analyzer only infers new sink facts, not new passthrough facts, a
// deliberate scope cut recorded in DESIGN.md).
//
// It does not run a body-local fixpoint over loops/branches: branches
// join, loops execute their body once with a weak (joining) assignment
// discipline. This keeps analysis of one define itself non-iterative,
// leaving all iteration to the interprocedural driver (§4.G), at the cost
// of not discovering taint that only appears on a loop's second pass.
type Analyzer struct {
	Locator    Locator
	Graph      *callgraph.Graph
	Rules      []Rule
	Signatures map[calltarget.Target][]string

	// CollapseDepth bounds tree height after each define, matching
	// §8 property 3's "finite-height over the model lattice after
	// collapse/shape". Zero uses defaultCollapseDepth.
	CollapseDepth int
}

// AnalyzeDefine implements fixpoint.Oracle[[]diagnostics.Diagnostic].
func (a *Analyzer) AnalyzeDefine(ctx context.Context, qualifier string, target calltarget.Target, previous *taint.Model, getModel fixpoint.ModelLookup) ([]diagnostics.Diagnostic, *taint.Model, error) {
	if previous != nil && previous.Mode.Kind == taint.SkipAnalysis {
		return nil, previous, nil
	}
	select {
	case <-ctx.Done():
		return nil, previous, ctx.Err()
	default:
	}

	callable, ok := a.Locator.Lookup(target)
	if !ok || callable.Def == nil {
		return nil, previous, nil
	}

	w := &walker{
		analyzer:    a,
		qualifier:   qualifier,
		target:      target,
		getModel:    getModel,
		locals:      make(map[string]*domain.Tree),
		returnTaint: domain.Bottom(),
		sinkHits:    make(map[string]*domain.Tree),
	}
	if previous != nil {
		for _, p := range callable.Def.Parameters {
			if elem, _ := domain.Read(previous.Forward, paramPath(p.Name), true); elem != nil && !elem.IsBottom() {
				w.locals[p.Name] = &domain.Tree{Element: elem}
			}
		}
	}
	w.walkStatements(callable.Def.Body)

	collapse := a.CollapseDepth
	if collapse <= 0 {
		collapse = defaultCollapseDepth
	}

	newModel := &taint.Model{
		Forward: domain.CollapseTo(domain.Assign(orEmptyForward(previous), returnPath(), w.returnTaint, false), collapse),
		Backward: taint.BackwardModel{
			SinkTree: domain.CollapseTo(mergeSinkHits(previousBackward(previous).SinkTree, w.sinkHits), collapse),
			TitoTree: domain.CollapseTo(previousBackward(previous).TitoTree, collapse),
		},
		Mode: modeOf(previous),
	}

	if newModel.Mode.Kind == taint.Sanitize {
		newModel.Forward = taint.FilterKinds(newModel.Forward, newModel.Mode.Sources)
		newModel.Backward.SinkTree = taint.FilterKinds(newModel.Backward.SinkTree, newModel.Mode.Sinks)
		if newModel.Mode.Tito != nil {
			newModel.Backward.TitoTree = domain.Bottom()
		}
	}

	return w.issues, newModel, nil
}

func orEmptyForward(previous *taint.Model) *domain.Tree {
	if previous == nil {
		return domain.Bottom()
	}
	return previous.Forward
}

func previousBackward(previous *taint.Model) taint.BackwardModel {
	if previous == nil {
		return taint.BackwardModel{SinkTree: domain.Bottom(), TitoTree: domain.Bottom()}
	}
	return previous.Backward
}

func modeOf(previous *taint.Model) taint.Mode {
	if previous == nil {
		return taint.Mode{Kind: taint.Normal}
	}
	return previous.Mode
}

func mergeSinkHits(existing *domain.Tree, hits map[string]*domain.Tree) *domain.Tree {
	out := existing
	if out == nil {
		out = domain.Bottom()
	}
	for name, tree := range hits {
		out = domain.Assign(out, paramPath(name), tree, true)
	}
	return out
}

// walker carries the per-define analysis state for one AnalyzeDefine call.
type walker struct {
	analyzer  *Analyzer
	qualifier string
	target    calltarget.Target
	getModel  fixpoint.ModelLookup

	locals      map[string]*domain.Tree
	returnTaint *domain.Tree
	sinkHits    map[string]*domain.Tree
	issues      []diagnostics.Diagnostic
}

func (w *walker) walkStatements(stmts []ast.Statement) {
	for _, s := range stmts {
		w.walkStatement(s)
	}
}

func (w *walker) walkStatement(stmt ast.Statement) {
	switch n := stmt.(type) {
	case *ast.AssignStatement:
		val := w.evalExpr(n.Value)
		for _, target := range n.Targets {
			w.assign(target, val)
		}
	case *ast.ReturnStatement:
		w.returnTaint = domain.Join(w.returnTaint, w.evalExpr(n.Value))
	case *ast.ExpressionStatement:
		w.evalExpr(n.Expr)
	case *ast.IfStatement:
		w.evalExpr(n.Condition)
		w.walkStatements(n.Body)
		w.walkStatements(n.Orelse)
	case *ast.ForStatement:
		iter := w.evalExpr(n.Iterable)
		if ident, ok := n.Target.(*ast.Identifier); ok {
			w.locals[ident.Value] = domain.Join(w.locals[ident.Value], iter)
		}
		w.walkStatements(n.Body)
	case *ast.WhileStatement:
		w.evalExpr(n.Condition)
		w.walkStatements(n.Body)
	case *ast.TryStatement:
		w.walkStatements(n.Body)
		for _, h := range n.Handlers {
			w.walkStatements(h.Body)
		}
		w.walkStatements(n.Finally)
	case *ast.RaiseStatement:
		w.evalExpr(n.Value)
	}
}

func (w *walker) assign(target ast.Expression, val *domain.Tree) {
	switch t := target.(type) {
	case *ast.Identifier:
		w.locals[t.Value] = domain.Join(w.locals[t.Value], val)
	case *ast.AttributeExpression:
		w.assign(t.Value, val)
	case *ast.SubscriptExpression:
		w.assign(t.Value, val)
	case *ast.TupleExpression:
		for _, e := range t.Elements {
			w.assign(e, val)
		}
	case *ast.ListExpression:
		for _, e := range t.Elements {
			w.assign(e, val)
		}
	}
}

func (w *walker) evalExpr(e ast.Expression) *domain.Tree {
	switch n := e.(type) {
	case nil:
		return domain.Bottom()
	case *ast.Identifier:
		if t, ok := w.locals[n.Value]; ok {
			return t
		}
		return domain.Bottom()
	case *ast.Literal:
		return domain.Bottom()
	case *ast.AttributeExpression:
		acc := w.evalExpr(n.Value)
		if name, ok := dottedCallName(n); ok {
			if model, ok := w.getModel(calltarget.Object{Name: name}); ok && model != nil {
				if root, _ := domain.Read(model.Forward, nil, true); root != nil {
					acc = domain.Join(acc, &domain.Tree{Element: root})
				}
			}
		}
		return acc
	case *ast.SubscriptExpression:
		return domain.Join(w.evalExpr(n.Value), w.evalExpr(n.Index))
	case *ast.BinaryExpression:
		return domain.Join(w.evalExpr(n.Left), w.evalExpr(n.Right))
	case *ast.UnaryExpression:
		return w.evalExpr(n.Operand)
	case *ast.ListExpression:
		return w.joinAll(n.Elements)
	case *ast.TupleExpression:
		return w.joinAll(n.Elements)
	case *ast.DictExpression:
		acc := domain.Bottom()
		for _, entry := range n.Entries {
			acc = domain.Join(acc, w.evalExpr(entry.Key))
			acc = domain.Join(acc, w.evalExpr(entry.Value))
		}
		return acc
	case *ast.StarredExpression:
		return w.evalExpr(n.Value)
	case *ast.CallExpression:
		return w.evalCall(n)
	default:
		return domain.Bottom()
	}
}

func (w *walker) joinAll(exprs []ast.Expression) *domain.Tree {
	acc := domain.Bottom()
	for _, e := range exprs {
		acc = domain.Join(acc, w.evalExpr(e))
	}
	return acc
}

func (w *walker) evalCall(call *ast.CallExpression) *domain.Tree {
	argTrees := make([]*domain.Tree, len(call.Arguments))
	for i, a := range call.Arguments {
		argTrees[i] = w.evalExpr(a)
	}
	for _, kw := range call.Keywords {
		w.evalExpr(kw.Value)
	}

	result := domain.Bottom()
	for _, target := range w.resolveCallTargets(call) {
		calleeModel, ok := w.getModel(target)
		if !ok || calleeModel == nil {
			continue
		}
		result = domain.Join(result, w.applyCallee(call, target, calleeModel, argTrees))
	}
	return result
}

func (w *walker) resolveCallTargets(call *ast.CallExpression) []calltarget.Target {
	if w.analyzer.Graph != nil {
		site := callgraph.Site{Qualifier: w.qualifier, Line: call.From.Line, Col: call.From.Column}
		if targets, ok := w.analyzer.Graph.Sites[site]; ok && len(targets) > 0 {
			return targets
		}
	}
	if name, ok := dottedCallName(call.Function); ok {
		return []calltarget.Target{calltarget.Function{Name: name}}
	}
	return nil
}

func dottedCallName(e ast.Expression) (string, bool) {
	switch n := e.(type) {
	case *ast.Identifier:
		return n.Value, true
	case *ast.AttributeExpression:
		base, ok := dottedCallName(n.Value)
		if !ok {
			return "", false
		}
		return base + "." + n.Attr, true
	default:
		return "", false
	}
}

func (w *walker) paramNames(target calltarget.Target) []string {
	if names, ok := w.analyzer.Signatures[target]; ok {
		return names
	}
	if callable, ok := w.analyzer.Locator.Lookup(target); ok && callable.Def != nil {
		names := make([]string, len(callable.Def.Parameters))
		for i, p := range callable.Def.Parameters {
			names[i] = p.Name
		}
		return names
	}
	return nil
}

// applyCallee folds one resolved callee's model into the call expression's
// evaluated taint, checks every argument against the callee's declared
// sinks (emitting issues), propagates newly-discovered sink reachability
// back onto this callable's own tainted parameters, and applies any
// TITO facts the callee declares (return-passthrough or mutation of
// another argument).
func (w *walker) applyCallee(call *ast.CallExpression, target calltarget.Target, calleeModel *taint.Model, argTrees []*domain.Tree) *domain.Tree {
	callTaint := domain.Bottom()

	if retElem, _ := domain.Read(calleeModel.Forward, returnPath(), true); retElem != nil && !retElem.IsBottom() {
		callTaint = domain.Join(callTaint, &domain.Tree{Element: retElem})
	}

	names := w.paramNames(target)
	for i, argTree := range argTrees {
		if i >= len(names) {
			break
		}
		name := names[i]
		argElem, _ := leafElement(argTree)

		if sinkElem, _ := domain.Read(calleeModel.Backward.SinkTree, paramPath(name), true); sinkElem != nil && !sinkElem.IsBottom() {
			if se, ok := sinkElem.(taint.Element); ok {
				if ae, ok := argElem.(taint.Element); ok && !ae.IsBottom() {
					w.checkRules(call, ae.Kinds, se.Kinds)
					w.propagateSinkToOwnParams(ae, se.Kinds)
				}
			}
		}

		if titoElem, _ := domain.Read(calleeModel.Backward.TitoTree, paramPath(name), true); titoElem != nil {
			if te, ok := titoElem.(taint.TitoElement); ok {
				for tag := range te.Tags {
					switch tag.Kind {
					case taint.LocalReturn:
						callTaint = domain.Join(callTaint, argTree)
					case taint.ParameterUpdate:
						w.applyParameterUpdate(call, target, tag.ParamIndex, argTree)
					}
				}
			}
		}
	}
	return callTaint
}

func leafElement(t *domain.Tree) (domain.Element, bool) {
	if t == nil || t.Element == nil {
		return nil, false
	}
	return t.Element, true
}

// applyParameterUpdate routes a declared Updates[idx] TITO fact to the
// right local variable. idx 0 on a Method/Override names the implicit
// receiver (the DSL's `Updates[self]` convention, resolved by
// modeldsl.applyNode), which is the call's receiver expression rather
// than a member of call.Arguments; every other index shifts down by one
// to land on the matching explicit argument.
func (w *walker) applyParameterUpdate(call *ast.CallExpression, target calltarget.Target, idx int, value *domain.Tree) {
	switch target.(type) {
	case calltarget.Method, calltarget.Override:
		if idx == 0 {
			if attr, ok := call.Function.(*ast.AttributeExpression); ok {
				if recv, ok := attr.Value.(*ast.Identifier); ok {
					w.locals[recv.Value] = domain.Join(w.locals[recv.Value], value)
				}
			}
			return
		}
		idx--
	}
	if idx < 0 || idx >= len(call.Arguments) {
		return
	}
	if ident, ok := call.Arguments[idx].(*ast.Identifier); ok {
		w.locals[ident.Value] = domain.Join(w.locals[ident.Value], value)
	}
}

// propagateSinkToOwnParams attributes a discovered sink reachability fact
// back to whichever of this callable's own parameters contributed argElem's
// taint, via the ParameterSource trace tag stamped on parameter-sourced
// leaves (see seedParamAnnotation). A value with no such trace (a local
// constant-derived or call-derived taint) has no parameter to summarize
// onto and is dropped — it already produced its issue via checkRules.
func (w *walker) propagateSinkToOwnParams(argElem taint.Element, sinkKinds map[string]struct{}) {
	kinds := make([]string, 0, len(sinkKinds))
	for k := range sinkKinds {
		kinds = append(kinds, k)
	}
	for trace := range argElem.Traces {
		ps, ok := trace.(taint.ParameterSource)
		if !ok {
			continue
		}
		elem := taint.NewElement(taint.Declaration{LeafNameProvided: true}, kinds...)
		w.sinkHits[ps.Name] = domain.Join(orBottomTree(w.sinkHits[ps.Name]), &domain.Tree{Element: elem})
	}
}

func orBottomTree(t *domain.Tree) *domain.Tree {
	if t == nil {
		return domain.Bottom()
	}
	return t
}

func (w *walker) checkRules(call *ast.CallExpression, sourceKinds, sinkKinds map[string]struct{}) {
	for _, rule := range w.analyzer.Rules {
		if !rule.Matches(sourceKinds, sinkKinds) {
			continue
		}
		loc := diagnostics.Location{
			Path: w.qualifier, Line: call.From.Line, Col: call.From.Column,
			EndLine: call.To.Line, EndCol: call.To.Column,
		}
		w.issues = append(w.issues, diagnostics.Diagnostic{
			Code:       rule.Code,
			Severity:   diagnostics.Error,
			Location:   loc,
			Message:    rule.Message,
			TaintTrace: []diagnostics.TraceStep{{Location: loc, Description: rule.Name}},
		})
	}
}

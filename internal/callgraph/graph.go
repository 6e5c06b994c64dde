// Package callgraph builds the Call Graph & Override Graph of §4.F: a
// mapping from call sites to the set of Targets they may invoke, and from
// a method to the set of classes in its subtree that re-declare it.
package callgraph

import (
	"sort"
	"strconv"

	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/calltarget"
)

// Site identifies one call expression within a module.
type Site struct {
	Qualifier string
	Line      int
	Col       int
}

func (s Site) String() string {
	return s.Qualifier + ":" + strconv.Itoa(s.Line) + ":" + strconv.Itoa(s.Col)
}

// Graph is the built call graph plus override graph for a set of modules.
// It is a plain value object, rebuilt wholesale by a Builder and read back
// through Builder.Graph — the
// fixpoint driver (§4.G) treats it as an immutable snapshot for the
// duration of one run, same as 4.B's model storage treats an epoch.
type Graph struct {
	Sites     map[Site][]calltarget.Target
	Overrides map[calltarget.Method][]calltarget.Target // always Override values, sorted by class name

	// Callers maps a target to the set of targets whose body contains a
	// call site resolving to it — the reverse edges the fixpoint driver's
	// work-list expansion needs (§4.G step 5, "plus all their callers in
	// the dependency graph").
	Callers map[calltarget.Target][]calltarget.Target
}

// CallersOf returns the targets known to call t, deduplicated.
func (g *Graph) CallersOf(t calltarget.Target) []calltarget.Target {
	return g.Callers[t]
}

// Builder walks module ASTs and records call sites and class hierarchy
// edges into a Graph. It resolves base classes the same way
// typeenv.AttributeResolverLayer does — depth-first, same-module only —
// so the two stay consistent.
type Builder struct {
	graph *Graph

	moduleFuncs map[string]bool            // qualifier-local function names declared at module scope
	classBodies map[string]map[string]bool // class name -> set of method names it declares directly
	baseOf      map[string][]string        // class name -> declared base class names
}

// NewBuilder constructs an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		graph: &Graph{
			Sites:     make(map[Site][]calltarget.Target),
			Overrides: make(map[calltarget.Method][]calltarget.Target),
			Callers:   make(map[calltarget.Target][]calltarget.Target),
		},
		moduleFuncs: make(map[string]bool),
		classBodies: make(map[string]map[string]bool),
		baseOf:      make(map[string][]string),
	}
}

// Graph returns the graph accumulated so far across every Add call.
func (b *Builder) Graph() *Graph { return b.graph }

// Add walks one module's program, recording its module-level functions,
// its classes' directly-declared methods and bases, and every call site
// it contains. Call Add once per module before calling ResolveOverrides.
func (b *Builder) Add(qualifier string, prog *ast.Program) {
	for _, stmt := range prog.Statements {
		switch n := stmt.(type) {
		case *ast.FunctionDef:
			b.moduleFuncs[n.Name] = true
		case *ast.ClassDef:
			b.recordClass(n)
		}
	}
	for _, stmt := range prog.Statements {
		b.walkStatement(qualifier, stmt, "", nil)
	}
}

func (b *Builder) recordClass(cls *ast.ClassDef) {
	methods := make(map[string]bool)
	var bases []string
	for _, base := range cls.Bases {
		if ident, ok := base.(*ast.Identifier); ok {
			bases = append(bases, ident.Value)
		}
	}
	for _, stmt := range cls.Body {
		if fn, ok := stmt.(*ast.FunctionDef); ok {
			methods[fn.Name] = true
		}
	}
	b.classBodies[cls.Name] = methods
	b.baseOf[cls.Name] = bases
}

// walkStatement recurses through stmt, tracking enclosingClass (for
// resolving `self.foo()` against the enclosing class's hierarchy) and
// enclosing (the Target whose body we're currently inside, for recording
// caller edges; nil at module scope outside any def).
func (b *Builder) walkStatement(qualifier string, stmt ast.Statement, enclosingClass string, enclosing calltarget.Target) {
	switch n := stmt.(type) {
	case *ast.ClassDef:
		for _, s := range n.Body {
			b.walkStatement(qualifier, s, n.Name, enclosing)
		}
	case *ast.FunctionDef:
		inner := functionTarget(n.Name, enclosingClass)
		for _, s := range n.Body {
			b.walkStatement(qualifier, s, enclosingClass, inner)
		}
	case *ast.IfStatement:
		b.walkExpr(qualifier, n.Condition, enclosingClass, enclosing)
		for _, s := range n.Body {
			b.walkStatement(qualifier, s, enclosingClass, enclosing)
		}
		for _, s := range n.Orelse {
			b.walkStatement(qualifier, s, enclosingClass, enclosing)
		}
	case *ast.ForStatement:
		b.walkExpr(qualifier, n.Iterable, enclosingClass, enclosing)
		for _, s := range n.Body {
			b.walkStatement(qualifier, s, enclosingClass, enclosing)
		}
	case *ast.WhileStatement:
		b.walkExpr(qualifier, n.Condition, enclosingClass, enclosing)
		for _, s := range n.Body {
			b.walkStatement(qualifier, s, enclosingClass, enclosing)
		}
	case *ast.TryStatement:
		for _, s := range n.Body {
			b.walkStatement(qualifier, s, enclosingClass, enclosing)
		}
		for _, h := range n.Handlers {
			for _, s := range h.Body {
				b.walkStatement(qualifier, s, enclosingClass, enclosing)
			}
		}
		for _, s := range n.Finally {
			b.walkStatement(qualifier, s, enclosingClass, enclosing)
		}
	case *ast.AssignStatement:
		if n.Value != nil {
			b.walkExpr(qualifier, n.Value, enclosingClass, enclosing)
		}
	case *ast.ReturnStatement:
		if n.Value != nil {
			b.walkExpr(qualifier, n.Value, enclosingClass, enclosing)
		}
	case *ast.ExpressionStatement:
		b.walkExpr(qualifier, n.Expr, enclosingClass, enclosing)
	case *ast.RaiseStatement:
		if n.Value != nil {
			b.walkExpr(qualifier, n.Value, enclosingClass, enclosing)
		}
	}
}

// functionTarget builds the Target identity for a def: Method{class,name}
// inside a class body, Function{name} at module scope.
func functionTarget(name, enclosingClass string) calltarget.Target {
	if enclosingClass == "" {
		return calltarget.Function{Name: name}
	}
	return calltarget.Method{Class: enclosingClass, Name: name}
}

func (b *Builder) walkExpr(qualifier string, expr ast.Expression, enclosingClass string, enclosing calltarget.Target) {
	switch e := expr.(type) {
	case *ast.CallExpression:
		for _, a := range e.Arguments {
			b.walkExpr(qualifier, a, enclosingClass, enclosing)
		}
		for _, kw := range e.Keywords {
			b.walkExpr(qualifier, kw.Value, enclosingClass, enclosing)
		}
		b.walkExpr(qualifier, e.Function, enclosingClass, enclosing)
		b.recordCallSite(qualifier, e, enclosingClass, enclosing)
	case *ast.AttributeExpression:
		b.walkExpr(qualifier, e.Value, enclosingClass, enclosing)
	case *ast.BinaryExpression:
		b.walkExpr(qualifier, e.Left, enclosingClass, enclosing)
		b.walkExpr(qualifier, e.Right, enclosingClass, enclosing)
	case *ast.UnaryExpression:
		b.walkExpr(qualifier, e.Operand, enclosingClass, enclosing)
	case *ast.SubscriptExpression:
		b.walkExpr(qualifier, e.Value, enclosingClass, enclosing)
		b.walkExpr(qualifier, e.Index, enclosingClass, enclosing)
	case *ast.ListExpression:
		for _, el := range e.Elements {
			b.walkExpr(qualifier, el, enclosingClass, enclosing)
		}
	case *ast.TupleExpression:
		for _, el := range e.Elements {
			b.walkExpr(qualifier, el, enclosingClass, enclosing)
		}
	}
}

// recordCallSite resolves one call expression's target set: a bare name
// matching a module function resolves to Function{name}; `self.m(...)`
// inside a class body resolves to Method{enclosingClass,m} when m has no
// known overrides, or Override{decl,m} when m is inherited from decl
// rather than declared on enclosingClass, or when dynamic dispatch is
// possible (some class derived from decl re-declares m). When enclosing is
// non-nil, every resolved target also gets a reverse Callers edge
// recorded, once per distinct caller.
func (b *Builder) recordCallSite(qualifier string, call *ast.CallExpression, enclosingClass string, enclosing calltarget.Target) {
	site := Site{Qualifier: qualifier, Line: call.From.Line, Col: call.From.Column}

	var resolved calltarget.Target
	switch fn := call.Function.(type) {
	case *ast.Identifier:
		if b.moduleFuncs[fn.Value] {
			resolved = calltarget.Function{Name: fn.Value}
		}
	case *ast.AttributeExpression:
		recv, ok := fn.Value.(*ast.Identifier)
		if !ok || recv.Value != "self" || enclosingClass == "" {
			return
		}
		decl, declaredDirectly := b.declaringClass(enclosingClass, fn.Attr)
		if decl == "" {
			return
		}
		if !declaredDirectly || b.hasOverrides(decl, fn.Attr) {
			resolved = calltarget.Override{Class: decl, Name: fn.Attr}
		} else {
			resolved = calltarget.Method{Class: decl, Name: fn.Attr}
		}
	}
	if resolved == nil {
		return
	}
	b.graph.Sites[site] = append(b.graph.Sites[site], resolved)
	if enclosing != nil {
		for _, c := range b.graph.Callers[resolved] {
			if c == enclosing {
				return
			}
		}
		b.graph.Callers[resolved] = append(b.graph.Callers[resolved], enclosing)
	}
}

// declaringClass walks class's declared bases, depth-first, mirroring
// typeenv.AttributeResolverLayer.resolve, to find which class in the
// hierarchy directly declares method. The bool return is true when class
// itself is the declarer.
func (b *Builder) declaringClass(class, method string) (string, bool) {
	return b.declaringClassVisited(class, method, make(map[string]bool))
}

func (b *Builder) declaringClassVisited(class, method string, visited map[string]bool) (string, bool) {
	if visited[class] {
		return "", false
	}
	visited[class] = true
	if b.classBodies[class][method] {
		return class, true
	}
	for _, base := range b.baseOf[class] {
		if decl, _ := b.declaringClassVisited(base, method, visited); decl != "" {
			return decl, false
		}
	}
	return "", false
}

// hasOverrides reports whether any class transitively derived from decl
// (within the modules already Add-ed) re-declares method.
func (b *Builder) hasOverrides(decl, method string) bool {
	return len(b.overridingClasses(decl, method)) > 0
}

// overridingClasses returns, in deterministic (sorted) order, every class
// known to this Builder that both derives from decl (directly or
// transitively) and re-declares method in its own body.
func (b *Builder) overridingClasses(decl, method string) []string {
	var out []string
	for class, methods := range b.classBodies {
		if class == decl || !methods[method] {
			continue
		}
		if b.derivesFrom(class, decl, make(map[string]bool)) {
			out = append(out, class)
		}
	}
	sort.Strings(out)
	return out
}

func (b *Builder) derivesFrom(class, ancestor string, visited map[string]bool) bool {
	if visited[class] {
		return false
	}
	visited[class] = true
	for _, base := range b.baseOf[class] {
		if base == ancestor {
			return true
		}
		if b.derivesFrom(base, ancestor, visited) {
			return true
		}
	}
	return false
}

// ResolveOverrides populates graph.Overrides from every class body seen
// across all Add calls. Call this once after every module of interest has
// been added.
func (b *Builder) ResolveOverrides() {
	for class, methods := range b.classBodies {
		for method := range methods {
			overriders := b.overridingClasses(class, method)
			if len(overriders) == 0 {
				continue
			}
			key := calltarget.Method{Class: class, Name: method}
			targets := make([]calltarget.Target, 0, len(overriders))
			for _, cls := range overriders {
				targets = append(targets, calltarget.Override{Class: cls, Name: method})
			}
			b.graph.Overrides[key] = targets
		}
	}
}

// GetOverridingTypes returns, in deterministic order, the set of classes
// that re-declare method, per §4.F's `get_overriding_types`.
func (g *Graph) GetOverridingTypes(method calltarget.Method) []calltarget.Target {
	return g.Overrides[method]
}

// Package tainted is the reference Forward/Backward Analyzer of §4.J: the
// oracle the fixpoint driver calls once per target per iteration. §4.J
// describes this component "(interface only)" — `analyze_define(context,
// qualifier, callable, ast, previous_model, get_callee_model) -> (issues,
// new_model)` — so this package supplies a genuine, if intentionally
// single-pass, abstract interpreter rather than leaving the oracle
// unimplemented.
package tainted

import (
	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/calltarget"
)

// Callable is what the analyzer needs to walk one define: its qualifier
// (for diagnostic locations and Site lookups), the function body itself,
// and the enclosing class name (empty for a module-level Function).
type Callable struct {
	Qualifier      string
	Def            *ast.FunctionDef
	EnclosingClass string
}

// Locator maps a fixpoint Target to the callable it names. Object targets
// (globals/fields) and anything absent from the source set have no
// defining body; AnalyzeDefine treats those as a pass-through rather than
// an error, since not every Target in a run is a define.
type Locator interface {
	Lookup(target calltarget.Target) (Callable, bool)
}

// MapLocator is the straightforward Locator built once per run from every
// module's parsed Program — the shape cmd/pyscope assembles by walking
// the same module set the call graph builder (§4.F) already walked.
type MapLocator map[calltarget.Target]Callable

func (m MapLocator) Lookup(target calltarget.Target) (Callable, bool) {
	c, ok := m[target]
	return c, ok
}

// NewMapLocator builds a MapLocator from a qualifier -> Program map,
// recording every module-level FunctionDef as a Function and every class
// method as a Method, mirroring callgraph.Builder's own class/function
// bookkeeping so the two stay in lock-step over the same module set.
func NewMapLocator(programs map[string]*ast.Program) MapLocator {
	m := make(MapLocator)
	for qualifier, prog := range programs {
		for _, stmt := range prog.Statements {
			switch n := stmt.(type) {
			case *ast.FunctionDef:
				m[calltarget.Function{Name: n.Name}] = Callable{Qualifier: qualifier, Def: n}
			case *ast.ClassDef:
				for _, s := range n.Body {
					if fn, ok := s.(*ast.FunctionDef); ok {
						m[calltarget.Method{Class: n.Name, Name: fn.Name}] = Callable{
							Qualifier: qualifier, Def: fn, EnclosingClass: n.Name,
						}
						m[calltarget.Override{Class: n.Name, Name: fn.Name}] = Callable{
							Qualifier: qualifier, Def: fn, EnclosingClass: n.Name,
						}
					}
				}
			}
		}
	}
	return m
}

package modeldsl

import "github.com/pyscope-dev/pyscope/internal/diagnostics"

// Expr is the generic shape every taint annotation, model-query constraint,
// and model-query production parses into: a Python-call-like tree,
// `Name(arg, kw=arg, ...)` or `Name[arg, ...]` for the bracketed annotation
// spelling, or a bare Name/string literal at the leaves. Parsing the whole
// DSL into this one shape first, then interpreting it semantically in
// model.go/query.go, mirrors how internal/parser separates syntax
// (expressions.go) from meaning (typeenv's later checking passes) — here
// both stages just live in the same small package.
type Expr struct {
	Name    string
	Literal string
	IsStr   bool
	Args    []Arg
	Loc     diagnostics.Location
}

// Arg is one argument to a call-shaped Expr: positional when Keyword is
// empty, `keyword=value` otherwise.
type Arg struct {
	Keyword string
	Value   Expr
}

// Find returns the first positional or keyword argument matching name
// (keyword lookup) or, if name is empty, the first positional argument.
func (e Expr) Find(keyword string) (Expr, bool) {
	for _, a := range e.Args {
		if a.Keyword == keyword {
			return a.Value, true
		}
	}
	return Expr{}, false
}

// Positional returns every positional (keyword-less) argument, in order.
func (e Expr) Positional() []Expr {
	var out []Expr
	for _, a := range e.Args {
		if a.Keyword == "" {
			out = append(out, a.Value)
		}
	}
	return out
}

// Names returns the leaf identifier/string value of every positional
// argument that is itself a bare leaf — the common case of a plain name
// list, e.g. `AppliesTo[a, b, c]`. Positional arguments that are
// themselves compound nodes (e.g. a nested `Via[...]`) are skipped here;
// callers that care about those inspect e.Args directly.
func (e Expr) Names() []string {
	pos := e.Positional()
	out := make([]string, 0, len(pos))
	for _, p := range pos {
		if len(p.Args) > 0 {
			continue
		}
		if p.IsStr {
			out = append(out, p.Literal)
		} else if p.Name != "" {
			out = append(out, p.Name)
		}
	}
	return out
}

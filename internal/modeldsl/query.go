package modeldsl

import (
	"strconv"

	"github.com/pyscope-dev/pyscope/internal/diagnostics"
)

// Constraint is §4.I case 3's `where=[...]` vocabulary, flattened the same
// way TaintAnnotation flattens the annotation vocabulary: one struct, a
// Kind tag, and whichever fields that kind uses.
type Constraint struct {
	Kind     string // NameConstraint | ReturnConstraint | AnyParameterConstraint | ParentConstraint | DecoratorNameConstraint | AnyOf
	Regex    string
	Relation string // Equals | Extends, for ParentConstraint
	Operand  string
	Nested   []Constraint // AnyOf's branches, or AnyParameterConstraint's inner AnnotationConstraint
	Loc      diagnostics.Location
}

// Production is one `model=[...]` binding: taint attached to the return
// value, a named parameter, a positional index, or every parameter.
type Production struct {
	Target     string // "Returns" | a parameter name | "AllParameters"
	Index      *int
	Taint      TaintAnnotation
	Exclude    []string
	Loc        diagnostics.Location
}

// ModelQuery is §4.I case 3 in full.
type ModelQuery struct {
	Name  string
	Find  string // "functions" | "methods"
	Where []Constraint
	Model []Production
	Loc   diagnostics.Location
}

func (p *parser) parseModelQuery() {
	loc := p.loc()
	p.advance() // 'ModelQuery'
	e, ok := p.parseCallArgsFromOpen(loc)
	p.skipToNewline()
	if !ok {
		return
	}

	q := ModelQuery{Loc: loc}
	if name, ok := e.Find("name"); ok {
		q.Name = name.Literal
		if !name.IsStr {
			q.Name = name.Name
		}
	}
	if find, ok := e.Find("find"); ok {
		q.Find = find.Literal
	}
	if where, ok := e.Find("where"); ok {
		for _, c := range where.Args {
			q.Where = append(q.Where, toConstraint(c.Value))
		}
	}
	if model, ok := e.Find("model"); ok {
		for _, m := range model.Args {
			prod, err := toProduction(m.Value)
			if err != nil {
				p.result.Errors = append(p.result.Errors, err)
				continue
			}
			q.Model = append(q.Model, prod)
		}
	}
	p.result.Queries = append(p.result.Queries, q)
}

// parseCallArgsFromOpen parses `(args)` starting at the parser's current
// position (just after the callee name has already been consumed).
func (p *parser) parseCallArgsFromOpen(loc diagnostics.Location) (Expr, bool) {
	if !p.atOp("(") {
		p.errorf(loc, "expected '(' after 'ModelQuery'")
		return Expr{}, false
	}
	return p.parseCallArgs(Expr{Name: "ModelQuery", Loc: loc})
}

func toConstraint(e Expr) Constraint {
	c := Constraint{Kind: e.Name, Loc: e.Loc}
	switch e.Name {
	case "NameConstraint":
		if v, ok := e.Find("regex"); ok {
			c.Regex = v.Literal
		} else if len(e.Positional()) > 0 {
			c.Regex = e.Positional()[0].Literal
		}
	case "ReturnConstraint":
		if len(e.Positional()) > 0 {
			c.Operand = e.Positional()[0].Name
		}
	case "AnyParameterConstraint":
		for _, a := range e.Positional() {
			c.Nested = append(c.Nested, toConstraint(a))
		}
	case "AnnotationConstraint":
		if v, ok := e.Find("name"); ok {
			c.Operand = v.Literal
			if c.Operand == "" {
				c.Operand = v.Name
			}
		} else if len(e.Positional()) > 0 {
			c.Operand = e.Positional()[0].Literal
			if c.Operand == "" {
				c.Operand = e.Positional()[0].Name
			}
		}
	case "ParentConstraint":
		for _, a := range e.Args {
			if a.Keyword == "" {
				continue
			}
			c.Relation = a.Keyword
			if a.Value.IsStr {
				c.Operand = a.Value.Literal
			} else {
				c.Operand = a.Value.Name
			}
		}
	case "DecoratorNameConstraint":
		if len(e.Positional()) > 0 {
			c.Regex = e.Positional()[0].Literal
		}
	case "AnyOf":
		for _, a := range e.Args {
			c.Nested = append(c.Nested, toConstraint(a.Value))
		}
	}
	return c
}

func toProduction(e Expr) (Production, error) {
	switch e.Name {
	case "Returns", "ReturnTaint":
		if len(e.Positional()) == 0 {
			return Production{}, &diagnostics.ModelVerificationError{
				Kind: diagnostics.InvalidTaintAnnotation, Location: e.Loc,
				Detail: e.Name + "(...) production requires a taint annotation",
			}
		}
		ann, _ := toTaintAnnotation(e.Positional()[0])
		return Production{Target: e.Name, Taint: ann, Loc: e.Loc}, nil
	case "AllParameters":
		var ann TaintAnnotation
		var exclude []string
		if len(e.Positional()) > 0 {
			ann, _ = toTaintAnnotation(e.Positional()[0])
		}
		if ex, ok := e.Find("exclude"); ok {
			exclude = ex.Names()
		}
		return Production{Target: "AllParameters", Taint: ann, Exclude: exclude, Loc: e.Loc}, nil
	case "NamedParameter":
		name, _ := e.Find("name")
		var ann TaintAnnotation
		if len(e.Positional()) > 0 {
			ann, _ = toTaintAnnotation(e.Positional()[len(e.Positional())-1])
		}
		target := name.Literal
		if target == "" {
			target = name.Name
		}
		return Production{Target: target, Taint: ann, Loc: e.Loc}, nil
	case "PositionalParameter":
		idxExpr, _ := e.Find("index")
		idx, _ := strconv.Atoi(idxExpr.Name)
		var ann TaintAnnotation
		if len(e.Positional()) > 0 {
			ann, _ = toTaintAnnotation(e.Positional()[len(e.Positional())-1])
		}
		return Production{Target: "PositionalParameter", Index: &idx, Taint: ann, Loc: e.Loc}, nil
	default:
		return Production{}, &diagnostics.ModelVerificationError{
			Kind: diagnostics.InvalidTaintAnnotation, Location: e.Loc,
			Detail: "unrecognized model production " + e.Name,
		}
	}
}

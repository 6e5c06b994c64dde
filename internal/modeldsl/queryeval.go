package modeldsl

import "regexp"

// Candidate is one function, method, or class the project's AST exposes for
// ModelQuery matching (§4.I case 3's Find/Where evaluation). Its shape
// mirrors the bare, qualifier-less targets cmd/pyscope's own call-target
// enumeration builds from the same AST nodes, so a query's generated
// SignatureModel addresses exactly the target TargetFor/Seed would build
// for hand-written rule-file declarations.
type Candidate struct {
	Target     string // bare function name, or "Class.Method" for a method
	Kind       string // "functions" | "methods"
	Class      string // owning class name; empty for a bare function
	Bases      []string
	Parameters []CandidateParam
	Returns    string // leaf name of the return annotation; "" if unannotated
	Decorators []string
}

// CandidateParam is one parameter of a Candidate, reduced to the leaf
// shape constraint matching needs.
type CandidateParam struct {
	Name       string
	Annotation string // leaf name of the parameter's type annotation; "" if unannotated
}

// EvaluateQueries runs every parsed ModelQuery against candidates and
// returns the SignatureModels their productions build for every matching
// candidate — §4.I case 3's "rules generate models by matching against the
// program" in full. The result is meant to be appended to a ParseResult's
// Models before handing it to Seed.
func EvaluateQueries(queries []ModelQuery, candidates []Candidate) []SignatureModel {
	var out []SignatureModel
	for _, q := range queries {
		for _, c := range candidates {
			if !matchesQuery(q, c) {
				continue
			}
			out = append(out, buildModel(q, c))
		}
	}
	return out
}

func matchesQuery(q ModelQuery, c Candidate) bool {
	if q.Find != "" && q.Find != c.Kind {
		return false
	}
	for _, constraint := range q.Where {
		if !matchesConstraint(constraint, c) {
			return false
		}
	}
	return true
}

func matchesConstraint(c Constraint, cand Candidate) bool {
	switch c.Kind {
	case "NameConstraint":
		return regexMatches(c.Regex, cand.Target)
	case "ReturnConstraint":
		if cand.Returns == "" {
			return false
		}
		return c.Operand == "" || c.Operand == cand.Returns
	case "AnyParameterConstraint":
		for _, p := range cand.Parameters {
			if matchesAnyParameterConstraint(c.Nested, p) {
				return true
			}
		}
		return false
	case "ParentConstraint":
		switch c.Relation {
		case "Extends":
			for _, b := range cand.Bases {
				if b == c.Operand {
					return true
				}
			}
			return false
		default: // "Equals"
			return cand.Class == c.Operand
		}
	case "DecoratorNameConstraint":
		for _, d := range cand.Decorators {
			if regexMatches(c.Regex, d) {
				return true
			}
		}
		return false
	case "AnyOf":
		for _, nested := range c.Nested {
			if matchesConstraint(nested, cand) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// matchesAnyParameterConstraint evaluates the inner constraints
// AnyParameterConstraint(...) carries against a single parameter. Only the
// parameter-scoped constraint kinds (name and annotation) apply here.
func matchesAnyParameterConstraint(nested []Constraint, p CandidateParam) bool {
	for _, n := range nested {
		switch n.Kind {
		case "NameConstraint":
			if !regexMatches(n.Regex, p.Name) {
				return false
			}
		case "AnnotationConstraint":
			if p.Annotation == "" || (n.Operand != "" && n.Operand != p.Annotation) {
				return false
			}
		default:
			return false
		}
	}
	return len(nested) > 0
}

func regexMatches(pattern, s string) bool {
	if pattern == "" {
		return true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// buildModel applies q.Model's productions against c, producing the
// SignatureModel Seed will turn into a fixpoint-ready taint.Model exactly
// as if the same declaration had been hand-written in a rule file.
func buildModel(q ModelQuery, c Candidate) SignatureModel {
	paramTaint := make(map[string]TaintAnnotation, len(c.Parameters))
	var ret *TaintAnnotation

	for _, prod := range q.Model {
		switch prod.Target {
		case "Returns", "ReturnTaint":
			ann := prod.Taint
			ret = &ann
		case "AllParameters":
			excluded := make(map[string]bool, len(prod.Exclude))
			for _, e := range prod.Exclude {
				excluded[e] = true
			}
			for _, p := range c.Parameters {
				if !excluded[p.Name] {
					paramTaint[p.Name] = prod.Taint
				}
			}
		case "PositionalParameter":
			if prod.Index != nil && *prod.Index >= 0 && *prod.Index < len(c.Parameters) {
				paramTaint[c.Parameters[*prod.Index].Name] = prod.Taint
			}
		default:
			paramTaint[prod.Target] = prod.Taint
		}
	}

	params := make([]ParamAnnotation, len(c.Parameters))
	for i, p := range c.Parameters {
		params[i] = ParamAnnotation{Name: p.Name, Taint: paramTaint[p.Name], Loc: q.Loc}
	}

	return SignatureModel{
		Target:     c.Target,
		Parameters: params,
		Return:     ret,
		Loc:        q.Loc,
	}
}

package modeldsl

import (
	"strconv"
	"strings"

	"github.com/pyscope-dev/pyscope/internal/diagnostics"
	"github.com/pyscope-dev/pyscope/internal/lexer"
	"github.com/pyscope-dev/pyscope/internal/taint"
)

// ParamAnnotation is one parameter's taint declaration in a signature model.
type ParamAnnotation struct {
	Name       string
	Taint      TaintAnnotation
	HasDefault bool
	Loc        diagnostics.Location
}

// SignatureModel is §4.I case 1: a function/method declaration whose
// parameter and return annotations carry taint expressions.
type SignatureModel struct {
	Qualifier  string
	Target     string // dotted name within Qualifier, e.g. "Class.method" or "function"
	Parameters []ParamAnnotation
	Return     *TaintAnnotation
	Mode       taint.Mode
	Loc        diagnostics.Location
}

// GlobalModel is §4.I case 2: `g: TaintSink[K]` for a global or attribute.
type GlobalModel struct {
	Qualifier string
	Name      string
	Taint     TaintAnnotation
	Loc       diagnostics.Location
}

// recognizedDecorators is the closed set §9's "Decorator-to-Mode parsing"
// bullet requires: anything else is an UnexpectedDecorators error rather
// than being silently ignored.
var recognizedDecorators = map[string]bool{
	"Sanitize": true, "SkipAnalysis": true, "SkipOverrides": true,
}

// modeFromDecorators converts a def's collected `@...` decorators into a
// Mode and the SkipOverrides marker, appending an UnexpectedDecorators
// error to errs for anything not in recognizedDecorators.
func modeFromDecorators(decorators []Expr, errs *[]error) (taint.Mode, bool) {
	mode := taint.Mode{Kind: taint.Normal}
	skip := false
	for _, d := range decorators {
		if !recognizedDecorators[d.Name] {
			*errs = append(*errs, &diagnostics.ModelVerificationError{
				Kind:     diagnostics.UnexpectedDecorators,
				Location: d.Loc,
				Detail:   "unrecognized decorator " + d.Name,
			})
			continue
		}
		switch d.Name {
		case "SkipAnalysis":
			mode = taint.JoinMode(mode, taint.Mode{Kind: taint.SkipAnalysis})
		case "SkipOverrides":
			skip = true
		case "Sanitize":
			mode = taint.JoinMode(mode, taint.Mode{Kind: taint.Sanitize, Sources: taint.NewFilter(d.Names()...)})
		}
	}
	return mode, skip
}

// parseSignatureModel parses `def qualifier.Target(param: Annotation = ...,
// ...) -> Annotation: ...` starting at the `def` keyword.
func (p *parser) parseSignatureModel(decorators []Expr) {
	defLoc := p.loc()
	p.advance() // 'def'

	var nameParts []string
	if !p.at(lexer.IDENT) {
		p.errorf(p.loc(), "expected a function or method name after 'def'")
		p.skipToNewline()
		return
	}
	nameParts = append(nameParts, p.advance().Lexeme)
	for p.atOp(".") {
		p.advance()
		if !p.at(lexer.IDENT) {
			p.errorf(p.loc(), "expected a name after '.'")
			p.skipToNewline()
			return
		}
		nameParts = append(nameParts, p.advance().Lexeme)
	}

	if !p.atOp("(") {
		p.errorf(p.loc(), "expected '(' after %q", strings.Join(nameParts, "."))
		p.skipToNewline()
		return
	}
	p.advance()

	var params []ParamAnnotation
	for !p.atOp(")") && !p.at(lexer.EOF) {
		p.skipSeparators()
		if p.atOp(")") {
			break
		}
		if !p.at(lexer.IDENT) {
			p.errorf(p.loc(), "expected a parameter name")
			p.skipToNewline()
			return
		}
		paramLoc := p.loc()
		paramName := p.advance().Lexeme

		var annotation TaintAnnotation
		if p.atOp(":") {
			p.advance()
			expr, ok := p.parseExpr()
			if ok {
				annotation, _ = toTaintAnnotation(expr)
			}
		}

		hasDefault := false
		if p.atOp("=") {
			p.advance()
			defaultExpr, ok := p.parseExpr()
			if !ok || defaultExpr.Name != "..." {
				p.result.Errors = append(p.result.Errors, &diagnostics.ModelVerificationError{
					Kind:     diagnostics.InvalidDefaultValue,
					Location: paramLoc,
					Detail:   "default parameter values in a model must be written as '...'",
				})
			}
			hasDefault = true
		}

		params = append(params, ParamAnnotation{Name: paramName, Taint: annotation, HasDefault: hasDefault, Loc: paramLoc})

		p.skipSeparators()
		if p.atOp(",") {
			p.advance()
			continue
		}
	}
	if p.atOp(")") {
		p.advance()
	}

	var ret *TaintAnnotation
	if p.atOp("->") {
		p.advance()
		expr, ok := p.parseExpr()
		if ok {
			ann, _ := toTaintAnnotation(expr)
			ret = &ann
		}
	}

	if p.atOp(":") {
		p.advance()
	}
	p.skipToNewline()

	mode, skip := modeFromDecorators(decorators, &p.result.Errors)
	target := strings.Join(nameParts[1:], ".")
	qualifier := nameParts[0]
	if len(nameParts) == 1 {
		target = nameParts[0]
		qualifier = ""
	}

	model := SignatureModel{
		Qualifier:  qualifier,
		Target:     target,
		Parameters: params,
		Return:     ret,
		Mode:       mode,
		Loc:        defLoc,
	}
	p.result.Models = append(p.result.Models, model)
	if skip {
		p.result.SkipOverrides = append(p.result.SkipOverrides, qualifier+"."+target)
	}
}

// parseGlobalModel parses `qualifier.g: Annotation`.
func (p *parser) parseGlobalModel(decorators []Expr) {
	_ = decorators
	loc := p.loc()
	var parts []string
	parts = append(parts, p.advance().Lexeme)
	for p.atOp(".") {
		p.advance()
		if !p.at(lexer.IDENT) {
			p.errorf(p.loc(), "expected a name after '.'")
			p.skipToNewline()
			return
		}
		parts = append(parts, p.advance().Lexeme)
	}
	if !p.atOp(":") {
		p.errorf(p.loc(), "expected ':' in global model declaration")
		p.skipToNewline()
		return
	}
	p.advance()
	expr, ok := p.parseExpr()
	p.skipToNewline()
	if !ok {
		return
	}
	ann, _ := toTaintAnnotation(expr)

	name := parts[len(parts)-1]
	qualifier := strings.Join(parts[:len(parts)-1], ".")
	p.result.Globals = append(p.result.Globals, GlobalModel{Qualifier: qualifier, Name: name, Taint: ann, Loc: loc})
}

// TaintAnnotation is the semantic reading of one parsed Expr taint
// annotation — §4.I's `TaintSource[K]`, `TaintSink[K]`,
// `TaintInTaintOut[Updates[self]]`, `AppliesTo[...]`, `Via[...]`,
// `ViaValueOf[...]`, `AttachToSink[Via[f]]`, `CrossRepositoryTaint[...]`,
// and `Sanitize[...]` all flatten into this one struct rather than a
// dozen near-identical node types, since every one of them is "a kind set
// plus some qualifiers".
type TaintAnnotation struct {
	IsSource    bool
	IsSink      bool
	IsTito      bool
	Kinds       []string
	TitoUpdates []int // ParameterUpdate indices, from Updates[i, j, ...]
	LocalReturn bool
	AppliesTo   []string
	Via         []string
	ViaValueOf  []string
	CrossRepo   []string
	Breadcrumbs []string // from AttachToSink[Via[f], ...]
	SanitizeOf  []string // Sanitize[Kind, ...]
}

func toTaintAnnotation(e Expr) (TaintAnnotation, error) {
	var out TaintAnnotation
	applyNode(&out, e)
	return out, nil
}

// applyNode walks e and any nested qualifier nodes it carries
// (AppliesTo/Via/ViaValueOf/AttachToSink can all appear as siblings or
// nested inside a TaintSource/TaintSink/TaintInTaintOut node), folding
// each into out.
func applyNode(out *TaintAnnotation, e Expr) {
	switch e.Name {
	case "TaintSource":
		out.IsSource = true
		out.Kinds = append(out.Kinds, e.Names()...)
		applyChildren(out, e)
	case "TaintSink":
		out.IsSink = true
		out.Kinds = append(out.Kinds, e.Names()...)
		applyChildren(out, e)
	case "TaintInTaintOut":
		out.IsTito = true
		applyChildren(out, e)
	case "Updates":
		for _, n := range e.Names() {
			if n == "self" {
				out.TitoUpdates = append(out.TitoUpdates, 0)
				continue
			}
			if idx, err := strconv.Atoi(n); err == nil {
				out.TitoUpdates = append(out.TitoUpdates, idx)
			}
		}
	case "LocalReturn":
		out.LocalReturn = true
	case "AppliesTo":
		out.AppliesTo = append(out.AppliesTo, e.Names()...)
	case "Via":
		out.Via = append(out.Via, e.Names()...)
	case "ViaValueOf":
		out.ViaValueOf = append(out.ViaValueOf, e.Names()...)
	case "AttachToSink":
		out.IsSink = true
		applyChildren(out, e)
	case "CrossRepositoryTaint":
		out.CrossRepo = append(out.CrossRepo, e.Names()...)
	case "Sanitize":
		out.SanitizeOf = append(out.SanitizeOf, e.Names()...)
	default:
		if e.Name != "" {
			out.Kinds = append(out.Kinds, e.Name)
		}
	}
}

func applyChildren(out *TaintAnnotation, e Expr) {
	for _, a := range e.Args {
		if a.Value.Name == "TaintSource" || a.Value.Name == "TaintSink" || a.Value.Name == "TaintInTaintOut" ||
			a.Value.Name == "Updates" || a.Value.Name == "LocalReturn" || a.Value.Name == "AppliesTo" ||
			a.Value.Name == "Via" || a.Value.Name == "ViaValueOf" || a.Value.Name == "AttachToSink" ||
			a.Value.Name == "CrossRepositoryTaint" {
			applyNode(out, a.Value)
		}
	}
}

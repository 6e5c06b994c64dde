// Package modeldsl parses the taint-model declaration language of §4.I:
// signature-style function/method models, global/attribute models, and
// ModelQuery rules. It reuses internal/lexer wholesale — the DSL shares
// the target language's call/subscript/annotation syntax — and adds its
// own small recursive-descent layer over the token stream, the same
// split internal/parser uses between tokenizing and parsing.
package modeldsl

import (
	"fmt"

	"github.com/pyscope-dev/pyscope/internal/diagnostics"
	"github.com/pyscope-dev/pyscope/internal/lexer"
)

// ParseResult is §4.I's output shape: every signature model, global model
// and ModelQuery rule parsed, plus the targets named by a `SkipOverrides`
// decorator, plus every recoverable error encountered — parsing never
// aborts the batch, so a malformed rule still lets its siblings through.
type ParseResult struct {
	Models        []SignatureModel
	Globals       []GlobalModel
	Queries       []ModelQuery
	SkipOverrides []string
	Errors        []error
}

type parser struct {
	file   string
	toks   []lexer.Token
	pos    int
	result *ParseResult
}

// Parse tokenizes and parses src, a single model-DSL document. It never
// returns a nil *ParseResult, and syntax errors are appended to its Errors
// slice rather than aborting the parse.
func Parse(file, src string) *ParseResult {
	p := &parser{
		file:   file,
		toks:   lexer.New(src).Tokenize(),
		result: &ParseResult{},
	}
	p.parseDocument()
	return p.result
}

func (p *parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) at(kind lexer.Kind) bool { return p.cur().Kind == kind }

func (p *parser) atOp(op string) bool {
	t := p.cur()
	return t.Kind == lexer.OP && t.Lexeme == op
}

func (p *parser) atKeyword(word string) bool {
	t := p.cur()
	return (t.Kind == lexer.KEYWORD || t.Kind == lexer.IDENT) && t.Lexeme == word
}

func (p *parser) loc() diagnostics.Location {
	t := p.cur()
	return diagnostics.Location{Path: p.file, Line: t.Line, Col: t.Column, EndLine: t.Line, EndCol: t.Column}
}

func (p *parser) errorf(loc diagnostics.Location, format string, args ...any) {
	p.result.Errors = append(p.result.Errors, &diagnostics.ParseError{
		Path: loc.Path, Line: loc.Line, Col: loc.Col, Message: fmt.Sprintf(format, args...),
	})
}

func (p *parser) skipSeparators() {
	for p.at(lexer.NEWLINE) || p.at(lexer.INDENT) || p.at(lexer.DEDENT) {
		p.advance()
	}
}

// parseDocument walks top-level statements: an optional run of `@decorator`
// lines, then one of a `def` signature model, a `name: annotation` global
// model, or a `ModelQuery(...)` rule.
func (p *parser) parseDocument() {
	for {
		p.skipSeparators()
		if p.at(lexer.EOF) {
			return
		}

		var decorators []Expr
		for p.atOp("@") {
			p.advance()
			d, ok := p.parseExpr()
			if !ok {
				p.skipToNewline()
				continue
			}
			decorators = append(decorators, d)
			p.skipSeparators()
		}

		switch {
		case p.atKeyword("def"):
			p.parseSignatureModel(decorators)
		case p.at(lexer.IDENT) && p.peekIsModelQuery():
			p.parseModelQuery()
		case p.at(lexer.IDENT):
			p.parseGlobalModel(decorators)
		default:
			start := p.loc()
			p.errorf(start, "expected 'def', a global model, or ModelQuery, found %q", p.cur().Lexeme)
			p.skipToNewline()
		}
	}
}

func (p *parser) peekIsModelQuery() bool {
	return p.cur().Lexeme == "ModelQuery" && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind == lexer.OP && p.toks[p.pos+1].Lexeme == "("
}

func (p *parser) skipToNewline() {
	for !p.at(lexer.NEWLINE) && !p.at(lexer.EOF) {
		p.advance()
	}
}

// parseExpr parses one Python-call-shaped node: a string literal, an
// identifier optionally followed by `(args)` or `[args]`, or a run of
// three `.` tokens standing for the DSL's `...` default-value marker.
func (p *parser) parseExpr() (Expr, bool) {
	loc := p.loc()
	t := p.cur()
	switch {
	case t.Kind == lexer.STRING:
		p.advance()
		return Expr{Literal: t.Lexeme, IsStr: true, Loc: loc}, true
	case t.Kind == lexer.OP && t.Lexeme == ".":
		for i := 0; i < 3; i++ {
			if !p.atOp(".") {
				p.errorf(loc, "expected '...', found incomplete ellipsis")
				return Expr{}, false
			}
			p.advance()
		}
		return Expr{Name: "...", Loc: loc}, true
	case t.Kind == lexer.OP && t.Lexeme == "[":
		return p.parseBracketed(loc)
	case t.Kind == lexer.IDENT || t.Kind == lexer.KEYWORD:
		p.advance()
		e := Expr{Name: t.Lexeme, Loc: loc}
		if p.atOp("(") || p.atOp("[") {
			return p.parseCallArgs(e)
		}
		return e, true
	default:
		p.errorf(loc, "expected an annotation, identifier, or string, found %q", t.Lexeme)
		p.advance()
		return Expr{}, false
	}
}

// parseBracketed parses a bare `[a, b, c]` list literal (used for
// AppliesTo/Via argument lists nested without an enclosing name).
func (p *parser) parseBracketed(loc diagnostics.Location) (Expr, bool) {
	e := Expr{Name: "", Loc: loc}
	return p.parseCallArgs(e)
}

// parseCallArgs parses `(args)` or `[args]` onto e, recognizing
// `keyword=value` pairs as well as bare positional values.
func (p *parser) parseCallArgs(e Expr) (Expr, bool) {
	open := p.advance().Lexeme
	closeOp := ")"
	if open == "[" {
		closeOp = "]"
	}
	for {
		p.skipSeparators()
		if p.atOp(closeOp) {
			p.advance()
			return e, true
		}
		if p.at(lexer.EOF) {
			p.errorf(p.loc(), "unterminated %q starting argument list", open)
			return e, false
		}

		var kw string
		if p.at(lexer.IDENT) && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind == lexer.OP && p.toks[p.pos+1].Lexeme == "=" {
			kw = p.advance().Lexeme
			p.advance() // '='
		}
		val, ok := p.parseExpr()
		if !ok {
			p.skipToNewline()
			return e, false
		}
		e.Args = append(e.Args, Arg{Keyword: kw, Value: val})

		p.skipSeparators()
		if p.atOp(",") {
			p.advance()
			continue
		}
	}
}

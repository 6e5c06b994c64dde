// Package parser turns a lexer.Token stream into an *ast.Program using
// ordinary recursive descent, split statements/expressions the way the
// teacher repo splits a parser across concern-named files rather than by
// grammar nonterminal.
package parser

import (
	"fmt"

	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/lexer"
)

// Parser holds the token cursor and accumulated recoverable errors.
type Parser struct {
	file   string
	toks   []lexer.Token
	pos    int
	errors []*Error
}

// Parse tokenizes and parses src, returning the Program built so far (never
// nil) alongside any recoverable errors.
func Parse(file, src string) (*ast.Program, []*Error) {
	toks := lexer.New(src).Tokenize()
	p := &Parser{file: file, toks: toks}
	stmts, mode, suppressions := p.parseModule(src)
	return &ast.Program{File: file, Mode: mode, Statements: stmts, Suppressions: suppressions}, p.errors
}

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(offset int) lexer.Token {
	idx := p.pos + offset
	if idx >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[idx]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) at(kind lexer.Kind) bool { return p.cur().Kind == kind }

func (p *Parser) atKeyword(word string) bool {
	t := p.cur()
	return t.Kind == lexer.KEYWORD && t.Lexeme == word
}

func (p *Parser) atOp(op string) bool {
	t := p.cur()
	return t.Kind == lexer.OP && t.Lexeme == op
}

func (p *Parser) expectOp(op string) (lexer.Token, bool) {
	if p.atOp(op) {
		return p.advance(), true
	}
	p.errorf("expected %q, found %q", op, p.cur().Lexeme)
	return p.cur(), false
}

func (p *Parser) expectKeyword(word string) bool {
	if p.atKeyword(word) {
		p.advance()
		return true
	}
	p.errorf("expected keyword %q, found %q", word, p.cur().Lexeme)
	return false
}

func (p *Parser) errorf(format string, args ...any) {
	t := p.cur()
	p.errors = append(p.errors, &Error{
		File:    p.file,
		Pos:     ast.Position{Line: t.Line, Column: t.Column},
		Message: fmt.Sprintf(format, args...),
	})
}

func pos(t lexer.Token) ast.Position { return ast.Position{Line: t.Line, Column: t.Column} }

// skipStatement advances until the next NEWLINE/DEDENT/EOF, the standard
// panic-mode recovery used once an Error has been recorded mid-statement.
func (p *Parser) skipStatement() {
	for {
		switch p.cur().Kind {
		case lexer.NEWLINE, lexer.DEDENT, lexer.EOF:
			return
		default:
			p.advance()
		}
	}
}

func (p *Parser) skipNewlines() {
	for p.at(lexer.NEWLINE) {
		p.advance()
	}
}

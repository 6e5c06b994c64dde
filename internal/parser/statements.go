package parser

import (
	"strconv"
	"strings"

	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/lexer"
)

// parseModule parses every top-level statement plus the module's mode
// directive and suppression comments. The strictness mode is read straight
// off a `# pyscope: strict` / `# pyscope: unsafe` / `# pyscope:
// ignore-all-errors` comment in the module's leading block of comment and
// blank lines (scanning stops at the first code line), since this frontend
// has no separate comment-preserving lex pass.
func (p *Parser) parseModule(src string) ([]ast.Statement, ast.Mode, []ast.SuppressionComment) {
	mode := scanModeDirective(src)
	suppressions := scanSuppressions(src)

	var stmts []ast.Statement
	p.skipNewlines()
	for !p.at(lexer.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		p.skipNewlines()
	}
	return stmts, mode, suppressions
}

func scanModeDirective(src string) ast.Mode {
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if trimmed != "" {
				break
			}
			continue
		}
		body := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		if rest, ok := strings.CutPrefix(body, "pyscope:"); ok {
			switch strings.TrimSpace(rest) {
			case "strict":
				return ast.ModeStrict
			case "ignore-all-errors":
				return ast.ModeIgnoreAllErrors
			case "unsafe":
				return ast.ModeUnsafe
			}
		}
	}
	return ast.ModeUnsafe
}

func scanSuppressions(src string) []ast.SuppressionComment {
	var out []ast.SuppressionComment
	for i, line := range strings.Split(src, "\n") {
		idx := strings.Index(line, "#")
		if idx < 0 {
			continue
		}
		comment := strings.TrimSpace(line[idx+1:])
		if !strings.HasPrefix(comment, "pys-ignore") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(comment, "pys-ignore"))
		var codes []int
		if strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]") {
			for _, part := range strings.Split(rest[1:len(rest)-1], ",") {
				if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
					codes = append(codes, n)
				}
			}
		}
		out = append(out, ast.SuppressionComment{Line: i + 1, Codes: codes})
	}
	return out
}

func (p *Parser) parseStatement() ast.Statement {
	if p.at(lexer.OP) && p.atOp("@") {
		return p.parseDecorated()
	}
	switch {
	case p.atKeyword("def"):
		return p.parseFunctionDef(nil, false)
	case p.atKeyword("async"):
		return p.parseAsyncDef()
	case p.atKeyword("class"):
		return p.parseClassDef(nil)
	case p.atKeyword("import"):
		return p.parseImport()
	case p.atKeyword("from"):
		return p.parseImportFrom()
	case p.atKeyword("return"):
		return p.parseReturn()
	case p.atKeyword("if"):
		return p.parseIf()
	case p.atKeyword("for"):
		return p.parseFor()
	case p.atKeyword("while"):
		return p.parseWhile()
	case p.atKeyword("try"):
		return p.parseTry()
	case p.atKeyword("global"):
		return p.parseGlobal()
	case p.atKeyword("raise"):
		return p.parseRaise()
	case p.atKeyword("pass"), p.atKeyword("break"), p.atKeyword("continue"):
		t := p.advance()
		return &ast.ExpressionStatement{Expr: &ast.Identifier{Value: t.Lexeme, From: pos(t), To: pos(t)}, From: pos(t), To: pos(t)}
	default:
		return p.parseExprOrAssignStatement()
	}
}

func (p *Parser) parseDecorated() ast.Statement {
	var decorators []*ast.Decorator
	for p.atOp("@") {
		decorators = append(decorators, p.parseDecorator())
		p.skipNewlines()
	}
	if p.atKeyword("async") {
		p.advance()
		return p.parseFunctionDef(decorators, true)
	}
	if p.atKeyword("def") {
		return p.parseFunctionDef(decorators, false)
	}
	if p.atKeyword("class") {
		return p.parseClassDef(decorators)
	}
	p.errorf("expected def/class after decorator")
	p.skipStatement()
	return nil
}

func (p *Parser) parseDecorator() *ast.Decorator {
	at := p.advance() // '@'
	name := p.parseDottedName()
	var args []ast.Expression
	if p.atOp("(") {
		p.advance()
		for !p.atOp(")") && !p.at(lexer.EOF) {
			args = append(args, p.parseExpression())
			if p.atOp(",") {
				p.advance()
			}
		}
		p.expectOp(")")
	}
	end := p.cur()
	return &ast.Decorator{Name: name, Arguments: args, From: pos(at), To: pos(end)}
}

func (p *Parser) parseDottedName() string {
	var sb strings.Builder
	if p.at(lexer.IDENT) {
		sb.WriteString(p.advance().Lexeme)
	}
	for p.atOp(".") {
		p.advance()
		sb.WriteByte('.')
		if p.at(lexer.IDENT) {
			sb.WriteString(p.advance().Lexeme)
		}
	}
	return sb.String()
}

func (p *Parser) parseAsyncDef() ast.Statement {
	p.advance() // 'async'
	return p.parseFunctionDef(nil, true)
}

func (p *Parser) parseFunctionDef(decorators []*ast.Decorator, isAsync bool) ast.Statement {
	start := p.advance() // 'def'
	name := ""
	if p.at(lexer.IDENT) {
		name = p.advance().Lexeme
	} else {
		p.errorf("expected function name")
	}
	p.expectOp("(")
	var params []ast.Parameter
	for !p.atOp(")") && !p.at(lexer.EOF) {
		params = append(params, p.parseParameter())
		if p.atOp(",") {
			p.advance()
		}
	}
	p.expectOp(")")
	var returns ast.Expression
	if p.atOp("->") {
		p.advance()
		returns = p.parseExpression()
	}
	p.expectOp(":")
	body := p.parseBlock()
	end := p.cur()
	return &ast.FunctionDef{
		Name: name, Parameters: params, Returns: returns, Body: body,
		Decorators: decorators, IsAsync: isAsync, From: pos(start), To: pos(end),
	}
}

func (p *Parser) parseParameter() ast.Parameter {
	variadic := false
	keywordAll := false
	if p.atOp("*") {
		p.advance()
		variadic = true
	} else if p.atOp("**") {
		p.advance()
		keywordAll = true
	}
	name := ""
	if p.at(lexer.IDENT) {
		name = p.advance().Lexeme
	}
	var annotation ast.Expression
	if p.atOp(":") {
		p.advance()
		annotation = p.parseExpression()
	}
	var def ast.Expression
	if p.atOp("=") {
		p.advance()
		def = p.parseExpression()
	}
	return ast.Parameter{Name: name, Annotation: annotation, Default: def, Variadic: variadic, KeywordAll: keywordAll}
}

func (p *Parser) parseClassDef(decorators []*ast.Decorator) ast.Statement {
	start := p.advance() // 'class'
	name := ""
	if p.at(lexer.IDENT) {
		name = p.advance().Lexeme
	}
	var bases []ast.Expression
	if p.atOp("(") {
		p.advance()
		for !p.atOp(")") && !p.at(lexer.EOF) {
			bases = append(bases, p.parseExpression())
			if p.atOp(",") {
				p.advance()
			}
		}
		p.expectOp(")")
	}
	p.expectOp(":")
	body := p.parseBlock()
	end := p.cur()
	return &ast.ClassDef{Name: name, Bases: bases, Body: body, Decorators: decorators, From: pos(start), To: pos(end)}
}

// parseBlock parses an INDENT..DEDENT delimited suite, falling back to a
// single-line suite (`if x: return y`) when no INDENT follows the colon.
func (p *Parser) parseBlock() []ast.Statement {
	if p.at(lexer.NEWLINE) {
		p.advance()
	}
	if !p.at(lexer.INDENT) {
		// single-line suite
		var stmts []ast.Statement
		stmts = append(stmts, p.parseStatement())
		return stmts
	}
	p.advance() // INDENT
	var stmts []ast.Statement
	p.skipNewlines()
	for !p.at(lexer.DEDENT) && !p.at(lexer.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		p.skipNewlines()
	}
	if p.at(lexer.DEDENT) {
		p.advance()
	}
	return stmts
}

func (p *Parser) parseImport() ast.Statement {
	start := p.advance() // 'import'
	qualifier := p.parseDottedName()
	var alias *ast.Identifier
	if p.atKeyword("as") {
		p.advance()
		t := p.advance()
		alias = &ast.Identifier{Value: t.Lexeme, From: pos(t), To: pos(t)}
	}
	end := p.cur()
	return &ast.ImportStatement{Qualifier: qualifier, Alias: alias, From: pos(start), To: pos(end)}
}

func (p *Parser) parseImportFrom() ast.Statement {
	start := p.advance() // 'from'
	qualifier := p.parseDottedName()
	p.expectKeyword("import")
	if p.atOp("*") {
		p.advance()
		end := p.cur()
		return &ast.ImportFromStatement{Qualifier: qualifier, Wildcard: true, From: pos(start), To: pos(end)}
	}
	grouped := p.atOp("(")
	if grouped {
		p.advance()
	}
	var names []ast.ImportedName
	for {
		if p.at(lexer.EOF) || p.atOp(")") {
			break
		}
		name := p.advance().Lexeme
		alias := ""
		if p.atKeyword("as") {
			p.advance()
			alias = p.advance().Lexeme
		}
		names = append(names, ast.ImportedName{Name: name, Alias: alias})
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	if grouped {
		p.expectOp(")")
	}
	end := p.cur()
	return &ast.ImportFromStatement{Qualifier: qualifier, Names: names, From: pos(start), To: pos(end)}
}

func (p *Parser) parseReturn() ast.Statement {
	start := p.advance()
	var value ast.Expression
	if !p.at(lexer.NEWLINE) && !p.at(lexer.EOF) && !p.at(lexer.DEDENT) {
		value = p.parseExpression()
	}
	end := p.cur()
	return &ast.ReturnStatement{Value: value, From: pos(start), To: pos(end)}
}

func (p *Parser) parseIf() ast.Statement {
	start := p.advance() // 'if'
	cond := p.parseExpression()
	p.expectOp(":")
	body := p.parseBlock()
	var orelse []ast.Statement
	p.skipNewlines()
	if p.atKeyword("elif") {
		orelse = []ast.Statement{p.parseIf()}
	} else if p.atKeyword("else") {
		p.advance()
		p.expectOp(":")
		orelse = p.parseBlock()
	}
	end := p.cur()
	return &ast.IfStatement{Condition: cond, Body: body, Orelse: orelse, From: pos(start), To: pos(end)}
}

func (p *Parser) parseFor() ast.Statement {
	start := p.advance() // 'for'
	target := p.parseExpression()
	p.expectKeyword("in")
	iter := p.parseExpression()
	p.expectOp(":")
	body := p.parseBlock()
	end := p.cur()
	return &ast.ForStatement{Target: target, Iterable: iter, Body: body, From: pos(start), To: pos(end)}
}

func (p *Parser) parseWhile() ast.Statement {
	start := p.advance() // 'while'
	cond := p.parseExpression()
	p.expectOp(":")
	body := p.parseBlock()
	end := p.cur()
	return &ast.WhileStatement{Condition: cond, Body: body, From: pos(start), To: pos(end)}
}

func (p *Parser) parseTry() ast.Statement {
	start := p.advance() // 'try'
	p.expectOp(":")
	body := p.parseBlock()
	var handlers []ast.ExceptHandler
	p.skipNewlines()
	for p.atKeyword("except") {
		p.advance()
		var typ *ast.Identifier
		name := ""
		if !p.atOp(":") {
			t := p.advance()
			typ = &ast.Identifier{Value: t.Lexeme, From: pos(t), To: pos(t)}
			if p.atKeyword("as") {
				p.advance()
				name = p.advance().Lexeme
			}
		}
		p.expectOp(":")
		hbody := p.parseBlock()
		handlers = append(handlers, ast.ExceptHandler{Type: typ, Name: name, Body: hbody})
		p.skipNewlines()
	}
	var finally []ast.Statement
	if p.atKeyword("finally") {
		p.advance()
		p.expectOp(":")
		finally = p.parseBlock()
	}
	end := p.cur()
	return &ast.TryStatement{Body: body, Handlers: handlers, Finally: finally, From: pos(start), To: pos(end)}
}

func (p *Parser) parseGlobal() ast.Statement {
	start := p.advance() // 'global'
	var names []string
	for {
		if p.at(lexer.IDENT) {
			names = append(names, p.advance().Lexeme)
		}
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	end := p.cur()
	return &ast.GlobalStatement{Names: names, From: pos(start), To: pos(end)}
}

func (p *Parser) parseRaise() ast.Statement {
	start := p.advance() // 'raise'
	var value ast.Expression
	if !p.at(lexer.NEWLINE) && !p.at(lexer.EOF) {
		value = p.parseExpression()
	}
	end := p.cur()
	return &ast.RaiseStatement{Value: value, From: pos(start), To: pos(end)}
}

// parseExprOrAssignStatement covers plain expression statements, `x = v`,
// `x: T = v`, and multi-target `a = b = v`.
func (p *Parser) parseExprOrAssignStatement() ast.Statement {
	start := p.cur()
	first := p.parseExpression()

	if p.atOp(":") {
		p.advance()
		annotation := p.parseExpression()
		var value ast.Expression
		if p.atOp("=") {
			p.advance()
			value = p.parseExpression()
		}
		end := p.cur()
		return &ast.AssignStatement{Targets: []ast.Expression{first}, Annotation: annotation, Value: value, From: pos(start), To: pos(end)}
	}

	if p.atOp("=") {
		targets := []ast.Expression{first}
		var value ast.Expression
		for p.atOp("=") {
			p.advance()
			value = p.parseExpression()
			if p.atOp("=") {
				targets = append(targets, value)
			}
		}
		end := p.cur()
		return &ast.AssignStatement{Targets: targets, Value: value, From: pos(start), To: pos(end)}
	}

	end := p.cur()
	return &ast.ExpressionStatement{Expr: first, From: pos(start), To: pos(end)}
}

package parser

import (
	"github.com/pyscope-dev/pyscope/internal/ast"
	"github.com/pyscope-dev/pyscope/internal/lexer"
)

// binaryPrecedence lists operator binding power, loosest first, mirroring
// the conventional Python precedence table for the operators this frontend
// recognizes. Parsing climbs from parseExpression (lowest) down to
// parseUnary/parsePostfix (highest).
var binaryPrecedence = []map[string]bool{
	{"or": true},
	{"and": true},
	{"not in": true, "in": true, "is": true, "==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true},
	{"|": true},
	{"&": true},
	{"+": true, "-": true},
	{"*": true, "/": true, "//": true, "%": true},
}

func (p *Parser) parseExpression() ast.Expression {
	if p.atKeyword("lambda") {
		return p.parseLambda()
	}
	return p.parseBinary(0)
}

func (p *Parser) parseLambda() ast.Expression {
	start := p.advance() // 'lambda'
	var params []ast.Parameter
	for !p.atOp(":") && !p.at(lexer.EOF) {
		params = append(params, p.parseParameter())
		if p.atOp(",") {
			p.advance()
		}
	}
	p.expectOp(":")
	body := p.parseExpression()
	return &ast.LambdaExpression{Parameters: params, Body: body, From: pos(start), To: p.exprEnd(body)}
}

func (p *Parser) parseBinary(level int) ast.Expression {
	if level >= len(binaryPrecedence) {
		return p.parseUnary()
	}
	left := p.parseBinary(level + 1)
	for {
		op, ok := p.peekBinaryOp(binaryPrecedence[level])
		if !ok {
			break
		}
		p.consumeBinaryOp(op)
		right := p.parseBinary(level + 1)
		left = &ast.BinaryExpression{Op: op, Left: left, Right: right, From: p.exprStart(left), To: p.exprEnd(right)}
	}
	return left
}

// peekBinaryOp reports the operator (if any) at the cursor that belongs to
// the given precedence set, handling the two-word "not in" operator.
func (p *Parser) peekBinaryOp(set map[string]bool) (string, bool) {
	t := p.cur()
	if t.Kind == lexer.KEYWORD {
		if t.Lexeme == "not" && p.peekAt(1).Kind == lexer.KEYWORD && p.peekAt(1).Lexeme == "in" {
			if set["not in"] {
				return "not in", true
			}
			return "", false
		}
		if set[t.Lexeme] {
			return t.Lexeme, true
		}
		return "", false
	}
	if t.Kind == lexer.OP && set[t.Lexeme] {
		return t.Lexeme, true
	}
	return "", false
}

func (p *Parser) consumeBinaryOp(op string) {
	if op == "not in" {
		p.advance()
		p.advance()
		return
	}
	p.advance()
}

func (p *Parser) parseUnary() ast.Expression {
	t := p.cur()
	if (t.Kind == lexer.OP && (t.Lexeme == "-" || t.Lexeme == "+" || t.Lexeme == "~")) ||
		(t.Kind == lexer.KEYWORD && t.Lexeme == "not") {
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpression{Op: t.Lexeme, Operand: operand, From: pos(t), To: p.exprEnd(operand)}
	}
	return p.parsePostfix(p.parseAtom())
}

func (p *Parser) parsePostfix(expr ast.Expression) ast.Expression {
	for {
		switch {
		case p.atOp("."):
			dot := p.advance()
			attr := ""
			if p.at(lexer.IDENT) {
				attr = p.advance().Lexeme
			}
			expr = &ast.AttributeExpression{Value: expr, Attr: attr, From: p.exprStart(expr), To: pos(dot)}
		case p.atOp("("):
			expr = p.parseCall(expr)
		case p.atOp("["):
			p.advance() // '['
			index := p.parseExpression()
			closeBracket, _ := p.expectOp("]")
			expr = &ast.SubscriptExpression{Value: expr, Index: index, From: p.exprStart(expr), To: pos(closeBracket)}
		default:
			return expr
		}
	}
}

func (p *Parser) parseCall(fn ast.Expression) ast.Expression {
	p.advance() // '('
	var args []ast.Expression
	var keywords []ast.KeywordArg
	for !p.atOp(")") && !p.at(lexer.EOF) {
		if p.atOp("*") {
			star := p.advance()
			val := p.parseExpression()
			args = append(args, &ast.StarredExpression{Value: val, From: pos(star), To: p.exprEnd(val)})
		} else if p.at(lexer.IDENT) && p.peekAt(1).Kind == lexer.OP && p.peekAt(1).Lexeme == "=" {
			name := p.advance().Lexeme
			p.advance() // '='
			val := p.parseExpression()
			keywords = append(keywords, ast.KeywordArg{Name: name, Value: val})
		} else {
			args = append(args, p.parseExpression())
		}
		if p.atOp(",") {
			p.advance()
		}
	}
	closeParen, _ := p.expectOp(")")
	return &ast.CallExpression{Function: fn, Arguments: args, Keywords: keywords, From: p.exprStart(fn), To: pos(closeParen)}
}

func (p *Parser) parseAtom() ast.Expression {
	t := p.cur()
	switch {
	case t.Kind == lexer.STRING:
		p.advance()
		return &ast.Literal{Kind: ast.LiteralString, Raw: t.Lexeme, From: pos(t), To: pos(t)}
	case t.Kind == lexer.INT:
		p.advance()
		return &ast.Literal{Kind: ast.LiteralInt, Raw: t.Lexeme, From: pos(t), To: pos(t)}
	case t.Kind == lexer.FLOAT:
		p.advance()
		return &ast.Literal{Kind: ast.LiteralFloat, Raw: t.Lexeme, From: pos(t), To: pos(t)}
	case t.Kind == lexer.KEYWORD && (t.Lexeme == "True" || t.Lexeme == "False"):
		p.advance()
		return &ast.Literal{Kind: ast.LiteralBool, Raw: t.Lexeme, From: pos(t), To: pos(t)}
	case t.Kind == lexer.KEYWORD && t.Lexeme == "None":
		p.advance()
		return &ast.Literal{Kind: ast.LiteralNone, Raw: t.Lexeme, From: pos(t), To: pos(t)}
	case t.Kind == lexer.KEYWORD && t.Lexeme == "await":
		p.advance()
		return p.parseUnary()
	case t.Kind == lexer.IDENT:
		p.advance()
		return &ast.Identifier{Value: t.Lexeme, From: pos(t), To: pos(t)}
	case t.Kind == lexer.OP && t.Lexeme == "(":
		return p.parseParenOrTuple()
	case t.Kind == lexer.OP && t.Lexeme == "[":
		return p.parseList()
	case t.Kind == lexer.OP && t.Lexeme == "{":
		return p.parseDict()
	case t.Kind == lexer.OP && t.Lexeme == "*":
		star := p.advance()
		val := p.parseUnary()
		return &ast.StarredExpression{Value: val, From: pos(star), To: p.exprEnd(val)}
	default:
		p.errorf("unexpected token %q", t.Lexeme)
		p.advance()
		return &ast.Identifier{Value: "", From: pos(t), To: pos(t)}
	}
}

func (p *Parser) parseParenOrTuple() ast.Expression {
	start := p.advance() // '('
	if p.atOp(")") {
		end := p.advance()
		return &ast.TupleExpression{From: pos(start), To: pos(end)}
	}
	first := p.parseExpression()
	if !p.atOp(",") {
		end, _ := p.expectOp(")")
		return p.reparen(first, pos(start), pos(end))
	}
	elements := []ast.Expression{first}
	for p.atOp(",") {
		p.advance()
		if p.atOp(")") {
			break
		}
		elements = append(elements, p.parseExpression())
	}
	end, _ := p.expectOp(")")
	return &ast.TupleExpression{Elements: elements, From: pos(start), To: pos(end)}
}

// reparen returns inner unchanged: parenthesization carries no AST node of
// its own, only the wider span implied by the surrounding tokens.
func (p *Parser) reparen(inner ast.Expression, from, to ast.Position) ast.Expression {
	return inner
}

func (p *Parser) parseList() ast.Expression {
	start := p.advance() // '['
	var elements []ast.Expression
	for !p.atOp("]") && !p.at(lexer.EOF) {
		elements = append(elements, p.parseExpression())
		if p.atOp(",") {
			p.advance()
		}
	}
	end, _ := p.expectOp("]")
	return &ast.ListExpression{Elements: elements, From: pos(start), To: pos(end)}
}

func (p *Parser) parseDict() ast.Expression {
	start := p.advance() // '{'
	var entries []ast.DictEntry
	for !p.atOp("}") && !p.at(lexer.EOF) {
		key := p.parseExpression()
		p.expectOp(":")
		value := p.parseExpression()
		entries = append(entries, ast.DictEntry{Key: key, Value: value})
		if p.atOp(",") {
			p.advance()
		}
	}
	end, _ := p.expectOp("}")
	return &ast.DictExpression{Entries: entries, From: pos(start), To: pos(end)}
}

func (p *Parser) exprStart(e ast.Expression) ast.Position {
	if e == nil {
		return pos(p.cur())
	}
	return e.Pos()
}

func (p *Parser) exprEnd(e ast.Expression) ast.Position {
	if e == nil {
		return pos(p.cur())
	}
	return e.End()
}

// Package parser implements a recursive-descent parser for Rayvn,
// translating a token stream into the ast package's node types.
//
// Grammar and precedence: expression -> or_expr -> and_expr ->
// comparison -> term -> factor -> unary -> primary, with postfix
// indexing and call chaining on primary.
package parser

import (
	"fmt"

	"github.com/Ravyn-Coding-Language/Rayvn/ast"
	"github.com/Ravyn-Coding-Language/Rayvn/token"
)

// Parser consumes a token stream and builds an ast.Program.
type Parser struct {
	tokens []token.Token
	pos    int
}

// New creates a Parser over tokens (as produced by lexer.Tokenize,
// which always terminates the stream with an EOF token).
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse consumes the entire token stream and returns the program, or
// the first syntax error encountered.
func Parse(tokens []token.Token) (*ast.Program, error) {
	return New(tokens).ParseProgram()
}

func (p *Parser) peek() token.Token { return p.tokens[p.pos] }

func (p *Parser) peekNext() token.Token {
	if p.pos+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(tt token.Type) (token.Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, &SyntaxError{Offset: tok.Offset, Message: fmt.Sprintf("expected %s, got %s", tt, tok.Type)}
	}
	return tok, nil
}

// ParseProgram parses the whole token stream into a Program.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	var stmts []ast.Stmt
	for p.peek().Type != token.EOF {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return &ast.Program{Statements: stmts}, nil
}

// ParseStatements parses the whole token stream as a sequence of
// statements without requiring them to be wrapped in a Program, for
// callers (the REPL) that want the raw statement slice.
func (p *Parser) ParseStatements() ([]ast.Stmt, error) {
	prog, err := p.ParseProgram()
	if err != nil {
		return nil, err
	}
	return prog.Statements, nil
}

// ParseExpression parses a single expression and requires the token
// stream to end there, for the REPL's bare-expression input mode.
func (p *Parser) ParseExpression() (ast.Expr, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != token.EOF {
		return nil, &SyntaxError{Offset: p.peek().Offset, Message: fmt.Sprintf("unexpected %s after expression", p.peek().Type)}
	}
	return expr, nil
}

func (p *Parser) block() ([]ast.Stmt, error) {
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for p.peek().Type != token.RBRACE {
		if p.peek().Type == token.EOF {
			return nil, &SyntaxError{Offset: p.peek().Offset, Message: "unterminated block, expected '}'"}
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) statement() (ast.Stmt, error) {
	tok := p.peek()

	switch tok.Type {
	case token.ELSEIF, token.ELSE:
		return nil, &SyntaxError{Offset: tok.Offset, Message: "unexpected 'else'/'elseif' without matching 'if'"}

	case token.LET:
		p.advance()
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, &SyntaxError{Offset: name.Offset, Message: "expected identifier after 'let'"}
		}
		if eq := p.peek(); eq.Type != token.EQUAL {
			return nil, &SyntaxError{Offset: eq.Offset, Message: "expected '=' after identifier"}
		}
		p.advance()
		value, err := p.expression()
		if err != nil {
			return nil, err
		}
		return ast.LetStmt{Name: name.Literal, Value: value}, nil

	case token.LOG:
		p.advance()
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		return ast.PrintStmt{Expr: expr}, nil

	case token.IF:
		return p.ifChain()

	case token.WHILE:
		return p.whileStatement()

	case token.FOR:
		return p.forInLoop()

	case token.FN:
		return p.functionDef()

	case token.RETURN:
		p.advance()
		var value ast.Expr
		if p.peek().Type != token.RBRACE {
			v, err := p.expression()
			if err != nil {
				return nil, err
			}
			value = v
		}
		return ast.ReturnStmt{Value: value}, nil

	case token.BREAK:
		p.advance()
		return ast.BreakStmt{}, nil

	case token.CONTINUE:
		p.advance()
		return ast.ContinueStmt{}, nil

	case token.IDENT:
		if p.peekNext().Type == token.LBRACKET {
			expr, err := p.primary()
			if err != nil {
				return nil, err
			}
			idx, ok := expr.(ast.IndexExpr)
			if ok && p.peek().Type == token.EQUAL {
				p.advance()
				value, err := p.expression()
				if err != nil {
					return nil, err
				}
				return ast.IndexAssign{Array: idx.Array, Index: idx.Index, Value: value}, nil
			}
			return ast.ExprStmt{Expr: expr}, nil
		}
		if p.peekNext().Type == token.EQUAL {
			name := p.advance().Literal
			p.advance() // '='
			value, err := p.expression()
			if err != nil {
				return nil, err
			}
			return ast.AssignStmt{Name: name, Value: value}, nil
		}
	}

	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	return ast.ExprStmt{Expr: expr}, nil
}

func (p *Parser) ifChain() (ast.Stmt, error) {
	p.advance() // 'if'
	var branches []ast.IfBranch

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	branches = append(branches, ast.IfBranch{Cond: cond, Body: body})

	for p.peek().Type == token.ELSEIF {
		p.advance()
		cond, err := p.expression()
		if err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		branches = append(branches, ast.IfBranch{Cond: cond, Body: body})
	}

	var elseBody []ast.Stmt
	if p.peek().Type == token.ELSE {
		p.advance()
		b, err := p.block()
		if err != nil {
			return nil, err
		}
		elseBody = b
	}

	return ast.IfChain{Branches: branches, Else: elseBody}, nil
}

func (p *Parser) whileStatement() (ast.Stmt, error) {
	p.advance() // 'while'
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return ast.WhileStmt{Cond: cond, Body: body}, nil
}

func (p *Parser) forInLoop() (ast.Stmt, error) {
	p.advance() // 'for'
	nameTok := p.advance()
	if nameTok.Type != token.IDENT {
		return nil, &SyntaxError{Offset: nameTok.Offset, Message: "expected identifier after 'for'"}
	}
	inTok := p.advance()
	if inTok.Type != token.IN {
		return nil, &SyntaxError{Offset: inTok.Offset, Message: "expected 'in' after loop variable"}
	}
	iterable, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return ast.ForInLoop{Var: nameTok.Literal, Iterable: iterable, Body: body}, nil
}

func (p *Parser) functionDef() (ast.Stmt, error) {
	p.advance() // 'fn'
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	if p.peek().Type != token.RPAREN {
		t, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		params = append(params, t.Literal)
		for p.peek().Type == token.COMMA {
			p.advance()
			t, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			params = append(params, t.Literal)
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return ast.FunctionDef{Name: nameTok.Literal, Params: params, Body: body}, nil
}

// --- Expressions, precedence climbing ---

func (p *Parser) expression() (ast.Expr, error) { return p.orExpr() }

func (p *Parser) orExpr() (ast.Expr, error) {
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == token.OROR || p.peek().Type == token.OR {
		p.advance()
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Left: left, Op: ast.OpOr, Right: right}
	}
	return left, nil
}

func (p *Parser) andExpr() (ast.Expr, error) {
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == token.ANDAND || p.peek().Type == token.AND {
		p.advance()
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Left: left, Op: ast.OpAnd, Right: right}
	}
	return left, nil
}

var comparisonOps = map[token.Type]ast.BinOp{
	token.GT:    ast.OpGt,
	token.GTE:   ast.OpGte,
	token.LT:    ast.OpLt,
	token.LTE:   ast.OpLte,
	token.EQEQ:  ast.OpEq,
	token.NOTEQ: ast.OpNeq,
}

func (p *Parser) comparison() (ast.Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.peek().Type]
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Left: left, Op: op, Right: right}
	}
}

func (p *Parser) term() (ast.Expr, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == token.PLUS || p.peek().Type == token.MINUS {
		op := ast.OpAdd
		if p.peek().Type == token.MINUS {
			op = ast.OpSub
		}
		p.advance()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) factor() (ast.Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == token.STAR || p.peek().Type == token.SLASH {
		op := ast.OpMul
		if p.peek().Type == token.SLASH {
			op = ast.OpDiv
		}
		p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) unary() (ast.Expr, error) {
	if p.peek().Type == token.NOT {
		p.advance()
		expr, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ast.Not{Expr: expr}, nil
	}
	if p.peek().Type == token.MINUS {
		p.advance()
		expr, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Expr: expr}, nil
	}
	return p.primary()
}

func (p *Parser) primary() (ast.Expr, error) {
	tok := p.peek()
	var expr ast.Expr

	switch {
	case tok.Type == token.LBRACKET:
		p.advance()
		var elems []ast.Expr
		if p.peek().Type != token.RBRACKET {
			e, err := p.expression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			for p.peek().Type == token.COMMA {
				p.advance()
				e, err := p.expression()
				if err != nil {
					return nil, err
				}
				elems = append(elems, e)
			}
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
		expr = ast.ArrayLiteral{Elements: elems}

	case tok.Type == token.IDENT && tok.Literal == "range":
		p.advance()
		if _, err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		start, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COMMA); err != nil {
			return nil, err
		}
		end, err := p.expression()
		if err != nil {
			return nil, err
		}
		var step ast.Expr
		if p.peek().Type == token.COMMA {
			p.advance()
			s, err := p.expression()
			if err != nil {
				return nil, err
			}
			step = s
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		expr = ast.RangeExpr{Start: start, End: end, Step: step}

	case tok.Type == token.TRUE:
		p.advance()
		expr = ast.Boolean{Value: true}

	case tok.Type == token.FALSE:
		p.advance()
		expr = ast.Boolean{Value: false}

	case tok.Type == token.IDENT:
		p.advance()
		expr = ast.Var{Name: tok.Literal}

	case tok.Type == token.NUMBER:
		p.advance()
		expr = ast.Number{Value: tok.Int}

	case tok.Type == token.STRING:
		p.advance()
		expr = ast.String{Value: tok.Literal}

	case tok.Type == token.LPAREN:
		p.advance()
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		expr = e

	default:
		return nil, &SyntaxError{Offset: tok.Offset, Message: fmt.Sprintf("invalid expression starting with %s", tok.Type)}
	}

	for {
		if p.peek().Type == token.LBRACKET {
			p.advance()
			idx, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			expr = ast.IndexExpr{Array: expr, Index: idx}
			continue
		}
		if p.peek().Type == token.LPAREN {
			call, err := p.finishCall(expr)
			if err != nil {
				return nil, err
			}
			expr = call
			continue
		}
		break
	}

	return expr, nil
}

func (p *Parser) finishCall(callee ast.Expr) (ast.Expr, error) {
	name, ok := callee.(ast.Var)
	if !ok {
		return nil, &SyntaxError{Offset: p.peek().Offset, Message: "call target must be a plain function name"}
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Expr
	if p.peek().Type != token.RPAREN {
		a, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		for p.peek().Type == token.COMMA {
			p.advance()
			a, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return ast.CallExpr{Name: name.Name, Args: args}, nil
}

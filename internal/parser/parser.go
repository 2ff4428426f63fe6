// Package parser implements the recursive-descent parser described in
// the grammar: a single mutable token cursor, one function per grammar
// production, and a linear scope stack threaded through an explicit
// *Parser value rather than ambient globals.
package parser

import (
	"qcc/internal/ast"
	"qcc/internal/diag"
	"qcc/internal/token"
	"qcc/internal/types"
)

// Parser holds all state for one compile job's parse pass.
type Parser struct {
	src *diag.Source
	tok *token.Token // current token; advanced by next()

	prog   *ast.Program
	locals []*ast.Var // current function's locals+params, nil outside a function
	scope  []*ast.Var // lexical scope stack (globals, params, locals)

	dataLabel int // counter for anonymous ".L.data.N" string globals
}

// Parse consumes the token chain produced by internal/lexer and returns
// the program: every global variable and function definition, in the
// order they appear in the source.
func Parse(tok *token.Token, src *diag.Source) (*ast.Program, error) {
	p := &Parser{src: src, tok: tok, prog: &ast.Program{}}
	return p.parseProgram()
}

// --- token-stream helpers ---

func (p *Parser) errorf(pos int, format string, args ...interface{}) error {
	return diag.Errorf(p.src, pos, format, args...)
}

func (p *Parser) atEOF() bool {
	return p.tok.Kind == token.EOF
}

// consume advances past the current token and reports true if it is a
// Reserved token with exactly this text; otherwise it leaves the cursor
// untouched and reports false.
func (p *Parser) consume(text string) bool {
	if !p.tok.Is(text) {
		return false
	}
	p.tok = p.tok.Next
	return true
}

func (p *Parser) peekIs(text string) bool {
	return p.tok.Is(text)
}

func (p *Parser) expect(text string) error {
	if !p.tok.Is(text) {
		return p.errorf(p.tok.Pos, "expected %q", text)
	}
	p.tok = p.tok.Next
	return nil
}

func (p *Parser) expectIdent() (string, int, error) {
	if p.tok.Kind != token.Ident {
		return "", 0, p.errorf(p.tok.Pos, "expected an identifier")
	}
	name, pos := p.tok.Text, p.tok.Pos
	p.tok = p.tok.Next
	return name, pos, nil
}

func (p *Parser) expectNum() (int64, error) {
	if p.tok.Kind != token.Num {
		return 0, p.errorf(p.tok.Pos, "expected a number")
	}
	v := p.tok.IVal
	p.tok = p.tok.Next
	return v, nil
}

func (p *Parser) isTypename() bool {
	return p.peekIs("int") || p.peekIs("char") || p.peekIs("struct")
}

// --- program / declarations ---

// program = (global-var | function)*
func (p *Parser) parseProgram() (*ast.Program, error) {
	for !p.atEOF() {
		isFn, err := p.isFunction()
		if err != nil {
			return nil, err
		}
		if isFn {
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			p.prog.Funcs = append(p.prog.Funcs, fn)
		} else {
			if err := p.parseGlobalVar(); err != nil {
				return nil, err
			}
		}
	}
	return p.prog, nil
}

// isFunction looks ahead past a basetype and an identifier to see whether
// a "(" follows, then restores the cursor. This is the only lookahead
// beyond one token anywhere in the grammar.
func (p *Parser) isFunction() (bool, error) {
	save := p.tok
	defer func() { p.tok = save }()

	if _, err := p.parseBasetype(); err != nil {
		return false, nil
	}
	if p.tok.Kind != token.Ident {
		return false, nil
	}
	p.tok = p.tok.Next
	return p.peekIs("("), nil
}

// global-var = basetype ident type-suffix ";"
func (p *Parser) parseGlobalVar() error {
	ty, err := p.parseBasetype()
	if err != nil {
		return err
	}
	name, _, err := p.expectIdent()
	if err != nil {
		return err
	}
	ty, err = p.parseTypeSuffix(ty)
	if err != nil {
		return err
	}
	if err := p.expect(";"); err != nil {
		return err
	}
	p.declareGlobal(&ast.Var{Name: name, Type: ty})
	return nil
}

// basetype = ("int" | "char" | struct-decl) "*"*
func (p *Parser) parseBasetype() (*types.Type, error) {
	if !p.isTypename() {
		return nil, p.errorf(p.tok.Pos, "expected a type")
	}

	var ty *types.Type
	var err error
	switch {
	case p.consume("char"):
		ty = types.CharType()
	case p.consume("int"):
		ty = types.IntType()
	default:
		ty, err = p.parseStructDecl()
		if err != nil {
			return nil, err
		}
	}

	for p.consume("*") {
		ty = types.PointerTo(ty)
	}
	return ty, nil
}

// struct-decl = "struct" "{" struct-member* "}"
func (p *Parser) parseStructDecl() (*types.Type, error) {
	if err := p.expect("struct"); err != nil {
		return nil, err
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}

	var members []types.Member
	for !p.consume("}") {
		m, err := p.parseStructMember()
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return types.NewStruct(members), nil
}

// struct-member = basetype ident type-suffix ";"
func (p *Parser) parseStructMember() (types.Member, error) {
	ty, err := p.parseBasetype()
	if err != nil {
		return types.Member{}, err
	}
	name, _, err := p.expectIdent()
	if err != nil {
		return types.Member{}, err
	}
	ty, err = p.parseTypeSuffix(ty)
	if err != nil {
		return types.Member{}, err
	}
	if err := p.expect(";"); err != nil {
		return types.Member{}, err
	}
	return types.Member{Name: name, Type: ty}, nil
}

// type-suffix = ("[" num "]")*
//
// Nested brackets wrap from the inside out: "int x[2][3]" parses the
// outer "[2]" first but recurses on the remaining suffix before wrapping,
// so the result is array[2] of array[3] of int, matching C's declarator
// semantics for stacked brackets.
func (p *Parser) parseTypeSuffix(base *types.Type) (*types.Type, error) {
	if !p.consume("[") {
		return base, nil
	}
	n, err := p.expectNum()
	if err != nil {
		return nil, err
	}
	if err := p.expect("]"); err != nil {
		return nil, err
	}
	base, err = p.parseTypeSuffix(base)
	if err != nil {
		return nil, err
	}
	return types.ArrayOf(base, int(n)), nil
}

// function = basetype ident "(" params? ")" "{" stmt* "}"
func (p *Parser) parseFunction() (*ast.FuncDecl, error) {
	// Globals parsed so far remain visible (the scope stack is only
	// truncated on block exit); only the locals list resets per function.
	p.locals = nil

	if _, err := p.parseBasetype(); err != nil {
		return nil, err
	}
	name, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}

	fn := &ast.FuncDecl{Name: name}
	if err := p.parseParams(fn); err != nil {
		return nil, err
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}

	for !p.consume("}") {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		fn.Body = append(fn.Body, s)
	}

	fn.Locals = p.locals
	return fn, nil
}

// params = (param ("," param)*)?
// param  = basetype ident type-suffix?
func (p *Parser) parseParams(fn *ast.FuncDecl) error {
	if p.consume(")") {
		return nil
	}
	for {
		ty, err := p.parseBasetype()
		if err != nil {
			return err
		}
		name, _, err := p.expectIdent()
		if err != nil {
			return err
		}
		ty, err = p.parseTypeSuffix(ty)
		if err != nil {
			return err
		}
		v := &ast.Var{Name: name, Type: ty}
		p.declareLocal(v)
		fn.Params = append(fn.Params, v)

		if p.consume(")") {
			return nil
		}
		if err := p.expect(","); err != nil {
			return err
		}
	}
}

// --- statements ---

// stmt = "{" stmt* "}"
//      | "return" expr ";"
//      | "if" "(" expr ")" stmt ("else" stmt)?
//      | "while" "(" expr ")" stmt
//      | "for" "(" expr? ";" expr? ";" expr? ")" stmt
//      | declaration
//      | expr ";"
func (p *Parser) parseStmt() (ast.Stmt, error) {
	pos := p.tok.Pos

	if p.consume("{") {
		m := p.enterScope()
		var stmts []ast.Stmt
		for !p.consume("}") {
			s, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, s)
		}
		p.leaveScope(m)
		return ast.NewBlock(pos, stmts), nil
	}

	if p.consume("return") {
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
		return ast.NewReturn(pos, x), nil
	}

	if p.consume("if") {
		if err := p.expect("("); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		then, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		var els ast.Stmt
		if p.consume("else") {
			els, err = p.parseStmt()
			if err != nil {
				return nil, err
			}
		}
		return ast.NewIf(pos, cond, then, els), nil
	}

	if p.consume("while") {
		if err := p.expect("("); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		body, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		return ast.NewWhile(pos, cond, body), nil
	}

	if p.consume("for") {
		if err := p.expect("("); err != nil {
			return nil, err
		}
		var init, cond, inc ast.Expr
		var err error
		if !p.consume(";") {
			init, err = p.parseExprStmtValue()
			if err != nil {
				return nil, err
			}
			if err := p.expect(";"); err != nil {
				return nil, err
			}
		}
		if !p.consume(";") {
			cond, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(";"); err != nil {
				return nil, err
			}
		}
		if !p.consume(")") {
			inc, err = p.parseExprStmtValue()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
		}
		body, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		return ast.NewFor(pos, init, cond, inc, body), nil
	}

	if p.isTypename() {
		return p.parseDeclaration()
	}

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	return ast.NewExprStmt(pos, x), nil
}

// parseExprStmtValue parses a bare expression (used for for-loop
// init/inc clauses, which are not expression-statements themselves but
// share the same underlying grammar).
func (p *Parser) parseExprStmtValue() (ast.Expr, error) {
	return p.parseExpr()
}

// declaration = basetype ident type-suffix? ("=" expr)? ";"
func (p *Parser) parseDeclaration() (ast.Stmt, error) {
	pos := p.tok.Pos
	ty, err := p.parseBasetype()
	if err != nil {
		return nil, err
	}
	name, namePos, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	ty, err = p.parseTypeSuffix(ty)
	if err != nil {
		return nil, err
	}
	v := &ast.Var{Name: name, Type: ty}
	p.declareLocal(v)

	if p.consume(";") {
		return ast.NewNull(pos), nil
	}

	if err := p.expect("="); err != nil {
		return nil, err
	}
	lhs := ast.NewVarExpr(namePos, v)
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	return ast.NewExprStmt(pos, ast.NewAssign(pos, lhs, rhs)), nil
}

// --- expressions ---

// expr = assign
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseAssign()
}

// assign = equality ("=" assign)?   -- right-associative
func (p *Parser) parseAssign() (ast.Expr, error) {
	node, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	if pos := p.tok.Pos; p.consume("=") {
		rhs, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return ast.NewAssign(pos, node, rhs), nil
	}
	return node, nil
}

// equality = relational (("==" | "!=") relational)*
func (p *Parser) parseEquality() (ast.Expr, error) {
	node, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for {
		pos := p.tok.Pos
		switch {
		case p.consume("=="):
			r, err := p.parseRelational()
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(pos, ast.Eq, node, r)
		case p.consume("!="):
			r, err := p.parseRelational()
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(pos, ast.Ne, node, r)
		default:
			return node, nil
		}
	}
}

// relational = add (("<" | "<=" | ">" | ">=") add)*
//
// ">" and ">=" swap operands and emit "<"/"<=" — there is no dedicated
// node kind for them.
func (p *Parser) parseRelational() (ast.Expr, error) {
	node, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	for {
		pos := p.tok.Pos
		switch {
		case p.consume("<"):
			r, err := p.parseAdd()
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(pos, ast.Lt, node, r)
		case p.consume("<="):
			r, err := p.parseAdd()
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(pos, ast.Le, node, r)
		case p.consume(">"):
			r, err := p.parseAdd()
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(pos, ast.Lt, r, node)
		case p.consume(">="):
			r, err := p.parseAdd()
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(pos, ast.Le, r, node)
		default:
			return node, nil
		}
	}
}

// add = mul (("+" | "-") mul)*
func (p *Parser) parseAdd() (ast.Expr, error) {
	node, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for {
		pos := p.tok.Pos
		switch {
		case p.consume("+"):
			r, err := p.parseMul()
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(pos, ast.Add, node, r)
		case p.consume("-"):
			r, err := p.parseMul()
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(pos, ast.Sub, node, r)
		default:
			return node, nil
		}
	}
}

// mul = unary (("*" | "/") unary)*
func (p *Parser) parseMul() (ast.Expr, error) {
	node, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		pos := p.tok.Pos
		switch {
		case p.consume("*"):
			r, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(pos, ast.Mul, node, r)
		case p.consume("/"):
			r, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(pos, ast.Div, node, r)
		default:
			return node, nil
		}
	}
}

// unary = ("+" | "-") unary
//       | ("*" | "&") unary
//       | postfix
func (p *Parser) parseUnary() (ast.Expr, error) {
	pos := p.tok.Pos

	if p.consume("+") {
		return p.parseUnary()
	}
	if p.consume("-") {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewBinary(pos, ast.Sub, ast.NewNum(pos, 0), x), nil
	}
	if p.consume("*") {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(pos, ast.Deref, x), nil
	}
	if p.consume("&") {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(pos, ast.Addr, x), nil
	}
	return p.parsePostfix()
}

// postfix = primary (("[" expr "]") | ("." ident))*
//
// "x[y]" desugars to "*(x + y)" at parse time.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		pos := p.tok.Pos
		if p.consume("[") {
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			node = ast.NewUnary(pos, ast.Deref, ast.NewBinary(pos, ast.Add, node, idx))
			continue
		}
		if p.consume(".") {
			name, _, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			node = ast.NewMember(pos, node, name)
			continue
		}
		return node, nil
	}
}

// primary = "(" "{" stmt stmt* "}" ")"
//         | "(" expr ")"
//         | "sizeof" unary
//         | ident "(" func-args? ")"
//         | ident
//         | num
//         | string-literal
func (p *Parser) parsePrimary() (ast.Expr, error) {
	pos := p.tok.Pos

	if p.consume("(") {
		if p.peekIs("{") {
			return p.parseStmtExpr(pos)
		}
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return x, nil
	}

	if p.consume("sizeof") {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewSizeof(pos, x), nil
	}

	if p.tok.Kind == token.Ident {
		name, namePos, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if p.consume("(") {
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			return ast.NewCall(namePos, name, args), nil
		}
		v := p.lookup(name)
		if v == nil {
			return nil, p.errorf(namePos, "undefined variable: %s", name)
		}
		return ast.NewVarExpr(namePos, v), nil
	}

	if p.tok.Kind == token.Num {
		v, err := p.expectNum()
		if err != nil {
			return nil, err
		}
		return ast.NewNum(pos, v), nil
	}

	if p.tok.Kind == token.Str {
		return p.parseStringLiteral()
	}

	return nil, p.errorf(p.tok.Pos, "expected an expression")
}

// func-args = "(" (assign ("," assign)*)? ")"  -- "(" already consumed
func (p *Parser) parseCallArgs() ([]ast.Expr, error) {
	if p.consume(")") {
		return nil, nil
	}
	var args []ast.Expr
	for {
		a, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.consume(")") {
			return args, nil
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
}

// parseStringLiteral hoists a string literal to an anonymous global of
// type "array of char" sized to the literal's decoded length (including
// its trailing NUL), and returns a reference to that global.
func (p *Parser) parseStringLiteral() (ast.Expr, error) {
	pos, sval := p.tok.Pos, p.tok.SVal
	p.tok = p.tok.Next

	ty := types.ArrayOf(types.CharType(), len(sval))
	v := &ast.Var{Name: p.newDataLabel(), Type: ty, Payload: sval}
	p.declareGlobal(v)
	return ast.NewVarExpr(pos, v), nil
}

// stmt-expr = "(" "{" stmt stmt* "}" ")"   -- "(" "{" already consumed up to "{"
func (p *Parser) parseStmtExpr(pos int) (ast.Expr, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	m := p.enterScope()

	first, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	stmts := []ast.Stmt{first}
	for !p.consume("}") {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	p.leaveScope(m)

	last := stmts[len(stmts)-1]
	es, ok := last.(*ast.ExprStmt)
	if !ok {
		return nil, p.errorf(last.Pos(), "statement expression returning void is not supported")
	}
	return ast.NewStmtExpr(pos, stmts[:len(stmts)-1], es.X), nil
}

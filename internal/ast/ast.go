// Package ast defines the typed abstract syntax tree the parser builds and
// the type elaborator annotates. Node kinds are modeled as a
// tagged variant: one concrete Go type per AST node kind, each carrying
// only the child slots its kind needs, rather than one struct with every
// optional field a C-style union would need.
package ast

import "qcc/internal/types"

// Var is a declared variable: a parameter, a local, or a global. Locals
// (including parameters) carry a positive Offset, "bytes below rbp",
// assigned by the driver after parsing completes. Globals carry an
// optional raw byte Payload (non-nil for string-literal globals) and are
// identified by Name, which for anonymous string literals is a generated
// ".L.data.N" label.
type Var struct {
	Name    string
	Type    *types.Type
	IsLocal bool
	Offset  int    // locals only: bytes below rbp
	Payload []byte // globals only: non-nil for string-literal data
}

// FuncDecl is one function definition: its parameters, its full local
// table (parameters included, in declaration order), its body, and the
// computed frame size once the driver has assigned offsets.
type FuncDecl struct {
	Name      string
	Params    []*Var
	Locals    []*Var // includes Params, in declaration order
	Body      []Stmt
	FrameSize int
}

// Program is the parser's top-level output: every global variable and
// every function definition in the source file.
type Program struct {
	Globals []*Var
	Funcs   []*FuncDecl
}

// Expr is any AST node that produces a value. GetType returns nil until
// the type elaborator has run.
type Expr interface {
	exprNode()
	Pos() int
	GetType() *types.Type
	SetType(*types.Type)
}

// Stmt is any AST node that does not itself produce a value.
type Stmt interface {
	stmtNode()
	Pos() int
}

// base carries the fields every expression needs: its result type (filled
// in by internal/sema) and the source position of the token it was built
// from, for diagnostics.
type base struct {
	typ    *types.Type
	tokPos int
}

func (b *base) Pos() int              { return b.tokPos }
func (b *base) GetType() *types.Type  { return b.typ }
func (b *base) SetType(t *types.Type) { b.typ = t }

// BinaryOp enumerates the binary arithmetic/comparison operators.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Eq
	Ne
	Lt
	Le
)

// UnaryOp enumerates the unary operators.
type UnaryOp int

const (
	Addr UnaryOp = iota
	Deref
)

// NumExpr is an integer literal.
type NumExpr struct {
	base
	Val int64
}

func (*NumExpr) exprNode() {}

// NewNum builds a NumExpr at the given source position.
func NewNum(pos int, val int64) *NumExpr {
	return &NumExpr{base: base{tokPos: pos}, Val: val}
}

// VarExpr references a declared variable. Variable resolution happens at
// parse time, so this node always carries a
// resolved *Var once built.
type VarExpr struct {
	base
	Var *Var
}

func (*VarExpr) exprNode() {}

func NewVarExpr(pos int, v *Var) *VarExpr {
	return &VarExpr{base: base{tokPos: pos}, Var: v}
}

// BinaryExpr is a binary arithmetic or comparison expression.
type BinaryExpr struct {
	base
	Op   BinaryOp
	L, R Expr
}

func (*BinaryExpr) exprNode() {}

func NewBinary(pos int, op BinaryOp, l, r Expr) *BinaryExpr {
	return &BinaryExpr{base: base{tokPos: pos}, Op: op, L: l, R: r}
}

// AssignExpr is "lhs = rhs".
type AssignExpr struct {
	base
	LHS, RHS Expr
}

func (*AssignExpr) exprNode() {}

func NewAssign(pos int, lhs, rhs Expr) *AssignExpr {
	return &AssignExpr{base: base{tokPos: pos}, LHS: lhs, RHS: rhs}
}

// UnaryExpr is "&x" or "*x".
type UnaryExpr struct {
	base
	Op UnaryOp
	X  Expr
}

func (*UnaryExpr) exprNode() {}

func NewUnary(pos int, op UnaryOp, x Expr) *UnaryExpr {
	return &UnaryExpr{base: base{tokPos: pos}, Op: op, X: x}
}

// SizeofExpr is "sizeof x", before type elaboration rewrites it to a
// NumExpr carrying the size.
type SizeofExpr struct {
	base
	X Expr
}

func (*SizeofExpr) exprNode() {}

func NewSizeof(pos int, x Expr) *SizeofExpr {
	return &SizeofExpr{base: base{tokPos: pos}, X: x}
}

// MemberExpr is "x.name".
type MemberExpr struct {
	base
	X    Expr
	Name string
}

func (*MemberExpr) exprNode() {}

func NewMember(pos int, x Expr, name string) *MemberExpr {
	return &MemberExpr{base: base{tokPos: pos}, X: x, Name: name}
}

// CallExpr is "name(args...)".
type CallExpr struct {
	base
	Name string
	Args []Expr
}

func (*CallExpr) exprNode() {}

func NewCall(pos int, name string, args []Expr) *CallExpr {
	return &CallExpr{base: base{tokPos: pos}, Name: name, Args: args}
}

// StmtExpr is a GNU statement expression "({ stmts...; expr; })". It
// evaluates to the value of its last statement, which the parser
// guarantees is an expression-statement by unwrapping it into Value.
type StmtExpr struct {
	base
	Stmts []Stmt
	Value Expr // the unwrapped last expression-statement's expression
}

func (*StmtExpr) exprNode() {}

func NewStmtExpr(pos int, stmts []Stmt, value Expr) *StmtExpr {
	return &StmtExpr{base: base{tokPos: pos}, Stmts: stmts, Value: value}
}

// stmtBase carries just the source position for statement nodes.
type stmtBase struct {
	tokPos int
}

func (b *stmtBase) Pos() int { return b.tokPos }

// NullStmt is an empty declaration/statement: it generates no code.
type NullStmt struct{ stmtBase }

func (*NullStmt) stmtNode() {}

func NewNull(pos int) *NullStmt { return &NullStmt{stmtBase{pos}} }

// ExprStmt wraps an expression evaluated for effect; code generation
// discards its pushed value.
type ExprStmt struct {
	stmtBase
	X Expr
}

func (*ExprStmt) stmtNode() {}

func NewExprStmt(pos int, x Expr) *ExprStmt {
	return &ExprStmt{stmtBase{pos}, x}
}

// Block is a brace-delimited sequence of statements.
type Block struct {
	stmtBase
	Stmts []Stmt
}

func (*Block) stmtNode() {}

func NewBlock(pos int, stmts []Stmt) *Block {
	return &Block{stmtBase{pos}, stmts}
}

// IfStmt is "if (cond) then [else els]".
type IfStmt struct {
	stmtBase
	Cond       Expr
	Then, Else Stmt // Else is nil if absent
}

func (*IfStmt) stmtNode() {}

func NewIf(pos int, cond Expr, then, els Stmt) *IfStmt {
	return &IfStmt{stmtBase{pos}, cond, then, els}
}

// WhileStmt is "while (cond) body".
type WhileStmt struct {
	stmtBase
	Cond Expr
	Body Stmt
}

func (*WhileStmt) stmtNode() {}

func NewWhile(pos int, cond Expr, body Stmt) *WhileStmt {
	return &WhileStmt{stmtBase{pos}, cond, body}
}

// ForStmt is "for (init; cond; inc) body"; each of Init/Cond/Inc may be nil.
type ForStmt struct {
	stmtBase
	Init, Cond, Inc Expr
	Body            Stmt
}

func (*ForStmt) stmtNode() {}

func NewFor(pos int, init, cond, inc Expr, body Stmt) *ForStmt {
	return &ForStmt{stmtBase{pos}, init, cond, inc, body}
}

// ReturnStmt is "return x;".
type ReturnStmt struct {
	stmtBase
	X Expr
}

func (*ReturnStmt) stmtNode() {}

func NewReturn(pos int, x Expr) *ReturnStmt {
	return &ReturnStmt{stmtBase{pos}, x}
}

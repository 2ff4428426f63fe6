// Package sema implements the type elaborator: a single depth-first walk
// that assigns a result type to every expression node and performs two
// rewrites, pointer+integer commutativity for "+" and folding
// "sizeof x" into an integer literal.
package sema

import (
	"qcc/internal/ast"
	"qcc/internal/diag"
	"qcc/internal/types"
)

type elaborator struct {
	src *diag.Source
}

// Elaborate walks every function body in prog, assigning result types and
// replacing each sizeof expression with an integer literal in its parent's
// child slot. Globals need no elaboration:
// their declared type is already final.
func Elaborate(prog *ast.Program, src *diag.Source) error {
	e := &elaborator{src: src}
	for _, fn := range prog.Funcs {
		for i, s := range fn.Body {
			ns, err := e.stmt(s)
			if err != nil {
				return err
			}
			fn.Body[i] = ns
		}
	}
	return nil
}

func (e *elaborator) errorf(pos int, format string, args ...interface{}) error {
	return diag.Errorf(e.src, pos, format, args...)
}

// stmt elaborates a statement and everything beneath it, returning a
// (possibly identical) replacement — needed because a child expression
// slot might itself need rewriting (sizeof) and Go's typed AST can't
// mutate a *SizeofExpr into a *NumExpr in place.
func (e *elaborator) stmt(s ast.Stmt) (ast.Stmt, error) {
	switch n := s.(type) {
	case *ast.NullStmt:
		return n, nil

	case *ast.ExprStmt:
		x, err := e.expr(n.X)
		if err != nil {
			return nil, err
		}
		n.X = x
		return n, nil

	case *ast.Block:
		for i, c := range n.Stmts {
			nc, err := e.stmt(c)
			if err != nil {
				return nil, err
			}
			n.Stmts[i] = nc
		}
		return n, nil

	case *ast.IfStmt:
		cond, err := e.expr(n.Cond)
		if err != nil {
			return nil, err
		}
		n.Cond = cond
		then, err := e.stmt(n.Then)
		if err != nil {
			return nil, err
		}
		n.Then = then
		if n.Else != nil {
			els, err := e.stmt(n.Else)
			if err != nil {
				return nil, err
			}
			n.Else = els
		}
		return n, nil

	case *ast.WhileStmt:
		cond, err := e.expr(n.Cond)
		if err != nil {
			return nil, err
		}
		n.Cond = cond
		body, err := e.stmt(n.Body)
		if err != nil {
			return nil, err
		}
		n.Body = body
		return n, nil

	case *ast.ForStmt:
		if n.Init != nil {
			x, err := e.expr(n.Init)
			if err != nil {
				return nil, err
			}
			n.Init = x
		}
		if n.Cond != nil {
			x, err := e.expr(n.Cond)
			if err != nil {
				return nil, err
			}
			n.Cond = x
		}
		if n.Inc != nil {
			x, err := e.expr(n.Inc)
			if err != nil {
				return nil, err
			}
			n.Inc = x
		}
		body, err := e.stmt(n.Body)
		if err != nil {
			return nil, err
		}
		n.Body = body
		return n, nil

	case *ast.ReturnStmt:
		x, err := e.expr(n.X)
		if err != nil {
			return nil, err
		}
		n.X = x
		return n, nil

	default:
		return nil, e.errorf(s.Pos(), "internal: unreachable statement kind in elaborator")
	}
}

// expr elaborates x and everything beneath it, recursing into every
// child slot before assigning x's own result type according to a fixed
// node-kind-to-type table. It returns the node that should replace x in
// its parent's child slot (itself, except for sizeof).
func (e *elaborator) expr(x ast.Expr) (ast.Expr, error) {
	switch n := x.(type) {
	case *ast.NumExpr:
		n.SetType(types.IntType())
		return n, nil

	case *ast.VarExpr:
		n.SetType(n.Var.Type)
		return n, nil

	case *ast.BinaryExpr:
		l, err := e.expr(n.L)
		if err != nil {
			return nil, err
		}
		n.L = l
		r, err := e.expr(n.R)
		if err != nil {
			return nil, err
		}
		n.R = r
		return e.binary(n)

	case *ast.AssignExpr:
		lhs, err := e.expr(n.LHS)
		if err != nil {
			return nil, err
		}
		n.LHS = lhs
		rhs, err := e.expr(n.RHS)
		if err != nil {
			return nil, err
		}
		n.RHS = rhs
		if n.LHS.GetType().Kind == types.Array {
			return nil, e.errorf(n.Pos(), "cannot assign to an array")
		}
		n.SetType(n.LHS.GetType())
		return n, nil

	case *ast.UnaryExpr:
		inner, err := e.expr(n.X)
		if err != nil {
			return nil, err
		}
		n.X = inner
		return e.unary(n)

	case *ast.SizeofExpr:
		inner, err := e.expr(n.X)
		if err != nil {
			return nil, err
		}
		num := ast.NewNum(n.Pos(), int64(inner.GetType().Size()))
		num.SetType(types.IntType())
		return num, nil

	case *ast.MemberExpr:
		lhs, err := e.expr(n.X)
		if err != nil {
			return nil, err
		}
		n.X = lhs
		st := n.X.GetType()
		if !st.IsStruct() {
			return nil, e.errorf(n.Pos(), "member access on a non-struct type")
		}
		m := st.FindMember(n.Name)
		if m == nil {
			return nil, e.errorf(n.Pos(), "no member named %q", n.Name)
		}
		n.SetType(m.Type)
		return n, nil

	case *ast.CallExpr:
		for i, a := range n.Args {
			na, err := e.expr(a)
			if err != nil {
				return nil, err
			}
			n.Args[i] = na
		}
		n.SetType(types.IntType())
		return n, nil

	case *ast.StmtExpr:
		for i, s := range n.Stmts {
			ns, err := e.stmt(s)
			if err != nil {
				return nil, err
			}
			n.Stmts[i] = ns
		}
		val, err := e.expr(n.Value)
		if err != nil {
			return nil, err
		}
		n.Value = val
		n.SetType(n.Value.GetType())
		return n, nil

	default:
		return nil, e.errorf(x.Pos(), "internal: unreachable expression kind in elaborator")
	}
}

// binary assigns a result type to an already-elaborated BinaryExpr. "+"
// is commutative across the pointer/integer distinction: if the rhs has a
// base and the lhs does not, the operands are swapped so the pointer
// always ends up on the left, which is what the code generator assumes
// when scaling.
func (e *elaborator) binary(n *ast.BinaryExpr) (ast.Expr, error) {
	switch n.Op {
	case ast.Mul, ast.Div, ast.Eq, ast.Ne, ast.Lt, ast.Le:
		n.SetType(types.IntType())
		return n, nil

	case ast.Add:
		lb, rb := n.L.GetType().HasBase(), n.R.GetType().HasBase()
		if lb && rb {
			return nil, e.errorf(n.Pos(), "invalid operands to pointer arithmetic")
		}
		if !lb && rb {
			n.L, n.R = n.R, n.L
		}
		n.SetType(n.L.GetType())
		return n, nil

	case ast.Sub:
		if n.R.GetType().HasBase() {
			return nil, e.errorf(n.Pos(), "invalid operands to pointer arithmetic")
		}
		n.SetType(n.L.GetType())
		return n, nil

	default:
		return nil, e.errorf(n.Pos(), "internal: unreachable binary operator in elaborator")
	}
}

// unary assigns a result type to an already-elaborated UnaryExpr.
// "&x" decays an array operand to a pointer to its element type
// (taking the address of an array is the same as taking the address
// of its first element); any other operand yields a plain pointer.
func (e *elaborator) unary(n *ast.UnaryExpr) (ast.Expr, error) {
	switch n.Op {
	case ast.Addr:
		xt := n.X.GetType()
		if xt.Kind == types.Array {
			n.SetType(types.PointerTo(xt.Base))
		} else {
			n.SetType(types.PointerTo(xt))
		}
		return n, nil

	case ast.Deref:
		xt := n.X.GetType()
		if !xt.HasBase() {
			return nil, e.errorf(n.Pos(), "dereference of a non-pointer type")
		}
		n.SetType(xt.Base)
		return n, nil

	default:
		return nil, e.errorf(n.Pos(), "internal: unreachable unary operator in elaborator")
	}
}

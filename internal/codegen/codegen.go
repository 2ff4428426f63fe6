package codegen

import (
	"fmt"
	"io"

	"qcc/internal/ast"
	"qcc/internal/diag"
	"qcc/internal/types"
)

var argReg64 = [6]string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
var argReg8 = [6]string{"dil", "sil", "dl", "cl", "r8b", "r9b"}

// generator holds the mutable state of one code-generation pass: the
// label counter and the name of the function currently being emitted.
// Both are owned by the single driver thread; no locking is needed.
type generator struct {
	e        *Emitter
	src      *diag.Source
	labelSeq int
	curFunc  string
}

func (g *generator) newLabel(prefix string) string {
	n := g.labelSeq
	g.labelSeq++
	return fmt.Sprintf(".L%s%d", prefix, n)
}

func (g *generator) errorf(pos int, format string, args ...interface{}) error {
	return diag.Errorf(g.src, pos, format, args...)
}

// EmitData writes the ".data" section: one label per global, followed by
// either a ".zero <size>" directive (zero-initialized) or a run of
// ".byte <n>" directives holding a string literal's decoded bytes.
func EmitData(prog *ast.Program, w io.Writer) error {
	e := NewEmitter(w)
	e.Directive(".data")
	for _, v := range prog.Globals {
		e.Label(v.Name)
		if v.Payload == nil {
			e.Directive("  .zero %d", v.Type.Size())
			continue
		}
		for _, b := range v.Payload {
			e.Directive("  .byte %d", b)
		}
	}
	return e.Flush()
}

// EmitText writes the ".text" section: one ".global"-prefixed function per
// ast.FuncDecl, in declaration order.
func EmitText(prog *ast.Program, src *diag.Source, w io.Writer) error {
	e := NewEmitter(w)
	e.Directive(".text")
	g := &generator{e: e, src: src}
	for _, fn := range prog.Funcs {
		if err := g.function(fn); err != nil {
			return err
		}
	}
	return e.Flush()
}

// function emits one function's prologue, body, and epilogue.
func (g *generator) function(fn *ast.FuncDecl) error {
	g.curFunc = fn.Name
	e := g.e

	e.Directive(".global %s", fn.Name)
	e.Label(fn.Name)

	e.Push("rbp")
	e.Instr2("mov", "rbp", "rsp")
	e.Instr2("sub", "rsp", fmt.Sprint(fn.FrameSize))

	for i, p := range fn.Params {
		reg := argReg64[i]
		if p.Type.Size() == 1 {
			reg = argReg8[i]
		}
		e.Instr2("mov", fmt.Sprintf("[rbp-%d]", p.Offset), reg)
	}

	for _, s := range fn.Body {
		if err := g.stmt(s); err != nil {
			return err
		}
	}

	e.Label(".Lreturn." + fn.Name)
	e.Instr2("mov", "rsp", "rbp")
	e.Pop("rbp")
	e.Instr0("ret")
	return nil
}

// stmt emits one statement; every statement leaves the runtime stack
// net-unchanged.
func (g *generator) stmt(s ast.Stmt) error {
	e := g.e

	switch n := s.(type) {
	case *ast.NullStmt:
		return nil

	case *ast.ExprStmt:
		if err := g.gen(n.X); err != nil {
			return err
		}
		e.Instr2("add", "rsp", "8")
		return nil

	case *ast.Block:
		for _, c := range n.Stmts {
			if err := g.stmt(c); err != nil {
				return err
			}
		}
		return nil

	case *ast.IfStmt:
		if err := g.gen(n.Cond); err != nil {
			return err
		}
		e.Pop("rax")
		e.Instr2("cmp", "rax", "0")
		if n.Else != nil {
			label := g.newLabel("else")
			end := g.newLabel("end")
			e.Instr1("je", label)
			if err := g.stmt(n.Then); err != nil {
				return err
			}
			e.Instr1("jmp", end)
			e.Label(label)
			if err := g.stmt(n.Else); err != nil {
				return err
			}
			e.Label(end)
		} else {
			end := g.newLabel("end")
			e.Instr1("je", end)
			if err := g.stmt(n.Then); err != nil {
				return err
			}
			e.Label(end)
		}
		return nil

	case *ast.WhileStmt:
		begin := g.newLabel("begin")
		end := g.newLabel("end")
		e.Label(begin)
		if err := g.gen(n.Cond); err != nil {
			return err
		}
		e.Pop("rax")
		e.Instr2("cmp", "rax", "0")
		e.Instr1("je", end)
		if err := g.stmt(n.Body); err != nil {
			return err
		}
		e.Instr1("jmp", begin)
		e.Label(end)
		return nil

	case *ast.ForStmt:
		begin := g.newLabel("begin")
		end := g.newLabel("end")
		if n.Init != nil {
			if err := g.gen(n.Init); err != nil {
				return err
			}
			e.Instr2("add", "rsp", "8")
		}
		e.Label(begin)
		if n.Cond != nil {
			if err := g.gen(n.Cond); err != nil {
				return err
			}
			e.Pop("rax")
			e.Instr2("cmp", "rax", "0")
			e.Instr1("je", end)
		}
		if err := g.stmt(n.Body); err != nil {
			return err
		}
		if n.Inc != nil {
			if err := g.gen(n.Inc); err != nil {
				return err
			}
			e.Instr2("add", "rsp", "8")
		}
		e.Instr1("jmp", begin)
		e.Label(end)
		return nil

	case *ast.ReturnStmt:
		if err := g.gen(n.X); err != nil {
			return err
		}
		e.Pop("rax")
		e.Instr1("jmp", ".Lreturn."+g.curFunc)
		return nil

	default:
		return g.errorf(s.Pos(), "internal: unreachable statement kind in code generator")
	}
}

// gen emits an expression: it always leaves exactly one 8-byte value on
// the runtime stack.
func (g *generator) gen(x ast.Expr) error {
	e := g.e

	switch n := x.(type) {
	case *ast.NumExpr:
		e.Push(fmt.Sprint(n.Val))
		return nil

	case *ast.VarExpr:
		if err := g.genAddr(n); err != nil {
			return err
		}
		if n.GetType().Kind != types.Array {
			g.load(n.GetType())
		}
		return nil

	case *ast.MemberExpr:
		if err := g.genAddr(n); err != nil {
			return err
		}
		if n.GetType().Kind != types.Array {
			g.load(n.GetType())
		}
		return nil

	case *ast.UnaryExpr:
		switch n.Op {
		case ast.Addr:
			return g.genAddr(n.X)
		case ast.Deref:
			if err := g.gen(n.X); err != nil {
				return err
			}
			if n.GetType().Kind != types.Array {
				g.load(n.GetType())
			}
			return nil
		}
		return g.errorf(n.Pos(), "internal: unreachable unary operator in code generator")

	case *ast.AssignExpr:
		if n.LHS.GetType().Kind == types.Array {
			return g.errorf(n.Pos(), "cannot assign to an array")
		}
		if err := g.genAddr(n.LHS); err != nil {
			return err
		}
		if err := g.gen(n.RHS); err != nil {
			return err
		}
		g.store(n.LHS.GetType())
		return nil

	case *ast.BinaryExpr:
		return g.binary(n)

	case *ast.StmtExpr:
		for _, s := range n.Stmts {
			if err := g.stmt(s); err != nil {
				return err
			}
		}
		return g.gen(n.Value)

	case *ast.CallExpr:
		return g.call(n)

	default:
		return g.errorf(x.Pos(), "internal: unreachable expression kind in code generator")
	}
}

// binary emits a binary arithmetic/comparison expression: evaluate both
// operands (each pushes one value), pop rhs into rdi and lhs into rax,
// scale rdi when the result type carries a base (pointer arithmetic),
// emit the operator, and push the result.
func (g *generator) binary(n *ast.BinaryExpr) error {
	e := g.e

	if err := g.gen(n.L); err != nil {
		return err
	}
	if err := g.gen(n.R); err != nil {
		return err
	}
	e.Pop("rdi")
	e.Pop("rax")

	if (n.Op == ast.Add || n.Op == ast.Sub) && n.GetType().HasBase() {
		e.Instr2("imul", "rdi", fmt.Sprint(n.GetType().Base.Size()))
	}

	switch n.Op {
	case ast.Add:
		e.Instr2("add", "rax", "rdi")
	case ast.Sub:
		e.Instr2("sub", "rax", "rdi")
	case ast.Mul:
		e.Instr2("imul", "rax", "rdi")
	case ast.Div:
		e.Instr0("cqo")
		e.Instr1("idiv", "rdi")
	case ast.Eq:
		g.compare("sete")
	case ast.Ne:
		g.compare("setne")
	case ast.Lt:
		g.compare("setl")
	case ast.Le:
		g.compare("setle")
	default:
		return g.errorf(n.Pos(), "internal: unreachable binary operator in code generator")
	}
	e.Push("rax")
	return nil
}

func (g *generator) compare(setOp string) {
	e := g.e
	e.Instr2("cmp", "rax", "rdi")
	e.Instr1(setOp, "al")
	e.Instr2("movzb", "rax", "al")
}

// call emits each argument left-to-right (each pushes one value), then
// pops them into the argument registers from the last argument down so
// that argReg64[i] ends up holding the i-th argument, and wraps the call
// with dynamic 16-byte stack alignment.
func (g *generator) call(n *ast.CallExpr) error {
	e := g.e

	for _, a := range n.Args {
		if err := g.gen(a); err != nil {
			return err
		}
	}
	for i := len(n.Args) - 1; i >= 0; i-- {
		e.Pop(argReg64[i])
	}

	aligned := g.newLabel("call")
	e.Instr2("mov", "rax", "rsp")
	e.Instr2("and", "rax", "15")
	e.Instr2("cmp", "rax", "0")
	e.Instr1("je", aligned)
	e.Instr2("sub", "rsp", "8")
	e.Instr2("mov", "rax", "0")
	e.Instr1("call", n.Name)
	e.Instr2("add", "rsp", "8")
	end := g.newLabel("end")
	e.Instr1("jmp", end)
	e.Label(aligned)
	e.Instr2("mov", "rax", "0")
	e.Instr1("call", n.Name)
	e.Label(end)
	e.Push("rax")
	return nil
}

// genAddr emits the address of an lvalue expression.
func (g *generator) genAddr(x ast.Expr) error {
	e := g.e

	switch n := x.(type) {
	case *ast.VarExpr:
		if n.Var.IsLocal {
			e.Instr2("mov", "rax", "rbp")
			e.Instr2("sub", "rax", fmt.Sprint(n.Var.Offset))
			e.Push("rax")
		} else {
			e.Push("offset " + n.Var.Name)
		}
		return nil

	case *ast.UnaryExpr:
		if n.Op == ast.Deref {
			return g.gen(n.X)
		}
		return g.errorf(n.Pos(), "not a variable")

	case *ast.MemberExpr:
		if err := g.genAddr(n.X); err != nil {
			return err
		}
		st := n.X.GetType()
		m := st.FindMember(n.Name)
		e.Pop("rax")
		e.Instr2("add", "rax", fmt.Sprint(m.Offset))
		e.Push("rax")
		return nil

	default:
		return g.errorf(x.Pos(), "not a variable")
	}
}

// load dereferences the address on top of the stack into a value of the
// given type and pushes it back.
func (g *generator) load(ty *types.Type) {
	e := g.e
	e.Pop("rax")
	if ty.Size() == 1 {
		e.Instr1("movsx", "rax, byte ptr [rax]")
	} else {
		e.Instr2("mov", "rax", "[rax]")
	}
	e.Push("rax")
}

// store pops a value and an address off the stack (value on top), writes
// the value to the address, and pushes the value back so assignment is
// itself an expression.
func (g *generator) store(ty *types.Type) {
	e := g.e
	e.Pop("rdi") // value
	e.Pop("rax") // address
	if ty.Size() == 1 {
		e.Instr2("mov", "[rax]", "dil")
	} else {
		e.Instr2("mov", "[rax]", "rdi")
	}
	e.Push("rdi")
}

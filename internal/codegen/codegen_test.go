package codegen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcc/internal/ast"
	"qcc/internal/diag"
	"qcc/internal/lexer"
	"qcc/internal/parser"
	"qcc/internal/sema"
)

// compile runs the full lexer/parser/sema pipeline and assigns offsets
// the way the driver does (internal/compiler isn't depended on here to
// keep this package's tests independent of it), then emits text-section
// assembly for every function in the source.
func compile(t *testing.T, src string) string {
	t.Helper()
	s := diag.NewSource("test.c", []byte(src))
	tok, err := lexer.Lex(s)
	require.NoError(t, err)
	prog, err := parser.Parse(tok, s)
	require.NoError(t, err)
	require.NoError(t, sema.Elaborate(prog, s))
	assignOffsets(prog)

	var buf bytes.Buffer
	require.NoError(t, EmitText(prog, s, &buf))
	return buf.String()
}

// assignOffsets mirrors the driver's offset-assignment pass:
// head-to-tail over each function's Locals in declaration order.
func assignOffsets(prog *ast.Program) {
	for _, fn := range prog.Funcs {
		offset := 0
		for _, v := range fn.Locals {
			offset += v.Type.Size()
			v.Offset = offset
		}
		fn.FrameSize = offset
	}
}

func TestEmitTextFunctionPrologueAndEpilogue(t *testing.T) {
	out := compile(t, "int f() { return 1; }")
	assert.Contains(t, out, ".global f")
	assert.Contains(t, out, "f:")
	assert.Contains(t, out, "push rbp")
	assert.Contains(t, out, "mov rbp, rsp")
	assert.Contains(t, out, ".Lreturn.f:")
	assert.Contains(t, out, "pop rbp")
	assert.Contains(t, out, "ret")
}

func TestEmitTextParameterStoredFromRegister(t *testing.T) {
	out := compile(t, "int f(int a, char c) { return a; }")
	assert.Contains(t, out, "mov [rbp-8], rdi")
	assert.Contains(t, out, "mov [rbp-9], sil")
}

func TestEmitTextUnaryMinusAndZeroMinusAreIdentical(t *testing.T) {
	out1 := compile(t, "int f() { int a; return -a; }")
	out2 := compile(t, "int f() { int a; return 0 - a; }")
	assert.Equal(t, out1, out2)
}

func TestEmitTextIndexAndDerefAddAreIdentical(t *testing.T) {
	out1 := compile(t, "int f() { int a[3]; return a[1]; }")
	out2 := compile(t, "int f() { int a[3]; return *(a + 1); }")
	assert.Equal(t, out1, out2)
}

func TestEmitTextPointerArithmeticScalesByElementSize(t *testing.T) {
	out := compile(t, "int f() { int a[3]; return *(a + 1); }")
	assert.Contains(t, out, "imul rdi, 8")
}

func TestEmitTextCharPointerArithmeticScalesByOne(t *testing.T) {
	out := compile(t, "int f() { char a[3]; return *(a + 1); }")
	assert.Contains(t, out, "imul rdi, 1")
	assert.NotContains(t, out, "imul rdi, 8")
}

func TestEmitTextIfWithoutElse(t *testing.T) {
	out := compile(t, `
int f() {
  int a;
  if (a) {
    a = 1;
  }
  return a;
}`)
	assert.Contains(t, out, "je .Lend")
	assert.NotContains(t, out, "jmp .Lend", "an if with no else must not jmp to its own end label")
}

func TestEmitTextIfWithElse(t *testing.T) {
	out := compile(t, `
int f() {
  int a;
  if (a) {
    a = 1;
  } else {
    a = 2;
  }
  return a;
}`)
	assert.Contains(t, out, "je .Lelse")
	assert.Contains(t, out, "jmp .Lend")
}

func TestEmitTextWhileLoop(t *testing.T) {
	out := compile(t, `
int f() {
  int a;
  while (a) {
    a = 0;
  }
  return a;
}`)
	assert.Contains(t, out, ".Lbegin")
	assert.Contains(t, out, "jmp .Lbegin")
}

func TestEmitTextCallAlignsStack(t *testing.T) {
	out := compile(t, `
int g(int x) { return x; }
int f() {
  return g(1);
}`)
	assert.Contains(t, out, "and rax, 15")
	assert.Contains(t, out, "call g")
}

func TestEmitTextBinaryArithmeticPopOrder(t *testing.T) {
	out := compile(t, "int f() { return 1 + 2; }")
	idx := strings.Index(out, "pop rdi")
	idy := strings.Index(out, "pop rax")
	require.True(t, idx >= 0 && idy >= 0)
	assert.Less(t, idx, idy, "rhs (rdi) must be popped before lhs (rax)")
}

func TestEmitTextExpressionStatementDiscardsValue(t *testing.T) {
	out := compile(t, `
int f() {
  int a;
  a = 1;
  return 0;
}`)
	assert.Contains(t, out, "add rsp, 8")
}

func TestEmitDataZeroInitializedGlobal(t *testing.T) {
	s := diag.NewSource("test.c", []byte("int g;"))
	tok, err := lexer.Lex(s)
	require.NoError(t, err)
	prog, err := parser.Parse(tok, s)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EmitData(prog, &buf))
	out := buf.String()
	assert.Contains(t, out, "g:")
	assert.Contains(t, out, ".zero 8")
}

func TestEmitDataStringLiteralBytes(t *testing.T) {
	s := diag.NewSource("test.c", []byte(`int f() { return *"hi"; }`))
	tok, err := lexer.Lex(s)
	require.NoError(t, err)
	prog, err := parser.Parse(tok, s)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EmitData(prog, &buf))
	out := buf.String()
	assert.Contains(t, out, ".L.data.0:")
	assert.Contains(t, out, ".byte 104") // 'h'
	assert.Contains(t, out, ".byte 105") // 'i'
	assert.Contains(t, out, ".byte 0")   // trailing NUL
}

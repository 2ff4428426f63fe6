package compiler

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcc/internal/diag"
)

func compile(t *testing.T, src string) (string, error) {
	t.Helper()
	s := diag.NewSource("test.c", []byte(src))
	var buf bytes.Buffer
	err := Compile(s, &buf)
	return buf.String(), err
}

func TestCompileProducesIntelSyntaxHeaderAndSections(t *testing.T) {
	out, err := compile(t, "int main() { return 0; }")
	require.NoError(t, err)
	assert.Contains(t, out, ".intel_syntax noprefix")
	assert.Contains(t, out, ".data")
	assert.Contains(t, out, ".text")
	assert.Contains(t, out, ".global main")
}

func TestCompileOffsetsArePermutationOfCumulativeSizes(t *testing.T) {
	// Local offsets within a function are a permutation of
	// {size(v1), size(v1)+size(v2), ...} in declaration order.
	out, err := compile(t, `
int f() {
  char a;
  int b;
  char c;
  return a + b + c;
}`)
	require.NoError(t, err)
	// a: offset 1, b: offset 9, c: offset 10 (no padding). Locals are
	// addressed via "mov rax, rbp; sub rax, <offset>", not a direct
	// "[rbp-N]" operand (that form is only used for parameter spill).
	assert.Contains(t, out, "sub rax, 1")
	assert.Contains(t, out, "sub rax, 9")
	assert.Contains(t, out, "sub rax, 10")
}

func TestCompileStructMemberAccessEndToEnd(t *testing.T) {
	out, err := compile(t, `
int f() {
  struct { int x; char y; } s;
  s.x = 5;
  s.y = 1;
  return s.x;
}`)
	require.NoError(t, err)
	assert.Contains(t, out, "add rax, 0")
	assert.Contains(t, out, "add rax, 8")
}

func TestCompileUndefinedVariableFailsWithLocation(t *testing.T) {
	_, err := compile(t, "int f() { return x; }")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test.c:1:")
	assert.Contains(t, err.Error(), "^")
}

func TestCompileUnclosedStringFails(t *testing.T) {
	_, err := compile(t, `int f() { return *"abc; }`)
	require.Error(t, err)
}

func TestCompileSyntaxErrorReportsExpectedToken(t *testing.T) {
	_, err := compile(t, "int f( { return 0; }")
	require.Error(t, err)
}

func TestCompileRecursiveFunctionCall(t *testing.T) {
	out, err := compile(t, `
int fib(int n) {
  if (n <= 1) {
    return n;
  }
  return fib(n - 1) + fib(n - 2);
}`)
	require.NoError(t, err)
	assert.Contains(t, out, "call fib")
}

func TestCompileStringLiteralGlobalAndDataMatch(t *testing.T) {
	out, err := compile(t, `int f() { return *"ab"; }`)
	require.NoError(t, err)
	assert.Contains(t, out, ".L.data.0:")
	assert.Contains(t, out, ".byte 97") // 'a'
	assert.Contains(t, out, ".byte 98") // 'b'
}

func TestCompilePointerArithmeticAndDereference(t *testing.T) {
	out, err := compile(t, `
int f() {
  int a[10];
  int *p;
  p = a;
  *(p + 3) = 7;
  return *(p + 3);
}`)
	require.NoError(t, err)
	assert.Contains(t, out, "imul rdi, 8")
}

func TestCompileEachWellTypedFunctionGetsAReturnLabel(t *testing.T) {
	out, err := compile(t, `
int f() { return 1; }
int g() { return 2; }`)
	require.NoError(t, err)
	assert.Contains(t, out, ".Lreturn.f:")
	assert.Contains(t, out, ".Lreturn.g:")
}

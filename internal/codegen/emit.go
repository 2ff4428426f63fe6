// Package codegen walks an elaborated program and emits GNU-assembler,
// Intel-syntax (x86-64 System V) text: a small bufio.Writer-backed
// Emitter with one helper method per instruction shape, called by a
// tree-walking generator.
package codegen

import (
	"bufio"
	"fmt"
	"io"
)

// Emitter wraps the assembly output stream with one helper method per
// instruction shape used by this subset. Operands are pre-formatted
// strings (register names, "[rbp-8]"-style memory operands, labels,
// immediates) rather than a richer operand type.
type Emitter struct {
	out *bufio.Writer
}

// NewEmitter wraps w for instruction emission.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{out: bufio.NewWriter(w)}
}

// Flush pushes any buffered output to the underlying writer.
func (e *Emitter) Flush() error {
	return e.out.Flush()
}

// Directive emits an assembler directive line, e.g. ".intel_syntax noprefix".
func (e *Emitter) Directive(format string, args ...interface{}) {
	fmt.Fprintf(e.out, "%s\n", fmt.Sprintf(format, args...))
}

// Label emits a bare label line.
func (e *Emitter) Label(name string) {
	fmt.Fprintf(e.out, "%s:\n", name)
}

// Instr0 emits a zero-operand instruction.
func (e *Emitter) Instr0(op string) {
	fmt.Fprintf(e.out, "  %s\n", op)
}

// Instr1 emits a one-operand instruction.
func (e *Emitter) Instr1(op, a string) {
	fmt.Fprintf(e.out, "  %s %s\n", op, a)
}

// Instr2 emits a two-operand instruction.
func (e *Emitter) Instr2(op, a, b string) {
	fmt.Fprintf(e.out, "  %s %s, %s\n", op, a, b)
}

// Push pushes a register or immediate.
func (e *Emitter) Push(operand string) {
	e.Instr1("push", operand)
}

// Pop pops into a register.
func (e *Emitter) Pop(reg string) {
	e.Instr1("pop", reg)
}

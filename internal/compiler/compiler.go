// Package compiler wires the four passes together into one in-process
// pipeline (lexer → parser → type elaborator → code generator) and owns
// the one piece of work none of those passes do themselves: assigning
// frame offsets to each function's locals once parsing has finished.
package compiler

import (
	"bytes"
	"io"

	"qcc/internal/ast"
	"qcc/internal/codegen"
	"qcc/internal/diag"
	"qcc/internal/lexer"
	"qcc/internal/parser"
	"qcc/internal/sema"
)

// Compile runs the full pipeline over src (already NUL-terminated and
// newline-closed by the caller, typically via diag.NewSource) and writes
// the resulting assembly to w. Any lexical, syntactic, or semantic error
// aborts the pipeline and is returned as-is, already formatted for
// display against src (see diag.Error).
func Compile(src *diag.Source, w io.Writer) error {
	tok, err := lexer.Lex(src)
	if err != nil {
		return err
	}

	prog, err := parser.Parse(tok, src)
	if err != nil {
		return err
	}

	if err := sema.Elaborate(prog, src); err != nil {
		return err
	}

	assignOffsets(prog)

	var buf bytes.Buffer
	buf.WriteString(".intel_syntax noprefix\n")
	if err := codegen.EmitData(prog, &buf); err != nil {
		return err
	}
	if err := codegen.EmitText(prog, src, &buf); err != nil {
		return err
	}

	_, err = w.Write(buf.Bytes())
	return err
}

// assignOffsets walks each function's Locals slice — already in
// declaration order, since the parser appends to it as it goes — and
// assigns offsets head-to-tail: the first-declared local gets the
// smallest offset. This must run after parsing completes and before
// code generation, and nowhere else.
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

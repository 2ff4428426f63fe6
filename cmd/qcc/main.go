// qcc - a small compiler for a strict subset of C, targeting
// x86-64 System V assembly.
//
// Usage: qcc [-o file] source.c
//
// The compiler pipeline (lexer, parser, type elaborator, code generator)
// runs entirely in-process; see internal/compiler. Assembly is written
// to standard output, or to -o's argument if given. Diagnostics go to
// standard error.
package main

import (
	"flag"
	"fmt"
	"os"

	"qcc/internal/compiler"
	"qcc/internal/diag"
)

var (
	outputFile = flag.String("o", "", "output file name (default: standard output)")
	verbose    = flag.Bool("v", false, "print the input filename before compiling")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-o file] source.c\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), *outputFile, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(inputPath, outputPath string, verbose bool) error {
	if verbose {
		fmt.Fprintf(os.Stderr, "qcc: compiling %s\n", inputPath)
	}

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("qcc: cannot read %s: %w", inputPath, err)
	}
	src := diag.NewSource(inputPath, raw)

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("qcc: cannot create %s: %w", outputPath, err)
		}
		defer f.Close()
		out = f
	}

	return compiler.Compile(src, out)
}

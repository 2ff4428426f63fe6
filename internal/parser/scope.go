// Variable declaration and lexical scoping for the parser: a single linear
// scope stack, not a stack of maps. Entering a block
// snapshots the stack's length; leaving a block truncates back to it.
package parser

import (
	"fmt"

	"qcc/internal/ast"
)

// mark is a scope snapshot: the stack length at block entry.
type mark int

// enterScope snapshots the current scope depth.
func (p *Parser) enterScope() mark {
	return mark(len(p.scope))
}

// leaveScope restores the scope stack to a previously taken mark, making
// every variable declared since then invisible to lookup again.
func (p *Parser) leaveScope(m mark) {
	p.scope = p.scope[:m]
}

// lookup walks the scope stack back to front so the most recently pushed
// match (the innermost visible declaration) wins.
func (p *Parser) lookup(name string) *ast.Var {
	for i := len(p.scope) - 1; i >= 0; i-- {
		if p.scope[i].Name == name {
			return p.scope[i]
		}
	}
	return nil
}

// declareLocal appends a new local (or parameter — both are tracked the
// same way here) to both the enclosing function's locals list and the
// scope stack, in declaration order. Offsets are assigned later by the
// driver, once the whole function has been parsed.
func (p *Parser) declareLocal(v *ast.Var) {
	v.IsLocal = true
	p.locals = append(p.locals, v)
	p.scope = append(p.scope, v)
}

// declareGlobal appends a new global to both the program's global list and
// the scope stack. A global declared at top level is visible for the
// remainder of the file, including from functions parsed later, since the
// stack is only ever truncated back to a block's entry mark, and every
// such mark lies above it.
func (p *Parser) declareGlobal(v *ast.Var) {
	v.IsLocal = false
	p.prog.Globals = append(p.prog.Globals, v)
	p.scope = append(p.scope, v)
}

// newDataLabel returns the next ".L.data.N" label for an anonymous
// string-literal global. This counter is independent of the code
// generator's label counter — each pass owns its own sequence.
func (p *Parser) newDataLabel() string {
	n := p.dataLabel
	p.dataLabel++
	return fmt.Sprintf(".L.data.%d", n)
}

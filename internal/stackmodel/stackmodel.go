// Package stackmodel tracks the virtual TVM operand stack alongside the
// code the emitter produces, so that every declaration the source program
// introduces can be found by absolute stack position without re-deriving it
// from the emitted instructions.
package stackmodel

import (
	"fmt"

	"github.com/tvmforge/tvmgen/internal/diag"
)

// Decl identifies a stack slot by the name the upstream frontend gave it —
// a local variable, a temporary, or any other bound value the emitter needs
// to find again later.
type Decl string

// Model is the shadow operand stack: an integer size and an injective
// mapping from declaration to absolute stack position in [0, size).
type Model struct {
	size int
	pos  map[Decl]int
}

// New returns a Model with the given initial size (typically a function's
// argument arity) and no declarations bound.
func New(initialSize int) *Model {
	return &Model{
		size: initialSize,
		pos:  make(map[Decl]int),
	}
}

// Size returns the current virtual stack depth.
func (m *Model) Size() int {
	return m.size
}

// Change adjusts the tracked size by delta. It panics if the result would
// go negative — an emitted instruction whose declared delta drives the
// model below zero is an internal invariant failure, never a compile
// error to recover from.
func (m *Model) Change(delta int) {
	if m.size+delta < 0 {
		panic(diag.Bug{Assertion: fmt.Sprintf("Change(%d) from size %d would go negative", delta, m.size)})
	}
	m.size += delta
}

// Add binds decl to a stack position. When doesAllocate is true, decl
// claims a brand new slot at the current top and the tracked size grows to
// account for it. When false, decl aliases whatever is already on top
// without growing the stack — the initializer expression already left its
// value there.
func (m *Model) Add(decl Decl, doesAllocate bool) {
	if doesAllocate {
		m.pos[decl] = m.size
		m.size++
		return
	}
	m.pos[decl] = m.size - 1
}

// OffsetOf returns decl's distance from the top of the stack (0 = the top
// element). It panics if decl was never bound — a lookup miss here is a
// bug in the caller, not a recoverable condition.
func (m *Model) OffsetOf(decl Decl) int {
	p, ok := m.pos[decl]
	if !ok {
		panic(diag.Bug{Assertion: fmt.Sprintf("no such declaration %q", decl)})
	}
	return m.size - 1 - p
}

// PositionOf returns decl's absolute stack position (0 = bottom).
func (m *Model) PositionOf(decl Decl) int {
	p, ok := m.pos[decl]
	if !ok {
		panic(diag.Bug{Assertion: fmt.Sprintf("no such declaration %q", decl)})
	}
	return p
}

// Has reports whether decl is currently bound.
func (m *Model) Has(decl Decl) bool {
	_, ok := m.pos[decl]
	return ok
}

// Forget removes decl's binding, e.g. once its slot has been dropped.
func (m *Model) Forget(decl Decl) {
	delete(m.pos, decl)
}

// Ensure aborts compilation (via panic, caught once at the top of function
// compilation — see internal/diag) if the model's size doesn't match
// expected. where is a location label used only for the diagnostic text.
func (m *Model) Ensure(expected int, where string) {
	if m.size != expected {
		panic(diag.Bug{
			Assertion: fmt.Sprintf("size assertion failed: have %d, want %d", m.size, expected),
			At:        diag.Location{Function: where},
		})
	}
}

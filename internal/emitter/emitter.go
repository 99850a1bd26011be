// Package emitter implements the Emitter (StackPusherHelper): the single
// point through which every TVM opcode is appended to a function's code
// listing, always paired with the stack delta that opcode produces so the
// shadow stackmodel stays exactly synchronized with the code.
package emitter

import (
	"fmt"
	"regexp"

	"github.com/tvmforge/tvmgen/internal/codebuf"
	"github.com/tvmforge/tvmgen/internal/diag"
	"github.com/tvmforge/tvmgen/internal/stackmodel"
)

// Emitter owns one function's CodeBuffer and StackModel and exposes both
// single-opcode emission and the higher-level composite primitives
// (drop/exchange/block-swap/tuple/glob).
type Emitter struct {
	Code  *codebuf.Buffer
	Stack *stackmodel.Model

	funcName string
}

// New creates an Emitter for a function with the given argument arity.
// Each function compilation gets a fresh Emitter.
func New(funcName string, arity int) *Emitter {
	return &Emitter{
		Code:     codebuf.New(),
		Stack:    stackmodel.New(arity),
		funcName: funcName,
	}
}

// emit appends a single opcode line and reconciles it with the stack model
// in one step — the narrow, last-resort primitive for callers that must
// supply a raw delta directly.
func (e *Emitter) emit(delta int, format string, args ...interface{}) {
	e.Code.Append(fmt.Sprintf(format, args...))
	e.Stack.Change(delta)
}

// Ensure aborts compilation if the stack model's size doesn't match
// expected.
func (e *Emitter) Ensure(expected int, where string) {
	e.Stack.Ensure(expected, where)
}

// ---------------------------------------------------------------------
// Primitive push/drop opcodes
// ---------------------------------------------------------------------

// PushS pushes a copy of stack slot i (0 = top).
func (e *Emitter) PushS(i int) {
	if i == 0 {
		e.emit(1, "DUP")
		return
	}
	e.emit(1, "PUSH S%d", i)
}

// PushInt pushes the literal integer i.
func (e *Emitter) PushInt(i int64) {
	e.emit(1, "PUSHINT %d", i)
}

// Drop removes n items from the top of the stack.
func (e *Emitter) Drop(n int) {
	switch {
	case n == 1:
		e.emit(-1, "DROP")
	case n == 2:
		e.emit(-2, "DROP2")
	case n >= 1 && n <= 15:
		e.emit(-n, "BLKDROP %d", n)
	default:
		e.PushInt(int64(n))
		e.emit(-(n + 1), "DROPX")
	}
}

// ---------------------------------------------------------------------
// Exchange / reordering
// ---------------------------------------------------------------------

// Exchange swaps stack slots i and j (0-indexed from the top), i <= j.
func (e *Emitter) Exchange(i, j int) {
	if i > j {
		i, j = j, i
	}
	switch {
	case i == 0 && j == 1:
		e.emit(0, "SWAP")
	case i == 0 && j <= 15:
		e.emit(0, "XCHG S%d", j)
	case i == 0 && j <= 255:
		e.emit(0, "XCHG S%d,S0", j)
	case i <= 15 && j <= 15:
		e.emit(0, "XCHG S%d,S%d", i, j)
	default:
		// Compose via three 0-indexed exchanges through a scratch position.
		e.Exchange(0, i)
		e.Exchange(0, j)
		e.Exchange(0, i)
	}
}

// BlockSwap rotates the top m+n stack items, swapping the m items below the
// top n items with them.
func (e *Emitter) BlockSwap(m, n int) {
	switch {
	case m == 1 && n == 2:
		e.emit(0, "ROT")
	case m == 2 && n == 1:
		e.emit(0, "ROTREV")
	case m == 2 && n == 2:
		e.emit(0, "SWAP2")
	case m <= 16 && n <= 16:
		e.emit(0, "BLKSWAP %d,%d", m, n)
	default:
		e.PushInt(int64(m))
		e.PushInt(int64(n))
		e.emit(-2, "BLKSWX")
	}
}

// Reverse reverses the top i+j items starting j positions below the top,
// i >= 2.
func (e *Emitter) Reverse(i, j int) {
	switch {
	case i == 2 && j == 0:
		e.emit(0, "SWAP")
	case i == 2 && j == 1:
		e.emit(0, "XCHG S2")
	case i-2 <= 15 && j <= 15:
		e.emit(0, "REVERSE %d,%d", i, j)
	default:
		e.PushInt(int64(i))
		e.PushInt(int64(j))
		e.emit(-2, "REVX")
	}
}

// DropUnder drops `dropped` items sitting beneath the top `left` items,
// leaving the top `left` items in place.
func (e *Emitter) DropUnder(left, dropped int) {
	switch {
	case left == 1 && dropped == 1:
		e.emit(-1, "NIP")
	case dropped <= 15 && left <= 15:
		e.emit(-dropped, "BLKDROP2 %d,%d", dropped, left)
	default:
		e.BlockSwap(dropped, left)
		e.Drop(dropped)
	}
}

// ---------------------------------------------------------------------
// Tuples
// ---------------------------------------------------------------------

func variableForm(k int) bool {
	return k >= 16 && k <= 254
}

// Tuple assembles the top n stack items into a tuple.
func (e *Emitter) Tuple(n int) {
	if variableForm(n) {
		e.PushInt(int64(n))
		e.emit(-n, "TUPLEVAR")
		return
	}
	e.emit(1-n, "TUPLE %d", n)
}

// Untuple explodes a tuple of n elements onto the stack.
func (e *Emitter) Untuple(n int) {
	if variableForm(n) {
		e.PushInt(int64(n))
		e.emit(n-2, "UNTUPLEVAR")
		return
	}
	e.emit(n-1, "UNTUPLE %d", n)
}

// Index pushes tuple element k.
func (e *Emitter) Index(k int) {
	if variableForm(k) {
		e.PushInt(int64(k))
		e.emit(-2, "INDEXVAR")
		return
	}
	e.emit(-1, "INDEX %d", k)
}

// SetIndex replaces tuple element k with the value on top of the stack.
func (e *Emitter) SetIndex(k int) {
	if variableForm(k) {
		e.PushInt(int64(k))
		e.emit(-2, "SETINDEXVAR")
		return
	}
	e.emit(-1, "SETINDEX %d", k)
}

// ---------------------------------------------------------------------
// Globals
// ---------------------------------------------------------------------

// GetGlob pushes the value of c7 global idx.
func (e *Emitter) GetGlob(idx int) {
	if idx <= 31 {
		e.emit(1, "GETGLOB %d", idx)
		return
	}
	e.PushInt(int64(idx))
	e.emit(0, "GETGLOBVAR")
}

// SetGlob stores the top of the stack into c7 global idx.
func (e *Emitter) SetGlob(idx int) {
	if idx <= 31 {
		e.emit(-1, "SETGLOB %d", idx)
		return
	}
	e.PushInt(int64(idx))
	e.emit(-2, "SETGLOBVAR")
}

// ---------------------------------------------------------------------
// Continuations
// ---------------------------------------------------------------------

// PushCont opens a PUSHCONT block, lets body append instructions into it,
// and closes it, modeling the net +1 stack delta for the continuation
// value itself. comment, if non-empty, is attached as a spacer note before
// the block.
//
// The block's body doesn't execute at this program point — only the
// continuation value itself lands on the live stack — so body's opcodes
// must not apply their deltas to the outer model. The size is snapshotted
// before body runs and restored after, then the single +1 for the pushed
// continuation is applied.
func (e *Emitter) PushCont(comment string, body func()) {
	if comment != "" {
		e.Code.AppendBlank()
		e.Code.Append("; " + comment)
	}
	before := e.Stack.Size()
	e.Code.StartContinuation()
	body()
	e.Code.EndContinuation()
	e.Stack.Change(before - e.Stack.Size())
	e.Stack.Change(1)
}

// ---------------------------------------------------------------------
// Tail-call elision and implicit conversion
// ---------------------------------------------------------------------

var retLine = regexp.MustCompile(`^RET$`)

// TryPollLastRet removes the most recently emitted line if it is a bare
// RET, eliding a redundant tail-call return (the source's textual
// `/\t*RET/` match, adapted here to match on CodeLine.Text directly since
// indentation is tracked out-of-band rather than embedded in the text).
// Reports whether it removed anything.
func (e *Emitter) TryPollLastRet() bool {
	lines := e.Code.Lines()
	if len(lines) == 0 {
		return false
	}
	last := lines[len(lines)-1]
	if !retLine.MatchString(last.Text) {
		return false
	}
	e.Code.DropLast()
	return true
}

// TryImplicitConvert recognizes the one cross-type literal case this core
// handles implicitly: a string literal converted to a fixed-width bytes
// value. It accumulates the string's bytes into a single big-endian integer
// and pushes it.
//
// TODO: validate the accumulated width against N in bytesN before pushing;
// left unvalidated for now.
func (e *Emitter) TryImplicitConvert(literal string, isFixedBytesTarget bool) bool {
	if !isFixedBytesTarget {
		return false
	}
	var v uint64
	for i := 0; i < len(literal); i++ {
		v = v*256 + uint64(literal[i])
	}
	e.PushInt(int64(v))
	return true
}

// Ret emits a bare function return.
func (e *Emitter) Ret() {
	e.emit(0, "RET")
}

// ---------------------------------------------------------------------
// Raw escape hatch
// ---------------------------------------------------------------------

// EmitRaw appends an already-formatted opcode line with an explicit delta.
// Narrow, last-resort escape hatch — prefer a named primitive above.
func (e *Emitter) EmitRaw(delta int, text string) {
	e.emit(delta, "%s", text)
}

// FuncName returns the name of the function this Emitter is compiling.
func (e *Emitter) FuncName() string {
	return e.funcName
}

// Bug panics with a diag.Bug at this emitter's function location — used by
// higher-level packages (dictops, msginfo, types) that hold an *Emitter but
// need to report an internal invariant failure with the right location.
func (e *Emitter) Bug(assertion string) {
	panic(diag.Bug{Assertion: assertion, At: diag.Location{Function: e.funcName}})
}

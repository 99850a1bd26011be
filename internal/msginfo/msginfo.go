// Package msginfo implements the MsgInfoAssembler: builds bit-strings for
// TVM outbound message-info headers, mixing compile-time-constant and
// runtime-supplied fields.
package msginfo

import (
	"fmt"
	"strings"

	"github.com/tvmforge/tvmgen/internal/diag"
	"github.com/tvmforge/tvmgen/internal/emitter"
	"github.com/tvmforge/tvmgen/internal/types"
)

// Flavor selects which message-info schema is being assembled.
type Flavor int

const (
	Internal Flavor = iota
	External
)

// FieldID names one field in a message-info schema. Internal and External
// use disjoint numbering.
type FieldID int

const (
	// Internal (CommonMsgInfoRelaxed) field ids.
	FieldIhrDisabled FieldID = iota
	FieldBounce
	FieldBounced
	FieldSrc
	FieldDest
	FieldGrams
	FieldCurrency
	FieldIhrFee
	FieldFwdFee
	FieldCreatedLt
	FieldCreatedAt
)

// External (ext_out_msg_info$11) field ids reuse the same FieldID space at
// distinct values so a Spec's maps never collide across flavors.
const (
	FieldExtSrc FieldID = iota + 100
	FieldExtDest
	FieldExtCreatedLt
	FieldExtCreatedAt
)

// internalFieldOrder is the internal schema's field order; internalFieldWidth
// below gives each field's TL-B bit width, excluding the flavor's tag
// prefix. dest's width is its 2-bit tag only — the up-to-267-bit slice
// payload is a runtime STSLICE, never part of the constant literal.
var internalFieldOrder = []FieldID{
	FieldIhrDisabled, FieldBounce, FieldBounced, FieldSrc, FieldDest,
	FieldGrams, FieldCurrency, FieldIhrFee, FieldFwdFee, FieldCreatedLt, FieldCreatedAt,
}

var internalFieldWidth = map[FieldID]int{
	FieldIhrDisabled: 1,
	FieldBounce:      1,
	FieldBounced:     1,
	FieldSrc:         2,
	FieldDest:        2,
	FieldGrams:       4 + 128,
	FieldCurrency:    1,
	FieldIhrFee:      4,
	FieldFwdFee:      4,
	FieldCreatedLt:   64,
	FieldCreatedAt:   32,
}

var externalFieldOrder = []FieldID{FieldExtSrc, FieldExtDest, FieldExtCreatedLt, FieldExtCreatedAt}

var externalFieldWidth = map[FieldID]int{
	FieldExtSrc:       2,
	FieldExtDest:      2,
	FieldExtCreatedLt: 64,
	FieldExtCreatedAt: 32,
}

func (f Flavor) order() []FieldID {
	if f == Internal {
		return internalFieldOrder
	}
	return externalFieldOrder
}

func (f Flavor) width(id FieldID) int {
	if f == Internal {
		return internalFieldWidth[id]
	}
	return externalFieldWidth[id]
}

func (f Flavor) tagPrefix() string {
	if f == Internal {
		return "0"
	}
	return "11"
}

// Spec describes one message-info assembly: for every field, at most one
// of ParamsOnStack or ConstParams may mention it.
type Spec struct {
	Flavor       Flavor
	ParamsOnStack map[FieldID]bool
	ConstParams   map[FieldID]string // pre-encoded bitstring for this field
}

// validate enforces the const/runtime disjointness invariant.
func (s *Spec) validate() *diag.Diagnostic {
	for id := range s.ParamsOnStack {
		if _, clash := s.ConstParams[id]; clash {
			return diag.New(diag.CodeMsgInfoConflict, diag.Location{Function: "MsgInfoAssembler"},
				"field %d is both a runtime param and a const param", id)
		}
	}
	return nil
}

// storeOpcodeFor returns the field-specific store opcode used when a field
// is supplied at runtime.
func storeOpcodeFor(id FieldID) (op string, needsSwapBeforeStore bool) {
	switch id {
	case FieldBounce, FieldIhrDisabled, FieldBounced:
		return "STI 1", false
	case FieldDest, FieldSrc, FieldExtDest, FieldExtSrc:
		return "STSLICE", false
	case FieldGrams:
		return "STGRAMS", true
	case FieldCurrency:
		return "STDICT", false
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("storeOpcodeFor: field %d has no defined runtime store", id)})
	}
}

// Assemble emits NEWC and every field's contribution in schema order,
// returning the trailing constant bitstring literal that was accumulated
// but not yet flushed (the caller appends stateinit/body presence bits to
// it) and the maximum total bit size of the header. e must already be
// positioned so the runtime field values this Spec references are on the
// stack in field order at the moment Assemble reaches them.
func Assemble(e *emitter.Emitter, s Spec) (finalBitString string, maxBitSize int, err *diag.Diagnostic) {
	if err := s.validate(); err != nil {
		return "", 0, err
	}

	e.EmitRaw(1, "NEWC")

	literal := s.Flavor.tagPrefix()
	maxBitSize = len(literal)

	for _, id := range s.Flavor.order() {
		width := s.Flavor.width(id)
		maxBitSize += width

		if bits, isConst := s.ConstParams[id]; isConst {
			literal += bits
			continue
		}
		if s.ParamsOnStack[id] {
			literal = flush(e, literal)
			op, swapFirst := storeOpcodeFor(id)
			if swapFirst {
				e.Exchange(0, 1)
			}
			e.EmitRaw(-1, op)
			continue
		}
		literal += strings.Repeat("0", width)
	}

	if maxBitSize > 600 && s.Flavor == Internal {
		return "", 0, diag.New(diag.CodeMsgInfoOverflow, diag.Location{Function: "MsgInfoAssembler"},
			"internal message-info header exceeds the TL-B budget: %d bits", maxBitSize)
	}

	return literal, maxBitSize, nil
}

// flush appends the accumulated constant literal to the builder on the
// stack via AppendToBuilder, and returns an empty literal to keep
// accumulating from.
func flush(e *emitter.Emitter, literal string) string {
	AppendToBuilder(e, literal)
	return ""
}

// AppendToBuilder appends bitstring s to the builder on top of the stack.
// An empty s is a no-op; an all-zero s becomes STZEROES (or the one-bit
// special case STSLICECONST 0); anything that fits in 57 bits becomes an
// inline STSLICECONST; longer strings are pushed as a literal slice and
// appended with STSLICER.
func AppendToBuilder(e *emitter.Emitter, s string) {
	if s == "" {
		return
	}
	if allZeros(s) {
		if len(s) == 1 {
			e.EmitRaw(0, "STSLICECONST 0")
			return
		}
		e.EmitRaw(0, fmt.Sprintf("STZEROES %d", len(s)))
		return
	}
	hex := types.BinaryToSlice(s)
	if len(s) <= 57 {
		e.EmitRaw(0, "STSLICECONST "+hex)
		return
	}
	e.EmitRaw(1, "PUSHSLICE "+hex)
	e.EmitRaw(-1, "STSLICER")
}

func allZeros(s string) bool {
	for _, c := range s {
		if c != '0' {
			return false
		}
	}
	return true
}

// StateInitGenerator, given the current msginfo bit size, decides whether
// to inline the state-init or reference it, and emits the corresponding
// code. BodyGenerator plays the same role for the outbound message body.
type StateInitGenerator func(e *emitter.Emitter, msgInfoBits int)
type BodyGenerator func(e *emitter.Emitter, msgInfoBits int)

// SendFlag is the numeric SENDRAWMSG flag constant.
type SendFlag int

// DefaultSendFlag mirrors SENDRAWMSG::DefaultFlag.
const DefaultSendFlag SendFlag = 1

// SendMsg implements the combined send flow: push builder, append msginfo,
// append presence-bit + stateinit (or a bare 0), append presence-bit +
// body (or a bare 0), ENDC, push flag, SENDRAWMSG.
func SendMsg(e *emitter.Emitter, s Spec, stateInit StateInitGenerator, body BodyGenerator, flag SendFlag) *diag.Diagnostic {
	bitString, msgInfoBits, err := Assemble(e, s)
	if err != nil {
		return err
	}

	if stateInit != nil {
		bitString = flush(e, bitString)
		e.EmitRaw(0, "STSLICECONST 1")
		stateInit(e, msgInfoBits)
	} else {
		bitString += "0"
	}

	if body != nil {
		bitString = flush(e, bitString)
		e.EmitRaw(0, "STSLICECONST 1")
		body(e, msgInfoBits)
	} else {
		bitString += "0"
	}

	AppendToBuilder(e, bitString)
	e.EmitRaw(0, "ENDC")
	e.PushInt(int64(flag))
	e.EmitRaw(-2, "SENDRAWMSG")
	return nil
}

// Package dictops implements the dictionary-operation dispatcher: given a
// (key-type, value-type, operation) triple it selects the TVM dictionary
// opcode family and emits the surrounding adapter code.
//
// Rather than a pure-virtual base with one hook per value category, this
// models dispatch as a tagged sum over value category (ValueFamily), chosen
// by switch statements keyed by value-category tag instead of by opcode. A
// missing combination reaches a default branch that panics with a diag.Bug
// rather than falling through silently.
package dictops

import (
	"fmt"

	"github.com/tvmforge/tvmgen/internal/diag"
	"github.com/tvmforge/tvmgen/internal/emitter"
	"github.com/tvmforge/tvmgen/internal/types"
)

// OpKind is the dictionary operation family requested by the caller.
type OpKind int

const (
	GetFromMapping OpKind = iota
	GetSetFromMapping
	GetAddFromMapping
	GetReplaceFromMapping
	GetFromArray
	Fetch
	Exist
	Set
	Replace
	Add
)

// ValueFamily is the value-encoding axis of the dispatch table: how a
// value of this category is physically stored in the dictionary.
type ValueFamily int

const (
	FamilyRef            ValueFamily = iota // stored by reference cell: REF suffix
	FamilyBuilderNoGet                      // stored by builder; no dedicated GET-family opcode
	FamilyBuilderWithGet                    // stored by builder, has a GET-family opcode too
)

// SetSuffix and GetSuffix are the opcode suffixes a ValueFamily contributes
// to the assembled DICT opcode mnemonic.
func (f ValueFamily) SetSuffix() string {
	switch f {
	case FamilyRef:
		return "REF"
	case FamilyBuilderNoGet, FamilyBuilderWithGet:
		return "B"
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("SetSuffix: unknown value family %v", f)})
	}
}

func (f ValueFamily) GetSuffix() (suffix string, ok bool) {
	switch f {
	case FamilyRef:
		return "REF", true
	case FamilyBuilderWithGet:
		return "", true
	case FamilyBuilderNoGet:
		return "", false
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("GetSuffix: unknown value family %v", f)})
	}
}

// StructShape distinguishes the two struct storage shapes a value can take
// in a dictionary cell.
type StructShape int

const (
	StructSDKCompatible StructShape = iota // fits inline in the dict's value cell
	StructLarge                            // needs a ref cell
)

// StructCompatibility is the StructCompiler capability this package
// delegates struct-vs-key-length compatibility decisions to.
type StructCompatibility interface {
	IsCompatibleWithSDK(keyLength int, structType types.Info) bool
}

// ValueFamilyOf classifies value t into its dispatch-table ValueFamily.
// structCompat is consulted only for CategoryStruct; it may be nil
// otherwise.
func ValueFamilyOf(t types.Info, keyLength int, structCompat StructCompatibility) ValueFamily {
	switch t.Category {
	case types.CategoryTvmCell:
		return FamilyRef
	case types.CategoryArrayBytes, types.CategoryStringLiteral:
		return FamilyRef
	case types.CategoryStruct:
		if structCompat == nil {
			panic(diag.Bug{Assertion: "ValueFamilyOf: CategoryStruct requires a StructCompatibility"})
		}
		if structCompat.IsCompatibleWithSDK(keyLength, t) {
			return FamilyBuilderNoGet
		}
		return FamilyRef
	case types.CategoryAddress, types.CategoryContract:
		return FamilyBuilderNoGet
	case types.CategoryInteger, types.CategoryEnum, types.CategoryVarInteger, types.CategoryArrayUsual:
		return FamilyBuilderNoGet
	case types.CategoryMapping, types.CategoryExtraCurrencyCollection:
		return FamilyBuilderNoGet
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("ValueFamilyOf: unsupported value category %v", t.Category)})
	}
}

// Op fully describes one dictionary operation to dispatch.
type Op struct {
	KeyType                types.Info
	ValueType              types.Info
	Kind                   OpKind
	ResultAsSliceForStruct bool
}

// mnemonic assembles the DICT opcode mnemonic: DICT + key-char + verb +
// suffix, e.g. "DICTUSETB" or "DICTIGETREF".
func mnemonic(keyChar byte, verb, suffix string) string {
	return fmt.Sprintf("DICT%c%s%s", keyChar, verb, suffix)
}

// prepareValue emits whatever the value's family requires before the DICT
// opcode itself: builder families wrap the value in NEWC/store; ref
// families expect the value already as a cell.
func prepareValue(e *emitter.Emitter, v types.Info, family ValueFamily) {
	switch family {
	case FamilyBuilderNoGet, FamilyBuilderWithGet:
		e.EmitRaw(1, "NEWC")
		e.EmitRaw(-1, types.StoreIntegralOrAddress(v))
	case FamilyRef:
		// Already a cell reference; nothing to prepare.
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("prepareValue: unknown value family %v", family)})
	}
}

// Emit dispatches op and emits its full opcode sequence (value preparation,
// key-length push, DICT opcode, and any success-flag adapter) via e.
// structCompat may be nil unless op.ValueType is CategoryStruct.
func Emit(e *emitter.Emitter, op Op, structCompat StructCompatibility, defaults types.StructDefaultProvider) {
	keyLen := types.LengthOfDictKey(op.KeyType)
	keyChar := types.TypeToDictChar(op.KeyType)
	family := ValueFamilyOf(op.ValueType, keyLen, structCompat)

	switch op.Kind {
	case Set, Replace, Add:
		emitSetFamily(e, op, keyChar, keyLen, family)
	case GetFromMapping, Fetch, Exist, GetFromArray:
		emitGetFamily(e, op, keyChar, keyLen, family, defaults)
	case GetSetFromMapping, GetAddFromMapping, GetReplaceFromMapping:
		emitGetSetFamily(e, op, keyChar, keyLen, family, defaults)
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("Emit: unknown op kind %v", op.Kind)})
	}
}

func setVerb(kind OpKind) string {
	switch kind {
	case Set:
		return "SET"
	case Replace:
		return "REPLACE"
	case Add:
		return "ADD"
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("setVerb: not a set-family op %v", kind)})
	}
}

// emitSetFamily: push key-length, assemble DICT<key><verb><suffix>, emit
// with the correct net stack delta (SET nets -4+1, REPLACE/ADD net -4+2
// relative to the (value, key, dict) inputs already on the stack).
func emitSetFamily(e *emitter.Emitter, op Op, keyChar byte, keyLen int, family ValueFamily) {
	prepareValue(e, op.ValueType, family)
	e.PushInt(int64(keyLen))
	verb := setVerb(op.Kind)
	suffix := family.SetSuffix()
	delta := -4 + 1
	if op.Kind != Set {
		delta = -4 + 2
	}
	e.EmitRaw(delta, mnemonic(keyChar, verb, suffix))
}

// emitGetFamily assembles DICT<key>GET[REF]? plus the miss/hit adapter for
// GetFromMapping/Fetch/Exist/GetFromArray.
func emitGetFamily(e *emitter.Emitter, op Op, keyChar byte, keyLen int, family ValueFamily, defaults types.StructDefaultProvider) {
	e.PushInt(int64(keyLen))
	suffix, hasSuffix := family.GetSuffix()
	verb := mnemonic(keyChar, "GET", "")
	if hasSuffix && suffix != "" {
		verb = mnemonic(keyChar, "GET", suffix)
	}
	// (key, dict, kl -> value, flag): net -3+2 relative to inputs.
	e.EmitRaw(-3+2, verb)

	switch op.Kind {
	case GetFromMapping:
		e.PushCont("", func() {
			decodeOrConvert(e, op.ValueType, family, op.ResultAsSliceForStruct)
		})
		e.PushCont("", func() {
			types.PushDefault(e, op.ValueType, false, defaults)
		})
		e.EmitRaw(-3, "IFELSE")
	case Fetch:
		e.PushCont("", func() {
			decodeOrConvert(e, op.ValueType, family, op.ResultAsSliceForStruct)
		})
		e.PushCont("", func() {
			if op.ValueType.Category == types.CategoryStruct {
				e.EmitRaw(1, "PUSHNULL")
			} else {
				types.PushDefault(e, op.ValueType, false, defaults)
			}
		})
		e.EmitRaw(-3, "IFELSE")
	case Exist:
		// Discard the value beneath the flag, keep the flag.
		e.DropUnder(1, 1)
	case GetFromArray:
		e.PushCont("", func() {
			decodeOrConvert(e, op.ValueType, family, op.ResultAsSliceForStruct)
		})
		e.PushCont("", func() {
			e.EmitRaw(0, "THROWIFNOT ArrayIndexOutOfRange")
		})
		e.EmitRaw(-3, "IFELSE")
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("emitGetFamily: unexpected op kind %v", op.Kind)})
	}
}

// emitGetSetFamily assembles the …SETGET/…ADDGET/…REPLACEGET family: the
// dictionary is updated and the prior value/existence flag is also
// produced, so the caller can decode the prior value on hit or synthesize
// a default on miss.
func emitGetSetFamily(e *emitter.Emitter, op Op, keyChar byte, keyLen int, family ValueFamily, defaults types.StructDefaultProvider) {
	prepareValue(e, op.ValueType, family)
	e.PushInt(int64(keyLen))

	verb := ""
	switch op.Kind {
	case GetSetFromMapping:
		verb = "SETGET"
	case GetAddFromMapping:
		verb = "ADDGET"
	case GetReplaceFromMapping:
		verb = "REPLACEGET"
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("emitGetSetFamily: unexpected op kind %v", op.Kind)})
	}
	suffix := family.SetSuffix()
	// (value, key, dict, kl -> dict, prior, flag): net -4+3.
	e.EmitRaw(-4+3, mnemonic(keyChar, verb, suffix))

	e.PushCont("", func() {
		decodeOrConvert(e, op.ValueType, family, op.ResultAsSliceForStruct)
	})
	e.PushCont("", func() {
		types.PushDefault(e, op.ValueType, false, defaults)
	})
	e.EmitRaw(-3, "IFELSE")
}

// decodeOrConvert decodes a hit value according to its family: builder
// families preload+convert, ref families only turn the cell into a slice
// with CTOS (no further decoding), and structs asked to stay a slice skip
// the decode entirely.
func decodeOrConvert(e *emitter.Emitter, v types.Info, family ValueFamily, resultAsSliceForStruct bool) {
	if v.Category == types.CategoryStruct && resultAsSliceForStruct {
		return
	}
	switch family {
	case FamilyRef:
		e.EmitRaw(0, "CTOS")
	case FamilyBuilderNoGet, FamilyBuilderWithGet:
		types.Preload(e, v)
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("decodeOrConvert: unknown value family %v", family)})
	}
}

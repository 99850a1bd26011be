// Package types implements the TypeEncoder: conversion of language-level
// Solidity-like types into the TVM opcode sequences that load, preload,
// store, and default-construct their serialized cell layout.
package types

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/tvmforge/tvmgen/internal/diag"
	"github.com/tvmforge/tvmgen/internal/emitter"
)

// Category is the closed variant set a language type is classified into.
type Category int

const (
	CategoryAddress Category = iota
	CategoryContract
	CategoryBool
	CategoryInteger
	CategoryFixedBytes
	CategoryEnum
	CategoryVarInteger
	CategoryArrayBytes
	CategoryArrayUsual
	CategoryMapping
	CategoryExtraCurrencyCollection
	CategoryStruct
	CategoryTvmCell
	CategoryTvmSlice
	CategoryTvmBuilder
	CategoryFunction
	CategoryStringLiteral
)

// Info is the derived, decision-ready view of a language type that every
// TypeEncoder method dispatches on.
type Info struct {
	Category Category
	IsNumeric bool
	IsSigned  bool
	NumBits   int // meaningful for Integer, FixedBytes, VarInteger, Enum
}

// zeroAddressHex is the well-known 267-bit zero address slice, addr_std$10
// anycast=0 workchain_id=0 address=256 zero bits, with the standard
// completion tag appended.
const zeroAddressHex = "x8000000000000000000000000000000000000000000000000000000000000000001_"

// ---------------------------------------------------------------------
// store / load / preload
// ---------------------------------------------------------------------

// StoreIntegralOrAddress returns the opcode used to store t's value from a
// builder, without emitting it — callers compose this into a larger
// sequence (e.g. dictops' value-preparation adapters).
func StoreIntegralOrAddress(t Info) string {
	switch t.Category {
	case CategoryInteger, CategoryEnum:
		if t.IsSigned {
			return fmt.Sprintf("STI %d", t.NumBits)
		}
		return fmt.Sprintf("STU %d", t.NumBits)
	case CategoryBool:
		return "STI 1"
	case CategoryAddress, CategoryContract, CategoryTvmSlice:
		return "STSLICE"
	case CategoryVarInteger:
		return "STVARUINT32"
	case CategoryMapping, CategoryExtraCurrencyCollection:
		return "STDICT"
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("StoreIntegralOrAddress: unsupported category %v", t.Category)})
	}
}

// Load splits a slice into (value, remainder), pushing both.
func Load(e *emitter.Emitter, t Info) {
	switch t.Category {
	case CategoryInteger, CategoryEnum:
		if t.IsSigned {
			e.EmitRaw(1, fmt.Sprintf("LDI %d", t.NumBits))
		} else {
			e.EmitRaw(1, fmt.Sprintf("LDU %d", t.NumBits))
		}
	case CategoryBool:
		e.EmitRaw(1, "LDI 1")
	case CategoryMapping, CategoryExtraCurrencyCollection:
		e.EmitRaw(1, "LDDICT")
	case CategoryArrayBytes, CategoryArrayUsual:
		LoadArray(e)
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("Load: unimplemented category %v", t.Category)})
	}
}

// Preload returns only the value, discarding the remainder slice.
func Preload(e *emitter.Emitter, t Info) {
	switch t.Category {
	case CategoryInteger, CategoryEnum:
		if t.IsSigned {
			e.EmitRaw(0, fmt.Sprintf("PLDI %d", t.NumBits))
		} else {
			e.EmitRaw(0, fmt.Sprintf("PLDU %d", t.NumBits))
		}
	case CategoryBool:
		e.EmitRaw(0, "PLDI 1")
	case CategoryMapping, CategoryExtraCurrencyCollection:
		e.EmitRaw(0, "PLDDICT")
	case CategoryVarInteger:
		// The remainder slice is intentionally discarded here.
		e.EmitRaw(1, "LDVARUINT32")
		e.Drop(1)
	case CategoryArrayBytes, CategoryArrayUsual:
		PreloadArray(e)
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("Preload: unimplemented category %v", t.Category)})
	}
}

// LoadArray splits an array slice, represented on the wire as
// (length_u32, dict), into its (value, remainder) pair: LDU 32; LDDICT;
// ROTREV; PAIR, pairing the length and dict into the value tuple, which
// ends up on top of the remainder slice.
func LoadArray(e *emitter.Emitter) {
	e.EmitRaw(1, "LDU 32")
	e.EmitRaw(1, "LDDICT")
	e.EmitRaw(0, "ROTREV")
	e.EmitRaw(-1, "PAIR")
}

// PreloadArray pushes only the (length, dict) tuple value: LDU 32; PLDDICT;
// PAIR, consuming the slice.
func PreloadArray(e *emitter.Emitter) {
	e.EmitRaw(1, "LDU 32")
	e.EmitRaw(0, "PLDDICT")
	e.EmitRaw(-1, "PAIR")
}

// ---------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------

// StructDefaultProvider is the StructCompiler capability this package
// consumes for Struct defaults.
type StructDefaultProvider interface {
	CreateDefaultStruct(e *emitter.Emitter, asBuilder bool)
}

// PushDefault pushes the canonical zero value for t. structs, if non-nil,
// is consulted for the Struct category; it may be nil for any other
// category.
func PushDefault(e *emitter.Emitter, t Info, asBuilder bool, structs StructDefaultProvider) {
	switch t.Category {
	case CategoryAddress:
		PushZeroAddress(e)
	case CategoryInteger, CategoryEnum, CategoryVarInteger, CategoryBool:
		e.PushInt(0)
	case CategoryArrayBytes:
		e.EmitRaw(1, "NEWC")
		if !asBuilder {
			e.EmitRaw(0, "ENDC")
		}
	case CategoryArrayUsual:
		e.PushInt(0)
		e.EmitRaw(1, "NEWDICT")
		e.EmitRaw(-1, "PAIR")
	case CategoryMapping, CategoryExtraCurrencyCollection:
		e.EmitRaw(1, "NEWDICT")
	case CategoryStruct:
		if structs == nil {
			panic(diag.Bug{Assertion: "PushDefault: Struct category requires a StructDefaultProvider"})
		}
		structs.CreateDefaultStruct(e, asBuilder)
	case CategoryTvmSlice:
		e.EmitRaw(1, "PUSHSLICE x8_")
	case CategoryTvmCell:
		e.EmitRaw(1, "NEWC")
		if !asBuilder {
			e.EmitRaw(0, "ENDC")
		}
	case CategoryFunction:
		// A continuation that drops its arguments then pushes a default
		// per return slot; callers supply the argument/return counts via
		// PushFunctionDefault below since Info alone doesn't carry arity.
		panic(diag.Bug{Assertion: "PushDefault: use PushFunctionDefault for CategoryFunction"})
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("PushDefault: unsupported category %v", t.Category)})
	}
}

// PushFunctionDefault pushes a continuation value that, when invoked, drops
// argCount arguments and pushes the canonical default for each of
// returnTypes in order.
func PushFunctionDefault(e *emitter.Emitter, argCount int, returnTypes []Info, structs StructDefaultProvider) {
	e.PushCont("default function body", func() {
		if argCount > 0 {
			e.Drop(argCount)
		}
		for _, rt := range returnTypes {
			PushDefault(e, rt, false, structs)
		}
	})
}

// EnsureValueFits emits a FITS/UFITS check for an elementary-type token
// (e.g. "int128", "uint8"). It is a no-op for Address, and reports an error
// via the diagnostic returned for any other token — the frontend is
// expected to have rejected out-of-range IntM/UIntM/BytesM widths already.
func EnsureValueFits(e *emitter.Emitter, token string) *diag.Diagnostic {
	switch {
	case token == "address":
		return nil
	case strings.HasPrefix(token, "int"):
		bits, ok := parseWidth(token, "int")
		if !ok {
			return diag.New(diag.CodeUnimplementedCast, diag.Location{Function: e.FuncName()}, "cannot size elementary type %q", token)
		}
		e.EmitRaw(0, fmt.Sprintf("FITS %d", bits))
		return nil
	case strings.HasPrefix(token, "uint"):
		bits, ok := parseWidth(token, "uint")
		if !ok {
			return diag.New(diag.CodeUnimplementedCast, diag.Location{Function: e.FuncName()}, "cannot size elementary type %q", token)
		}
		e.EmitRaw(0, fmt.Sprintf("UFITS %d", bits))
		return nil
	default:
		return diag.New(diag.CodeUnimplementedCast, diag.Location{Function: e.FuncName()}, "cannot size elementary type %q", token)
	}
}

func parseWidth(token, prefix string) (int, bool) {
	rest := strings.TrimPrefix(token, prefix)
	if rest == "" {
		return 0, false
	}
	bits := 0
	for _, c := range rest {
		if c < '0' || c > '9' {
			return 0, false
		}
		bits = bits*10 + int(c-'0')
	}
	return bits, true
}

// ---------------------------------------------------------------------
// Address / grams / binary-to-slice
// ---------------------------------------------------------------------

// PushZeroAddress pushes the well-known zero address slice constant.
func PushZeroAddress(e *emitter.Emitter) {
	e.EmitRaw(1, "PUSHSLICE "+zeroAddressHex)
}

// LiteralToSliceAddress serializes addr_std$10 anycast=0 workchain_id=0
// address=bits256(value) as a hex slice literal with the standard
// completion tag, using uint256 for the 256-bit address arithmetic.
func LiteralToSliceAddress(value *uint256.Int) string {
	var bin strings.Builder
	bin.WriteString("10")  // addr_std$10
	bin.WriteString("0")   // anycast=0
	bin.WriteString("00000000") // workchain_id=0, int8
	addrBytes := value.Bytes32()
	for _, b := range addrBytes {
		bin.WriteString(fmt.Sprintf("%08b", b))
	}
	return BinaryToSlice(bin.String())
}

// GramsToBinary encodes value as TL-B var_uint$_ len:(#< 16)
// value:(uint 8*len): a 4-bit length prefix followed by a byte-aligned
// big-endian payload. Panics (internal invariant) if value doesn't fit in
// 120 bits, since that upper bound is enforced upstream.
func GramsToBinary(value *uint256.Int) string {
	if value.BitLen() > 120 {
		panic(diag.Bug{Assertion: "GramsToBinary: value exceeds 120-bit grams payload"})
	}
	byteLen := (value.BitLen() + 7) / 8
	payload := value.Bytes()
	// value.Bytes() is already minimal big-endian and may be shorter than
	// byteLen only when value is zero, in which case byteLen is also 0.
	var bin strings.Builder
	bin.WriteString(fmt.Sprintf("%04b", byteLen))
	for _, b := range payload {
		bin.WriteString(fmt.Sprintf("%08b", b))
	}
	return bin.String()
}

// BinaryToSlice pads s to a multiple of 4 bits by appending a 1 bit and
// zeros (the TVM completion tag) when s isn't already aligned, renders the
// result as hex, and suffixes "_" iff padding was added.
func BinaryToSlice(s string) string {
	padded := false
	for len(s)%4 != 0 {
		s += "1"
		padded = true
		for len(s)%4 != 0 {
			s += "0"
		}
	}
	var hex strings.Builder
	hex.WriteByte('x')
	for i := 0; i < len(s); i += 4 {
		nibble := s[i : i+4]
		var v int
		for _, c := range nibble {
			v <<= 1
			if c == '1' {
				v |= 1
			}
		}
		hex.WriteString(fmt.Sprintf("%X", v))
	}
	if padded {
		hex.WriteByte('_')
	}
	return hex.String()
}

// ---------------------------------------------------------------------
// Dictionary key encoding
// ---------------------------------------------------------------------

// LengthOfDictKey returns the bit width dictionary opcodes use for keys of
// type t.
func LengthOfDictKey(t Info) int {
	switch t.Category {
	case CategoryInteger, CategoryEnum:
		if t.NumBits <= 32 {
			return 32
		}
		return t.NumBits
	case CategoryAddress:
		return 256
	case CategoryStringLiteral, CategoryArrayBytes:
		return 256
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("LengthOfDictKey: unsupported key category %v", t.Category)})
	}
}

// TypeToDictChar returns the DICT opcode family letter for a key type: I
// for signed integers, U for unsigned (including string/bytes keys, which
// PrepareKeyForDictOperations replaces by their 256-bit hash), K for
// slice-encoded keys (address).
func TypeToDictChar(t Info) byte {
	switch t.Category {
	case CategoryAddress:
		return 'K'
	case CategoryStringLiteral, CategoryArrayBytes:
		return 'U'
	case CategoryInteger, CategoryEnum:
		if t.IsSigned {
			return 'I'
		}
		return 'U'
	default:
		panic(diag.Bug{Assertion: fmt.Sprintf("TypeToDictChar: unsupported key category %v", t.Category)})
	}
}

// PrepareKeyForDictOperations, given a stack of (key, dict) with dict on
// top and the string/bytes key just beneath it, hashes the key in place
// with HASHCU so
// the dict layer never has to reconstruct the original string — that
// reconstruction isn't possible from a hash, so callers that need the
// original string back must keep their own copy. Net stack delta is 0: it
// leaves (hash, dict).
func PrepareKeyForDictOperations(e *emitter.Emitter, keyIsStringOrBytes bool) {
	if !keyIsStringOrBytes {
		return
	}
	e.EmitRaw(1, "PUSH S1")
	e.EmitRaw(0, "HASHCU")
	e.EmitRaw(-1, "POP S2")
}

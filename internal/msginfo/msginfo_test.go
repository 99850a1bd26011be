package msginfo

import (
	"strings"
	"testing"

	"github.com/tvmforge/tvmgen/internal/emitter"
)

func lines(e *emitter.Emitter) []string {
	ls := e.Code.Lines()
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Text
	}
	return out
}

// S5: internal message assembly with only dest supplied at runtime.
func TestAssembleInternalOnlyDestOnStack(t *testing.T) {
	e := emitter.New("f", 1)
	spec := Spec{
		Flavor:        Internal,
		ParamsOnStack: map[FieldID]bool{FieldDest: true},
	}

	finalBits, maxBits, err := Assemble(e, spec)
	if err != nil {
		t.Fatalf("Assemble returned diagnostic: %v", err)
	}

	got := lines(e)
	if got[0] != "NEWC" {
		t.Fatalf("first line = %q, want NEWC", got[0])
	}

	foundStSlice := false
	for _, l := range got {
		if l == "STSLICE" {
			foundStSlice = true
		}
	}
	if !foundStSlice {
		t.Fatalf("expected an STSLICE store for dest, got %v", got)
	}

	// grams(132)+currency(1)+ihr_fee(4)+fwd_fee(4)+created_lt(64)+created_at(32) = 237
	// zero bits trail the flushed literal, all still pending in finalBits.
	if want := 237; len(finalBits) != want {
		t.Fatalf("trailing literal length = %d, want %d (%q)", len(finalBits), want, finalBits)
	}
	if strings.Trim(finalBits, "0") != "" {
		t.Fatalf("trailing literal not all zero: %q", finalBits)
	}

	wantMax := 1 /*tag*/ + 1 + 1 + 1 + 2 + 2 + 132 + 1 + 4 + 4 + 64 + 32
	if maxBits != wantMax {
		t.Fatalf("maxBitSize = %d, want %d", maxBits, wantMax)
	}
}

func TestAssembleRejectsFieldBothConstAndRuntime(t *testing.T) {
	e := emitter.New("f", 1)
	spec := Spec{
		Flavor:        Internal,
		ParamsOnStack: map[FieldID]bool{FieldBounce: true},
		ConstParams:   map[FieldID]string{FieldBounce: "1"},
	}
	if _, _, err := Assemble(e, spec); err == nil {
		t.Fatal("expected a conflict diagnostic")
	}
}

func TestAppendToBuilderEmptyIsNoop(t *testing.T) {
	e := emitter.New("f", 0)
	AppendToBuilder(e, "")
	if e.Code.Len() != 0 {
		t.Fatal("expected no emission for empty bitstring")
	}
}

func TestAppendToBuilderSingleZeroBit(t *testing.T) {
	e := emitter.New("f", 0)
	AppendToBuilder(e, "0")
	if got := lines(e)[0]; got != "STSLICECONST 0" {
		t.Fatalf("got %q, want STSLICECONST 0", got)
	}
}

func TestAppendToBuilderAllZerosUsesStzeroes(t *testing.T) {
	e := emitter.New("f", 0)
	AppendToBuilder(e, "0000")
	if got := lines(e)[0]; got != "STZEROES 4" {
		t.Fatalf("got %q, want STZEROES 4", got)
	}
}

func TestAppendToBuilderShortLiteralInlines(t *testing.T) {
	e := emitter.New("f", 0)
	AppendToBuilder(e, "0001")
	if got := lines(e)[0]; got != "STSLICECONST x1" {
		t.Fatalf("got %q, want STSLICECONST x1", got)
	}
}

func TestAppendToBuilderLongLiteralPushesSlice(t *testing.T) {
	e := emitter.New("f", 0)
	AppendToBuilder(e, strings.Repeat("0001", 20)) // 80 bits, well over 57
	got := lines(e)
	if !strings.HasPrefix(got[0], "PUSHSLICE x") {
		t.Fatalf("first line = %q, want PUSHSLICE x...", got[0])
	}
	if got[1] != "STSLICER" {
		t.Fatalf("second line = %q, want STSLICER", got[1])
	}
}

// S5 continued: full sendMsg flow with no stateinit/body.
func TestSendMsgWithoutStateInitOrBody(t *testing.T) {
	e := emitter.New("f", 1)
	spec := Spec{
		Flavor:        Internal,
		ParamsOnStack: map[FieldID]bool{FieldDest: true},
	}
	start := e.Stack.Size()
	if err := SendMsg(e, spec, nil, nil, DefaultSendFlag); err != nil {
		t.Fatalf("SendMsg returned diagnostic: %v", err)
	}
	got := lines(e)
	last := got[len(got)-1]
	if last != "SENDRAWMSG" {
		t.Fatalf("last op = %q, want SENDRAWMSG", last)
	}
	secondLast := got[len(got)-2]
	if secondLast != "PUSHINT 1" {
		t.Fatalf("expected PUSHINT 1 flag push before SENDRAWMSG, got %q", secondLast)
	}
	// NEWC(+1) dest STSLICE(-1) trailing STZEROES(0) ENDC(0) PUSHINT(+1) SENDRAWMSG(-2) = -1
	if d := e.Stack.Size() - start; d != -1 {
		t.Fatalf("net stack delta = %d, want -1", d)
	}
}

func TestExternalFlavorUsesShorterSchema(t *testing.T) {
	e := emitter.New("f", 1)
	spec := Spec{
		Flavor:        External,
		ParamsOnStack: map[FieldID]bool{FieldExtDest: true},
	}
	_, maxBits, err := Assemble(e, spec)
	if err != nil {
		t.Fatalf("Assemble returned diagnostic: %v", err)
	}
	wantMax := 2 /*tag*/ + 2 + 2 + 64 + 32
	if maxBits != wantMax {
		t.Fatalf("maxBitSize = %d, want %d", maxBits, wantMax)
	}
}

package emitter

import "testing"

func lastLine(e *Emitter) string {
	lines := e.Code.Lines()
	return lines[len(lines)-1].Text
}

func TestDropDeltas(t *testing.T) {
	cases := []struct {
		n     int
		delta int
		want  string
	}{
		{1, -1, "DROP"},
		{2, -2, "DROP2"},
		{5, -5, "BLKDROP 5"},
		{20, -20, "DROPX"},
	}
	for _, c := range cases {
		e := New("f", 30)
		start := e.Stack.Size()
		e.Drop(c.n)
		if got := lastLine(e); got != c.want {
			t.Errorf("Drop(%d) last line = %q, want %q", c.n, got, c.want)
		}
		if e.Stack.Size() != start+c.delta {
			t.Errorf("Drop(%d) size = %d, want %d", c.n, e.Stack.Size(), start+c.delta)
		}
	}
}

func TestExchangeSelectsSwap(t *testing.T) {
	e := New("f", 2)
	e.Exchange(0, 1)
	if got := lastLine(e); got != "SWAP" {
		t.Fatalf("Exchange(0,1) = %q, want SWAP", got)
	}
	if e.Stack.Size() != 2 {
		t.Fatalf("Exchange must not change stack size, got %d", e.Stack.Size())
	}
}

func TestExchangeSmallForm(t *testing.T) {
	e := New("f", 16)
	e.Exchange(0, 15)
	if got := lastLine(e); got != "XCHG S15" {
		t.Fatalf("Exchange(0,15) = %q, want XCHG S15", got)
	}
}

func TestExchangeFullForm(t *testing.T) {
	e := New("f", 256)
	e.Exchange(0, 200)
	if got := lastLine(e); got != "XCHG S200,S0" {
		t.Fatalf("Exchange(0,200) = %q, want XCHG S200,S0", got)
	}
}

func TestBlockSwapRot(t *testing.T) {
	e := New("f", 3)
	e.BlockSwap(1, 2)
	if got := lastLine(e); got != "ROT" {
		t.Fatalf("BlockSwap(1,2) = %q, want ROT", got)
	}
}

func TestDropUnderNip(t *testing.T) {
	e := New("f", 2)
	e.DropUnder(1, 1)
	if got := lastLine(e); got != "NIP" {
		t.Fatalf("DropUnder(1,1) = %q, want NIP", got)
	}
	if e.Stack.Size() != 1 {
		t.Fatalf("DropUnder(1,1) size = %d, want 1", e.Stack.Size())
	}
}

func TestTupleDeltas(t *testing.T) {
	e := New("f", 3)
	e.Tuple(3)
	if e.Stack.Size() != 1 {
		t.Fatalf("Tuple(3) size = %d, want 1 (delta 1-n)", e.Stack.Size())
	}
	e.Untuple(1)
	if e.Stack.Size() != 1 {
		t.Fatalf("Untuple(1) size = %d, want 1 (delta n-1=0)", e.Stack.Size())
	}
}

func TestPushSDup(t *testing.T) {
	e := New("f", 1)
	e.PushS(0)
	if got := lastLine(e); got != "DUP" {
		t.Fatalf("PushS(0) = %q, want DUP", got)
	}
	if e.Stack.Size() != 2 {
		t.Fatalf("PushS(0) size = %d, want 2", e.Stack.Size())
	}
}

func TestGetGlobSmallAndLargeForm(t *testing.T) {
	e := New("f", 0)
	e.GetGlob(5)
	if got := lastLine(e); got != "GETGLOB 5" {
		t.Fatalf("GetGlob(5) = %q, want GETGLOB 5", got)
	}

	e2 := New("f", 0)
	e2.GetGlob(40)
	if got := lastLine(e2); got != "GETGLOBVAR" {
		t.Fatalf("GetGlob(40) = %q, want GETGLOBVAR", got)
	}
}

func TestPushContDelta(t *testing.T) {
	e := New("f", 0)
	e.PushCont("", func() {
		e.PushInt(1)
	})
	if e.Stack.Size() != 1 {
		t.Fatalf("PushCont size = %d, want 1 (the continuation value)", e.Stack.Size())
	}
	if e.Code.Tabs() != 0 {
		t.Fatalf("PushCont left indent at %d, want 0", e.Code.Tabs())
	}
}

func TestTryPollLastRetRemovesBareRet(t *testing.T) {
	e := New("f", 0)
	e.PushInt(1)
	e.Ret()
	if !e.TryPollLastRet() {
		t.Fatal("expected TryPollLastRet to remove trailing RET")
	}
	if got := lastLine(e); got != "PUSHINT 1" {
		t.Fatalf("after poll, last line = %q, want PUSHINT 1", got)
	}
}

func TestTryPollLastRetNoOpWhenNotRet(t *testing.T) {
	e := New("f", 0)
	e.PushInt(1)
	if e.TryPollLastRet() {
		t.Fatal("expected no-op when last line is not RET")
	}
}

func TestTryImplicitConvertStringToFixedBytes(t *testing.T) {
	e := New("f", 0)
	ok := e.TryImplicitConvert("AB", true)
	if !ok {
		t.Fatal("expected TryImplicitConvert to fire for fixed-bytes target")
	}
	// 'A'=0x41, 'B'=0x42 -> 0x41*256+0x42 = 0x4142 = 16706
	if got := lastLine(e); got != "PUSHINT 16706" {
		t.Fatalf("TryImplicitConvert emitted %q, want PUSHINT 16706", got)
	}
}

func TestTryImplicitConvertNoOpForOtherTargets(t *testing.T) {
	e := New("f", 0)
	if e.TryImplicitConvert("AB", false) {
		t.Fatal("expected no-op for non-fixed-bytes target")
	}
}

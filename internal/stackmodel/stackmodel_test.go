package stackmodel

import "testing"

func TestChangeAndSize(t *testing.T) {
	m := New(0)
	m.Change(1)
	m.Change(1)
	if m.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", m.Size())
	}
}

func TestChangePanicsOnUnderflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on stack underflow")
		}
	}()
	m := New(0)
	m.Change(-1)
}

func TestAddAllocatingBindsToTopWithZeroOffset(t *testing.T) {
	m := New(0)
	m.Change(1) // simulate a push
	m.Add("x", true)
	if got := m.OffsetOf("x"); got != 0 {
		t.Fatalf("OffsetOf(x) = %d, want 0 immediately after insertion", got)
	}
}

func TestOffsetTracksSubsequentPushes(t *testing.T) {
	m := New(0)
	m.Change(1)
	m.Add("x", true)
	m.Change(1) // push another value on top of x
	if got := m.OffsetOf("x"); got != 1 {
		t.Fatalf("OffsetOf(x) = %d, want 1", got)
	}
}

func TestOffsetOfUnknownDeclPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unbound declaration")
		}
	}()
	m := New(0)
	m.OffsetOf("missing")
}

func TestEnsureFailsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on Ensure mismatch")
		}
	}()
	m := New(3)
	m.Ensure(4, "func exit")
}

func TestEnsurePassesOnMatch(t *testing.T) {
	m := New(3)
	m.Ensure(3, "func exit") // must not panic
}

func TestForget(t *testing.T) {
	m := New(1)
	m.Add("x", false)
	m.Forget("x")
	if m.Has("x") {
		t.Fatal("expected x to be forgotten")
	}
}

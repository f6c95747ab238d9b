package symbol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScopePrecedence(t *testing.T) {
	tbl := NewTable()
	tbl.Define("X", "1", Global)
	tbl.Push(NewFrame(ProcDefault, []Binding{{"X", "2"}}))
	tbl.Push(NewFrame(CallOverride, []Binding{{"X", "3"}}))

	got, ok := tbl.Lookup("X")
	if !ok || got != "3" {
		t.Fatalf("Lookup(X) with full stack = %q, %v; want 3, true", got, ok)
	}

	tbl.Pop() // drop the call overrides
	got, _ = tbl.Lookup("X")
	if got != "2" {
		t.Fatalf("Lookup(X) after dropping overrides = %q, want 2", got)
	}

	tbl.Pop() // drop the proc defaults
	got, _ = tbl.Lookup("X")
	if got != "1" {
		t.Fatalf("Lookup(X) with only the global frame = %q, want 1", got)
	}
}

func TestGlobalFrameNeverPopped(t *testing.T) {
	tbl := NewTable()
	tbl.Define("A", "ONE", Global)
	tbl.Pop()
	tbl.Pop()
	if tbl.Depth() != 1 {
		t.Fatalf("Depth = %d, want 1", tbl.Depth())
	}
	if v, ok := tbl.Lookup("A"); !ok || v != "ONE" {
		t.Errorf("Lookup(A) = %q, %v; want ONE, true", v, ok)
	}
}

func TestDefineTargetsGlobalBelowInvocations(t *testing.T) {
	tbl := NewTable()
	tbl.Push(NewFrame(ProcDefault, []Binding{{"P", "DEF"}}))

	// SET inside a proc body still writes the global frame.
	tbl.Define("G", "VAL", Global)
	tbl.Pop()

	if v, ok := tbl.Lookup("G"); !ok || v != "VAL" {
		t.Errorf("global binding lost after Pop: %q, %v", v, ok)
	}
	if _, ok := tbl.Lookup("P"); ok {
		t.Error("proc-default binding visible after its frame was popped")
	}
}

func TestDefineOverwritesKeepingOrder(t *testing.T) {
	f := NewFrame(ProcDefault, []Binding{
		{"A", "1"},
		{"B", "2"},
		{"A", "9"},
	})
	if v, _ := f.Lookup("A"); v != "9" {
		t.Errorf("Lookup(A) = %q, want 9", v)
	}
	if diff := cmp.Diff([]string{"A", "B"}, f.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestShadowingIsPerName(t *testing.T) {
	tbl := NewTable()
	tbl.Define("HLQ", "PROD", Global)
	tbl.Push(NewFrame(ProcDefault, []Binding{{"LIB", "MYLIB"}}))

	if v, _ := tbl.Lookup("HLQ"); v != "PROD" {
		t.Errorf("Lookup(HLQ) = %q, want PROD", v)
	}
	if v, _ := tbl.Lookup("LIB"); v != "MYLIB" {
		t.Errorf("Lookup(LIB) = %q, want MYLIB", v)
	}
	if _, ok := tbl.Lookup("MISSING"); ok {
		t.Error("Lookup(MISSING) unexpectedly resolved")
	}
}

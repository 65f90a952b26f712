package isa

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLookupAliases(t *testing.T) {
	tests := []struct {
		name string
		want Reg
	}{
		{"x0", Zero},
		{"zero", Zero},
		{"x1", RA},
		{"ra", RA},
		{"x2", SP},
		{"fp", S0},
		{"x8", S0},
		{"s0", S0},
		{"x10", A0},
		{"a7", A7},
		{"x17", A7},
		{"s11", S11},
		{"x27", S11},
		{"t6", T6},
		{"x31", T6},
	}
	for _, tt := range tests {
		got, ok := Lookup(tt.name)
		if !ok || got != tt.want {
			t.Errorf("Lookup(%q) = %v, %v; want %v", tt.name, got, ok, tt.want)
		}
	}
	for _, bad := range []string{"x32", "a8", "s12", "", "A0", "r1"} {
		if _, ok := Lookup(bad); ok {
			t.Errorf("Lookup(%q) should fail", bad)
		}
	}
}

func TestTableRoundTrip(t *testing.T) {
	for i := range NumRegs {
		r := Reg(i)
		if got, ok := Lookup(r.String()); !ok || got != r {
			t.Errorf("ABI round trip for %s", r)
		}
		if got, ok := Lookup(r.Raw()); !ok || got != r {
			t.Errorf("raw round trip for %s", r.Raw())
		}
	}
}

func TestClasses(t *testing.T) {
	saved := 0
	for i := range NumRegs {
		r := Reg(i)
		if r.IsCalleeSaved() {
			saved++
			idx, ok := r.SavedIndex()
			if !ok || Saved(idx) != r {
				t.Errorf("SavedIndex(%s) = %d", r, idx)
			}
		}
	}
	if saved != MaxSaved {
		t.Errorf("callee-saved count = %d, want %d", saved, MaxSaved)
	}
	if Arg(0) != A0 || Arg(7) != A7 || !A3.IsArg() || T0.IsArg() {
		t.Error("argument class broken")
	}
	if Saved(2).String() != "s2" || Saved(11).String() != "s11" {
		t.Error("Saved index mapping broken")
	}
}

func TestPushPop(t *testing.T) {
	regs := []Reg{T0, A5}
	wantPush := []string{"addi sp, sp, -8", "sw t0, 0(sp)", "sw a5, 4(sp)"}
	wantPop := []string{"lw a5, 4(sp)", "lw t0, 0(sp)", "addi sp, sp, 8"}
	if diff := cmp.Diff(wantPush, Push(regs)); diff != "" {
		t.Errorf("Push mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantPop, Pop(regs)); diff != "" {
		t.Errorf("Pop mismatch (-want +got):\n%s", diff)
	}
	if Push(nil) != nil || Pop(nil) != nil {
		t.Error("empty push/pop must emit nothing")
	}
}

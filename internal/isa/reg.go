// Package isa holds the fixed RV32I register table used by call-site
// rewriting: raw numbers, ABI aliases and the register classes the calling
// convention cares about.
package isa

import (
	"fmt"
	"strconv"
	"strings"
)

// Reg is a raw integer register number, x0..x31.
type Reg uint8

const (
	Zero Reg = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6

	NumRegs = 32
)

const (
	// WordSize is the stack slot size in bytes.
	WordSize = 4
	// MaxArgs is the number of argument registers, a0..a7.
	MaxArgs = 8
	// MaxSaved is the number of callee-saved registers, s0..s11.
	MaxSaved = 12

	LinkRegister = RA
	StackPointer = SP
	// Scratch breaks argument shuffle cycles. The call overwrites ra anyway.
	Scratch = RA
)

var abiNames = [NumRegs]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var byName = func() map[string]Reg {
	m := make(map[string]Reg, 2*NumRegs+1)
	for i, n := range abiNames {
		m[n] = Reg(i) // #nosec G115 -- i < 32
		m["x"+strconv.Itoa(i)] = Reg(i)
	}
	m["fp"] = S0
	return m
}()

// Lookup resolves a raw (x10) or ABI (a0, fp) register name.
func Lookup(name string) (Reg, bool) {
	r, ok := byName[strings.TrimSpace(name)]
	return r, ok
}

// MustLookup is Lookup for table-driven tests and constants.
func MustLookup(name string) Reg {
	r, ok := Lookup(name)
	if !ok {
		panic(fmt.Sprintf("isa: unknown register %q", name))
	}
	return r
}

// String returns the canonical ABI name.
func (r Reg) String() string {
	if r >= NumRegs {
		return fmt.Sprintf("x?%d", uint8(r))
	}
	return abiNames[r]
}

// Raw returns the xN spelling.
func (r Reg) Raw() string {
	return "x" + strconv.Itoa(int(r))
}

// IsCalleeSaved reports membership in the s0..s11 class.
func (r Reg) IsCalleeSaved() bool {
	return r == S0 || r == S1 || (r >= S2 && r <= S11)
}

// IsArg reports membership in a0..a7.
func (r Reg) IsArg() bool {
	return r >= A0 && r <= A7
}

// Arg returns the i-th argument register.
func Arg(i int) Reg {
	if i < 0 || i >= MaxArgs {
		panic(fmt.Sprintf("isa: argument index %d out of range", i))
	}
	return A0 + Reg(i) // #nosec G115 -- bounded above
}

// Saved returns s<i>.
func Saved(i int) Reg {
	switch {
	case i == 0:
		return S0
	case i == 1:
		return S1
	case i >= 2 && i < MaxSaved:
		return S2 + Reg(i-2) // #nosec G115 -- bounded above
	}
	panic(fmt.Sprintf("isa: saved index %d out of range", i))
}

// SavedIndex is the inverse of Saved; ok is false for other classes.
func (r Reg) SavedIndex() (int, bool) {
	switch {
	case r == S0:
		return 0, true
	case r == S1:
		return 1, true
	case r >= S2 && r <= S11:
		return int(r-S2) + 2, true
	}
	return 0, false
}

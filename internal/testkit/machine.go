package testkit

import (
	"fmt"
	"strconv"
	"strings"

	"fabr/internal/isa"
)

// Machine executes the handful of instructions fabr emits around call sites
// (mv, addi sp, sw, lw) so tests can check the effect of a sequence instead
// of its exact text.
type Machine struct {
	Regs  [isa.NumRegs]int
	Mem   map[int]int
	Trace []string
}

// NewMachine seeds every register with a distinct value (100+n) and the
// stack pointer with a high address.
func NewMachine() *Machine {
	m := &Machine{Mem: make(map[int]int)}
	for i := range m.Regs {
		m.Regs[i] = 100 + i
	}
	m.Regs[isa.SP] = 0x10000
	return m
}

// Get returns the value held by a named register.
func (m *Machine) Get(name string) int {
	return m.Regs[isa.MustLookup(name)]
}

// Run executes lines in order. Blank lines and comments are ignored; any other
// instruction is an error.
func (m *Machine) Run(lines []string) error {
	for _, raw := range lines {
		line := raw
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := m.step(line); err != nil {
			return fmt.Errorf("%q: %w", raw, err)
		}
		m.Trace = append(m.Trace, line)
	}
	return nil
}

func (m *Machine) step(line string) error {
	op, rest, _ := strings.Cut(line, " ")
	ops := strings.Split(rest, ",")
	for i := range ops {
		ops[i] = strings.TrimSpace(ops[i])
	}
	switch op {
	case "mv":
		if len(ops) != 2 {
			return fmt.Errorf("mv needs 2 operands")
		}
		dst, src, err := m.regs2(ops[0], ops[1])
		if err != nil {
			return err
		}
		m.write(dst, m.Regs[src])
	case "addi":
		if len(ops) != 3 {
			return fmt.Errorf("addi needs 3 operands")
		}
		dst, src, err := m.regs2(ops[0], ops[1])
		if err != nil {
			return err
		}
		imm, err := strconv.Atoi(ops[2])
		if err != nil {
			return err
		}
		m.write(dst, m.Regs[src]+imm)
	case "sw", "lw":
		if len(ops) != 2 {
			return fmt.Errorf("%s needs 2 operands", op)
		}
		r, ok := isa.Lookup(ops[0])
		if !ok {
			return fmt.Errorf("bad register %q", ops[0])
		}
		addr, err := m.address(ops[1])
		if err != nil {
			return err
		}
		if op == "sw" {
			m.Mem[addr] = m.Regs[r]
			return nil
		}
		v, ok := m.Mem[addr]
		if !ok {
			return fmt.Errorf("load from unwritten address %#x", addr)
		}
		m.write(r, v)
	default:
		return fmt.Errorf("unsupported instruction %q", op)
	}
	return nil
}

func (m *Machine) regs2(a, b string) (isa.Reg, isa.Reg, error) {
	ra, ok := isa.Lookup(a)
	if !ok {
		return 0, 0, fmt.Errorf("bad register %q", a)
	}
	rb, ok := isa.Lookup(b)
	if !ok {
		return 0, 0, fmt.Errorf("bad register %q", b)
	}
	return ra, rb, nil
}

func (m *Machine) address(operand string) (int, error) {
	open := strings.IndexByte(operand, '(')
	if open < 0 || !strings.HasSuffix(operand, ")") {
		return 0, fmt.Errorf("bad memory operand %q", operand)
	}
	off, err := strconv.Atoi(operand[:open])
	if err != nil {
		return 0, err
	}
	base, ok := isa.Lookup(operand[open+1 : len(operand)-1])
	if !ok {
		return 0, fmt.Errorf("bad base register in %q", operand)
	}
	return m.Regs[base] + off, nil
}

func (m *Machine) write(r isa.Reg, v int) {
	if r == isa.Zero {
		return
	}
	m.Regs[r] = v
}

// Written lists registers whose value differs from before.
func (m *Machine) Written(before [isa.NumRegs]int) []isa.Reg {
	var out []isa.Reg
	for i := range m.Regs {
		if m.Regs[i] != before[i] {
			out = append(out, isa.Reg(i)) // #nosec G115
		}
	}
	return out
}

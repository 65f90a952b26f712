package isa

import "fmt"

// Mv renders a register copy.
func Mv(dst, src Reg) string {
	return fmt.Sprintf("mv %s, %s", dst, src)
}

// AdjustSP renders a stack pointer adjustment by delta bytes.
func AdjustSP(delta int) string {
	return fmt.Sprintf("addi sp, sp, %d", delta)
}

// Store renders a word store into the stack frame.
func Store(r Reg, off int) string {
	return fmt.Sprintf("sw %s, %d(sp)", r, off)
}

// Load renders a word load from the stack frame.
func Load(r Reg, off int) string {
	return fmt.Sprintf("lw %s, %d(sp)", r, off)
}

// Call renders a direct call.
func Call(name string) string {
	return "call " + name
}

// Jump renders an unconditional local jump.
func Jump(label string) string {
	return "j " + label
}

// Push allocates len(regs) words and stores regs in order.
func Push(regs []Reg) []string {
	if len(regs) == 0 {
		return nil
	}
	out := make([]string, 0, len(regs)+1)
	out = append(out, AdjustSP(-WordSize*len(regs)))
	for i, r := range regs {
		out = append(out, Store(r, i*WordSize))
	}
	return out
}

// Pop restores regs pushed by Push, in reverse order, and frees the slots.
func Pop(regs []Reg) []string {
	if len(regs) == 0 {
		return nil
	}
	out := make([]string, 0, len(regs)+1)
	for i := len(regs) - 1; i >= 0; i-- {
		out = append(out, Load(regs[i], i*WordSize))
	}
	return append(out, AdjustSP(WordSize*len(regs)))
}

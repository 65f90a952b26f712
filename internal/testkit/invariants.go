package testkit

import (
	"fmt"
	"strconv"
	"strings"

	"fabr/internal/directive"
)

// CheckOutputInvariants runs a minimal set of invariants on fabricated output:
// 1) no directive survives routing
// 2) no block macro call survives expansion
// 3) every label is defined at most once
func CheckOutputInvariants(lines []string) error {
	labels := make(map[string]int)
	for i, text := range lines {
		cleaned, v := directive.Clean(text)
		if v != directive.ViolationNone {
			return fmt.Errorf("line %d: %s", i+1, v)
		}
		if directive.IsDirective(cleaned) {
			return fmt.Errorf("line %d: directive left in output: %q", i+1, text)
		}
		if directive.IsMacroCall(cleaned) {
			return fmt.Errorf("line %d: macro call left in output: %q", i+1, text)
		}
		if name, ok := directive.Label(cleaned); ok {
			if prev, dup := labels[name]; dup {
				return fmt.Errorf("label %s defined on lines %d and %d", name, prev, i+1)
			}
			labels[name] = i + 1
		}
	}
	return nil
}

// StackDelta sums every "addi sp, sp, N" in lines.
func StackDelta(lines []string) int {
	total := 0
	for _, text := range lines {
		cleaned, _ := directive.Clean(text)
		rest, ok := strings.CutPrefix(cleaned, "addi sp, sp, ")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
			total += n
		}
	}
	return total
}

// Count returns how many lines equal want after trimming.
func Count(lines []string, want string) int {
	n := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == want {
			n++
		}
	}
	return n
}

// Index returns the position of the first line equal to want after trimming, or -1.
func Index(lines []string, want string) int {
	for i, l := range lines {
		if strings.TrimSpace(l) == want {
			return i
		}
	}
	return -1
}

package route

import (
	"fmt"
	"strings"

	"fabr/internal/symbols"
)

// InlineMode is the run-wide inlining policy.
type InlineMode uint8

const (
	// InlineAuto inlines only functions hinted aggressiveinline.
	InlineAuto InlineMode = iota
	// InlineAggressive inlines everything not hinted noinline.
	InlineAggressive
	// InlineProhibit never inlines.
	InlineProhibit
)

func (m InlineMode) String() string {
	switch m {
	case InlineAggressive:
		return "aggressive"
	case InlineProhibit:
		return "prohibit"
	default:
		return "auto"
	}
}

// ParseInlineMode accepts auto, aggressive and prohibit.
func ParseInlineMode(s string) (InlineMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return InlineAuto, nil
	case "aggressive":
		return InlineAggressive, nil
	case "prohibit":
		return InlineProhibit, nil
	}
	return InlineAuto, fmt.Errorf("unknown inline mode %q (expected auto|aggressive|prohibit)", s)
}

// Options tune call-site rewriting and output of consumed directives.
type Options struct {
	Inline InlineMode
	// AutoSave wraps function bodies in stores and loads of the
	// callee-saved registers they use.
	AutoSave bool
	// Echo keeps include lines in the output as traceability comments.
	Echo bool
}

// Inlines decides between a call and an inline copy for a function hint.
func (o Options) Inlines(h symbols.InlineHint) bool {
	switch {
	case h == symbols.HintNever, o.Inline == InlineProhibit:
		return false
	case h == symbols.HintAggressive:
		return true
	}
	return o.Inline == InlineAggressive
}

package symbols

// InlineHint is the per-function inlining preference.
type InlineHint uint8

const (
	HintAuto InlineHint = iota
	HintAggressive
	HintNever
)

func (h InlineHint) String() string {
	switch h {
	case HintAggressive:
		return "aggressiveinline"
	case HintNever:
		return "noinline"
	default:
		return "autoinline"
	}
}

// legacyAggressive is the historical spelling still found in older sources.
const legacyAggressive = "agressiveinline"

// ParseHint maps a hint keyword to its value. legacy is true for the
// historical misspelling, which is accepted.
func ParseHint(s string) (h InlineHint, legacy, ok bool) {
	switch s {
	case "autoinline":
		return HintAuto, false, true
	case "aggressiveinline":
		return HintAggressive, false, true
	case legacyAggressive:
		return HintAggressive, true, true
	case "noinline":
		return HintNever, false, true
	}
	return HintAuto, false, false
}

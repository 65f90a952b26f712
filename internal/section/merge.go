package section

import (
	"github.com/samber/lo"

	"fabr/internal/diag"
)

// Plan returns the concatenation order: sectord names first (dropping, with
// a warning, names never opened and repeated names), then the remaining
// opened sections in first-seen order, then Default.
func Plan(sink *diag.Sink, set *Set) []string {
	order, at, _ := set.Order()
	plan := make([]string, 0, len(set.seen))
	for _, name := range order {
		if lo.Contains(plan, name) {
			sink.Warnf(at, diag.MrgDuplicateInOrder, "section '%s' is listed more than once in sectord", name)
			continue
		}
		if _, ok := set.buffers[name]; !ok || name == Default {
			sink.Warnf(at, diag.MrgMissingSection, "section '%s' from sectord was never populated, skipping", name)
			continue
		}
		plan = append(plan, name)
	}
	rest := lo.Filter(set.seen, func(name string, _ int) bool {
		return name != Default && !lo.Contains(plan, name)
	})
	plan = append(plan, rest...)
	return append(plan, Default)
}

// Merge materializes every buffer in Plan order into the final output.
func Merge(sink *diag.Sink, set *Set) ([]string, error) {
	var out []string
	for _, name := range Plan(sink, set) {
		lines, err := set.buffers[name].Lines()
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	return out, nil
}

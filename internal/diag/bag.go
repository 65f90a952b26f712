package diag

import (
	"cmp"
	"math"
	"slices"
)

// Bag collects the diagnostics of one target, up to a limit. Overflow is
// dropped silently; the CLI prints the limit it used.
type Bag struct {
	items []Diagnostic
	max   int
}

// NewBag returns a bag holding at most limit items; limit <= 0 means
// math.MaxUint16.
func NewBag(limit int) *Bag {
	if limit <= 0 || limit > math.MaxUint16 {
		limit = math.MaxUint16
	}
	return &Bag{items: make([]Diagnostic, 0, min(limit, 64)), max: limit}
}

// Add возвращает false, если лимит исчерпан.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Len() int { return len(b.items) }

// Items is the bag's own slice; callers must not modify it.
func (b *Bag) Items() []Diagnostic { return b.items }

// Count returns how many diagnostics are at or above sev.
func (b *Bag) Count(sev Severity) int {
	n := 0
	for i := range b.items {
		if b.items[i].Severity >= sev {
			n++
		}
	}
	return n
}

func (b *Bag) HasErrors() bool   { return b.Count(SevError) > 0 }
func (b *Bag) HasWarnings() bool { return b.Count(SevWarning) > 0 }

// Merge appends other, raising the limit if needed so nothing is lost.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.max = max(b.max, min(len(b.items)+len(other.items), math.MaxUint16))
	room := b.max - len(b.items)
	b.items = append(b.items, other.items[:min(room, len(other.items))]...)
}

// Sort orders by file, position, descending severity, then code, so
// output is stable across runs and concurrent targets.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
		)
	})
}

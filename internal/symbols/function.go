package symbols

import (
	"slices"

	"fabr/internal/directive"
	"fabr/internal/isa"
	"fabr/internal/source"
)

// Function is a funcdecl ... endfunc block.
type Function struct {
	Name  string
	Arity int
	Hint  InlineHint
	Body  []source.Line
	Refs  int
	Pos   source.Pos

	saved     []isa.Reg
	savedDone bool
}

// UsedSaved returns the callee-saved registers referenced in the body, in
// ascending s-index order. It is computed on first use and cached.
func (f *Function) UsedSaved() []isa.Reg {
	if f.savedDone {
		return f.saved
	}
	var seen [isa.MaxSaved]bool
	for _, line := range f.Body {
		cleaned, _ := directive.Clean(line.Text)
		for _, sym := range directive.Symbols(cleaned) {
			r, ok := isa.Lookup(sym)
			if !ok {
				continue
			}
			if idx, ok := r.SavedIndex(); ok {
				seen[idx] = true
			}
		}
	}
	for i, used := range seen {
		if used {
			f.saved = append(f.saved, isa.Saved(i))
		}
	}
	f.savedDone = true
	return f.saved
}

// Labels returns every label defined in the body, in order.
func (f *Function) Labels() []string {
	var out []string
	for _, line := range f.Body {
		cleaned, _ := directive.Clean(line.Text)
		if name, ok := directive.Label(cleaned); ok && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

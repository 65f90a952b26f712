package source

// Pos identifies one physical line together with the include chain that
// brought its file into the translation unit.
type Pos struct {
	File FileID
	Line uint32 // 1-based, 0 means "no position"
	From *Pos   // include directive that pulled File in; nil for the root file
}

// IsValid reports whether pos points at a real line.
func (p Pos) IsValid() bool {
	return p.Line != 0
}

// Chain returns the include sites leading to p, innermost first.
func (p Pos) Chain() []Pos {
	var out []Pos
	for at := p.From; at != nil; at = at.From {
		out = append(out, *at)
	}
	return out
}

// Depth is the include nesting level of p; 0 for lines of the root file.
func (p Pos) Depth() int {
	n := 0
	for at := p.From; at != nil; at = at.From {
		n++
	}
	return n
}

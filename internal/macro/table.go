// Package macro implements the two macro tiers: immediate macros, which are
// parameterless token substitutions ($NAME), and block macros, which are
// parameterized line templates invoked with $$name.
package macro

import (
	"errors"
	"sort"
	"strings"

	"fabr/internal/directive"
	"fabr/internal/source"
)

// Immediate is a named, parameterless textual substitution.
type Immediate struct {
	Name string
	Text string
	Refs int
	Pos  source.Pos
}

// Macro is a parameterized multi-line template.
type Macro struct {
	Name   string
	Params []string
	Body   []source.Line
	Refs   int
	Pos    source.Pos
}

// Table owns every macro of one translation unit.
type Table struct {
	immediates map[string]*Immediate
	immOrder   []*Immediate
	longest    []*Immediate // substitution order: longest name first

	macros   map[string]*Macro
	macOrder []*Macro
}

func NewTable() *Table {
	return &Table{
		immediates: make(map[string]*Immediate),
		macros:     make(map[string]*Macro),
	}
}

// DeclareImmediate adds an immediate macro; it returns the previous
// declaration when name is taken.
func (t *Table) DeclareImmediate(name, text string, pos source.Pos) (*Immediate, bool) {
	if prev, ok := t.immediates[name]; ok {
		return prev, false
	}
	im := &Immediate{Name: name, Text: text, Pos: pos}
	t.immediates[name] = im
	t.immOrder = append(t.immOrder, im)
	t.longest = nil
	return im, true
}

// DeclareMacro adds a block macro; it returns the previous declaration when
// name is taken.
func (t *Table) DeclareMacro(name string, params []string, pos source.Pos) (*Macro, bool) {
	if prev, ok := t.macros[name]; ok {
		return prev, false
	}
	m := &Macro{Name: name, Params: params, Pos: pos}
	t.macros[name] = m
	t.macOrder = append(t.macOrder, m)
	return m, true
}

func (t *Table) Immediate(name string) (*Immediate, bool) {
	im, ok := t.immediates[name]
	return im, ok
}

func (t *Table) Macro(name string) (*Macro, bool) {
	m, ok := t.macros[name]
	return m, ok
}

// Immediates returns immediate macros in declaration order.
func (t *Table) Immediates() []*Immediate {
	return t.immOrder
}

// Macros returns block macros in declaration order.
func (t *Table) Macros() []*Macro {
	return t.macOrder
}

// RefTotals sums reference counts of both tiers.
func (t *Table) RefTotals() (immediate, block int) {
	for _, im := range t.immOrder {
		immediate += im.Refs
	}
	for _, m := range t.macOrder {
		block += m.Refs
	}
	return immediate, block
}

func (t *Table) substitutionOrder() []*Immediate {
	if t.longest == nil && len(t.immOrder) > 0 {
		t.longest = append([]*Immediate(nil), t.immOrder...)
		// равные длины упорядочены по имени, чтобы вывод был детерминированным
		sort.SliceStable(t.longest, func(i, j int) bool {
			a, b := t.longest[i], t.longest[j]
			if len(a.Name) != len(b.Name) {
				return len(a.Name) > len(b.Name)
			}
			return a.Name < b.Name
		})
	}
	return t.longest
}

// errImmediateCycle means substitution did not reach a fixed point.
var errImmediateCycle = errors.New("immediate macros expand into each other")

// Substitute replaces every $NAME token in text, longest names first, and
// repeats until no replacement happens so that immediate macro texts may
// refer to other immediate macros. The $$ call prefix is never matched.
func (t *Table) Substitute(text string) (string, error) {
	order := t.substitutionOrder()
	if len(order) == 0 || !strings.Contains(text, directive.ImmediatePrefix) {
		return text, nil
	}
	for range len(order) + 1 {
		changed := false
		for _, im := range order {
			var n int
			text, n = replaceToken(text, im.Name, im.Text)
			if n > 0 {
				im.Refs += n
				changed = true
			}
		}
		if !changed {
			return text, nil
		}
	}
	return text, errImmediateCycle
}

func replaceToken(text, name, value string) (string, int) {
	needle := directive.ImmediatePrefix + name
	var b strings.Builder
	n, start, off := 0, 0, 0
	for {
		i := strings.Index(text[off:], needle)
		if i < 0 {
			break
		}
		i += off
		end := i + len(needle)
		if (i > 0 && text[i-1] == '$') || (end < len(text) && isWordByte(text[end])) {
			off = i + 1
			continue
		}
		b.WriteString(text[start:i])
		b.WriteString(value)
		start, off = end, end
		n++
	}
	if n == 0 {
		return text, 0
	}
	b.WriteString(text[start:])
	return b.String(), n
}

// unresolved returns the first $NAME token left in cleaned code. The macro
// name of a $$ call is not a token.
func unresolved(cleaned string) (string, bool) {
	if directive.IsMacroCall(cleaned) {
		if i := strings.IndexAny(cleaned, " \t"); i >= 0 {
			cleaned = cleaned[i:]
		} else {
			return "", false
		}
	}
	for i := 0; i < len(cleaned); i++ {
		if cleaned[i] != '$' || i+1 >= len(cleaned) {
			continue
		}
		c := cleaned[i+1]
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			continue
		}
		j := i + 1
		for j < len(cleaned) && isWordByte(cleaned[j]) {
			j++
		}
		return cleaned[i+1 : j], true
	}
	return "", false
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

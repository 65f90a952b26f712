// Package symbols collects declared functions and poisoned identifiers.
package symbols

import "fabr/internal/source"

// Table owns the functions and the poisoned-symbol set of one translation unit.
type Table struct {
	funcs map[string]*Function
	order []*Function

	poisoned    map[string]source.Pos
	poisonOrder []string
}

func NewTable() *Table {
	return &Table{
		funcs:    make(map[string]*Function),
		poisoned: make(map[string]source.Pos),
	}
}

// Declare adds fn; it returns false when the name is taken.
func (t *Table) Declare(fn *Function) bool {
	if _, ok := t.funcs[fn.Name]; ok {
		return false
	}
	t.funcs[fn.Name] = fn
	t.order = append(t.order, fn)
	return true
}

func (t *Table) Lookup(name string) (*Function, bool) {
	fn, ok := t.funcs[name]
	return fn, ok
}

// Functions returns functions in declaration order.
func (t *Table) Functions() []*Function {
	return t.order
}

// Poison adds sym to the forbidden set; it returns false if it was there.
func (t *Table) Poison(sym string, pos source.Pos) bool {
	if _, ok := t.poisoned[sym]; ok {
		return false
	}
	t.poisoned[sym] = pos
	t.poisonOrder = append(t.poisonOrder, sym)
	return true
}

// IsPoisoned reports whether sym is forbidden and where it was poisoned.
func (t *Table) IsPoisoned(sym string) (source.Pos, bool) {
	pos, ok := t.poisoned[sym]
	return pos, ok
}

// Poisoned returns forbidden symbols in the order they were poisoned.
func (t *Table) Poisoned() []string {
	return t.poisonOrder
}

// FirstPoisoned returns the first poisoned symbol among syms.
func (t *Table) FirstPoisoned(syms []string) (string, bool) {
	if len(t.poisoned) == 0 {
		return "", false
	}
	for _, s := range syms {
		if _, ok := t.poisoned[s]; ok {
			return s, true
		}
	}
	return "", false
}

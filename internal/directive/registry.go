package directive

import "fmt"

// Unbounded marks a directive that takes any number of trailing arguments.
const Unbounded = -1

// Spec describes the keyword and argument bounds of one directive kind.
type Spec struct {
	Kind    Kind
	Keyword string
	MinArgs int
	MaxArgs int
}

var registry = [...]Spec{
	KindNone:     {Kind: KindNone},
	KindInclude:  {Kind: KindInclude, Keyword: "include", MinArgs: 1, MaxArgs: 1},
	KindSect:     {Kind: KindSect, Keyword: "sect", MinArgs: 1, MaxArgs: 1},
	KindFuncDecl: {Kind: KindFuncDecl, Keyword: "funcdecl", MinArgs: 2, MaxArgs: 3},
	KindEndFunc:  {Kind: KindEndFunc, Keyword: "endfunc", MinArgs: 0, MaxArgs: 0},
	KindFuncCall: {Kind: KindFuncCall, Keyword: "funccall", MinArgs: 1, MaxArgs: Unbounded},
	KindSectOrd:  {Kind: KindSectOrd, Keyword: "sectord", MinArgs: 1, MaxArgs: Unbounded},
	KindPoison:   {Kind: KindPoison, Keyword: "poison", MinArgs: 1, MaxArgs: Unbounded},
	KindIMacro:   {Kind: KindIMacro, Keyword: "imacro", MinArgs: 2, MaxArgs: 2},
	KindMacro:    {Kind: KindMacro, Keyword: "macro", MinArgs: 2, MaxArgs: Unbounded},
	KindEndMacro: {Kind: KindEndMacro, Keyword: "endmacro", MinArgs: 0, MaxArgs: 0},
}

var byKeyword = func() map[string]Kind {
	m := make(map[string]Kind, len(registry))
	for _, s := range registry {
		if s.Keyword != "" {
			m[s.Keyword] = s.Kind
		}
	}
	return m
}()

// Lookup maps a keyword to its kind; unknown keywords yield KindNone.
func Lookup(keyword string) Kind {
	return byKeyword[keyword]
}

// SpecOf returns the registry entry for k.
func SpecOf(k Kind) Spec {
	if int(k) >= len(registry) {
		return registry[KindNone]
	}
	return registry[k]
}

// Keywords lists the known directive keywords in declaration order.
func Keywords() []string {
	out := make([]string, 0, len(registry)-1)
	for _, s := range registry[1:] {
		out = append(out, s.Keyword)
	}
	return out
}

// Accepts reports whether n arguments satisfy the bounds.
func (s Spec) Accepts(n int) bool {
	if n < s.MinArgs {
		return false
	}
	return s.MaxArgs == Unbounded || n <= s.MaxArgs
}

// Requirement renders the bounds for diagnostics, e.g. "exactly one argument".
func (s Spec) Requirement() string {
	switch {
	case s.MaxArgs == 0:
		return "no arguments"
	case s.MaxArgs == Unbounded:
		return fmt.Sprintf("at least %s", plural(s.MinArgs))
	case s.MinArgs == s.MaxArgs:
		return fmt.Sprintf("exactly %s", plural(s.MinArgs))
	default:
		return fmt.Sprintf("%d-%d arguments", s.MinArgs, s.MaxArgs)
	}
}

func plural(n int) string {
	words := [...]string{"no arguments", "one argument", "two arguments", "three arguments"}
	if n >= 0 && n < len(words) {
		return words[n]
	}
	return fmt.Sprintf("%d arguments", n)
}

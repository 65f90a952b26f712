package directive

import (
	"strings"

	"fabr/internal/diag"
	"fabr/internal/source"
)

// Directive is one parsed directive line.
type Directive struct {
	Kind    Kind
	Keyword string
	Args    []string
}

// IsDirective reports whether a cleaned line is a directive.
func IsDirective(cleaned string) bool {
	return strings.HasPrefix(cleaned, Marker)
}

// Parse splits a cleaned directive line into keyword and arguments.
func Parse(cleaned string) (Directive, bool) {
	if !IsDirective(cleaned) {
		return Directive{}, false
	}
	fields := strings.Fields(cleaned)
	kw := strings.TrimPrefix(fields[0], Marker)
	return Directive{
		Kind:    Lookup(kw),
		Keyword: kw,
		Args:    fields[1:],
	}, true
}

// CheckArity returns a fatal error at line when d has the wrong argument count.
func (d Directive) CheckArity(sink *diag.Sink, line source.Line) error {
	spec := SpecOf(d.Kind)
	if spec.Accepts(len(d.Args)) {
		return nil
	}
	return sink.Fatalf(line.Pos, diag.DirArity,
		"directive %s requires %s, %d provided", d.Keyword, spec.Requirement(), len(d.Args))
}

// IsMacroCall reports whether a cleaned line invokes a block macro.
func IsMacroCall(cleaned string) bool {
	return strings.HasPrefix(cleaned, CallPrefix)
}

// ParseMacroCall returns the macro name and positional arguments.
func ParseMacroCall(cleaned string) (name string, args []string) {
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.TrimPrefix(fields[0], CallPrefix), fields[1:]
}

// Separators split code into symbols for the poisoned-symbol guard.
const Separators = " \t,:()"

// Symbols tokenizes cleaned code on Separators.
func Symbols(cleaned string) []string {
	return strings.FieldsFunc(cleaned, func(r rune) bool {
		return strings.ContainsRune(Separators, r)
	})
}

// Label returns the label defined at the start of cleaned code, if any.
func Label(cleaned string) (string, bool) {
	i := strings.IndexByte(cleaned, ':')
	if i <= 0 {
		return "", false
	}
	name := cleaned[:i]
	if !IsIdent(name) {
		return "", false
	}
	return name, true
}

// IsIdent reports whether s is a non-empty assembler identifier.
func IsIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !IsIdentByte(c) || (i == 0 && c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// IsIdentByte reports whether c may appear inside an identifier.
func IsIdentByte(c byte) bool {
	return c == '_' || c == '.' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

package symbols

import (
	"strconv"
	"strings"

	"fabr/internal/diag"
	"fabr/internal/directive"
	"fabr/internal/isa"
	"fabr/internal/source"
)

// Build scans macro-expanded code for funcdecl blocks and poison directives.
// Function bodies must be raw code: any directive other than the closing
// endfunc inside a body is fatal.
func Build(sink *diag.Sink, lines []source.Line) (*Table, error) {
	t := NewTable()
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		cleaned, err := directive.CleanAt(sink, line)
		if err != nil {
			return nil, err
		}
		d, ok := directive.Parse(cleaned)
		if !ok {
			continue
		}

		switch d.Kind {
		case directive.KindFuncDecl:
			fn, err := declare(sink, line, d)
			if err != nil {
				return nil, err
			}
			if !t.Declare(fn) {
				return nil, sink.Fatalf(line.Pos, diag.SymDuplicateFunc, "function '%s' is already defined", fn.Name)
			}
			end, err := captureBody(sink, lines, i, fn)
			if err != nil {
				return nil, err
			}
			i = end

		case directive.KindEndFunc:
			return nil, sink.Fatalf(line.Pos, diag.SymIsolatedEnd,
				"found an isolated endfunc directive; are you missing a funcdecl directive?")

		case directive.KindPoison:
			if err := d.CheckArity(sink, line); err != nil {
				return nil, err
			}
			for _, sym := range d.Args {
				if !t.Poison(sym, line.Pos) {
					sink.Warnf(line.Pos, diag.SymRepoisoned, "symbol '%s' is already poisoned, ignoring", sym)
				}
			}
		}
	}
	return t, nil
}

func declare(sink *diag.Sink, line source.Line, d directive.Directive) (*Function, error) {
	if err := d.CheckArity(sink, line); err != nil {
		return nil, err
	}
	name := d.Args[0]
	arity, err := strconv.Atoi(d.Args[1])
	if err != nil || arity < 0 || arity > isa.MaxArgs {
		return nil, sink.Fatalf(line.Pos, diag.SymBadArity,
			"function '%s' needs an arity between 0 and %d, got '%s'", name, isa.MaxArgs, d.Args[1])
	}
	fn := &Function{Name: name, Arity: arity, Pos: line.Pos}
	if len(d.Args) == 3 {
		hint, legacy, ok := ParseHint(d.Args[2])
		if !ok {
			return nil, sink.Fatalf(line.Pos, diag.SymBadHint,
				"function '%s' has inline hint '%s'; use aggressiveinline, noinline or autoinline", name, d.Args[2])
		}
		if legacy {
			b := sink.Warning(line.Pos, diag.SymHintSpelling,
				"inline hint '%s' of function '%s' is spelled 'aggressiveinline'", d.Args[2], name)
			if sp, ok := argSpan(sink, line, d.Args[2]); ok {
				b = b.WithFix("use aggressiveinline", diag.FixEdit{Span: sp, NewText: HintAggressive.String()})
			}
			b.Emit()
		}
		fn.Hint = hint
	}
	return fn, nil
}

// captureBody fills fn.Body with the lines after lines[start] up to the
// matching endfunc and returns the index of that endfunc.
func captureBody(sink *diag.Sink, lines []source.Line, start int, fn *Function) (int, error) {
	for j := start + 1; j < len(lines); j++ {
		cleaned, err := directive.CleanAt(sink, lines[j])
		if err != nil {
			return 0, err
		}
		d, ok := directive.Parse(cleaned)
		if !ok {
			continue
		}
		switch d.Kind {
		case directive.KindEndFunc:
			if err := d.CheckArity(sink, lines[j]); err != nil {
				return 0, err
			}
			fn.Body = lines[start+1 : j]
			return j, nil
		case directive.KindFuncDecl:
			return 0, sink.Fatalf(lines[j].Pos, diag.SymNestedDecl,
				"function '%s' is declared inside function '%s'", firstArg(d), fn.Name)
		default:
			return 0, sink.Fatalf(lines[j].Pos, diag.SymDirectiveInBody,
				"directive '%s' is not allowed inside function '%s'", cleaned, fn.Name)
		}
	}
	return 0, sink.Fatalf(fn.Pos, diag.SymUnterminated, "function '%s' is missing an endfunc directive", fn.Name)
}

// argSpan locates the last occurrence of arg on line.
func argSpan(sink *diag.Sink, line source.Line, arg string) (source.Span, bool) {
	sp := sink.Span(line.Pos)
	i := strings.LastIndex(line.Text, arg)
	if i < 0 || sp.Empty() {
		return source.Span{}, false
	}
	// #nosec G115 -- offsets are bounded by the line length
	start := sp.Start + uint32(i)
	end := start + uint32(len(arg)) // #nosec G115
	if end > sp.End {
		return source.Span{}, false
	}
	return source.Span{File: sp.File, Start: start, End: end}, true
}

func firstArg(d directive.Directive) string {
	if len(d.Args) == 0 {
		return ""
	}
	return d.Args[0]
}

package macro

import (
	"slices"
	"strings"

	"fabr/internal/diag"
	"fabr/internal/directive"
	"fabr/internal/source"
)

// Options control traceability output of the expander.
type Options struct {
	// Echo keeps elided declarations as MACRO_CODE comments and brackets
	// every expansion with MACRO/ENDMACRO comments.
	Echo bool
}

type expander struct {
	sink  *diag.Sink
	table *Table
	opts  Options
	stack []string
	out   []source.Line
}

// Expand substitutes immediate macros on every line, removes block macro
// declarations and replaces every $$call with the macro body. Nested calls
// inside a body are expanded recursively; a macro that (directly or through
// others) invokes itself is a fatal error.
func Expand(sink *diag.Sink, table *Table, lines []source.Line, opts Options) ([]source.Line, error) {
	e := &expander{
		sink:  sink,
		table: table,
		opts:  opts,
		out:   make([]source.Line, 0, len(lines)),
	}
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		// подстановка immediate-макросов идёт до проверки на объявление
		text, err := table.Substitute(line.Text)
		if err != nil {
			return nil, sink.Fatalf(line.Pos, diag.MacRecursive, "%v", err)
		}
		raw, err := directive.CleanAt(sink, source.Line{Text: text, Pos: line.Pos})
		if err != nil {
			return nil, err
		}
		if d, ok := directive.Parse(raw); ok && d.Kind == directive.KindMacro {
			end, err := findEnd(sink, lines, i)
			if err != nil {
				return nil, err
			}
			if opts.Echo {
				for _, l := range lines[i : end+1] {
					e.out = append(e.out, source.Line{Text: directive.MacroEchoPrefix + l.Text, Pos: l.Pos})
				}
			}
			i = end
			continue
		}
		if err := e.line(text, line.Pos, nil); err != nil {
			return nil, err
		}
	}
	return e.out, nil
}

// line handles one line at pos: immediate substitution, then parameter
// substitution when bind is set, then either a nested call or emission.
func (e *expander) line(text string, pos source.Pos, bind *binding) error {
	text, err := e.table.Substitute(text)
	if err != nil {
		return e.sink.Fatalf(pos, diag.MacRecursive, "%v", err)
	}
	if bind != nil {
		text = bind.apply(text)
	}
	cleaned, err := directive.CleanAt(e.sink, source.Line{Text: text, Pos: pos})
	if err != nil {
		return err
	}
	if directive.IsMacroCall(cleaned) {
		if name, ok := unresolved(cleaned); ok {
			return e.undefinedImmediate(pos, name)
		}
		name, args := directive.ParseMacroCall(cleaned)
		return e.apply(name, args, pos)
	}
	if name, ok := unresolved(cleaned); ok {
		return e.undefinedImmediate(pos, name)
	}
	e.out = append(e.out, source.Line{Text: text, Pos: pos})
	return nil
}

func (e *expander) apply(name string, args []string, pos source.Pos) error {
	m, ok := e.table.Macro(name)
	if !ok {
		return e.sink.Fatalf(pos, diag.MacUndefined, "macro '%s' is not defined", name)
	}
	if len(args) != len(m.Params) {
		return e.sink.Fatalf(pos, diag.MacArgCount,
			"macro '%s' requires %d arguments, %d provided", name, len(m.Params), len(args))
	}
	if slices.Contains(e.stack, name) {
		chain := append(slices.Clone(e.stack), name)
		return e.sink.Fatalf(pos, diag.MacRecursive,
			"recursive expansion of macro '%s' (%s)", name, strings.Join(chain, " -> "))
	}

	e.stack = append(e.stack, name)
	if e.opts.Echo {
		e.out = append(e.out, source.Line{Text: directive.Echo("MACRO " + name), Pos: pos})
	}
	bind := &binding{params: m.Params, args: args}
	for _, bl := range m.Body {
		if err := e.line(bl.Text, pos, bind); err != nil {
			return err
		}
	}
	if e.opts.Echo {
		e.out = append(e.out, source.Line{Text: directive.Echo("ENDMACRO " + name), Pos: pos})
	}
	e.stack = e.stack[:len(e.stack)-1]
	m.Refs++
	return nil
}

func (e *expander) undefinedImmediate(pos source.Pos, name string) error {
	return e.sink.Fatalf(pos, diag.MacUndefinedImmediate, "immediate macro '%s' is not defined", name)
}

// binding maps the parameters of one macro invocation to its arguments.
type binding struct {
	params []string
	args   []string
}

// apply replaces parameters by plain substring replacement in declaration order.
func (b *binding) apply(text string) string {
	for i, p := range b.params {
		text = strings.ReplaceAll(text, p, b.args[i])
	}
	return text
}

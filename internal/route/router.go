// Package route splits expanded code into sections, rewrites funccall sites
// and places function definitions.
package route

import (
	"context"
	"strings"

	"fabr/internal/diag"
	"fabr/internal/directive"
	"fabr/internal/section"
	"fabr/internal/source"
	"fabr/internal/symbols"
	"fabr/internal/trace"
)

// Call describes one rewritten funccall site.
type Call struct {
	Func    string
	Pos     source.Pos
	Inlined bool
	Moves   int
	Saves   int
}

// Result is the routed translation unit.
type Result struct {
	Sections *section.Set
	Calls    []Call
	// Inlined counts inline copies; it is also the last suffix handed out.
	Inlined int
}

type router struct {
	sink *diag.Sink
	syms *symbols.Table
	opts Options
	set  *section.Set

	tracer trace.Tracer
	parent uint64

	calls   []Call
	inlined int
	// call instructions per function; inline copies do not need a definition
	called map[*symbols.Function]int
}

// Route walks the expanded lines once. Function definitions are deferred
// to merge time so that a function no call instruction targets is left out.
func Route(ctx context.Context, sink *diag.Sink, syms *symbols.Table, lines []source.Line, opts Options) (*Result, error) {
	r := &router{
		sink:   sink,
		syms:   syms,
		opts:   opts,
		set:    section.NewSet(),
		called: make(map[*symbols.Function]int),
		tracer: trace.FromContext(ctx),
		parent: trace.CurrentSpan(ctx).SpanID,
	}
	for i := 0; i < len(lines); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := r.line(lines, i)
		if err != nil {
			return nil, err
		}
		i = next
	}
	return &Result{Sections: r.set, Calls: r.calls, Inlined: r.inlined}, nil
}

// line routes lines[i] and returns the index of the last line it consumed.
func (r *router) line(lines []source.Line, i int) (int, error) {
	line := lines[i]
	cleaned, err := directive.CleanAt(r.sink, line)
	if err != nil {
		return i, err
	}
	d, isDirective := directive.Parse(cleaned)
	if !isDirective || d.Kind != directive.KindPoison {
		if err := r.guard(line, cleaned); err != nil {
			return i, err
		}
	}
	if !isDirective {
		r.set.Current().Append(line.Text)
		return i, nil
	}
	if d.Kind != directive.KindNone {
		if err := d.CheckArity(r.sink, line); err != nil {
			return i, err
		}
	}

	switch d.Kind {
	case directive.KindInclude:
		if r.opts.Echo {
			r.set.Current().Append(directive.Echo(cleaned))
		}

	case directive.KindSect:
		r.set.Open(d.Args[0], line.Pos)

	case directive.KindSectOrd:
		if prev, ok := r.set.SetOrder(d.Args, line.Pos); !ok {
			return i, r.sink.Fatalf(line.Pos, diag.RteDuplicateSectord, "sectord may only be declared once").
				WithNote(r.sink.Span(prev), "first declared here")
		}

	case directive.KindFuncDecl:
		return r.define(lines, i, d.Args[0])

	case directive.KindFuncCall:
		out, err := r.call(line, d)
		if err != nil {
			return i, err
		}
		r.set.Current().Append(out...)

	case directive.KindMacro, directive.KindEndMacro:
		r.sink.Warnf(line.Pos, diag.RteStrayMacroDirective, "%s directive survived macro expansion, skipping", d.Keyword)

	case directive.KindNone:
		r.sink.Warnf(line.Pos, diag.DirUnknown, "unknown directive '%s', skipping", d.Keyword)

	case directive.KindPoison, directive.KindIMacro, directive.KindEndFunc:
		// consumed by earlier stages
	}
	return i, nil
}

// guard rejects a line that mentions a poisoned symbol.
func (r *router) guard(line source.Line, cleaned string) error {
	sym, ok := r.syms.FirstPoisoned(directive.Symbols(cleaned))
	if !ok {
		return nil
	}
	f := r.sink.Fatalf(line.Pos, diag.RtePoisoned, "symbol '%s' is poisoned: '%s'", sym, strings.TrimSpace(line.Text))
	if at, ok := r.syms.IsPoisoned(sym); ok && at.IsValid() {
		f = f.WithNote(r.sink.Span(at), "poisoned here")
	}
	return f
}

// define reserves the definition slot of a function at its funcdecl and
// skips the body. The body still goes through the poison guard.
func (r *router) define(lines []source.Line, i int, name string) (int, error) {
	fn, ok := r.syms.Lookup(name)
	if !ok {
		return i, r.sink.Fatalf(lines[i].Pos, diag.RteUndefinedFunc, "function '%s' was not collected", name)
	}
	for _, body := range fn.Body {
		cleaned, err := directive.CleanAt(r.sink, body)
		if err != nil {
			return i, err
		}
		if err := r.guard(body, cleaned); err != nil {
			return i, err
		}
	}
	r.set.Current().Defer(func() ([]string, error) {
		if fn.Refs == 0 || r.called[fn] == 0 {
			return nil, nil
		}
		return r.emit(fn, nil)
	})
	// funcdecl, body, endfunc
	return i + len(fn.Body) + 1, nil
}

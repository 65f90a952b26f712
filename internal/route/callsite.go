package route

import (
	"fmt"
	"slices"
	"strings"

	"fabr/internal/callconv"
	"fabr/internal/diag"
	"fabr/internal/directive"
	"fabr/internal/isa"
	"fabr/internal/source"
	"fabr/internal/symbols"
	"fabr/internal/trace"
)

const saveKeyword = "save"

// operands flattens directive arguments, accepting "a0, a1" as well as "a0 a1".
func operands(args []string) []string {
	var out []string
	for _, a := range args {
		for _, f := range strings.Split(a, ",") {
			if f != "" {
				out = append(out, f)
			}
		}
	}
	return out
}

// splitSave separates call operands from the registers after "save".
func splitSave(args []string) (ops, saves []string) {
	i := slices.Index(args, saveKeyword)
	if i < 0 {
		return args, nil
	}
	return args[:i], args[i+1:]
}

// call rewrites one funccall site: push of the save list, argument moves,
// call or inline copy, pop.
func (r *router) call(line source.Line, d directive.Directive) ([]string, error) {
	args := operands(d.Args)
	if len(args) == 0 {
		return nil, r.sink.Fatalf(line.Pos, diag.DirArity, "directive funccall requires a function name")
	}
	name := args[0]
	fn, ok := r.syms.Lookup(name)
	if !ok {
		return nil, r.sink.Fatalf(line.Pos, diag.RteUndefinedFunc, "function '%s' is not declared", name)
	}
	ops, saveNames := splitSave(args[1:])
	if len(ops) != fn.Arity {
		return nil, r.sink.Fatalf(line.Pos, diag.RteArgCount,
			"function '%s' takes %d arguments, %d provided", name, fn.Arity, len(ops)).
			WithNote(r.sink.Span(fn.Pos), "declared here")
	}

	srcs := make([]isa.Reg, len(ops))
	for i, op := range ops {
		reg, err := r.operand(line, fn, op)
		if err != nil {
			return nil, err
		}
		srcs[i] = reg
	}
	saves, err := r.saveList(line, fn, saveNames)
	if err != nil {
		return nil, err
	}

	fn.Refs++
	moves := callconv.Assign(srcs)
	indent := indentOf(line.Text)

	out := indentAll(isa.Push(saves), indent)
	out = append(out, indentAll(callconv.Lines(moves), indent)...)
	inline := r.opts.Inlines(fn.Hint)
	if inline {
		r.inlined++
		body, err := r.emit(fn, newInlining(fn, r.inlined))
		if err != nil {
			return nil, err
		}
		out = append(out, body...)
	} else {
		r.called[fn]++
		out = append(out, indent+isa.Call(fn.Name))
	}
	out = append(out, indentAll(isa.Pop(saves), indent)...)

	r.calls = append(r.calls, Call{Func: name, Pos: line.Pos, Inlined: inline, Moves: len(moves), Saves: len(saves)})
	trace.Point(r.tracer, trace.ScopeLine, "funccall "+name,
		fmt.Sprintf("inline=%t moves=%d saves=%d", inline, len(moves), len(saves)), r.parent)
	return out, nil
}

func (r *router) operand(line source.Line, fn *symbols.Function, op string) (isa.Reg, error) {
	reg, ok := isa.Lookup(op)
	if !ok {
		return 0, r.sink.Fatalf(line.Pos, diag.RteInvalidReg, "'%s' passed to '%s' is not a register", op, fn.Name)
	}
	switch reg {
	case isa.LinkRegister:
		return 0, r.sink.Fatalf(line.Pos, diag.RteForbiddenReg,
			"'%s' cannot be passed to '%s': the call overwrites the link register", op, fn.Name)
	case isa.StackPointer:
		return 0, r.sink.Fatalf(line.Pos, diag.RteForbiddenReg,
			"'%s' cannot be passed to '%s': the stack pointer is not an argument", op, fn.Name)
	}
	return reg, nil
}

// saveList validates registers the caller wants preserved. Repeats are
// dropped with a warning.
func (r *router) saveList(line source.Line, fn *symbols.Function, names []string) ([]isa.Reg, error) {
	var saves []isa.Reg
	for _, n := range names {
		reg, ok := isa.Lookup(n)
		if !ok {
			return nil, r.sink.Fatalf(line.Pos, diag.RteInvalidReg, "'%s' in the save list is not a register", n)
		}
		switch {
		case reg == isa.StackPointer:
			return nil, r.sink.Fatalf(line.Pos, diag.RteForbiddenReg, "the stack pointer cannot be saved on the stack")
		case reg.IsCalleeSaved():
			return nil, r.sink.Fatalf(line.Pos, diag.RteSaveCalleeSaved,
				"'%s' is callee-saved; '%s' preserves it itself", n, fn.Name)
		case slices.Contains(saves, reg):
			b := r.sink.Warning(line.Pos, diag.RteDuplicateSaveReg, "register %s is already in the save list, ignoring", reg)
			if edit, ok := r.dropToken(line, n); ok {
				b = b.WithFix("remove duplicate "+n, edit)
			}
			b.Emit()
			continue
		}
		saves = append(saves, reg)
	}
	return saves, nil
}

// dropToken builds an edit removing the last blank-separated occurrence of
// tok (and the blanks before it) from line. Lines rewritten by macro
// expansion no longer match the file and get no edit.
func (r *router) dropToken(line source.Line, tok string) (diag.FixEdit, bool) {
	sp := r.sink.Span(line.Pos)
	if sp.Empty() || r.sink.Files == nil {
		return diag.FixEdit{}, false
	}
	content := r.sink.Files.Get(sp.File).Content
	if int(sp.End) > len(content) || string(content[sp.Start:sp.End]) != line.Text {
		return diag.FixEdit{}, false
	}
	text := line.Text
	for end := len(text); end > 0; {
		i := strings.LastIndex(text[:end], tok)
		if i <= 0 {
			break
		}
		after := i + len(tok)
		if isBlank(text[i-1]) && (after == len(text) || isBlank(text[after])) {
			from := i
			for from > 0 && isBlank(text[from-1]) {
				from--
			}
			// #nosec G115 -- offsets are bounded by the line length
			return diag.FixEdit{Span: source.Span{File: sp.File, Start: sp.Start + uint32(from), End: sp.Start + uint32(after)}}, true
		}
		end = i
	}
	return diag.FixEdit{}, false
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

func indentOf(text string) string {
	return text[:len(text)-len(strings.TrimLeft(text, " \t"))]
}

func indentAll(lines []string, indent string) []string {
	if indent == "" {
		return lines
	}
	for i := range lines {
		lines[i] = indent + lines[i]
	}
	return lines
}

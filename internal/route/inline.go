package route

import (
	"strconv"
	"strings"

	"fabr/internal/diag"
	"fabr/internal/directive"
	"fabr/internal/isa"
	"fabr/internal/symbols"
)

// inlining rewrites body lines of one inline copy: labels get a unique
// suffix and returns jump to the copy's exit label.
type inlining struct {
	suffix string
	labels []string
	exit   string
	jumped bool
	last   int // index of the last body line holding code
}

func newInlining(fn *symbols.Function, n int) *inlining {
	suffix := "__inl" + strconv.Itoa(n)
	last := -1
	for i, l := range fn.Body {
		if cleaned, _ := directive.Clean(l.Text); cleaned != "" {
			last = i
		}
	}
	return &inlining{
		suffix: suffix,
		labels: fn.Labels(),
		exit:   fn.Name + "_ret" + suffix,
		last:   last,
	}
}

// line rewrites body line idx; ok is false when the line is dropped.
func (in *inlining) line(text string, idx int) (string, bool) {
	for _, l := range in.labels {
		text = replaceIdent(text, l, l+in.suffix)
	}
	cleaned, _ := directive.Clean(text)
	label, code := splitLabel(cleaned)
	if !isRet(code) {
		return text, true
	}
	if idx == in.last {
		if label != "" {
			return indentOf(text) + label + ":", true
		}
		return "", false
	}
	in.jumped = true
	if label != "" {
		return indentOf(text) + label + ": " + isa.Jump(in.exit), true
	}
	return indentOf(text) + isa.Jump(in.exit), true
}

// emit renders a function body. With in == nil it is the out-of-line
// definition, otherwise an inline copy.
//
//	entry zone      up to and including "name:"
//	prologue        stores of used callee-saved registers (AutoSave)
//	body            up to the first ret
//	epilogue        loads in reverse, stack release
//	tail            the ret and everything after it
func (r *router) emit(fn *symbols.Function, in *inlining) ([]string, error) {
	entry, ret := -1, -1
	for i, l := range fn.Body {
		cleaned, _ := directive.Clean(l.Text)
		label, code := splitLabel(cleaned)
		if entry < 0 {
			if label == fn.Name {
				entry = i
			}
			continue
		}
		if isRet(code) {
			ret = i
			break
		}
	}
	if entry < 0 {
		return nil, r.sink.Fatalf(fn.Pos, diag.RteMissingEntry, "function '%s' has no entry label '%s:'", fn.Name, fn.Name)
	}
	if ret < 0 {
		return nil, r.sink.Fatalf(fn.Pos, diag.RteMissingRet, "function '%s' has no ret after its entry label", fn.Name)
	}

	var saved []isa.Reg
	if r.opts.AutoSave {
		saved = fn.UsedSaved()
	}
	out := make([]string, 0, len(fn.Body)+2*len(saved)+3)
	emitLine := func(text string, idx int) {
		if in == nil {
			out = append(out, text)
			return
		}
		if rewritten, ok := in.line(text, idx); ok {
			out = append(out, rewritten)
		}
	}

	for i := 0; i <= entry; i++ {
		emitLine(fn.Body[i].Text, i)
	}
	retText := fn.Body[ret].Text
	indent := indentOf(retText)
	out = append(out, indentAll(isa.Push(saved), indent)...)
	for i := entry + 1; i < ret; i++ {
		emitLine(fn.Body[i].Text, i)
	}
	if len(saved) > 0 {
		// a label on the ret line must land before the restores
		cleaned, _ := directive.Clean(retText)
		if label, code := splitLabel(cleaned); label != "" {
			emitLine(indent+label+":", -1)
			retText = indent + code
		}
	}
	out = append(out, indentAll(isa.Pop(saved), indent)...)
	emitLine(retText, ret)
	for i := ret + 1; i < len(fn.Body); i++ {
		emitLine(fn.Body[i].Text, i)
	}
	if in != nil && in.jumped {
		out = append(out, in.exit+":")
	}
	return out, nil
}

// splitLabel separates a leading "label:" from the code after it.
func splitLabel(cleaned string) (label, code string) {
	label, ok := directive.Label(cleaned)
	if !ok {
		return "", cleaned
	}
	return label, strings.TrimSpace(cleaned[len(label)+1:])
}

// isRet reports whether code is a ret instruction.
func isRet(code string) bool {
	rest, ok := strings.CutPrefix(code, "ret")
	return ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t')
}

// replaceIdent replaces every whole-identifier occurrence of old in text.
func replaceIdent(text, old, repl string) string {
	if old == "" || !strings.Contains(text, old) {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text) + len(repl))
	i := 0
	for {
		j := strings.Index(text[i:], old)
		if j < 0 {
			break
		}
		start, end := i+j, i+j+len(old)
		sb.WriteString(text[i:start])
		before := start == 0 || !directive.IsIdentByte(text[start-1])
		after := end == len(text) || !directive.IsIdentByte(text[end])
		if before && after {
			sb.WriteString(repl)
		} else {
			sb.WriteString(old)
		}
		i = end
	}
	sb.WriteString(text[i:])
	return sb.String()
}

package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"fabr/internal/diag"
	"fabr/internal/source"
)

const tabWidth = 4

// located reports whether span points into fs. The zero span marks
// diagnostics without a location (write errors, timings, a missing root).
func located(fs *source.FileSet, span source.Span) bool {
	if fs == nil || span.IsZero() {
		return false
	}
	return int(span.File) < fs.Len()
}

func formatPath(fs *source.FileSet, f *source.File, mode PathMode) string {
	if mode == PathModeRelative {
		return f.FormatPath(mode.mode(), fs.BaseDir())
	}
	return f.FormatPath(mode.mode(), "")
}

// location renders "path:line:col" or "" for unlocated spans.
func location(fs *source.FileSet, span source.Span, mode PathMode) string {
	if !located(fs, span) {
		return ""
	}
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", formatPath(fs, fs.Get(span.File), mode), start.Line, start.Col)
}

type palette struct {
	err, warn, info, code, gutter, caret, note, fix, add, del *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		code:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
		note:   color.New(color.FgCyan),
		fix:    color.New(color.FgMagenta),
		add:    color.New(color.FgGreen),
		del:    color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.gutter, p.caret, p.note, p.fix, p.add, p.del} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes и Fixes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	p := &prettyPrinter{w: w, fs: fs, opts: opts, pal: newPalette(opts.Color)}
	for _, d := range bag.Items() {
		p.diagnostic(d)
	}
}

type prettyPrinter struct {
	w    io.Writer
	fs   *source.FileSet
	opts PrettyOpts
	pal  palette
}

func (p *prettyPrinter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

func (p *prettyPrinter) diagnostic(d diag.Diagnostic) {
	header := p.pal.severity(d.Severity).Sprint(d.Severity.String()) + " " + p.pal.code.Sprint(d.Code.ID()) + ": " + d.Message
	if loc := location(p.fs, d.Primary, p.opts.PathMode); loc != "" {
		header = loc + ": " + header
	}
	p.printf("%s\n", header)

	if located(p.fs, d.Primary) {
		p.snippet(d.Primary)
	}

	// заметки с таймингами несут JSON; показываем их всегда
	if p.opts.ShowNotes || d.Code == diag.ObsTimings {
		for _, n := range d.Notes {
			if loc := location(p.fs, n.Span, p.opts.PathMode); loc != "" {
				p.printf("  %s %s: %s\n", p.pal.note.Sprint("note:"), loc, n.Msg)
			} else {
				p.printf("  %s %s\n", p.pal.note.Sprint("note:"), n.Msg)
			}
		}
	}

	if p.opts.ShowFixes {
		for i, f := range d.Fixes {
			p.printf("  %s %s\n", p.pal.fix.Sprintf("fix #%d:", i+1), f.Title)
			for _, e := range f.Edits {
				p.edit(e)
			}
		}
	}
}

func (p *prettyPrinter) edit(e diag.FixEdit) {
	where := location(p.fs, e.Span, p.opts.PathMode)
	if where == "" {
		where = "<unknown>"
	}
	p.printf("    edit %s apply=%s\n", where, strconv.Quote(e.NewText))
	if !p.opts.ShowPreview {
		return
	}
	preview, ok := previewEdit(p.fs, e)
	if !ok {
		return
	}
	p.printf("    preview:\n")
	for _, l := range preview.before {
		p.printf("      %s\n", p.pal.del.Sprint("- "+expandTabs(l)))
	}
	for _, l := range preview.after {
		p.printf("      %s\n", p.pal.add.Sprint("+ "+expandTabs(l)))
	}
}

// snippet prints the primary line with Context lines around it and an
// underline below the spanned columns of the first line.
func (p *prettyPrinter) snippet(span source.Span) {
	f := p.fs.Get(span.File)
	start, end := p.fs.Resolve(span)
	ctx := uint32(max(p.opts.Context, 0))

	first := uint32(1)
	if start.Line > ctx {
		first = start.Line - ctx
	}
	last := min(start.Line+ctx, uint32(max(f.LineCount(), 1))) // #nosec G115 -- line counts fit uint32
	gutterWidth := len(strconv.FormatUint(uint64(last), 10))

	for n := first; n <= last; n++ {
		text := expandTabs(f.GetLine(n))
		if p.opts.Width > 0 {
			text = runewidth.Truncate(text, int(p.opts.Width), "…")
		}
		p.printf("%s %s\n", p.pal.gutter.Sprintf("%*d |", gutterWidth, n), text)
		if n != start.Line {
			continue
		}

		raw := f.GetLine(n)
		from := clampCol(raw, start.Col)
		to := len(raw)
		if end.Line == start.Line {
			to = clampCol(raw, end.Col)
		}
		pad := runewidth.StringWidth(expandTabs(raw[:from]))
		width := max(runewidth.StringWidth(expandTabs(raw[from:max(to, from)])), 1)
		underline := "^" + strings.Repeat("~", width-1)
		p.printf("%s %s%s\n", p.pal.gutter.Sprint(strings.Repeat(" ", gutterWidth)+" |"), strings.Repeat(" ", pad), p.pal.caret.Sprint(underline))
	}
}

// clampCol converts a 1-based byte column into an index into line.
func clampCol(line string, col uint32) int {
	if col == 0 {
		return 0
	}
	return min(int(col-1), len(line))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

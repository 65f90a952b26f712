package diag

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"fabr/internal/source"
)

type shortDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// FormatShortDiagnostics renders diagnostics into a stable, single-line-per-entry
// representation intended for CLI short output and golden tests. Notes (the
// include chain) are emitted as "note" entries right after their diagnostic.
func FormatShortDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}

	type group struct {
		head  shortDiagnostic
		notes []shortDiagnostic
	}
	groups := make([]group, 0, len(diags))
	for i := range diags {
		d := &diags[i]
		g := group{head: resolveShort(fs, d.Primary, d.Severity.Label(), d.Code, d.Message)}
		if includeNotes {
			for _, n := range d.Notes {
				g.notes = append(g.notes, resolveShort(fs, n.Span, "note", d.Code, n.Msg))
			}
		}
		groups = append(groups, g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		di, dj := groups[i].head, groups[j].head
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Severity != dj.Severity {
			return di.Severity < dj.Severity
		}
		return di.Code < dj.Code
	})

	var b strings.Builder
	first := true
	write := func(d shortDiagnostic) {
		if !first {
			b.WriteByte('\n')
		}
		first = false
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", d.Severity, d.Code, d.Path, d.Line, d.Column, d.Message)
	}
	for _, g := range groups {
		write(g.head)
		for _, n := range g.notes {
			write(n)
		}
	}
	return b.String()
}

func resolveShort(fs *source.FileSet, span source.Span, sev string, code Code, msg string) shortDiagnostic {
	out := shortDiagnostic{Severity: sev, Code: code.ID(), Message: sanitizeMessage(msg)}
	// без файла печатаем :0:0
	if fs == nil || span.IsZero() || int(span.File) >= fs.Len() {
		return out
	}
	file := fs.Get(span.File)
	start, _ := fs.Resolve(span)
	out.Path = normalizePath(file.FormatPath("relative", fs.BaseDir()))
	out.Line = start.Line
	out.Column = start.Col
	return out
}

func normalizePath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}

package diagfmt

import (
	"encoding/json"
	"io"

	"github.com/samber/lo"

	"fabr/internal/diag"
	"fabr/internal/source"
)

// LocationJSON is a byte range, plus 1-based line/col when requested.
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// FixEditJSON carries the preview lines only with JSONOpts.IncludePreviews.
type FixEditJSON struct {
	Location    LocationJSON `json:"location"`
	NewText     string       `json:"new_text"`
	BeforeLines []string     `json:"before_lines,omitempty"`
	AfterLines  []string     `json:"after_lines,omitempty"`
}

type FixJSON struct {
	Title string        `json:"title"`
	Edits []FixEditJSON `json:"edits,omitempty"`
}

type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
	Fixes    []FixJSON    `json:"fixes,omitempty"`
}

// DiagnosticsOutput is the document root; Count equals len(Diagnostics).
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

// locator converts spans for one JSON rendering.
type locator struct {
	fs   *source.FileSet
	opts JSONOpts
}

// at returns the zero LocationJSON for unlocated spans.
func (l locator) at(span source.Span) LocationJSON {
	if !located(l.fs, span) {
		return LocationJSON{}
	}
	loc := LocationJSON{
		File:      formatPath(l.fs, l.fs.Get(span.File), l.opts.PathMode),
		StartByte: span.Start,
		EndByte:   span.End,
	}
	if l.opts.IncludePositions {
		from, to := l.fs.Resolve(span)
		loc.StartLine, loc.StartCol = from.Line, from.Col
		loc.EndLine, loc.EndCol = to.Line, to.Col
	}
	return loc
}

func (l locator) notes(notes []diag.Note) []NoteJSON {
	return lo.Map(notes, func(n diag.Note, _ int) NoteJSON {
		return NoteJSON{Message: n.Msg, Location: l.at(n.Span)}
	})
}

func (l locator) fixes(fixes []diag.Fix) []FixJSON {
	return lo.Map(fixes, func(f diag.Fix, _ int) FixJSON {
		out := FixJSON{Title: f.Title}
		for _, e := range f.Edits {
			edit := FixEditJSON{Location: l.at(e.Span), NewText: e.NewText}
			if l.opts.IncludePreviews {
				if p, ok := previewEdit(l.fs, e); ok {
					edit.BeforeLines, edit.AfterLines = p.before, p.after
				}
			}
			out.Edits = append(out.Edits, edit)
		}
		return out
	})
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
func BuildDiagnosticsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) (DiagnosticsOutput, error) {
	out := DiagnosticsOutput{Diagnostics: []DiagnosticJSON{}}
	if bag == nil {
		return out, nil
	}
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}

	l := locator{fs: fs, opts: opts}
	for _, d := range items {
		entry := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Message:  d.Message,
			Location: l.at(d.Primary),
		}
		// тайминги живут в заметке, поэтому выводятся всегда
		if (opts.IncludeNotes || d.Code == diag.ObsTimings) && len(d.Notes) > 0 {
			entry.Notes = l.notes(d.Notes)
		}
		if opts.IncludeFixes && len(d.Fixes) > 0 {
			entry.Fixes = l.fixes(d.Fixes)
		}
		out.Diagnostics = append(out.Diagnostics, entry)
	}
	out.Count = len(out.Diagnostics)
	return out, nil
}

// JSON writes the diagnostics of bag as one indented document.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	out, err := BuildDiagnosticsOutput(bag, fs, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

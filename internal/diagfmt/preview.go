package diagfmt

import (
	"strings"

	"fortio.org/safecast"

	"fabr/internal/diag"
	"fabr/internal/source"
)

// fixPreview is the block of whole lines touched by an edit, before and
// after applying it.
type fixPreview struct {
	before []string
	after  []string
}

// previewEdit widens e.Span to full lines and replays the edit on them.
// ok is false for unlocated or out-of-range edits.
func previewEdit(fs *source.FileSet, e diag.FixEdit) (fixPreview, bool) {
	if !located(fs, e.Span) || e.Span.End < e.Span.Start {
		return fixPreview{}, false
	}
	f := fs.Get(e.Span.File)
	size, err := safecast.Conv[uint32](len(f.Content))
	if err != nil || e.Span.End > size {
		return fixPreview{}, false
	}

	from, to := fs.Resolve(e.Span)
	block := fs.LineSpan(source.Pos{File: e.Span.File, Line: from.Line})
	block.End = max(fs.LineSpan(source.Pos{File: e.Span.File, Line: max(to.Line, from.Line)}).End, e.Span.End)
	if block.Start > e.Span.Start {
		return fixPreview{}, false
	}

	content := f.Content
	var after strings.Builder
	after.Write(content[block.Start:e.Span.Start])
	after.WriteString(e.NewText)
	after.Write(content[e.Span.End:block.End])

	return fixPreview{
		before: previewLines(string(content[block.Start:block.End])),
		after:  previewLines(after.String()),
	}, true
}

// previewLines splits a block into lines; a deleted line yields none.
func previewLines(text string) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

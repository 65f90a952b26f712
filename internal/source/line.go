package source

import "strings"

// Line is a single line of assembly text with its origin.
type Line struct {
	Text string
	Pos  Pos
}

// SplitLines breaks the file content into lines. A trailing newline does not
// produce an extra empty line. from is the include site, nil for the root.
func SplitLines(f *File, from *Pos) []Line {
	if len(f.Content) == 0 {
		return nil
	}
	text := strings.TrimSuffix(string(f.Content), "\n")
	parts := strings.Split(text, "\n")
	out := make([]Line, len(parts))
	for i, p := range parts {
		out[i] = Line{
			Text: p,
			Pos:  Pos{File: f.ID, Line: uint32(i + 1), From: from}, // #nosec G115 -- bounded by Add
		}
	}
	return out
}

// Texts projects lines to their text.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i := range lines {
		out[i] = lines[i].Text
	}
	return out
}

// Virtual wraps bare strings as lines without a position (generated code).
func Virtual(texts ...string) []Line {
	out := make([]Line, len(texts))
	for i, t := range texts {
		out[i] = Line{Text: t}
	}
	return out
}

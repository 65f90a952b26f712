package include

import (
	"fabr/internal/directive"
	"fabr/internal/source"
)

// Metrics counts line classes of one source file.
type Metrics struct {
	Path      string
	Lines     int
	Blank     int
	Comment   int
	Directive int
	Code      int
}

// Measure classifies the lines of every file in res.
func Measure(fs *source.FileSet, res *Result) []Metrics {
	out := make([]Metrics, 0, len(res.IDs))
	for i, id := range res.IDs {
		m := Metrics{Path: res.Files[i]}
		for _, line := range source.SplitLines(fs.Get(id), nil) {
			m.Lines++
			cleaned, v := directive.Clean(line.Text)
			switch {
			case v != directive.ViolationNone || directive.IsDirective(cleaned):
				m.Directive++
			case cleaned != "":
				m.Code++
			case hasComment(line.Text):
				m.Comment++
			default:
				m.Blank++
			}
		}
		out = append(out, m)
	}
	return out
}

// Total sums a metrics list.
func Total(ms []Metrics) Metrics {
	t := Metrics{Path: "total"}
	for _, m := range ms {
		t.Lines += m.Lines
		t.Blank += m.Blank
		t.Comment += m.Comment
		t.Directive += m.Directive
		t.Code += m.Code
	}
	return t
}

func hasComment(text string) bool {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case ' ', '\t':
			continue
		case '#':
			return true
		}
		return false
	}
	return false
}

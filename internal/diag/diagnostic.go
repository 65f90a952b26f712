package diag

import (
	"strings"

	"fabr/internal/source"
)

// Severity orders diagnostics; a higher value is more severe.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{"INFO", "WARNING", "ERROR"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

// Label is the lowercase form used by the short format.
func (s Severity) Label() string {
	if s > SevError {
		return "info"
	}
	return strings.ToLower(s.String())
}

// Note points at a secondary location, e.g. an include site.
type Note struct {
	Span source.Span
	Msg  string
}

// FixEdit replaces Span with NewText; an empty NewText deletes.
type FixEdit struct {
	Span    source.Span
	NewText string
}

// Fix is one suggested change made of non-overlapping edits.
type Fix struct {
	Title string
	Edits []FixEdit
}

// Diagnostic is one finding about a source line. The zero Primary span
// means it has no location (write errors, timings).
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

func (d Diagnostic) WithFix(title string, edits ...FixEdit) Diagnostic {
	d.Fixes = append(d.Fixes, Fix{Title: title, Edits: edits})
	return d
}

// identity is what makes two diagnostics the same report: notes and fixes
// do not count.
type identity struct {
	code    Code
	sev     Severity
	primary source.Span
	msg     string
}

func (d Diagnostic) identity() identity {
	return identity{code: d.Code, sev: d.Severity, primary: d.Primary, msg: d.Message}
}

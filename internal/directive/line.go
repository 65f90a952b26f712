package directive

import (
	"strings"

	"fabr/internal/diag"
	"fabr/internal/source"
)

const (
	Marker          = ";"
	CommentMarker   = "#"
	ImmediatePrefix = "$"
	CallPrefix      = "$$"
	EchoPrefix      = "#[[FABR]] "
	MacroEchoPrefix = EchoPrefix + "MACRO_CODE: "
)

// Violation is a malformed ordering of directive and comment on one line.
type Violation uint8

const (
	ViolationNone Violation = iota
	ViolationCommentAfter
	ViolationCommentBefore
	ViolationCodeBefore
)

func (v Violation) Code() diag.Code {
	switch v {
	case ViolationCommentAfter:
		return diag.DirCommentAfterDirective
	case ViolationCommentBefore:
		return diag.DirCommentBeforeDirective
	case ViolationCodeBefore:
		return diag.DirCodeBeforeDirective
	}
	return diag.UnknownCode
}

func (v Violation) String() string {
	switch v {
	case ViolationCommentAfter:
		return "a line with a directive cannot carry a comment"
	case ViolationCommentBefore:
		return "a comment cannot precede a directive marker"
	case ViolationCodeBefore:
		return "a directive may only be preceded by whitespace"
	}
	return "ok"
}

// Clean trims text and strips its comment. Lines holding a directive are
// returned whole; generated echo lines clean to the empty string.
func Clean(text string) (string, Violation) {
	trimmed := strings.TrimSpace(text)
	if IsEcho(trimmed) {
		return "", ViolationNone
	}

	d := strings.Index(trimmed, Marker)
	c := strings.Index(trimmed, CommentMarker)
	if d < 0 {
		if c >= 0 {
			return strings.TrimRight(trimmed[:c], " \t"), ViolationNone
		}
		return trimmed, ViolationNone
	}
	switch {
	case c > d:
		return "", ViolationCommentAfter
	case c >= 0:
		return "", ViolationCommentBefore
	case d != 0:
		return "", ViolationCodeBefore
	}
	return trimmed, ViolationNone
}

// CleanAt is Clean with the violation turned into a fatal error at line.
func CleanAt(sink *diag.Sink, line source.Line) (string, error) {
	cleaned, v := Clean(line.Text)
	if v != ViolationNone {
		return "", sink.Fatalf(line.Pos, v.Code(), "%s: '%s'", v, strings.TrimSpace(line.Text))
	}
	return cleaned, nil
}

// IsEcho reports whether text is a traceability comment produced by fabr.
func IsEcho(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), strings.TrimSpace(EchoPrefix))
}

// Echo wraps text as a traceability comment.
func Echo(text string) string {
	return EchoPrefix + text
}

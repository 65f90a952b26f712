package diag

import (
	"errors"
	"fmt"

	"fabr/internal/source"
)

// Fatal is the error a stage returns to abort the run. It carries the full
// diagnostic so the driver can record it alongside the collected warnings.
type Fatal struct {
	Diag  Diagnostic
	Where string // "path:line" of the offending line
}

func (f *Fatal) Error() string {
	if f.Where == "" {
		return fmt.Sprintf("%s: %s", f.Diag.Code.ID(), f.Diag.Message)
	}
	return fmt.Sprintf("%s: %s: %s", f.Where, f.Diag.Code.ID(), f.Diag.Message)
}

// WithNote attaches a secondary location, such as an earlier declaration.
func (f *Fatal) WithNote(sp source.Span, msg string) *Fatal {
	f.Diag = f.Diag.WithNote(sp, msg)
	return f
}

// AsFatal unwraps err into a *Fatal if it is one.
func AsFatal(err error) (*Fatal, bool) {
	var f *Fatal
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsCode reports whether err is a Fatal with the given code.
func IsCode(err error, code Code) bool {
	f, ok := AsFatal(err)
	return ok && f.Diag.Code == code
}

// Sink binds a FileSet to a Reporter so stages can speak in line positions.
// Every diagnostic built through a Sink carries the include chain as notes.
type Sink struct {
	Files    *source.FileSet
	Reporter Reporter
}

// Fatalf builds a fatal error for the line at pos. It is not reported; the
// caller returns it and the driver records it.
func (s *Sink) Fatalf(pos source.Pos, code Code, format string, args ...any) *Fatal {
	d := s.build(SevError, pos, code, fmt.Sprintf(format, args...))
	return &Fatal{Diag: d, Where: s.where(pos)}
}

// Warnf reports a non-fatal warning for the line at pos.
func (s *Sink) Warnf(pos source.Pos, code Code, format string, args ...any) {
	s.Warning(pos, code, format, args...).Emit()
}

// Warning starts a warning at pos that the caller can extend before Emit.
func (s *Sink) Warning(pos source.Pos, code Code, format string, args ...any) *ReportBuilder {
	var r Reporter
	if s != nil {
		r = s.Reporter
	}
	return &ReportBuilder{reporter: r, diag: s.build(SevWarning, pos, code, fmt.Sprintf(format, args...))}
}

// Infof reports an informational diagnostic for the line at pos.
func (s *Sink) Infof(pos source.Pos, code Code, format string, args ...any) {
	if s == nil || s.Reporter == nil {
		return
	}
	s.Reporter.Report(s.build(SevInfo, pos, code, fmt.Sprintf(format, args...)))
}

func (s *Sink) build(sev Severity, pos source.Pos, code Code, msg string) Diagnostic {
	d := New(sev, code, s.span(pos), msg)
	for _, site := range pos.Chain() {
		d = d.WithNote(s.span(site), "included from here")
	}
	return d
}

// Span returns the span of the line at pos.
func (s *Sink) Span(pos source.Pos) source.Span {
	return s.span(pos)
}

func (s *Sink) span(pos source.Pos) source.Span {
	if s == nil || s.Files == nil {
		return source.Span{File: pos.File}
	}
	return s.Files.LineSpan(pos)
}

func (s *Sink) where(pos source.Pos) string {
	if s == nil || s.Files == nil || !pos.IsValid() {
		return ""
	}
	return s.Files.PosString(pos)
}

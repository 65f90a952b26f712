package diag

import (
	"fmt"
	"strings"
	"testing"

	"fabr/internal/source"
)

func TestSinkFatalCarriesIncludeChain(t *testing.T) {
	fs := source.NewFileSet()
	root := fs.AddVirtual("main.s", []byte(";include a.s\n"))
	inc := fs.AddVirtual("a.s", []byte("nop\nbad line\n"))

	site := source.Pos{File: root, Line: 1}
	pos := source.Pos{File: inc, Line: 2, From: &site}

	sink := &Sink{Files: fs}
	f := sink.Fatalf(pos, MacUndefined, "macro '%s' is not defined", "m")

	if f.Where != "a.s:2" {
		t.Errorf("Where = %q", f.Where)
	}
	if f.Diag.Severity != SevError || f.Diag.Code != MacUndefined {
		t.Errorf("unexpected diag %+v", f.Diag)
	}
	if len(f.Diag.Notes) != 1 || f.Diag.Notes[0].Span.File != root {
		t.Fatalf("notes = %+v", f.Diag.Notes)
	}
	if f.Diag.Primary.Start != 4 || f.Diag.Primary.End != 12 {
		t.Errorf("primary = %v", f.Diag.Primary)
	}
	if got := f.Error(); got != "a.s:2: MAC3005: macro 'm' is not defined" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := fmt.Errorf("stage expand: %w", f)
	if !IsCode(wrapped, MacUndefined) {
		t.Error("IsCode must see through wrapping")
	}
	if IsCode(wrapped, MacDuplicate) {
		t.Error("IsCode matched wrong code")
	}
}

func TestSinkWarnReportsThroughDedup(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("main.s", []byte(";frob\n"))
	bag := NewBag(10)
	sink := &Sink{Files: fs, Reporter: NewDedupReporter(BagReporter{Bag: bag})}

	pos := source.Pos{File: id, Line: 1}
	sink.Warnf(pos, DirUnknown, "unknown directive '%s'", "frob")
	sink.Warnf(pos, DirUnknown, "unknown directive '%s'", "frob")

	if bag.Len() != 1 {
		t.Fatalf("expected 1 warning after dedup, got %d", bag.Len())
	}
	if bag.HasErrors() || !bag.HasWarnings() {
		t.Error("severity accounting broken")
	}
}

func TestBagLimit(t *testing.T) {
	bag := NewBag(2)
	bag.Add(New(SevInfo, MacInfo, source.Span{}, "a"))
	bag.Add(New(SevError, MacDuplicate, source.Span{}, "b"))
	if bag.Add(New(SevWarning, DirUnknown, source.Span{}, "c")) {
		t.Error("limit not enforced")
	}
	if bag.Len() != 2 || bag.Count(SevWarning) != 1 {
		t.Errorf("bag = %+v", bag.Items())
	}
}

func TestBagSortMerge(t *testing.T) {
	at := func(file source.FileID, start uint32) source.Span {
		return source.Span{File: file, Start: start, End: start + 1}
	}
	bag := NewBag(0)
	bag.Add(New(SevWarning, DirUnknown, at(1, 5), "late"))
	bag.Add(New(SevWarning, DirUnknown, at(0, 9), "w"))
	bag.Add(New(SevError, MacDuplicate, at(0, 9), "e"))
	bag.Sort()

	var got []string
	for _, d := range bag.Items() {
		got = append(got, d.Message)
	}
	if strings.Join(got, ",") != "e,w,late" {
		t.Errorf("order = %v", got)
	}

	small := NewBag(1)
	small.Add(New(SevInfo, MacInfo, source.Span{}, "x"))
	small.Merge(bag)
	if small.Len() != 4 {
		t.Errorf("Merge kept %d items", small.Len())
	}
}

func TestSeverityLabels(t *testing.T) {
	for sev, want := range map[Severity]string{SevInfo: "info", SevWarning: "warning", SevError: "error"} {
		if sev.Label() != want {
			t.Errorf("%v.Label() = %q", sev, sev.Label())
		}
	}
	if Severity(9).String() != "UNKNOWN" {
		t.Error("out of range severity")
	}
}

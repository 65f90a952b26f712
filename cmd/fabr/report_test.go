package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"fabr/internal/diag"
	"fabr/internal/driver"
	"fabr/internal/source"
)

func resultWith(name string, err error, diags ...diag.Diagnostic) driver.TargetResult {
	bag := diag.NewBag(16)
	for _, d := range diags {
		bag.Add(d)
	}
	return driver.TargetResult{Target: driver.Target{Name: name, Main: name + ".s"}, OutPath: name + "_out.s", Bag: bag, Err: err, Output: []string{"ret"}}
}

func TestVisibleBag(t *testing.T) {
	bag := diag.NewBag(8)
	bag.Add(diag.New(diag.SevInfo, diag.ObsTimings, source.Span{}, "timings"))
	bag.Add(diag.New(diag.SevInfo, diag.DirUnknown, source.Span{}, "info"))
	bag.Add(diag.New(diag.SevWarning, diag.DirUnknown, source.Span{}, "warn"))
	bag.Add(diag.NewError(diag.IOWriteError, source.Span{}, "err"))

	if got := visibleBag(bag, diag.SevError).Len(); got != 2 {
		t.Errorf("errors only: %d diagnostics, want 2 (error + timings)", got)
	}
	if got := visibleBag(bag, diag.SevWarning).Len(); got != 3 {
		t.Errorf("warnings: %d diagnostics, want 3", got)
	}
	if got := visibleBag(bag, diag.SevInfo).Len(); got != 4 {
		t.Errorf("all: %d diagnostics, want 4", got)
	}
	if bag.Len() != 4 {
		t.Error("source bag was modified")
	}
}

func TestTargetFailed(t *testing.T) {
	warn := diag.New(diag.SevWarning, diag.DirUnknown, source.Span{}, "warn")
	clean := resultWith("a", nil)
	warned := resultWith("b", nil, warn)
	broken := resultWith("c", errors.New("boom"))

	if targetFailed(&clean, reportOptions{}) || targetFailed(&warned, reportOptions{}) {
		t.Error("warnings alone must not fail a target")
	}
	if !targetFailed(&warned, reportOptions{WarningsAsErrors: true}) {
		t.Error("--warnings-as-errors must fail a warned target")
	}
	if !targetFailed(&broken, reportOptions{}) {
		t.Error("failed target not reported")
	}
	if err := exitStatus([]driver.TargetResult{clean, warned}, reportOptions{}, nil); err != nil {
		t.Errorf("exitStatus = %v", err)
	}
	if _, ok := exitStatus([]driver.TargetResult{clean, broken}, reportOptions{}, nil).(errSilent); !ok {
		t.Error("failing build must exit silently with an error")
	}
}

func TestPrintDiagnosticsShortHeaders(t *testing.T) {
	results := []driver.TargetResult{
		resultWith("a", nil),
		resultWith("b", nil, diag.NewError(diag.IOWriteError, source.Span{}, "cannot write 'b_out.s'")),
	}
	var buf bytes.Buffer
	if err := printDiagnostics(&buf, results, reportOptions{Format: "short", MinSeverity: diag.SevWarning}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "== a ==") {
		t.Errorf("clean target got a header:\n%s", out)
	}
	if !strings.Contains(out, "== b ==") || !strings.Contains(out, "IO7002") {
		t.Errorf("output:\n%s", out)
	}
}

func TestPrintJSONReport(t *testing.T) {
	results := []driver.TargetResult{
		resultWith("a", nil),
		resultWith("b", errors.New("boom"), diag.NewError(diag.IOWriteError, source.Span{}, "cannot write")),
	}
	var buf bytes.Buffer
	if err := printDiagnostics(&buf, results, reportOptions{Format: "json", MinSeverity: diag.SevWarning}); err != nil {
		t.Fatal(err)
	}
	var report buildReportJSON
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(report.Targets) != 2 {
		t.Fatalf("targets = %+v", report.Targets)
	}
	a, b := report.Targets[0], report.Targets[1]
	if a.Failed || a.Output != "a_out.s" || a.Diagnostics.Count != 0 {
		t.Errorf("a = %+v", a)
	}
	if !b.Failed || b.Output != "" || b.Diagnostics.Count != 1 || b.Diagnostics.Diagnostics[0].Code != "IO7002" {
		t.Errorf("b = %+v", b)
	}
}

package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fabr/internal/diag"
	"fabr/internal/source"
)

func decode(t *testing.T, buf *bytes.Buffer) DiagnosticsOutput {
	t.Helper()
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Invalid JSON output: %v\nOutput: %s", err, buf.String())
	}
	return out
}

// TestJSONBasic проверяет базовое JSON форматирование
func TestJSONBasic(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("src/boot.s", []byte("main:\n  ;funccall nope t0\n"))

	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.RteUndefinedFunc, fs.LineSpan(source.Pos{File: fileID, Line: 2}), "function 'nope' is not declared"))

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	out := decode(t, &buf)

	want := DiagnosticsOutput{
		Count: 1,
		Diagnostics: []DiagnosticJSON{{
			Severity: "ERROR",
			Code:     "RTE5002",
			Message:  "function 'nope' is not declared",
			Location: LocationJSON{
				File:      "boot.s",
				StartByte: 6,
				EndByte:   25,
				StartLine: 2,
				StartCol:  1,
				EndLine:   2,
				EndCol:    20,
			},
		}},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONWithNotesAndFixes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("  ;funccall f a0 save t0 t0\n")
	fileID := fs.AddVirtual("test.s", content)
	line := fs.LineSpan(source.Pos{File: fileID, Line: 1})

	d := diag.New(diag.SevWarning, diag.RteDuplicateSaveReg, line, "register 't0' is saved twice")
	d = d.WithNote(line, "first listed here")
	d = d.WithFix("drop duplicate", diag.FixEdit{Span: source.Span{File: fileID, Start: line.End - 3, End: line.End}})
	bag := diag.NewBag(4)
	bag.Add(d)

	var buf bytes.Buffer
	opts := JSONOpts{PathMode: PathModeBasename, IncludeNotes: true, IncludeFixes: true, IncludePreviews: true}
	if err := JSON(&buf, bag, fs, opts); err != nil {
		t.Fatal(err)
	}
	got := decode(t, &buf).Diagnostics[0]

	if len(got.Notes) != 1 || got.Notes[0].Message != "first listed here" || got.Notes[0].Location.File != "test.s" {
		t.Errorf("notes = %+v", got.Notes)
	}
	wantFixes := []FixJSON{{
		Title: "drop duplicate",
		Edits: []FixEditJSON{{
			Location:    LocationJSON{File: "test.s", StartByte: 24, EndByte: 27},
			BeforeLines: []string{"  ;funccall f a0 save t0 t0"},
			AfterLines:  []string{"  ;funccall f a0 save t0"},
		}},
	}}
	if diff := cmp.Diff(wantFixes, got.Fixes); diff != "" {
		t.Errorf("fixes (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := JSON(&buf, bag, fs, JSONOpts{}); err != nil {
		t.Fatal(err)
	}
	plain := decode(t, &buf).Diagnostics[0]
	if plain.Notes != nil || plain.Fixes != nil {
		t.Errorf("notes and fixes must be opt-in: %+v", plain)
	}
}

func TestJSONMaxLimit(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("t.s", []byte("a\nb\nc\n"))
	bag := diag.NewBag(10)
	for line := uint32(1); line <= 3; line++ {
		bag.Add(diag.New(diag.SevWarning, diag.DirUnknown, fs.LineSpan(source.Pos{File: fileID, Line: line}), "unknown"))
	}

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{Max: 2}); err != nil {
		t.Fatal(err)
	}
	if out := decode(t, &buf); out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Errorf("count = %d, len = %d", out.Count, len(out.Diagnostics))
	}
}

func TestJSONUnlocatedAndTimings(t *testing.T) {
	bag := diag.NewBag(4)
	bag.Add(diag.NewError(diag.IncReadError, source.Span{}, "cannot read 'gone.s'"))
	bag.Add(diag.New(diag.SevInfo, diag.ObsTimings, source.Span{}, "timings").WithNote(source.Span{}, `{"kind":"pipeline"}`))

	var buf bytes.Buffer
	// an empty FileSet must not be indexed
	if err := JSON(&buf, bag, source.NewFileSet(), JSONOpts{IncludePositions: true}); err != nil {
		t.Fatal(err)
	}
	out := decode(t, &buf)
	if out.Diagnostics[0].Location != (LocationJSON{}) {
		t.Errorf("location = %+v", out.Diagnostics[0].Location)
	}
	if notes := out.Diagnostics[1].Notes; len(notes) != 1 || notes[0].Message != `{"kind":"pipeline"}` {
		t.Errorf("timing notes are always included, got %+v", notes)
	}
}

func TestJSONNilBag(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, nil, nil, JSONOpts{}); err != nil {
		t.Fatal(err)
	}
	if out := decode(t, &buf); out.Count != 0 || out.Diagnostics == nil {
		t.Errorf("out = %+v", out)
	}
}

func TestParsePathMode(t *testing.T) {
	for in, want := range map[string]PathMode{"": PathModeAuto, "abs": PathModeAbsolute, "relative": PathModeRelative, "base": PathModeBasename} {
		if got, ok := ParsePathMode(in); !ok || got != want {
			t.Errorf("ParsePathMode(%q) = %v %v", in, got, ok)
		}
	}
	if _, ok := ParsePathMode("nope"); ok {
		t.Error("unknown mode accepted")
	}
}

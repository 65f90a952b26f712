package diag

import (
	"testing"

	"fabr/internal/source"
)

func TestFormatShortDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/workspace")

	mainFile := fs.Add("/workspace/src/main.s", []byte(";include lib.s\nnop\n"), 0)
	libFile := fs.Add("/workspace/src/lib.s", []byte("x\n;funccall f a0\n"), 0)

	diags := []Diagnostic{
		{
			Severity: SevError,
			Code:     RteUndefinedFunc,
			Message:  "function 'f'\nis not declared",
			Primary:  source.Span{File: libFile, Start: 2, End: 16},
			Notes: []Note{
				{Span: source.Span{File: mainFile, Start: 0, End: 14}, Msg: "included from here"},
			},
		},
		{
			Severity: SevWarning,
			Code:     DirUnknown,
			Message:  "unknown directive 'foo'",
			Primary:  source.Span{File: mainFile, Start: 15, End: 18},
		},
	}

	expected := "error RTE5002 src/lib.s:2:1 function 'f' is not declared\n" +
		"note RTE5002 src/main.s:1:1 included from here\n" +
		"warning DIR1001 src/main.s:2:1 unknown directive 'foo'"

	if got := FormatShortDiagnostics(diags, fs, true); got != expected {
		t.Fatalf("unexpected short diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestCodeIDRanges(t *testing.T) {
	cases := map[Code]string{
		DirArity:          "DIR1002",
		IncReadError:      "INC2001",
		MacRecursive:      "MAC3008",
		SymRepoisoned:     "SYM4007",
		RtePoisoned:       "RTE5001",
		MrgMissingSection: "MRG6001",
		IOWriteError:      "IO7002",
		ObsTimings:        "OBS8001",
		UnknownCode:       "E0000",
	}
	for code, want := range cases {
		if got := code.ID(); got != want {
			t.Errorf("%d.ID() = %s, want %s", code, got, want)
		}
		if code.Title() == "" {
			t.Errorf("%s has no title", want)
		}
	}
}

func TestFormatShortUnlocated(t *testing.T) {
	diags := []Diagnostic{NewError(IOWriteError, source.Span{}, "cannot write 'out.s'")}
	if got, want := FormatShortDiagnostics(diags, nil, false), "error IO7002 :0:0 cannot write 'out.s'"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

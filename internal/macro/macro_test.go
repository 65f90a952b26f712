package macro

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fabr/internal/diag"
	"fabr/internal/source"
)

func load(text string) (*diag.Sink, []source.Line) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.s", []byte(text))
	return &diag.Sink{Files: fs}, source.SplitLines(fs.Get(id), nil)
}

func expandText(t *testing.T, text string, opts Options) ([]string, *Table, error) {
	t.Helper()
	sink, lines := load(text)
	table, err := Build(sink, lines)
	if err != nil {
		return nil, nil, err
	}
	out, err := Expand(sink, table, lines, opts)
	if err != nil {
		return nil, table, err
	}
	return source.Texts(out), table, nil
}

func TestImmediatePrefixOrdering(t *testing.T) {
	src := strings.Join([]string{
		";imacro A 1",
		";imacro AB 2",
		";imacro ABC 3",
		"li a0, $ABC",
		"li a1, $AB,$A",
		"li a2, $A+$ABC+$AB",
	}, "\n")
	out, table, err := expandText(t, src, Options{})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{
		";imacro A 1",
		";imacro AB 2",
		";imacro ABC 3",
		"li a0, 3",
		"li a1, 2,1",
		"li a2, 1+3+2",
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	for name, refs := range map[string]int{"A": 2, "AB": 2, "ABC": 2} {
		im, _ := table.Immediate(name)
		if im.Refs != refs {
			t.Errorf("%s refs = %d, want %d", name, im.Refs, refs)
		}
	}
}

func TestImmediateTokenBoundary(t *testing.T) {
	table := NewTable()
	table.DeclareImmediate("N", "8", source.Pos{})
	got, err := table.Substitute("addi a0, a0, $N # $NX stays")
	if err != nil {
		t.Fatal(err)
	}
	if got != "addi a0, a0, 8 # $NX stays" {
		t.Errorf("Substitute = %q", got)
	}
	got, _ = table.Substitute("$$N a0")
	if got != "$$N a0" {
		t.Errorf("call prefix was rewritten: %q", got)
	}
}

func TestImmediateChainsAndCycles(t *testing.T) {
	out, _, err := expandText(t, ";imacro BASE 16\n;imacro TOP $BASE\nli a0, $TOP\n", Options{})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if out[2] != "li a0, 16" {
		t.Errorf("chained immediate = %q", out[2])
	}

	_, _, err = expandText(t, ";imacro X $Y\n;imacro Y $X\nli a0, $X\n", Options{})
	if !diag.IsCode(err, diag.MacRecursive) {
		t.Errorf("expected MacRecursive, got %v", err)
	}
}

func TestUndefinedImmediate(t *testing.T) {
	_, _, err := expandText(t, "li a0, $MISSING # ok in comment $ALSO\n", Options{})
	if !diag.IsCode(err, diag.MacUndefinedImmediate) {
		t.Fatalf("expected MacUndefinedImmediate, got %v", err)
	}
	if !strings.Contains(err.Error(), "'MISSING'") {
		t.Errorf("message should name the macro: %v", err)
	}
}

func TestMacroArgumentCount(t *testing.T) {
	decl := ";macro pair X Y\nmv X, Y\n;endmacro\n"
	for n := 0; n <= 4; n++ {
		args := make([]string, n)
		for i := range args {
			args[i] = fmt.Sprintf("t%d", i)
		}
		src := decl + strings.TrimSpace("$$pair "+strings.Join(args, " ")) + "\n"
		_, _, err := expandText(t, src, Options{})
		if n == 2 {
			if err != nil {
				t.Errorf("n=2: unexpected %v", err)
			}
			continue
		}
		if !diag.IsCode(err, diag.MacArgCount) {
			t.Errorf("n=%d: expected MacArgCount, got %v", n, err)
		}
	}
}

func TestNestedExpansionMatchesManual(t *testing.T) {
	src := strings.Join([]string{
		";imacro W 4",
		";macro push1 R",
		"addi sp, sp, -$W",
		"sw R, 0(sp)",
		";endmacro",
		";macro push2 P Q",
		"$$push1 P",
		"$$push1 Q",
		";endmacro",
		";macro frame A B",
		"$$push2 A B",
		"mv s0, sp",
		";endmacro",
		"$$frame ra s0",
	}, "\n")
	out, table, err := expandText(t, src, Options{})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{
		";imacro W 4",
		"addi sp, sp, -4",
		"sw ra, 0(sp)",
		"addi sp, sp, -4",
		"sw s0, 0(sp)",
		"mv s0, sp",
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("nested expansion mismatch (-want +got):\n%s", diff)
	}
	for name, refs := range map[string]int{"frame": 1, "push2": 1, "push1": 2} {
		m, _ := table.Macro(name)
		if m.Refs != refs {
			t.Errorf("%s refs = %d, want %d", name, m.Refs, refs)
		}
	}
}

func TestEchoComments(t *testing.T) {
	src := ";macro inc R\naddi R, R, 1\n;endmacro\n$$inc a0\n"
	out, _, err := expandText(t, src, Options{Echo: true})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{
		"#[[FABR]] MACRO_CODE: ;macro inc R",
		"#[[FABR]] MACRO_CODE: addi R, R, 1",
		"#[[FABR]] MACRO_CODE: ;endmacro",
		"#[[FABR]] MACRO inc",
		"addi a0, a0, 1",
		"#[[FABR]] ENDMACRO inc",
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("echo mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandedLinesKeepCallSite(t *testing.T) {
	sink, lines := load(";macro two\nnop\nnop\n;endmacro\nli a0, 0\n$$two\n")
	// "two" has no parameters so the declaration is rejected by arity.
	_, err := Build(sink, lines)
	if !diag.IsCode(err, diag.DirArity) {
		t.Fatalf("expected DirArity for parameterless macro, got %v", err)
	}

	sink, lines = load(";macro two X\nnop X\nnop\n;endmacro\nli a0, 0\n$$two 1\n")
	table, err := Build(sink, lines)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Expand(sink, table, lines, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || out[1].Pos.Line != 6 || out[2].Pos.Line != 6 {
		t.Errorf("expanded lines should carry the call site position: %+v", out)
	}
}

func TestMacroFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"duplicate immediate", ";imacro A 1\n;imacro A 2\n", diag.MacDuplicateImmediate},
		{"duplicate macro", ";macro m X\n;endmacro\n;macro m Y\n;endmacro\n", diag.MacDuplicate},
		{"unterminated", ";macro m X\nnop\n", diag.MacUnterminated},
		{"isolated endmacro", "nop\n;endmacro\n", diag.MacIsolatedEnd},
		{"undefined macro", "$$nothing a0\n", diag.MacUndefined},
		{"self recursion", ";macro m X\n$$m X\n;endmacro\n$$m a0\n", diag.MacRecursive},
		{"mutual recursion", ";macro f X\n$$g X\n;endmacro\n;macro g Y\n$$f Y\n;endmacro\n$$f a0\n", diag.MacRecursive},
		{"imacro arity", ";imacro A\n", diag.DirArity},
		{"comment after directive", ";imacro A 1 # one\n", diag.DirCommentAfterDirective},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := expandText(t, tt.src, Options{})
			if !diag.IsCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code.ID(), err)
			}
		})
	}
}

func TestNestedCallSeesSubstitutedArguments(t *testing.T) {
	src := strings.Join([]string{
		";imacro ONE 1",
		";macro set R V",
		"li R, V",
		";endmacro",
		";macro outer Q",
		"$$set Q $ONE",
		";endmacro",
		"$$outer t3",
	}, "\n")
	out, _, err := expandText(t, src, Options{})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if diff := cmp.Diff([]string{";imacro ONE 1", "li t3, 1"}, out); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMacroHeaderIsSubstitutedBeforeElision(t *testing.T) {
	out, table, err := expandText(t, ";imacro W 4\n;macro m $W\n;endmacro\nli a0, $W\n", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{";imacro W 4", "li a0, 4"}, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	// the elided header counts as a use
	if im, _ := table.Immediate("W"); im.Refs != 2 {
		t.Errorf("W refs = %d, want 2", im.Refs)
	}
}

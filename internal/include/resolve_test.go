package include

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"fabr/internal/diag"
	"fabr/internal/source"
	"fabr/internal/testkit"
)

func resolve(t *testing.T, tree source.MapReader, root string) (*Result, *source.FileSet, error) {
	t.Helper()
	fs := source.NewFileSetWithReader(tree)
	res, err := Resolve(&diag.Sink{Files: fs}, fs, root)
	return res, fs, err
}

func TestResolveInlinesAndDeduplicates(t *testing.T) {
	tree := testkit.Tree(
		"proj/main.s", string(testkit.Src(";include lib/a.s", "main:", ";include lib/b.s", ";include lib/a.s", "ret")),
		"proj/lib/a.s", string(testkit.Src("a_body")),
		"proj/lib/b.s", string(testkit.Src(";include a.s", ";include ../lib/c.s", "b_body")),
		"proj/lib/c.s", string(testkit.Src("c_body")),
	)
	res, fs, err := resolve(t, tree, "proj/main.s")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := []string{
		";include lib/a.s",
		"a_body",
		"main:",
		";include lib/b.s",
		";include a.s",
		";include ../lib/c.s",
		"c_body",
		"b_body",
		";include lib/a.s",
		"ret",
	}
	if diff := cmp.Diff(want, source.Texts(res.Lines)); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"main.s", "lib/a.s", "lib/b.s", "lib/c.s"}, res.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	// c_body arrived through main.s:3 -> lib/b.s:2
	cBody := res.Lines[6]
	chain := cBody.Pos.Chain()
	if len(chain) != 2 {
		t.Fatalf("chain = %+v", chain)
	}
	if got := fs.PosString(chain[0]); got != "proj/lib/b.s:2" {
		t.Errorf("innermost include site = %s", got)
	}
	if got := fs.PosString(chain[1]); got != "proj/main.s:3" {
		t.Errorf("outer include site = %s", got)
	}
}

func TestResolveSelfInclude(t *testing.T) {
	tree := testkit.Tree("main.s", string(testkit.Src(";include main.s", "nop")))
	res, _, err := resolve(t, tree, "main.s")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]string{";include main.s", "nop"}, source.Texts(res.Lines)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name  string
		tree  source.MapReader
		code  diag.Code
		where string
	}{
		{"arity", testkit.Tree("m.s", ";include a.s b.s\n"), diag.DirArity, "m.s:1"},
		{"no argument", testkit.Tree("m.s", "nop\n;include\n"), diag.DirArity, "m.s:2"},
		{"missing file", testkit.Tree("m.s", ";include gone.s\n"), diag.IncReadError, "m.s:1"},
		{"missing root", testkit.Tree(), diag.IncReadError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := resolve(t, tt.tree, "m.s")
			f, ok := diag.AsFatal(err)
			if !ok || f.Diag.Code != tt.code {
				t.Fatalf("expected %s, got %v", tt.code.ID(), err)
			}
			if f.Where != tt.where {
				t.Errorf("Where = %q, want %q", f.Where, tt.where)
			}
		})
	}
}

func TestMeasure(t *testing.T) {
	tree := testkit.Tree("m.s", string(testkit.Src(
		"# header",
		"",
		";sect text",
		"main: li a0, 1 # set",
		"   ",
		"ret",
	)))
	res, fs, err := resolve(t, tree, "m.s")
	if err != nil {
		t.Fatal(err)
	}
	ms := Measure(fs, res)
	want := Metrics{Path: "m.s", Lines: 6, Blank: 2, Comment: 1, Directive: 1, Code: 2}
	if diff := cmp.Diff([]Metrics{want}, ms); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
	if tot := Total(ms); tot.Lines != 6 || tot.Path != "total" {
		t.Errorf("Total = %+v", tot)
	}
}

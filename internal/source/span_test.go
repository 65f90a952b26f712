package source

import "testing"

func TestSpanBasics(t *testing.T) {
	line := Span{File: 1, Start: 10, End: 20}
	tests := []struct {
		name  string
		other Span
		want  bool
	}{
		{"inner", Span{File: 1, Start: 12, End: 15}, true},
		{"same", line, true},
		{"empty at end", Span{File: 1, Start: 20, End: 20}, true},
		{"overhang", Span{File: 1, Start: 15, End: 21}, false},
		{"other file", Span{File: 2, Start: 12, End: 15}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := line.Contains(tt.other); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.other, got, tt.want)
			}
		})
	}
	if !(Span{}).IsZero() || line.IsZero() || (Span{File: 1}).IsZero() {
		t.Error("IsZero must hold for the zero span only")
	}
	if line.Len() != 10 || line.Empty() || line.String() != "1:10-20" {
		t.Errorf("Len/Empty/String = %d %v %q", line.Len(), line.Empty(), line.String())
	}
	if !(FileHadBOM | FileVirtual).Rewritten() || FileVirtual.Rewritten() {
		t.Error("Rewritten flags")
	}
}

func TestPosChain(t *testing.T) {
	root := Pos{File: 0, Line: 3}
	mid := Pos{File: 1, Line: 7, From: &root}
	leaf := Pos{File: 2, Line: 1, From: &mid}

	chain := leaf.Chain()
	if len(chain) != 2 || chain[0].File != 1 || chain[1].File != 0 {
		t.Fatalf("Chain() = %+v", chain)
	}
	if leaf.Depth() != 2 || root.Depth() != 0 {
		t.Errorf("Depth leaf=%d root=%d", leaf.Depth(), root.Depth())
	}
	if (Pos{}).IsValid() {
		t.Error("zero Pos must be invalid")
	}
}

func TestSplitLines(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.s", []byte("x\n\ny\n"))
	lines := SplitLines(fs.Get(id), nil)
	want := []string{"x", "", "y"}
	got := Texts(lines)
	if len(got) != len(want) {
		t.Fatalf("SplitLines = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
		if lines[i].Pos.Line != uint32(i+1) {
			t.Errorf("line %d pos = %d", i, lines[i].Pos.Line)
		}
	}
	if SplitLines(fs.Get(fs.AddVirtual("e.s", nil)), nil) != nil {
		t.Error("empty file must have no lines")
	}
}

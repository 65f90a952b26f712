package macro

import (
	"fabr/internal/diag"
	"fabr/internal/directive"
	"fabr/internal/source"
)

// Build scans the included line sequence for imacro and macro declarations.
// Block macro bodies are captured raw up to the first endmacro; they are
// expanded only when invoked.
func Build(sink *diag.Sink, lines []source.Line) (*Table, error) {
	t := NewTable()
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		cleaned, err := directive.CleanAt(sink, line)
		if err != nil {
			return nil, err
		}
		d, ok := directive.Parse(cleaned)
		if !ok {
			continue
		}

		switch d.Kind {
		case directive.KindEndMacro:
			return nil, sink.Fatalf(line.Pos, diag.MacIsolatedEnd,
				"found an isolated endmacro directive; are you missing a macro directive?")

		case directive.KindIMacro:
			if err := d.CheckArity(sink, line); err != nil {
				return nil, err
			}
			if _, fresh := t.DeclareImmediate(d.Args[0], d.Args[1], line.Pos); !fresh {
				return nil, sink.Fatalf(line.Pos, diag.MacDuplicateImmediate,
					"immediate macro '%s' is already defined", d.Args[0])
			}

		case directive.KindMacro:
			if err := d.CheckArity(sink, line); err != nil {
				return nil, err
			}
			m, fresh := t.DeclareMacro(d.Args[0], d.Args[1:], line.Pos)
			if !fresh {
				return nil, sink.Fatalf(line.Pos, diag.MacDuplicate,
					"macro '%s' is already defined", d.Args[0])
			}
			end, err := findEnd(sink, lines, i)
			if err != nil {
				return nil, err
			}
			m.Body = lines[i+1 : end]
			i = end
		}
	}
	return t, nil
}

// findEnd returns the index of the endmacro closing the macro declared at
// lines[start].
func findEnd(sink *diag.Sink, lines []source.Line, start int) (int, error) {
	for j := start + 1; j < len(lines); j++ {
		cleaned, err := directive.CleanAt(sink, lines[j])
		if err != nil {
			return 0, err
		}
		if d, ok := directive.Parse(cleaned); ok && d.Kind == directive.KindEndMacro {
			return j, nil
		}
	}
	name := ""
	if cleaned, _ := directive.Clean(lines[start].Text); cleaned != "" {
		if d, ok := directive.Parse(cleaned); ok && len(d.Args) > 0 {
			name = d.Args[0]
		}
	}
	return 0, sink.Fatalf(lines[start].Pos, diag.MacUnterminated,
		"macro '%s' is missing an endmacro directive", name)
}

// Package include flattens a root assembly file and everything it includes
// into one line sequence.
package include

import (
	"path/filepath"

	"fabr/internal/diag"
	"fabr/internal/directive"
	"fabr/internal/source"
)

// Result is the flattened translation unit.
type Result struct {
	Lines []source.Line
	// Files lists every included file once, relative to the root's
	// directory, in the order they were first reached. The root comes first.
	Files []string
	IDs   []source.FileID
}

type resolver struct {
	sink    *diag.Sink
	fs      *source.FileSet
	rootDir string
	seen    map[string]struct{}
	res     *Result
}

// Resolve reads rootPath and recursively inlines every include directive.
// Include paths are relative to the including file. A file that was already
// included (by path relative to the root's directory) is skipped silently.
// The include line itself stays in the output in front of the inlined text.
func Resolve(sink *diag.Sink, fs *source.FileSet, rootPath string) (*Result, error) {
	r := &resolver{
		sink:    sink,
		fs:      fs,
		rootDir: filepath.Dir(rootPath),
		seen:    make(map[string]struct{}),
		res:     &Result{},
	}
	if err := r.visit(rootPath, nil); err != nil {
		return nil, err
	}
	return r.res, nil
}

func (r *resolver) key(path string) string {
	rel, err := filepath.Rel(r.rootDir, path)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(path))
	}
	return filepath.ToSlash(rel)
}

func (r *resolver) visit(path string, from *source.Pos) error {
	key := r.key(path)
	if _, dup := r.seen[key]; dup {
		return nil
	}
	r.seen[key] = struct{}{}

	id, err := r.fs.Load(path)
	if err != nil {
		at := source.Pos{}
		if from != nil {
			at = *from
		}
		return r.sink.Fatalf(at, diag.IncReadError, "cannot read '%s': %v", path, err)
	}
	r.res.Files = append(r.res.Files, key)
	r.res.IDs = append(r.res.IDs, id)

	dir := filepath.Dir(path)
	for _, line := range source.SplitLines(r.fs.Get(id), from) {
		r.res.Lines = append(r.res.Lines, line)

		cleaned, err := directive.CleanAt(r.sink, line)
		if err != nil {
			return err
		}
		d, ok := directive.Parse(cleaned)
		if !ok || d.Kind != directive.KindInclude {
			continue
		}
		if err := d.CheckArity(r.sink, line); err != nil {
			return err
		}
		site := line.Pos
		if err := r.visit(filepath.Join(dir, d.Args[0]), &site); err != nil {
			return err
		}
	}
	return nil
}

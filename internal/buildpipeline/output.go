package buildpipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"fabr/internal/source"
)

// DefaultOutputPath places the result next to the root file:
// dir/name.s becomes dir/name_out.s.
func DefaultOutputPath(rootPath string) string {
	dir, base := filepath.Split(rootPath)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+"_out"+ext)
}

// Write stores the merged output at path.
func (r *Result) Write(w source.Writer, path string) error {
	if r == nil || r.Routed == nil {
		return fmt.Errorf("nothing to write for %s", path)
	}
	if err := w.WriteLines(path, r.Output); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

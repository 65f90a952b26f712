package source

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Reader supplies the raw bytes of an input path.
type Reader interface {
	ReadFile(path string) ([]byte, error)
}

// Writer receives a finished line sequence for an output path.
type Writer interface {
	WriteLines(path string, lines []string) error
}

// OSReader reads files from disk.
type OSReader struct{}

func (OSReader) ReadFile(path string) ([]byte, error) {
	// #nosec G304 -- path is provided by the caller
	return os.ReadFile(path)
}

// MapReader serves files from memory, keyed by normalized path.
type MapReader map[string][]byte

func (m MapReader) ReadFile(path string) ([]byte, error) {
	if data, ok := m[normalizePath(path)]; ok {
		return data, nil
	}
	return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
}

// OSWriter writes line sequences to disk via a temp file and rename.
type OSWriter struct {
	Perm fs.FileMode
}

func (w OSWriter) WriteLines(path string, lines []string) error {
	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".fabr-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	bw := bufio.NewWriter(tmp)
	for _, l := range lines {
		if _, err = bw.WriteString(l); err != nil {
			break
		}
		if err = bw.WriteByte('\n'); err != nil {
			break
		}
	}
	if err == nil {
		err = bw.Flush()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmpName, perm)
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		return errors.Join(fmt.Errorf("write %s: %w", path, err), os.Remove(tmpName))
	}
	return nil
}

// MemWriter collects outputs in memory. Safe for concurrent use.
type MemWriter struct {
	mu    sync.Mutex
	files map[string][]string
}

func (w *MemWriter) WriteLines(path string, lines []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files == nil {
		w.files = make(map[string][]string)
	}
	w.files[normalizePath(path)] = append([]string(nil), lines...)
	return nil
}

// Get returns the lines written to path.
func (w *MemWriter) Get(path string) ([]string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	lines, ok := w.files[normalizePath(path)]
	return lines, ok
}

// Paths lists written paths in sorted order.
func (w *MemWriter) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for p := range w.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

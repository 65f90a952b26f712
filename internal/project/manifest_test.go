package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[package]
name = "firmware"

[build]
inline = "aggressive"
autosave = false
jobs = 2

[[target]]
main = "src/boot.s"

[[target]]
name = "kern"
main = "src/kernel.s"
out = "build/kernel.s"
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Package.Name != "firmware" || m.Root != dir {
		t.Errorf("package/root = %q %q", m.Package.Name, m.Root)
	}
	if m.Build.Inline != "aggressive" || m.Build.Jobs != 2 {
		t.Errorf("build = %+v", m.Build)
	}
	if m.Build.AutoSave == nil || *m.Build.AutoSave {
		t.Errorf("autosave = %v", m.Build.AutoSave)
	}
	if m.Build.Echo != nil || m.Build.Cache != nil {
		t.Error("unset keys must stay nil")
	}

	want := []Target{
		{Name: "boot", Main: "src/boot.s"},
		{Name: "kern", Main: "src/kernel.s", Out: "build/kernel.s"},
	}
	if diff := cmp.Diff(want, m.Targets); diff != "" {
		t.Errorf("targets (-want +got):\n%s", diff)
	}
	kern, ok := m.Target("kern")
	if !ok {
		t.Fatal("kern not found")
	}
	if got := m.MainPath(kern); got != filepath.Join(dir, "src", "kernel.s") {
		t.Errorf("MainPath = %q", got)
	}
	if got := m.OutPath(kern); got != filepath.Join(dir, "build", "kernel.s") {
		t.Errorf("OutPath = %q", got)
	}
	if got := m.OutPath(m.Targets[0]); got != "" {
		t.Errorf("default OutPath = %q", got)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no package", "[[target]]\nmain = \"a.s\"\n", "missing [package]"},
		{"no name", "[package]\n[[target]]\nmain = \"a.s\"\n", "missing [package].name"},
		{"no targets", "[package]\nname = \"x\"\n", "no [[target]]"},
		{"no main", "[package]\nname = \"x\"\n[[target]]\nname = \"a\"\n", "has no main"},
		{"duplicate", "[package]\nname = \"x\"\n[[target]]\nmain = \"a.s\"\n[[target]]\nmain = \"b/a.s\"\n", "duplicate target"},
		{"escape", "[package]\nname = \"x\"\n[[target]]\nmain = \"../a.s\"\n", "escapes the project root"},
		{"unknown key", "[package]\nname = \"x\"\nversion = 1\n[[target]]\nmain = \"a.s\"\n", "unknown key"},
		{"negative jobs", "[package]\nname = \"x\"\n[build]\njobs = -1\n[[target]]\nmain = \"a.s\"\n", "jobs must not be negative"},
		{"bad toml", "[package\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.body)
			_, err := LoadManifest(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}

	path := writeManifest(t, t.TempDir(), "[package]\nname = \"x\"\n")
	if _, err := LoadManifest(path); !errors.Is(err, ErrNoTargets) {
		t.Errorf("err = %v, want ErrNoTargets", err)
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, Template("demo", "main.s"))
	nested := filepath.Join(root, "src", "lib")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok, err := FindProjectRoot(nested)
	if err != nil || !ok {
		t.Fatalf("FindProjectRoot = %q %v %v", got, ok, err)
	}
	if got != root {
		t.Errorf("root = %q, want %q", got, root)
	}

	m, ok, err := LoadProjectManifest(nested)
	if err != nil || !ok {
		t.Fatalf("LoadProjectManifest: %v %v", ok, err)
	}
	if m.Package.Name != "demo" || len(m.Targets) != 1 || m.Targets[0].Name != "main" {
		t.Errorf("manifest = %+v", m)
	}
	if m.Build.AutoSave == nil || !*m.Build.AutoSave || m.Build.Inline != "auto" {
		t.Errorf("template build section = %+v", m.Build)
	}
	if m.CacheDir() != filepath.Join(root, ".fabr", "cache") {
		t.Errorf("CacheDir = %q", m.CacheDir())
	}
}

func TestFindManifestMissing(t *testing.T) {
	_, ok, err := FindManifest(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	// a fabr.toml above the temp dir would be a broken test environment
	if ok {
		t.Skip("fabr.toml found above the temp directory")
	}
}

func TestDigest(t *testing.T) {
	a := HashBytes([]byte("addi a0, a0, 1\n"))
	b := HashBytes([]byte("addi a0, a0, 2\n"))
	if a == b || a.IsZero() {
		t.Fatal("distinct content must hash differently")
	}
	if Combine(a, b) == Combine(b, a) {
		t.Error("Combine must be order sensitive")
	}
	if len(a.String()) != 64 {
		t.Errorf("hex digest = %q", a.String())
	}

	path := filepath.Join(t.TempDir(), "f.s")
	if err := os.WriteFile(path, []byte("addi a0, a0, 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := HashFile(path)
	if err != nil || got != a {
		t.Errorf("HashFile = %v %v", got, err)
	}
}

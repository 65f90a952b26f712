package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is a decoded fabr.toml.
type Manifest struct {
	Path    string
	Root    string
	Package PackageConfig
	Build   BuildConfig
	Targets []Target
}

type PackageConfig struct {
	Name string `toml:"name"`
}

// BuildConfig holds defaults for every target. Pointer fields distinguish
// "not set" from false so CLI flags and built-in defaults can fill them.
type BuildConfig struct {
	Inline   string `toml:"inline"`
	AutoSave *bool  `toml:"autosave"`
	Echo     *bool  `toml:"echo"`
	Cache    *bool  `toml:"cache"`
	Jobs     int    `toml:"jobs"`
}

// Target is one root file to fabricate.
type Target struct {
	Name string `toml:"name"`
	Main string `toml:"main"`
	Out  string `toml:"out"`
}

type manifestFile struct {
	Package PackageConfig `toml:"package"`
	Build   BuildConfig   `toml:"build"`
	Targets []Target      `toml:"target"`
}

var (
	// ErrPackageSectionMissing indicates that [package] is missing.
	ErrPackageSectionMissing = errors.New("missing [package]")
	// ErrNoTargets indicates that no [[target]] is declared.
	ErrNoTargets = errors.New("no [[target]] declared")
)

// LoadManifest decodes and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	var cfg manifestFile
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if !meta.IsDefined("package") {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageSectionMissing)
	}
	if strings.TrimSpace(cfg.Package.Name) == "" {
		return nil, fmt.Errorf("%s: missing [package].name", path)
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoTargets)
	}
	if cfg.Build.Jobs < 0 {
		return nil, fmt.Errorf("%s: [build].jobs must not be negative", path)
	}

	m := &Manifest{
		Path:    path,
		Root:    filepath.Dir(path),
		Package: cfg.Package,
		Build:   cfg.Build,
	}
	seen := make(map[string]struct{}, len(cfg.Targets))
	for i, t := range cfg.Targets {
		t.Main = strings.TrimSpace(t.Main)
		if t.Main == "" {
			return nil, fmt.Errorf("%s: target #%d has no main", path, i+1)
		}
		if t.Name == "" {
			base := filepath.Base(filepath.FromSlash(t.Main))
			t.Name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate target %q", path, t.Name)
		}
		seen[t.Name] = struct{}{}
		for _, p := range []string{t.Main, t.Out} {
			if p == "" {
				continue
			}
			if filepath.IsAbs(p) || !pathWithin(m.Root, filepath.Join(m.Root, filepath.FromSlash(p))) {
				return nil, fmt.Errorf("%s: target %q: path %q escapes the project root", path, t.Name, p)
			}
		}
		m.Targets = append(m.Targets, t)
	}
	return m, nil
}

// LoadProjectManifest finds and loads fabr.toml starting at startDir.
func LoadProjectManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := LoadManifest(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// MainPath returns the absolute root file of t.
func (m *Manifest) MainPath(t Target) string {
	return filepath.Join(m.Root, filepath.FromSlash(t.Main))
}

// OutPath returns the output file of t; empty Out means next to main.
func (m *Manifest) OutPath(t Target) string {
	if t.Out == "" {
		return ""
	}
	return filepath.Join(m.Root, filepath.FromSlash(t.Out))
}

// Target looks a target up by name.
func (m *Manifest) Target(name string) (Target, bool) {
	for _, t := range m.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// CacheDir is where build outputs are cached for this project.
func (m *Manifest) CacheDir() string {
	return filepath.Join(m.Root, ".fabr", "cache")
}

// Template renders a starter manifest for fabr init.
func Template(name, main string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[package]\nname = %q\n\n", name)
	sb.WriteString("[build]\n")
	sb.WriteString("inline = \"auto\"     # auto | aggressive | prohibit\n")
	sb.WriteString("autosave = true\n")
	sb.WriteString("echo = false\n")
	sb.WriteString("cache = true\n\n")
	sb.WriteString("[[target]]\n")
	fmt.Fprintf(&sb, "main = %q\n", main)
	return sb.String()
}

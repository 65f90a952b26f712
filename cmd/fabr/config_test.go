package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"fabr/internal/driver"
	"fabr/internal/project"
	"fabr/internal/route"
)

func newBuildFlagsCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "build"}
	addBuildFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "")
	cmd.Flags().Bool("no-cache", false, "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%q): %v", args, err)
	}
	return cmd
}

func writeManifest(t *testing.T) *project.Manifest {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, project.ManifestName)
	data := `[package]
name = "demo"

[build]
inline = "aggressive"
autosave = false
cache = false
jobs = 3

[[target]]
main = "boot.s"

[[target]]
name = "kernel"
main = "kernel/main.s"
out = "build/kernel.s"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", project.ManifestName, err)
	}
	m, err := project.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	return m
}

func TestSettingsFromManifest(t *testing.T) {
	m := writeManifest(t)
	s, err := settingsFrom(newBuildFlagsCmd(t), m, nil)
	if err != nil {
		t.Fatalf("settingsFrom: %v", err)
	}
	if want := (route.Options{Inline: route.InlineAggressive}); s.Options != want {
		t.Errorf("options = %+v, want %+v", s.Options, want)
	}
	if s.UseCache || s.Jobs != 3 {
		t.Errorf("UseCache = %v, Jobs = %d", s.UseCache, s.Jobs)
	}
	want := []driver.Target{
		{Name: "boot", Main: filepath.Join(m.Root, "boot.s")},
		{Name: "kernel", Main: filepath.Join(m.Root, "kernel", "main.s"), Out: filepath.Join(m.Root, "build", "kernel.s")},
	}
	if diff := cmp.Diff(want, s.Targets); diff != "" {
		t.Errorf("targets (-want +got):\n%s", diff)
	}
}

func TestFlagsOverrideManifest(t *testing.T) {
	m := writeManifest(t)
	cmd := newBuildFlagsCmd(t, "-p", "--no-autosave=false", "--echo", "--jobs", "1", "--target", "kernel", "-o", "k.s")
	s, err := settingsFrom(cmd, m, nil)
	if err != nil {
		t.Fatalf("settingsFrom: %v", err)
	}
	if want := (route.Options{Inline: route.InlineProhibit, AutoSave: true, Echo: true}); s.Options != want {
		t.Errorf("options = %+v, want %+v", s.Options, want)
	}
	if s.Jobs != 1 {
		t.Errorf("Jobs = %d", s.Jobs)
	}
	if len(s.Targets) != 1 || s.Targets[0].Name != "kernel" || s.Targets[0].Out != "k.s" {
		t.Errorf("targets = %+v", s.Targets)
	}
}

func TestSettingsWithoutManifest(t *testing.T) {
	s, err := settingsFrom(newBuildFlagsCmd(t, "--inline", "aggressive"), nil, []string{"a/main.s", "./b/main.s"})
	if err != nil {
		t.Fatalf("settingsFrom: %v", err)
	}
	if want := (route.Options{Inline: route.InlineAggressive, AutoSave: true}); s.Options != want {
		t.Errorf("options = %+v, want %+v", s.Options, want)
	}
	if !s.UseCache || s.Jobs <= 0 {
		t.Errorf("UseCache = %v, Jobs = %d", s.UseCache, s.Jobs)
	}
	want := []driver.Target{
		{Name: filepath.Join("a", "main.s"), Main: filepath.Join("a", "main.s")},
		{Name: filepath.Join("b", "main.s"), Main: filepath.Join("b", "main.s")},
	}
	if diff := cmp.Diff(want, s.Targets); diff != "" {
		t.Errorf("targets (-want +got):\n%s", diff)
	}

	cmd := newBuildFlagsCmd(t, "--no-cache")
	if s, err = settingsFrom(cmd, nil, []string{"x.s"}); err != nil || s.UseCache {
		t.Errorf("--no-cache: UseCache = %v, err = %v", s != nil && s.UseCache, err)
	}
}

func TestSettingsErrors(t *testing.T) {
	m := writeManifest(t)
	tests := []struct {
		name     string
		flags    []string
		manifest *project.Manifest
		args     []string
		want     string
	}{
		{"no input", nil, nil, nil, "no input files"},
		{"output needs one target", []string{"-o", "x.s"}, m, nil, "exactly one target"},
		{"unknown target", []string{"--target", "nope"}, m, nil, `no target named "nope"`},
		{"target with files", []string{"--target", "boot"}, m, []string{"x.s"}, "cannot be combined"},
		{"duplicate file", nil, nil, []string{"x.s", "./x.s"}, "given twice"},
		{"bad inline", []string{"--inline", "always"}, nil, []string{"x.s"}, "unknown inline mode"},
		{"negative jobs", []string{"--jobs=-2"}, nil, []string{"x.s"}, "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := settingsFrom(newBuildFlagsCmd(t, tt.flags...), tt.manifest, tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
	if _, err := settingsFrom(newBuildFlagsCmd(t), nil, nil); !errors.Is(err, errNoInput) {
		t.Errorf("err = %v, want errNoInput", err)
	}
}

func TestParseProgressView(t *testing.T) {
	for in, want := range map[string]progressView{
		"":      {},
		"ON":    {forced: true, enabled: true},
		" off ": {forced: true},
	} {
		got, err := parseProgressView(in)
		if err != nil || got != want {
			t.Errorf("parseProgressView(%q) = %+v, %v", in, got, err)
		}
	}
	if _, err := parseProgressView("maybe"); err == nil {
		t.Error("invalid value accepted")
	}
	on, off := progressView{forced: true, enabled: true}, progressView{forced: true}
	if !on.wanted(1, nil) || off.wanted(5, nil) {
		t.Error("explicit values must win")
	}
	if (progressView{}).wanted(1, nil) {
		t.Error("auto must not draw a single target")
	}
}

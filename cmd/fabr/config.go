package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"fabr/internal/driver"
	"fabr/internal/project"
	"fabr/internal/route"
)

// buildSettings is the merged view of fabr.toml and the command line.
type buildSettings struct {
	Manifest *project.Manifest
	Targets  []driver.Target
	Options  route.Options
	Jobs     int
	UseCache bool
}

// addBuildFlags registers the flags shared by build and check.
func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().String("inline", "auto", "inlining mode (auto|aggressive|prohibit)")
	cmd.Flags().BoolP("aggressive", "a", false, "inline every function not hinted noinline")
	cmd.Flags().BoolP("prohibit", "p", false, "never inline")
	cmd.Flags().Bool("no-autosave", false, "do not preserve callee-saved registers around function bodies")
	cmd.Flags().Bool("echo", false, "keep include and macro boundaries as comments in the output")
	cmd.Flags().Int("jobs", 0, "targets built in parallel (0 = GOMAXPROCS)")
	cmd.Flags().StringSlice("target", nil, "build only the named manifest targets")
	cmd.Flags().StringSlice("show", nil, "print listings (includes,metrics,macros,applied,symbols)")
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|json|short)")
	cmd.MarkFlagsMutuallyExclusive("aggressive", "prohibit")
	cmd.MarkFlagsMutuallyExclusive("aggressive", "inline")
	cmd.MarkFlagsMutuallyExclusive("prohibit", "inline")
}

// resolveSettings loads fabr.toml from the working directory upwards (when
// no files are given, or to pick up [build] defaults) and applies flags.
func resolveSettings(cmd *cobra.Command, args []string) (*buildSettings, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	manifest, _, err := project.LoadProjectManifest(wd)
	if err != nil {
		return nil, err
	}
	return settingsFrom(cmd, manifest, args)
}

func settingsFrom(cmd *cobra.Command, manifest *project.Manifest, args []string) (*buildSettings, error) {
	s := &buildSettings{Manifest: manifest, UseCache: true, Options: route.Options{AutoSave: true}}
	if manifest != nil {
		if err := applyManifestBuild(s, manifest.Build); err != nil {
			return nil, fmt.Errorf("%s: %w", manifest.Path, err)
		}
	}
	if err := applyFlags(cmd, s); err != nil {
		return nil, err
	}

	selected, err := cmd.Flags().GetStringSlice("target")
	if err != nil {
		return nil, err
	}
	output := ""
	if f := cmd.Flags().Lookup("output"); f != nil {
		output = f.Value.String()
	}
	s.Targets, err = resolveTargets(manifest, args, selected, output)
	if err != nil {
		return nil, err
	}
	if s.Jobs <= 0 {
		s.Jobs = runtime.GOMAXPROCS(0)
	}
	return s, nil
}

func applyManifestBuild(s *buildSettings, b project.BuildConfig) error {
	mode, err := route.ParseInlineMode(b.Inline)
	if err != nil {
		return err
	}
	s.Options.Inline = mode
	if b.AutoSave != nil {
		s.Options.AutoSave = *b.AutoSave
	}
	if b.Echo != nil {
		s.Options.Echo = *b.Echo
	}
	if b.Cache != nil {
		s.UseCache = *b.Cache
	}
	s.Jobs = b.Jobs
	return nil
}

// applyFlags overrides manifest values with flags the user actually set.
func applyFlags(cmd *cobra.Command, s *buildSettings) error {
	flags := cmd.Flags()
	if flags.Changed("inline") {
		value, err := flags.GetString("inline")
		if err != nil {
			return err
		}
		if s.Options.Inline, err = route.ParseInlineMode(value); err != nil {
			return err
		}
	}
	if on, _ := flags.GetBool("aggressive"); on {
		s.Options.Inline = route.InlineAggressive
	}
	if on, _ := flags.GetBool("prohibit"); on {
		s.Options.Inline = route.InlineProhibit
	}
	if flags.Changed("no-autosave") {
		off, err := flags.GetBool("no-autosave")
		if err != nil {
			return err
		}
		s.Options.AutoSave = !off
	}
	if flags.Changed("echo") {
		on, err := flags.GetBool("echo")
		if err != nil {
			return err
		}
		s.Options.Echo = on
	}
	if flags.Changed("jobs") {
		jobs, err := flags.GetInt("jobs")
		if err != nil {
			return err
		}
		if jobs < 0 {
			return fmt.Errorf("--jobs must not be negative, got %d", jobs)
		}
		s.Jobs = jobs
	}
	if f := flags.Lookup("no-cache"); f != nil && f.Changed {
		off, err := flags.GetBool("no-cache")
		if err != nil {
			return err
		}
		s.UseCache = !off
	}
	return nil
}

var errNoInput = errors.New("no input files and no fabr.toml found (run 'fabr init' or pass a root file)")

// resolveTargets turns positional files or manifest targets into driver
// targets. Positional files win over the manifest.
func resolveTargets(manifest *project.Manifest, args, selected []string, output string) ([]driver.Target, error) {
	var targets []driver.Target
	switch {
	case len(args) > 0:
		if len(selected) > 0 {
			return nil, errors.New("--target selects manifest targets and cannot be combined with files")
		}
		seen := make(map[string]struct{}, len(args))
		for _, arg := range args {
			path := filepath.Clean(arg)
			if _, dup := seen[path]; dup {
				return nil, fmt.Errorf("file %q given twice", arg)
			}
			seen[path] = struct{}{}
			targets = append(targets, driver.Target{Name: path, Main: path})
		}
	case manifest != nil:
		if len(selected) == 0 {
			for _, t := range manifest.Targets {
				targets = append(targets, manifestTarget(manifest, t))
			}
			break
		}
		for _, name := range selected {
			t, ok := manifest.Target(strings.TrimSpace(name))
			if !ok {
				return nil, fmt.Errorf("%s: no target named %q", manifest.Path, name)
			}
			targets = append(targets, manifestTarget(manifest, t))
		}
	default:
		return nil, errNoInput
	}

	if output != "" {
		if len(targets) != 1 {
			return nil, fmt.Errorf("--output needs exactly one target, got %d", len(targets))
		}
		targets[0].Out = output
	}
	return targets, nil
}

func manifestTarget(m *project.Manifest, t project.Target) driver.Target {
	return driver.Target{Name: t.Name, Main: m.MainPath(t), Out: m.OutPath(t)}
}

// cacheFor opens the output cache: the project's .fabr/cache or the user
// cache dir without a manifest.
func cacheFor(s *buildSettings) (*driver.DiskCache, error) {
	if !s.UseCache {
		return nil, nil
	}
	dir := ""
	if s.Manifest != nil {
		dir = s.Manifest.CacheDir()
	}
	return driver.OpenDiskCache(dir, "fabr")
}

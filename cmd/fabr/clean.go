package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fabr/internal/driver"
	"fabr/internal/project"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove cached build outputs",
	Long: `Remove the output cache of the project containing [path] (default: the
working directory). Outside a project the user cache is cleared.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	base := "."
	if len(args) > 0 && args[0] != "" {
		base = args[0]
	}
	info, err := os.Stat(base)
	if err != nil {
		return fmt.Errorf("failed to stat %q: %w", base, err)
	}
	if !info.IsDir() {
		base = filepath.Dir(base)
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return err
	}

	dir := ""
	manifest, ok, err := project.LoadProjectManifest(abs)
	if err != nil {
		return err
	}
	if ok {
		dir = manifest.CacheDir()
	}
	cache, err := driver.OpenDiskCache(dir, "fabr")
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to clear %q: %w", cache.Dir(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", cache.Dir())
	return nil
}

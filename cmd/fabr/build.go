package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fabr/internal/diag"
	"fabr/internal/driver"
)

var buildCmd = &cobra.Command{
	Use:   "build [files...]",
	Short: "Fabricate root files or the targets of fabr.toml",
	Long: `Fabricate each root file into plain RV32I assembly.
Without files, every [[target]] of the nearest fabr.toml is built.
Independent targets are built in parallel.`,
	RunE: runBuild,
}

func init() {
	addBuildFlags(buildCmd)
	buildCmd.Flags().StringP("output", "o", "", "output file (single target only; default <name>_out<ext>)")
	buildCmd.Flags().Bool("no-cache", false, "do not read or write the output cache")
	buildCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings(cmd, args)
	if err != nil {
		return err
	}
	report, err := readReportOptions(cmd)
	if err != nil {
		return err
	}
	shows, err := showFlag(cmd)
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	view, err := parseProgressView(uiValue)
	if err != nil {
		return err
	}
	// листинги нужны из живого прогона, кеш их не хранит
	if len(shows) > 0 {
		settings.UseCache = false
	}
	cache, err := cacheFor(settings)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	req, err := newBuildRequest(cmd, settings)
	if err != nil {
		return err
	}
	req.Cache = cache

	ctx := cmd.Context()
	var results []driver.TargetResult
	if report.Format == "pretty" && view.wanted(len(req.Targets), os.Stdout) {
		results, err = buildWithProgress(ctx, "fabr build", req, driver.Build)
	} else {
		results, err = driver.Build(ctx, req)
	}
	if err != nil && len(results) == 0 {
		return err
	}

	return finish(cmd, results, report, shows, func(out io.Writer, r *driver.TargetResult) {
		if r.Failed() {
			return
		}
		if r.Cached {
			fmt.Fprintf(out, "wrote %s (cached)\n", r.OutPath)
			return
		}
		fmt.Fprintf(out, "wrote %s\n", r.OutPath)
	}, err)
}

func showFlag(cmd *cobra.Command) ([]listing, error) {
	values, err := cmd.Flags().GetStringSlice("show")
	if err != nil {
		return nil, err
	}
	return parseListings(values)
}

func newBuildRequest(cmd *cobra.Command, s *buildSettings) (*driver.BuildRequest, error) {
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	return &driver.BuildRequest{
		Targets:        s.Targets,
		Options:        s.Options,
		Jobs:           s.Jobs,
		MaxDiagnostics: maxDiagnostics,
		Timings:        timings,
	}, nil
}

// finish prints diagnostics, listings, per-target summaries and timings,
// and turns failures into a silent non-zero exit.
func finish(cmd *cobra.Command, results []driver.TargetResult, report reportOptions, shows []listing, summary func(io.Writer, *driver.TargetResult), buildErr error) error {
	out := cmd.OutOrStdout()
	if err := printDiagnostics(out, results, report); err != nil {
		return err
	}
	if report.Format == "json" {
		return exitStatus(results, report, buildErr)
	}

	for i := range results {
		r := &results[i]
		if len(shows) > 0 {
			if len(results) > 1 {
				fmt.Fprintf(out, "== %s ==\n", r.Target.Name)
			}
			printListings(out, r.Pipeline, shows)
		}
		if report.MinSeverity < diag.SevError && summary != nil {
			summary(out, r)
		}
	}

	timings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	if timings {
		printTargetTimings(os.Stderr, results)
	}
	return exitStatus(results, report, buildErr)
}

func exitStatus(results []driver.TargetResult, report reportOptions, buildErr error) error {
	if buildErr != nil {
		return buildErr
	}
	for i := range results {
		if targetFailed(&results[i], report) {
			return errSilent{}
		}
	}
	return nil
}

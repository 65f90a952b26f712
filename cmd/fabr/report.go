package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"fabr/internal/diag"
	"fabr/internal/diagfmt"
	"fabr/internal/driver"
	"fabr/internal/source"
)

// reportOptions controls how target diagnostics are printed.
type reportOptions struct {
	Format      string
	MinSeverity diag.Severity
	Pretty      diagfmt.PrettyOpts
	JSON        diagfmt.JSONOpts
	// WarningsAsErrors fails targets that only produced warnings.
	WarningsAsErrors bool
}

// addReportFlags registers the rendering flags of check.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("with-notes", false, "include diagnostic notes")
	cmd.Flags().Bool("suggest", false, "include fix suggestions")
	cmd.Flags().Bool("preview", false, "preview the effect of suggested fixes")
	cmd.Flags().String("path-mode", "auto", "how paths are printed (abs|rel|base|auto)")
	cmd.Flags().Bool("no-warnings", false, "print errors only")
	cmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
}

func boolFlag(cmd *cobra.Command, name string) bool {
	if cmd.Flags().Lookup(name) == nil {
		return false
	}
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func readReportOptions(cmd *cobra.Command) (reportOptions, error) {
	opts := reportOptions{Format: "pretty", MinSeverity: diag.SevWarning}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return opts, err
	}
	switch format = strings.ToLower(format); format {
	case "pretty", "json", "short":
		opts.Format = format
	default:
		return opts, fmt.Errorf("unknown format: %s", format)
	}

	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	switch {
	case quiet && verbose:
		return opts, fmt.Errorf("--quiet and --verbose cannot be combined")
	case quiet, boolFlag(cmd, "no-warnings"):
		opts.MinSeverity = diag.SevError
	case verbose:
		opts.MinSeverity = diag.SevInfo
	}

	pathMode := diagfmt.PathModeAuto
	if f := cmd.Flags().Lookup("path-mode"); f != nil {
		mode, ok := diagfmt.ParsePathMode(f.Value.String())
		if !ok {
			return opts, fmt.Errorf("invalid --path-mode value %q (expected abs|rel|base|auto)", f.Value.String())
		}
		pathMode = mode
	}
	colored, err := useColor(cmd)
	if err != nil {
		return opts, err
	}
	notes, fixes, preview := boolFlag(cmd, "with-notes"), boolFlag(cmd, "suggest"), boolFlag(cmd, "preview")

	opts.Pretty = diagfmt.PrettyOpts{
		Color:       colored,
		Context:     1,
		PathMode:    pathMode,
		ShowNotes:   notes,
		ShowFixes:   fixes,
		ShowPreview: preview,
	}
	opts.JSON = diagfmt.JSONOpts{
		IncludePositions: true,
		PathMode:         pathMode,
		IncludeNotes:     notes,
		IncludeFixes:     fixes,
		IncludePreviews:  preview,
	}
	opts.WarningsAsErrors = boolFlag(cmd, "warnings-as-errors")
	return opts, nil
}

// visibleBag copies the diagnostics at or above the threshold. Timing
// reports were asked for explicitly and always pass.
func visibleBag(bag *diag.Bag, minSev diag.Severity) *diag.Bag {
	out := diag.NewBag(bag.Len())
	for _, d := range bag.Items() {
		if d.Severity >= minSev || d.Code == diag.ObsTimings {
			out.Add(d)
		}
	}
	out.Sort()
	return out
}

func targetFiles(r *driver.TargetResult) *source.FileSet {
	if r.Pipeline == nil {
		return nil
	}
	return r.Pipeline.Files
}

// targetFailed applies --warnings-as-errors on top of the build outcome.
func targetFailed(r *driver.TargetResult, opts reportOptions) bool {
	if r.Failed() || r.Bag.HasErrors() {
		return true
	}
	return opts.WarningsAsErrors && r.Bag.HasWarnings()
}

// printDiagnostics renders every target. Pretty and short output get a
// header per target when there is more than one; JSON is one document.
func printDiagnostics(w io.Writer, results []driver.TargetResult, opts reportOptions) error {
	if opts.Format == "json" {
		return printJSONReport(w, results, opts)
	}
	for i := range results {
		r := &results[i]
		bag := visibleBag(r.Bag, opts.MinSeverity)
		if bag.Len() == 0 {
			continue
		}
		if len(results) > 1 {
			fmt.Fprintf(w, "== %s ==\n", r.Target.Name)
		}
		switch opts.Format {
		case "short":
			fmt.Fprintln(w, diag.FormatShortDiagnostics(bag.Items(), targetFiles(r), opts.JSON.IncludeNotes))
		default:
			diagfmt.Pretty(w, bag, targetFiles(r), opts.Pretty)
		}
	}
	return nil
}

type targetReportJSON struct {
	Name        string                    `json:"name"`
	Main        string                    `json:"main"`
	Output      string                    `json:"output,omitempty"`
	Cached      bool                      `json:"cached,omitempty"`
	Failed      bool                      `json:"failed"`
	ElapsedMS   float64                   `json:"elapsed_ms"`
	Diagnostics diagfmt.DiagnosticsOutput `json:"diagnostics"`
}

type buildReportJSON struct {
	Targets []targetReportJSON `json:"targets"`
}

func printJSONReport(w io.Writer, results []driver.TargetResult, opts reportOptions) error {
	report := buildReportJSON{Targets: make([]targetReportJSON, 0, len(results))}
	for i := range results {
		r := &results[i]
		out, err := diagfmt.BuildDiagnosticsOutput(visibleBag(r.Bag, opts.MinSeverity), targetFiles(r), opts.JSON)
		if err != nil {
			return err
		}
		entry := targetReportJSON{
			Name:        r.Target.Name,
			Main:        r.Target.Main,
			Cached:      r.Cached,
			Failed:      targetFailed(r, opts),
			ElapsedMS:   toMillis(r.Elapsed),
			Diagnostics: out,
		}
		if !r.Failed() && len(r.Output) > 0 {
			entry.Output = r.OutPath
		}
		report.Targets = append(report.Targets, entry)
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fabr/internal/driver"
)

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Run the pipeline and report diagnostics without writing output",
	Long: `Run every fabrication stage and print diagnostics. Nothing is written
and the cache is neither read nor updated.`,
	RunE: runCheck,
}

func init() {
	addBuildFlags(checkCmd)
	addReportFlags(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
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
	req, err := newBuildRequest(cmd, settings)
	if err != nil {
		return err
	}

	results, err := driver.Check(cmd.Context(), req)
	if err != nil && len(results) == 0 {
		return err
	}
	return finish(cmd, results, report, shows, func(out io.Writer, r *driver.TargetResult) {
		if targetFailed(r, report) {
			return
		}
		fmt.Fprintf(out, "%s: ok (%d lines)\n", r.Target.Name, len(r.Output))
	}, err)
}

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fabr/internal/driver"
	"fabr/internal/fix"
)

var fixCmd = &cobra.Command{
	Use:   "fix [files...]",
	Short: "Apply suggested fixes to the sources of a build",
	Long: `Run the pipeline like check, then apply the edits its warnings suggest
to the source files (root files and includes).`,
	RunE: runFix,
}

func init() {
	addBuildFlags(fixCmd)
	fixCmd.Flags().Bool("once", false, "apply only the first fix of each target")
	fixCmd.Flags().String("id", "", "apply the fix with this identifier")
	fixCmd.Flags().Bool("dry-run", false, "list the fixes without writing files")
	fixCmd.MarkFlagsMutuallyExclusive("once", "id")
}

func fixOptions(cmd *cobra.Command) (fix.ApplyOptions, error) {
	once, err := cmd.Flags().GetBool("once")
	if err != nil {
		return fix.ApplyOptions{}, err
	}
	id, err := cmd.Flags().GetString("id")
	if err != nil {
		return fix.ApplyOptions{}, err
	}
	switch {
	case id != "":
		return fix.ApplyOptions{Mode: fix.ApplyModeID, TargetID: id}, nil
	case once:
		return fix.ApplyOptions{Mode: fix.ApplyModeOnce}, nil
	}
	return fix.ApplyOptions{Mode: fix.ApplyModeAll}, nil
}

func runFix(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings(cmd, args)
	if err != nil {
		return err
	}
	opts, err := fixOptions(cmd)
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	req, err := newBuildRequest(cmd, settings)
	if err != nil {
		return err
	}
	results, err := driver.Check(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	written := make(map[string]string)
	applied := 0
	for i := range results {
		r := &results[i]
		if r.Pipeline == nil {
			continue
		}
		r.Bag.Sort()
		plan, err := fix.Build(r.Pipeline.Files, r.Bag.Items(), opts)
		if errors.Is(err, fix.ErrNoFixes) && len(plan.Skipped) == 0 {
			continue
		}
		if err != nil && !errors.Is(err, fix.ErrNoFixes) {
			return err
		}
		// общие include-файлы правим один раз, первой целью
		plan.FileChanges = dropWritten(out, plan.FileChanges, written, r.Target.Name)
		printPlan(out, r.Target.Name, plan)
		applied += len(plan.Applied)
		if dryRun {
			continue
		}
		if err := plan.Write(); err != nil {
			return err
		}
	}
	if applied == 0 {
		fmt.Fprintln(out, "no applicable fixes found")
	}
	return nil
}

func dropWritten(out io.Writer, changes []fix.FileChange, written map[string]string, target string) []fix.FileChange {
	kept := changes[:0]
	for _, ch := range changes {
		if by, ok := written[ch.Path]; ok {
			fmt.Fprintf(out, "%s: %s was already fixed by %s; run fix again\n", target, ch.Path, by)
			continue
		}
		written[ch.Path] = target
		kept = append(kept, ch)
	}
	return kept
}

func printPlan(out io.Writer, target string, plan *fix.Plan) {
	if len(plan.Applied) > 0 {
		fmt.Fprintf(out, "%s: applied %s:\n", target, plural(len(plan.Applied), "fix", "fixes"))
		for _, item := range plan.Applied {
			location := item.PrimaryPath
			if location == "" {
				location = "(unknown location)"
			}
			fmt.Fprintf(out, "  %s [%s] %s (%s)\n", item.Title, item.ID, location, plural(item.EditCount, "edit", "edits"))
		}
	}
	for _, change := range plan.FileChanges {
		fmt.Fprintf(out, "  updated %s (%s)\n", change.Path, plural(change.EditCount, "edit", "edits"))
	}
	for _, skip := range plan.Skipped {
		fmt.Fprintf(out, "  skipped %s [%s]: %s\n", skip.Title, skip.ID, skip.Reason)
	}
}

package main

import (
	"fmt"
	"io"
	"time"

	"fabr/internal/buildpipeline"
	"fabr/internal/driver"
	"fabr/internal/observ"
)

// slowestStage picks the stage that took longest; ok is false when no
// stage ran.
func slowestStage(timings buildpipeline.Timings) (stage buildpipeline.Stage, d time.Duration, ok bool) {
	for _, st := range buildpipeline.Stages {
		if timings.Has(st) && (!ok || timings.Duration(st) > d) {
			stage, d, ok = st, timings.Duration(st), true
		}
	}
	return stage, d, ok
}

// printTargetTimings prints one line per target and then every stage of
// every built target as a single table, prefixed by target name.
func printTargetTimings(out io.Writer, results []driver.TargetResult) {
	if out == nil {
		return
	}
	all := observ.NewTimer()
	for i := range results {
		r := &results[i]
		switch {
		case r.Cached:
			fmt.Fprintf(out, "%s: cached, %.2f ms\n", r.Target.Name, toMillis(r.Elapsed))
		case r.Pipeline != nil:
			line := fmt.Sprintf("%s: %.2f ms", r.Target.Name, toMillis(r.Elapsed))
			if st, d, ok := slowestStage(r.Pipeline.Timings); ok {
				line += fmt.Sprintf(", slowest %s %.2f ms", st, toMillis(d))
			}
			fmt.Fprintln(out, line)
			all.Merge(r.Target.Name+"/", r.Pipeline.Timer)
		}
	}
	if len(all.Report().Phases) > 0 {
		fmt.Fprint(out, all.Summary())
	}
}

func toMillis(d time.Duration) float64 {
	return d.Seconds() * 1000
}

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"fabr/internal/buildpipeline"
	"fabr/internal/driver"
	"fabr/internal/observ"
)

func TestPrintTargetTimings(t *testing.T) {
	timer := observ.NewTimer()
	timer.End(timer.Begin("route"), "2 calls")
	res := &buildpipeline.Result{Timer: timer}
	res.Timings.Set(buildpipeline.StageInclude, time.Millisecond)
	res.Timings.Set(buildpipeline.StageRoute, 5*time.Millisecond)

	var buf bytes.Buffer
	printTargetTimings(&buf, []driver.TargetResult{
		{Target: driver.Target{Name: "boot"}, Pipeline: res, Elapsed: 7 * time.Millisecond},
		{Target: driver.Target{Name: "kern"}, Cached: true},
		{Target: driver.Target{Name: "bad"}},
	})
	out := buf.String()
	for _, want := range []string{
		"boot: 7.00 ms, slowest route 5.00 ms",
		"kern: cached",
		"boot/route",
		"// 2 calls",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "bad") {
		t.Errorf("target without a pipeline printed:\n%s", out)
	}
}

func TestSlowestStageEmpty(t *testing.T) {
	if _, _, ok := slowestStage(buildpipeline.Timings{}); ok {
		t.Error("no stage ran")
	}
}

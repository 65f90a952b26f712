package buildpipeline

import (
	"slices"
	"time"
)

// Stage names one step of a fabrication run.
type Stage string

const (
	StageInclude Stage = "include"
	StageMacros  Stage = "macros"
	StageExpand  Stage = "expand"
	StageSymbols Stage = "symbols"
	StageRoute   Stage = "route"
	StageMerge   Stage = "merge"
	// StageWrite is reported by the driver once the pipeline is done.
	StageWrite Stage = "write"
)

// Stages is the execution order. StageWrite is not part of it.
var Stages = []Stage{StageInclude, StageMacros, StageExpand, StageSymbols, StageRoute, StageMerge}

// LastStep is the Step of StageWrite.
var LastStep = len(Stages) + 1

// Step is the 1-based position of s with StageWrite last; 0 when unknown.
func (s Stage) Step() int {
	if s == StageWrite {
		return LastStep
	}
	return slices.Index(Stages, s) + 1
}

var stageVerbs = map[Stage]string{
	StageInclude: "including",
	StageMacros:  "scanning",
	StageExpand:  "expanding",
	StageSymbols: "collecting",
	StageRoute:   "routing",
	StageMerge:   "merging",
	StageWrite:   "writing",
}

// Verb labels a running stage in progress output.
func (s Stage) Verb() string {
	return stageVerbs[s]
}

// Status is where a target stands within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusCached  Status = "cached" // output came from the cache, no stage ran
	StatusError   Status = "error"
)

// Event is one progress report. File is the target label; empty means
// the whole build.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink receives events; it may be called from several goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings are the stage durations of one run.
type Timings struct {
	d   [8]time.Duration // by Step
	ran uint8
}

func (t *Timings) Set(stage Stage, dur time.Duration) {
	if n := stage.Step(); t != nil && n > 0 {
		t.d[n] = dur
		t.ran |= 1 << n
	}
}

// Has reports whether stage ran.
func (t Timings) Has(stage Stage) bool {
	n := stage.Step()
	return n > 0 && t.ran&(1<<n) != 0
}

func (t Timings) Duration(stage Stage) time.Duration {
	return t.d[stage.Step()]
}

// Package buildpipeline runs the six fabrication stages over one root file.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fabr/internal/diag"
	"fabr/internal/include"
	"fabr/internal/macro"
	"fabr/internal/observ"
	"fabr/internal/route"
	"fabr/internal/section"
	"fabr/internal/source"
	"fabr/internal/symbols"
	"fabr/internal/trace"
)

// Request configures one fabrication run.
type Request struct {
	RootPath string
	Options  route.Options
	// Reader defaults to the OS file system.
	Reader   source.Reader
	Reporter diag.Reporter
	Progress ProgressSink
	// Label names the run in progress events; defaults to RootPath.
	Label string
}

// Context owns every table of one run. Each stage reads what earlier
// stages finalized and fills in its own field.
type Context struct {
	Files    *source.FileSet
	Sink     *diag.Sink
	Included *include.Result
	Macros   *macro.Table
	Expanded []source.Line
	Symbols  *symbols.Table
	Routed   *route.Result
}

// Result is a finished (or aborted) run. Fields of stages that did not run
// are nil.
type Result struct {
	Context
	Output  []string
	Timings Timings
	Timer   *observ.Timer
}

// Metrics measures the included files.
func (r *Result) Metrics() []include.Metrics {
	if r == nil || r.Included == nil {
		return nil
	}
	return include.Measure(r.Files, r.Included)
}

// Run executes the pipeline. A fatal diagnostic aborts it and is returned as
// a *diag.Fatal; the partial Result is returned alongside for listings.
func Run(ctx context.Context, req *Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return nil, errors.New("missing fabrication request")
	}
	if req.RootPath == "" {
		return nil, errors.New("missing root path")
	}
	reader := req.Reader
	if reader == nil {
		reader = source.OSReader{}
	}
	label := req.Label
	if label == "" {
		label = req.RootPath
	}

	fs := source.NewFileSetWithReader(reader)
	res := &Result{
		Context: Context{
			Files: fs,
			Sink:  &diag.Sink{Files: fs, Reporter: req.Reporter},
		},
		Timer: observ.NewTimer(),
	}
	r := &runner{ctx: ctx, req: req, res: res, label: label, tracer: trace.FromContext(ctx)}
	r.parent = trace.CurrentSpan(ctx).SpanID

	span := trace.Begin(r.tracer, trace.ScopeFile, "fabricate "+label, r.parent)
	r.parent = span.ID()
	defer span.End("")

	emit(req.Progress, label, StageInclude, StatusQueued, nil, 0)
	err := r.stages()
	if err != nil {
		span.WithExtra("error", err.Error())
	}
	return res, err
}

type runner struct {
	ctx    context.Context
	req    *Request
	res    *Result
	label  string
	tracer trace.Tracer
	parent uint64
}

func (r *runner) stages() error {
	c := &r.res.Context
	sink := c.Sink
	steps := []struct {
		stage Stage
		run   func() (string, error)
	}{
		{StageInclude, func() (string, error) {
			inc, err := include.Resolve(sink, c.Files, r.req.RootPath)
			if err != nil {
				return "", err
			}
			c.Included = inc
			return fmt.Sprintf("%d files, %d lines", len(inc.Files), len(inc.Lines)), nil
		}},
		{StageMacros, func() (string, error) {
			t, err := macro.Build(sink, c.Included.Lines)
			if err != nil {
				return "", err
			}
			c.Macros = t
			return fmt.Sprintf("%d imacros, %d macros", len(t.Immediates()), len(t.Macros())), nil
		}},
		{StageExpand, func() (string, error) {
			out, err := macro.Expand(sink, c.Macros, c.Included.Lines, macro.Options{Echo: r.req.Options.Echo})
			if err != nil {
				return "", err
			}
			c.Expanded = out
			return strconv.Itoa(len(out)) + " lines", nil
		}},
		{StageSymbols, func() (string, error) {
			t, err := symbols.Build(sink, c.Expanded)
			if err != nil {
				return "", err
			}
			c.Symbols = t
			return fmt.Sprintf("%d functions, %d poisoned", len(t.Functions()), len(t.Poisoned())), nil
		}},
		{StageRoute, func() (string, error) {
			ctx := trace.WithSpanContext(r.ctx, trace.SpanContext{SpanID: r.parent})
			routed, err := route.Route(ctx, sink, c.Symbols, c.Expanded, r.req.Options)
			if err != nil {
				return "", err
			}
			c.Routed = routed
			return fmt.Sprintf("%d calls, %d inlined", len(routed.Calls), routed.Inlined), nil
		}},
		{StageMerge, func() (string, error) {
			out, err := section.Merge(sink, c.Routed.Sections)
			if err != nil {
				return "", err
			}
			r.res.Output = out
			return strconv.Itoa(len(out)) + " lines", nil
		}},
	}

	for _, step := range steps {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		if err := r.step(step.stage, step.run); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) step(stage Stage, run func() (string, error)) error {
	emit(r.req.Progress, r.label, stage, StatusWorking, nil, 0)
	span := trace.Begin(r.tracer, trace.ScopePass, string(stage), r.parent)
	idx := r.res.Timer.Begin(string(stage))
	start := time.Now()

	note, err := run()

	elapsed := time.Since(start)
	r.res.Timer.End(idx, note)
	r.res.Timings.Set(stage, elapsed)
	if err != nil {
		span.WithExtra("error", err.Error()).End("failed")
		emit(r.req.Progress, r.label, stage, StatusError, err, elapsed)
		return err
	}
	span.End(note)
	emit(r.req.Progress, r.label, stage, StatusDone, nil, elapsed)
	return nil
}

// Package driver fabricates one or more targets, concurrently when they are
// independent, and owns the output cache.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"fabr/internal/buildpipeline"
	"fabr/internal/diag"
	"fabr/internal/route"
	"fabr/internal/source"
	"fabr/internal/trace"
)

// Target is one root file and where its output goes.
type Target struct {
	Name string
	Main string
	// Out defaults to buildpipeline.DefaultOutputPath(Main).
	Out string
}

// BuildRequest configures a multi-target build.
type BuildRequest struct {
	Targets []Target
	Options route.Options
	// Jobs bounds concurrent targets; <= 0 means GOMAXPROCS.
	Jobs           int
	MaxDiagnostics int
	// Reader defaults to the OS file system.
	Reader source.Reader
	// Writer defaults to source.OSWriter.
	Writer   source.Writer
	Cache    *DiskCache
	Progress buildpipeline.ProgressSink
	Timings  bool

	dryRun bool
}

// TargetResult is the outcome of one target.
type TargetResult struct {
	Target  Target
	OutPath string
	Bag     *diag.Bag
	// Pipeline is nil when the output came from the cache.
	Pipeline *buildpipeline.Result
	Output   []string
	Cached   bool
	Elapsed  time.Duration
	Err      error
}

// Failed reports whether the target did not produce an output.
func (r *TargetResult) Failed() bool {
	return r.Err != nil
}

// Build fabricates every target. Targets share nothing, so a failing one
// does not stop the others; its error lands in its TargetResult. The
// returned error is reserved for cancellation and invalid requests.
func Build(ctx context.Context, req *BuildRequest) ([]TargetResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return nil, errors.New("missing build request")
	}
	if len(req.Targets) == 0 {
		return nil, errors.New("no targets to build")
	}
	seen := make(map[string]struct{}, len(req.Targets))
	for _, t := range req.Targets {
		if t.Main == "" {
			return nil, fmt.Errorf("target %q has no root file", t.Name)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("duplicate target %q", t.Name)
		}
		seen[t.Name] = struct{}{}
	}

	tracer := trace.FromContext(ctx)
	name := "build"
	if req.dryRun {
		name = "check"
	}
	span := trace.Begin(tracer, trace.ScopeDriver, name, trace.CurrentSpan(ctx).SpanID)
	defer span.End(fmt.Sprintf("%d targets", len(req.Targets)))
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Результаты (индексы уникальны для каждой горутины, мьютекс не нужен)
	results := make([]TargetResult, len(req.Targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(req.Targets)))
	for i, t := range req.Targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = buildTarget(gctx, req, t)
			if errors.Is(results[i].Err, context.Canceled) || errors.Is(results[i].Err, context.DeadlineExceeded) {
				return results[i].Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Check runs the pipeline for every target without writing or caching.
func Check(ctx context.Context, req *BuildRequest) ([]TargetResult, error) {
	if req == nil {
		return nil, errors.New("missing build request")
	}
	r := *req
	r.Cache = nil
	r.Writer = nil
	r.dryRun = true
	return Build(ctx, &r)
}

func buildTarget(ctx context.Context, req *BuildRequest, t Target) (res TargetResult) {
	start := time.Now()
	reader := req.Reader
	if reader == nil {
		reader = source.OSReader{}
	}
	label := t.Name
	if label == "" {
		label = t.Main
	}
	res = TargetResult{
		Target:  t,
		OutPath: t.Out,
		Bag:     diag.NewBag(req.MaxDiagnostics),
	}
	if res.OutPath == "" {
		res.OutPath = buildpipeline.DefaultOutputPath(t.Main)
	}
	defer func() { res.Elapsed = time.Since(start) }()

	if !req.dryRun {
		if out, ok := req.Cache.Lookup(reader, t.Main, req.Options); ok {
			res.Output = out
			res.Cached = true
			progress(req.Progress, label, buildpipeline.StageInclude, buildpipeline.StatusCached, nil, 0)
			res.Err = writeOutput(req, label, &res)
			return res
		}
	}

	pipe, err := buildpipeline.Run(ctx, &buildpipeline.Request{
		RootPath: t.Main,
		Options:  req.Options,
		Reader:   reader,
		Reporter: diag.NewDedupReporter(diag.BagReporter{Bag: res.Bag}),
		Progress: req.Progress,
		Label:    label,
	})
	res.Pipeline = pipe
	if req.Timings && pipe != nil {
		addTimings(res.Bag, t.Main, pipe.Timer.Report())
	}
	if err != nil {
		if f, ok := diag.AsFatal(err); ok {
			res.Bag.Add(f.Diag)
		}
		res.Err = err
		return res
	}
	res.Output = pipe.Output
	if req.dryRun {
		return res
	}
	if err := writeOutput(req, label, &res); err != nil {
		res.Err = err
		return res
	}
	// кешируем только чистые сборки: спаны предупреждений не переживут перезапуск
	if req.Cache != nil && res.Bag.Count(diag.SevWarning) == 0 {
		files := make([]string, 0, len(pipe.Included.IDs))
		for _, id := range pipe.Included.IDs {
			files = append(files, pipe.Files.Get(id).Path)
		}
		if err := req.Cache.Store(reader, t.Main, req.Options, files, res.Output); err != nil {
			trace.Point(trace.FromContext(ctx), trace.ScopeFile, "cache store failed", err.Error(), trace.CurrentSpan(ctx).SpanID)
		}
	}
	return res
}

func writeOutput(req *BuildRequest, label string, res *TargetResult) error {
	w := req.Writer
	if w == nil {
		w = source.OSWriter{}
	}
	progress(req.Progress, label, buildpipeline.StageWrite, buildpipeline.StatusWorking, nil, 0)
	start := time.Now()
	if err := w.WriteLines(res.OutPath, res.Output); err != nil {
		res.Bag.Add(diag.NewError(diag.IOWriteError, source.Span{}, fmt.Sprintf("cannot write '%s': %v", res.OutPath, err)))
		progress(req.Progress, label, buildpipeline.StageWrite, buildpipeline.StatusError, err, time.Since(start))
		return err
	}
	progress(req.Progress, label, buildpipeline.StageWrite, buildpipeline.StatusDone, nil, time.Since(start))
	return nil
}

func progress(sink buildpipeline.ProgressSink, file string, stage buildpipeline.Stage, status buildpipeline.Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(buildpipeline.Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

// Failed counts targets that did not produce output.
func Failed(results []TargetResult) int {
	n := 0
	for i := range results {
		if results[i].Failed() {
			n++
		}
	}
	return n
}

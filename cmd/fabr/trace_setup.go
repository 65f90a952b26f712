package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"fabr/internal/trace"
)

var (
	traceCleanup     func()
	traceCleanupOnce sync.Once
)

func runTraceCleanup() {
	traceCleanupOnce.Do(func() {
		if traceCleanup != nil {
			traceCleanup()
		}
	})
}

// setupTracing inspects trace-related flags and initializes the tracer.
// It returns a cleanup function and an error if initialization fails.
func setupTracing(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	formatStr, err := root.PersistentFlags().GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace без уровня включает phase
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace format: %w", err)
	}
	if traceOutput == "" && mode != trace.ModeRing {
		traceOutput = "-"
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: traceOutput,
		RingSize:   ringSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	heartbeat := trace.StartHeartbeat(tracer, heartbeatInterval)
	activeRing = trace.RingOf(tracer)
	activeFormat = format

	cleanup := func() {
		heartbeat.Stop()
		// в режиме both поток уже записан в traceOutput
		if mode == trace.ModeRing && activeRing != nil && traceOutput != "" {
			dumpRing(cmd.ErrOrStderr(), activeRing, traceOutput, format)
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
		activeRing = nil
	}
	return cleanup, nil
}

// ring-режим держит события в памяти; при панике сбрасываем их в stderr
var (
	activeRing   *trace.RingTracer
	activeFormat trace.Format
)

// dumpTraceOnPanic writes the ring buffer to stderr and re-panics.
// Deferred first thing in main.
func dumpTraceOnPanic() {
	r := recover()
	if r == nil {
		return
	}
	if activeRing != nil {
		fmt.Fprintln(os.Stderr, "--- trace (last events before panic) ---")
		_ = activeRing.Dump(os.Stderr, activeFormat)
	}
	panic(r)
}

// dumpRing writes the ring buffer to path ("-" is stderr) at exit.
func dumpRing(stderr io.Writer, ring *trace.RingTracer, path string, format trace.Format) {
	out := stderr
	if path != "-" {
		f, err := os.Create(path) // #nosec G304 -- trace path is chosen by the user
		if err != nil {
			fmt.Fprintf(stderr, "trace: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	if err := ring.Dump(out, trace.ResolveFormat(format, path)); err != nil {
		fmt.Fprintf(stderr, "trace: dump error: %v\n", err)
	}
}

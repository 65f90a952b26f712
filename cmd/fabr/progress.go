package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"fabr/internal/buildpipeline"
	"fabr/internal/driver"
	"fabr/internal/ui"
)

// progressView is the --ui setting. Auto leaves the choice to wanted.
type progressView struct {
	forced  bool
	enabled bool
}

func parseProgressView(value string) (progressView, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return progressView{}, nil
	case "on":
		return progressView{forced: true, enabled: true}, nil
	case "off":
		return progressView{forced: true}, nil
	}
	return progressView{}, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// wanted: in auto mode a single target finishes before the view would
// draw, so only several targets on a terminal get it.
func (v progressView) wanted(targets int, out *os.File) bool {
	if v.forced {
		return v.enabled
	}
	return targets > 1 && isTerminal(out)
}

type buildFunc func(context.Context, *driver.BuildRequest) ([]driver.TargetResult, error)

// buildWithProgress runs build in the background and draws its events
// until the event channel closes.
func buildWithProgress(ctx context.Context, title string, req *driver.BuildRequest, build buildFunc) ([]driver.TargetResult, error) {
	if req == nil {
		return nil, errors.New("missing build request")
	}
	names := make([]string, len(req.Targets))
	for i, t := range req.Targets {
		names[i] = t.Name
	}

	events := make(chan buildpipeline.Event, 256)
	type outcome struct {
		results []driver.TargetResult
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		r := *req
		r.Progress = buildpipeline.ChannelSink{Ch: events}
		results, err := build(ctx, &r)
		close(events)
		done <- outcome{results, err}
	}()

	_, viewErr := tea.NewProgram(ui.NewProgressModel(title, names, events), tea.WithOutput(os.Stdout)).Run()
	out := <-done
	return out.results, errors.Join(out.err, viewErr)
}

// Package observ measures how long each stage of a fabrication run takes.
package observ

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Phase is one timed stage.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer is not safe for concurrent use; each run owns one.
type Timer struct {
	phases []Phase
}

func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin opens a phase and returns the handle End expects.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End closes phase idx; unknown handles are ignored.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	t.phases[idx].Dur = time.Since(t.phases[idx].Start)
	t.phases[idx].Note = note
}

// Merge appends the phases of other under prefix.
func (t *Timer) Merge(prefix string, other *Timer) {
	if other == nil {
		return
	}
	t.phases = append(t.phases, lo.Map(other.phases, func(p Phase, _ int) Phase {
		p.Name = prefix + p.Name
		return p
	})...)
}

// PhaseReport - фаза в сериализуемом виде.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report converts the phases to milliseconds. An empty timer has nil Phases.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	total := lo.SumBy(t.phases, func(p Phase) time.Duration { return p.Dur })
	return Report{
		TotalMS: millis(total),
		Phases: lo.Map(t.phases, func(p Phase, _ int) PhaseReport {
			return PhaseReport{Name: p.Name, DurationMS: millis(p.Dur), Note: p.Note}
		}),
	}
}

// Summary renders the report as an aligned text table.
func (t *Timer) Summary() string {
	r := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	row := func(name string, ms float64, note string) {
		fmt.Fprintf(&sb, "  %-12s %7.2f ms", name, ms)
		if note != "" {
			sb.WriteString("  // " + note)
		}
		sb.WriteByte('\n')
	}
	for _, p := range r.Phases {
		row(p.Name, p.DurationMS, p.Note)
	}
	row("total", r.TotalMS, "")
	return sb.String()
}

func millis(d time.Duration) float64 {
	return d.Seconds() * 1000
}

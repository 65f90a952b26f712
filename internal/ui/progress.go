// Package ui renders live progress for multi-target builds.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"fabr/internal/buildpipeline"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	busyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// row is one target. steps counts finished stages, StageWrite included.
type row struct {
	name    string
	status  buildpipeline.Status
	running buildpipeline.Stage
	steps   int
	elapsed time.Duration
	err     error
}

func (r *row) finished() bool {
	return r.status == buildpipeline.StatusCached || r.status == buildpipeline.StatusError ||
		(r.status == buildpipeline.StatusDone && r.steps == buildpipeline.LastStep)
}

type progressModel struct {
	title   string
	events  <-chan buildpipeline.Event
	spin    spinner.Model
	bar     progress.Model
	rows    []row
	byName  map[string]int
	phase   string // build-wide label from events without a target
	width   int
	closed  bool
	started time.Time
}

type (
	eventMsg  buildpipeline.Event
	closedMsg struct{}
)

// NewProgressModel shows one row per target and quits when events closes.
func NewProgressModel(title string, targets []string, events <-chan buildpipeline.Event) tea.Model {
	m := &progressModel{
		title:   title,
		events:  events,
		spin:    spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(busyStyle)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		byName:  make(map[string]int, len(targets)),
		width:   80,
		started: time.Now(),
	}
	m.bar.Width = m.width - 10
	for i, name := range targets {
		m.rows = append(m.rows, row{name: name, status: buildpipeline.StatusQueued})
		m.byName[name] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.next())
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		if ev, ok := <-m.events; ok {
			return eventMsg(ev)
		}
		return closedMsg{}
	}
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(buildpipeline.Event(msg)), m.next())
	case closedMsg:
		m.closed = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 40)
		m.bar.Width = m.width - 10
	case spinner.TickMsg:
		if !m.closed {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// apply folds ev into its row and returns the bar animation.
func (m *progressModel) apply(ev buildpipeline.Event) tea.Cmd {
	if ev.File == "" {
		if ev.Status == buildpipeline.StatusWorking {
			m.phase = ev.Stage.Verb()
		}
		return nil
	}
	i, ok := m.byName[ev.File]
	if !ok {
		return nil
	}
	r := &m.rows[i]
	r.status = ev.Status
	r.elapsed += ev.Elapsed
	switch ev.Status {
	case buildpipeline.StatusWorking:
		r.running = ev.Stage
	case buildpipeline.StatusDone:
		r.steps = max(r.steps, ev.Stage.Step())
	case buildpipeline.StatusCached:
		r.steps = buildpipeline.LastStep
	case buildpipeline.StatusError:
		r.err = ev.Err
	}
	return m.bar.SetPercent(m.fraction())
}

// fraction is the share of all stage steps finished; failed targets count
// as complete.
func (m *progressModel) fraction() float64 {
	if len(m.rows) == 0 {
		return 1
	}
	done := 0
	for i := range m.rows {
		if m.rows[i].status == buildpipeline.StatusError {
			done += buildpipeline.LastStep
			continue
		}
		done += m.rows[i].steps
	}
	return float64(done) / float64(len(m.rows)*buildpipeline.LastStep)
}

func (m *progressModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	nameWidth := 8
	for i := range m.rows {
		nameWidth = max(nameWidth, runewidth.StringWidth(m.rows[i].name))
	}
	nameWidth = min(nameWidth, max(m.width-40, 12))
	for i := range m.rows {
		b.WriteString(m.line(&m.rows[i], nameWidth))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if m.closed {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteByte('\n')
	return b.String()
}

func (m *progressModel) header() string {
	ok, failed := 0, 0
	for i := range m.rows {
		switch {
		case m.rows[i].status == buildpipeline.StatusError:
			failed++
		case m.rows[i].finished():
			ok++
		}
	}
	text := fmt.Sprintf("%s: %d/%d built", m.title, ok, len(m.rows))
	if failed > 0 {
		text += fmt.Sprintf(", %d failed", failed)
	}
	if m.phase != "" {
		text += " (" + m.phase + ")"
	}
	if m.closed {
		return titleStyle.Render(text)
	}
	return m.spin.View() + " " + titleStyle.Render(text)
}

// line renders "  ■■■■□□□ name  routing" with the state on the right.
func (m *progressModel) line(r *row, nameWidth int) string {
	var strip strings.Builder
	for step := 1; step <= buildpipeline.LastStep; step++ {
		switch {
		case step <= r.steps:
			strip.WriteString(okStyle.Render("■"))
		case r.status == buildpipeline.StatusError && step == r.steps+1:
			strip.WriteString(failStyle.Render("■"))
		default:
			strip.WriteString(dimStyle.Render("□"))
		}
	}
	name := runewidth.FillRight(runewidth.Truncate(r.name, nameWidth, "…"), nameWidth)
	return fmt.Sprintf("  %s %s  %s", strip.String(), name, m.state(r))
}

func (m *progressModel) state(r *row) string {
	switch {
	case r.status == buildpipeline.StatusError:
		msg := "failed"
		if r.err != nil {
			msg = runewidth.Truncate(r.err.Error(), max(m.width-30, 20), "…")
		}
		return failStyle.Render(msg)
	case r.status == buildpipeline.StatusCached:
		return okStyle.Render("cached")
	case r.finished():
		return okStyle.Render(fmt.Sprintf("done %s", r.elapsed.Round(time.Microsecond)))
	case r.status == buildpipeline.StatusQueued:
		return dimStyle.Render("queued")
	}
	return busyStyle.Render(r.running.Verb())
}

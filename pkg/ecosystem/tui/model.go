// Package tui implements flowgraph watch: a Bubble Tea view that polls a
// trace file, rescans it and unions each scan into the graph on screen.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/eval"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/trace"
)

// Loader reads the current state of a run.
type Loader func() (*flow.Execution, error)

// FileLoader loads a trace file on every poll.
func FileLoader(path string) Loader {
	return func() (*flow.Execution, error) { return trace.LoadFile(path) }
}

// Config holds parameters for the watch view.
type Config struct {
	Load      Loader
	Interval  time.Duration
	GraphOpts []graph.Option
}

// Model is the Bubble Tea model for flowgraph watch.
type Model struct {
	cfg      Config
	builder  *graph.Builder
	graph    *graph.Graph // union of every scan so far
	selected int
	expanded bool // show steps of the selected node
	spinner  spinner.Model
	scans    int
	done     bool
	err      error
	width    int
	height   int
}

// NewModel creates a watch model.
func NewModel(cfg Config) Model {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorBlue)
	return Model{cfg: cfg, graph: graph.Empty(), spinner: sp}
}

// --- Messages ---

// scanMsg delivers a fresh scan.
type scanMsg struct {
	builder *graph.Builder
	err     error
}

// pollMsg asks for the next scan.
type pollMsg time.Time

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.scan())
}

func (m Model) scan() tea.Cmd {
	load, opts := m.cfg.Load, m.cfg.GraphOpts
	return func() tea.Msg {
		exec, err := load()
		if err != nil {
			return scanMsg{err: err}
		}
		return scanMsg{builder: graph.Build(exec, opts...)}
	}
}

func (m Model) poll() tea.Cmd {
	return tea.Tick(m.cfg.Interval, func(t time.Time) tea.Msg { return pollMsg(t) })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, keys.Down):
			if m.selected < m.graph.Len()-1 {
				m.selected++
			}
		case key.Matches(msg, keys.Steps):
			m.expanded = !m.expanded
		case key.Matches(msg, keys.Refresh):
			return m, m.scan()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pollMsg:
		return m, m.scan()

	case scanMsg:
		m.scans++
		if msg.err != nil {
			// a half-written trace is retried on the next poll
			m.err = msg.err
			return m, m.poll()
		}
		m.err = nil
		m.builder = msg.builder
		m.graph = graph.Union(msg.builder.Graph(), m.graph)
		exec := msg.builder.Execution()
		m.done = exec != nil && !exec.Building
		if m.done {
			return m, nil
		}
		return m, m.poll()
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	name := "waiting for trace"
	if m.builder != nil && m.builder.Execution() != nil {
		exec := m.builder.Execution()
		name = exec.Name
		if name == "" {
			name = exec.ID
		}
	}
	b.WriteString(headerStyle.Render("flowgraph: " + name))
	b.WriteString("\n\n")

	nodes := m.graph.Nodes()
	for i, n := range nodes {
		line := nodeLine(n)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			b.WriteString("  " + statusStyle(n.Status).Render(line))
		}
		b.WriteString("\n")
		if i == m.selected && m.expanded && m.builder != nil {
			for _, s := range m.builder.Steps(n.ID) {
				b.WriteString(dimStyle.Render("      " + nodeLine(s)))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("  ✗ " + m.err.Error()))
	case m.done:
		exec := m.builder.Execution()
		b.WriteString(statusStyle(status.FromGeneric(status.FromRunResult(exec.Result))).
			Render(fmt.Sprintf("  finished: %s", strings.ToLower(exec.Result))))
	case m.scans == 0:
		b.WriteString(dimStyle.Render("  loading..."))
	default:
		b.WriteString(m.spinner.View() + dimStyle.Render(" running"))
	}

	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("  q: quit  ↑/↓: navigate  enter: steps  r: refresh"))
	return b.String()
}

func nodeLine(n *graph.Node) string {
	indent := ""
	if n.Type == graph.TypeParallel {
		indent = "  "
	}
	line := indent + statusGlyph(n.Status) + " " + n.DisplayName
	if d := n.Timing.TotalDurationMillis; d > 0 {
		line += "  " + eval.FormatMillis(d)
	}
	if n.CauseOfBlockage != "" {
		line += "  (" + n.CauseOfBlockage + ")"
	}
	return line
}

func statusGlyph(s status.RunStatus) string {
	if s.Unset() {
		return GlyphPending
	}
	switch s.State {
	case status.StateRunning:
		return GlyphRunning
	case status.StatePaused, status.StateQueued:
		return GlyphPaused
	case status.StateSkipped, status.StateNotBuilt:
		return GlyphSkipped
	}
	switch s.Result {
	case status.ResultSuccess:
		return GlyphPassed
	case status.ResultUnstable:
		return GlyphUnstable
	case status.ResultFailure, status.ResultAborted:
		return GlyphFailed
	}
	return GlyphPending
}

// Run starts the watch view and blocks until the user quits.
func Run(cfg Config) error {
	p := tea.NewProgram(NewModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

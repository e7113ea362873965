// Package tui renders the streak widget in a terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/goodtune/streak/internal/view"
)

const (
	refreshPeriod = 200 * time.Millisecond
	barWidth      = 48
)

// Counter is the widget the terminal drives.
type Counter interface {
	Snapshot() view.Snapshot
	Start() view.Snapshot
	Reset() view.Snapshot
}

type refreshMsg time.Time

type theme struct {
	header lipgloss.Style
	clock  lipgloss.Style
	filled lipgloss.Style
	empty  lipgloss.Style
	label  lipgloss.Style
	start  lipgloss.Style
	reset  lipgloss.Style
	footer lipgloss.Style
	status lipgloss.Style
}

func newTheme() theme {
	return theme{
		header: lipgloss.NewStyle().Bold(true).MarginBottom(1),
		clock:  lipgloss.NewStyle().Bold(true).MarginBottom(1),
		filled: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		empty:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		label:  lipgloss.NewStyle().Bold(true),
		start:  lipgloss.NewStyle().Padding(0, 3).Background(lipgloss.Color("26")).Foreground(lipgloss.Color("15")),
		reset:  lipgloss.NewStyle().Padding(0, 3).Background(lipgloss.Color("124")).Foreground(lipgloss.Color("15")),
		footer: lipgloss.NewStyle().Faint(true).MarginTop(1),
		status: lipgloss.NewStyle().Faint(true),
	}
}

// Model is the bubbletea model for `streak watch`.
type Model struct {
	counter  Counter
	theme    theme
	snapshot view.Snapshot
	width    int
	quitting bool
}

// NewModel returns a model that renders counter.
func NewModel(counter Counter) Model {
	return Model{
		counter:  counter,
		theme:    newTheme(),
		snapshot: counter.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return refresh()
}

func refresh() tea.Cmd {
	return tea.Tick(refreshPeriod, func(at time.Time) tea.Msg {
		return refreshMsg(at)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "s", "i", "enter":
			m.snapshot = m.counter.Start()
		case "r":
			m.snapshot = m.counter.Reset()
		}

	case refreshMsg:
		m.snapshot = m.counter.Snapshot()
		return m, refresh()
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.snapshot
	t := m.theme

	var b strings.Builder
	b.WriteString(t.header.Render(view.Header))
	b.WriteString("\n")
	b.WriteString(t.clock.Render(s.Time))
	b.WriteString("\n")
	b.WriteString(renderBar(t, s.Percent, barWidth))
	b.WriteString("  ")
	b.WriteString(t.label.Render(s.PercentLabel))
	b.WriteString("\n")
	b.WriteString(renderMarkers(s.DaysLabel, barWidth))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		t.start.Render("[s] "+view.StartLabel),
		"  ",
		t.reset.Render("[r] "+view.ResetLabel),
	))
	b.WriteString("\n")

	state := "parado"
	if s.Running {
		state = "rodando"
	}
	b.WriteString(t.status.Render(fmt.Sprintf("%s · q para sair", state)))
	b.WriteString("\n")
	b.WriteString(t.footer.Render(view.Footer))
	b.WriteString("\n")

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// renderBar draws a bar width cells wide with percent of it filled.
func renderBar(t theme, percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return t.filled.Render(strings.Repeat("█", filled)) + t.empty.Render(strings.Repeat("░", width-filled))
}

// renderMarkers spreads the start marker, day count and end marker across
// width cells.
func renderMarkers(days string, width int) string {
	left := view.MarkerStart
	right := view.MarkerEnd
	gap := width - len(left) - len(right) - lipgloss.Width(days)
	if gap < 2 {
		return left + " " + days + " " + right
	}
	lead := gap / 2
	return left + strings.Repeat(" ", lead) + days + strings.Repeat(" ", gap-lead) + right
}

// Run shows the widget until the user quits or ctx is cancelled.
func Run(ctx context.Context, counter Counter) error {
	p := tea.NewProgram(NewModel(counter), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}

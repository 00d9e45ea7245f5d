// ABOUTME: Minimal bubbletea status view for cmd/sessiond — live session/connection/player counts
// ABOUTME: Grounded on the teacher's internal/ui.Model, trimmed from a full player UI to a status dashboard
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Status is the snapshot tui renders; cmd/sessiond fills it from the app
// state façade on each tick rather than the TUI reaching into appstate
// directly.
type Status struct {
	Sessions    int
	Connections int
	Players     int
	AudioZones  int
}

// StatusProvider is the narrow contract the TUI polls — satisfied by a
// thin adapter over *appstate.State in cmd/sessiond.
type StatusProvider interface {
	Snapshot() Status
}

type tickMsg time.Time

// Model is the bubbletea model driving the status view.
type Model struct {
	provider StatusProvider
	interval time.Duration
	status   Status
	width    int
}

// New builds a Model polling provider every interval.
func New(provider StatusProvider, interval time.Duration) Model {
	if interval <= 0 {
		interval = time.Second
	}
	return Model{provider: provider, interval: interval}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.refresh())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg { return m.provider.Snapshot() }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		return m, tea.Batch(m.tick(), m.refresh())
	case Status:
		m.status = msg
	}
	return m, nil
}

func (m Model) View() string {
	width := m.width
	if width < 40 {
		width = 40
	}

	var b strings.Builder
	b.WriteString("┌─ sessioncore " + strings.Repeat("─", width-16) + "┐\n")
	b.WriteString(fmt.Sprintf("│ sessions:    %-*d │\n", width-16, m.status.Sessions))
	b.WriteString(fmt.Sprintf("│ connections: %-*d │\n", width-16, m.status.Connections))
	b.WriteString(fmt.Sprintf("│ players:     %-*d │\n", width-16, m.status.Players))
	b.WriteString(fmt.Sprintf("│ audio zones: %-*d │\n", width-16, m.status.AudioZones))
	b.WriteString("└" + strings.Repeat("─", width-2) + "┘\n")
	b.WriteString("q to quit\n")
	return b.String()
}

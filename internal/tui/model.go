package tui

import (
	"fmt"
	"strings"
	"time"

	"volley/internal/progress"
	"volley/internal/runner"

	progressbar "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575")).MarginBottom(1)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	subtle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// DoneMsg is sent by the driver once the engine returns.
type DoneMsg struct {
	Summary *runner.Summary
	Err     error
}

type stateMsg progress.State

// Model is a live progress view over one run.
type Model struct {
	Runner  *runner.Runner
	updates chan progress.State

	Progress  progressbar.Model
	Latest    progress.State
	StartTime time.Time
	Summary   *runner.Summary
	Quitting  bool
	Width     int
}

func NewModel(r *runner.Runner, updates chan progress.State) Model {
	return Model{
		Runner:    r,
		updates:   updates,
		Progress:  progressbar.New(progressbar.WithDefaultGradient()),
		StartTime: time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForState()
}

func (m Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-m.updates)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Progress.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.Quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		m.Latest = progress.State(msg)
		cmd := m.Progress.SetPercent(m.Latest.Percent() / 100)
		return m, tea.Batch(cmd, m.waitForState())

	case DoneMsg:
		m.Summary = msg.Summary
		m.Quitting = true
		return m, tea.Quit

	case progressbar.FrameMsg:
		progressModel, cmd := m.Progress.Update(msg)
		m.Progress = progressModel.(progressbar.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}

	s := strings.Builder{}

	s.WriteString(titleStyle.Render("🎯 Volley Request Run"))
	s.WriteString("\n")

	cfg := m.Runner.Cfg
	s.WriteString(fmt.Sprintf("%s %s\n", cfg.Method, cfg.URL))
	s.WriteString(subtle.Render(fmt.Sprintf("Elapsed: %s", time.Since(m.StartTime).Round(time.Second))))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.View())
	s.WriteString("\n\n")

	s.WriteString(fmt.Sprintf("Sent: %d/%d   OK: %d   ", m.Latest.Done, m.Latest.Total, m.Latest.Completed))
	if m.Latest.Failed > 0 {
		s.WriteString(errStyle.Render(fmt.Sprintf("Err: %d", m.Latest.Failed)))
	} else {
		s.WriteString("Err: 0")
	}
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("P50: %.1fms   P99: %.1fms\n", m.Runner.Stats.GetP50(), m.Runner.Stats.GetP99()))

	s.WriteString(subtle.Render("\nPress q to quit"))
	s.WriteString("\n")

	return s.String()
}

// Package tui implements the interactive mode picker
package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"powermodes/internal/logging"
)

const down = "down"

// Model is the picker state. modes is never empty.
type Model struct {
	modes     []string
	selection int
	chosen    string
	quitting  bool
	logger    *logging.Logger
}

// NewModel creates a picker over modes, highlighting initial when it is one of them
func NewModel(modes []string, initial string, logger *logging.Logger) Model {
	m := Model{modes: modes, logger: logger}
	for i, mode := range modes {
		if mode == initial {
			m.selection = i
			break
		}
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key presses
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key := keyMsg.String(); key {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		return m.navigateUp(), nil
	case down, "j":
		return m.navigateDown(), nil
	case "enter", " ":
		return m.choose(), tea.Quit
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(m.modes) {
			m.selection = n - 1
			return m.choose(), tea.Quit
		}
	}
	return m, nil
}

// View renders the numbered list of modes
func (m Model) View() string {
	if m.quitting || m.chosen != "" {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00d7ff")).MarginBottom(1)
	itemStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#00d7ff")).Bold(true)
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#5fafff")).MarginTop(1)

	b.WriteString(titleStyle.Render("Choose a powermode:"))
	b.WriteString("\n\n")

	for i, mode := range m.modes {
		line := fmt.Sprintf("  (%d) - %s", i+1, mode)
		if i == m.selection {
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString(itemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Navigate: ↑/↓ or numbers | Select: Enter/Space | Quit: q/Esc"))
	b.WriteString("\n")

	return b.String()
}

// Chosen returns the selected mode, or false when the picker was cancelled
func (m Model) Chosen() (string, bool) {
	return m.chosen, m.chosen != ""
}

func (m Model) navigateUp() Model {
	if m.selection > 0 {
		m.selection--
	} else {
		m.selection = len(m.modes) - 1
	}
	return m
}

func (m Model) navigateDown() Model {
	if m.selection < len(m.modes)-1 {
		m.selection++
	} else {
		m.selection = 0
	}
	return m
}

func (m Model) choose() Model {
	m.chosen = m.modes[m.selection]
	m.logger.Debug("tui.choose", "Mode chosen", map[string]interface{}{
		"mode": m.chosen,
	})
	return m
}

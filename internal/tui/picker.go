package tui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"powermodes/internal/logging"
)

// Pick runs the picker on the terminal. The last chosen mode is highlighted first and the new
// choice is remembered in stateDir; state failures are only logged.
func Pick(modes []string, stateDir string, logger *logging.Logger) (string, Outcome, error) {
	if len(modes) == 0 {
		return "", OutcomeCancelled, errors.New("no powermodes to choose from")
	}

	states := NewUIStateManager(stateDir, logger)
	initial := ""
	if state, err := states.Load(); err == nil {
		initial = state.LastMode
	} else {
		logger.Warn("tui.state.load_failed", "Failed to load UI state", map[string]interface{}{
			"error": err.Error(),
		})
	}

	final, err := tea.NewProgram(NewModel(modes, initial, logger)).Run()
	if err != nil {
		return "", OutcomeCancelled, fmt.Errorf("interactive mode failed: %w", err)
	}

	mode, ok := final.(Model).Chosen()
	if !ok {
		return "", OutcomeCancelled, nil
	}

	if err := states.Save(&UIState{LastMode: mode}); err != nil {
		logger.Warn("tui.state.save_failed", "Failed to save UI state", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mode, OutcomeChosen, nil
}

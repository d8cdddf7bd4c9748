package tui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"powermodes/internal/fsutil"
	"powermodes/internal/logging"
)

// UIStateFileName is the name of the UI state file
const UIStateFileName = "ui_state.json"

// UIStateManager remembers the last mode chosen in the picker
type UIStateManager struct {
	stateDir string
	logger   *logging.Logger
}

// NewUIStateManager creates a new UI state manager
func NewUIStateManager(stateDir string, logger *logging.Logger) *UIStateManager {
	return &UIStateManager{
		stateDir: stateDir,
		logger:   logger,
	}
}

func (m *UIStateManager) getStatePath() string {
	return filepath.Join(m.stateDir, UIStateFileName)
}

// Load loads the UI state from disk. A missing file yields an empty state.
func (m *UIStateManager) Load() (*UIState, error) {
	data, err := os.ReadFile(m.getStatePath())
	if err != nil {
		if os.IsNotExist(err) {
			return &UIState{}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state UIState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return &state, nil
}

// Save writes the state to disk through a temporary file
func (m *UIStateManager) Save(state *UIState) error {
	if err := fsutil.EnsureStateDirectory(m.stateDir); err != nil {
		return err
	}

	state.Updated = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := fsutil.AtomicWriteFile(m.getStatePath(), data, fsutil.DefaultFilePermissions, m.logger); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	m.logger.Debug("tui.state.saved", "UI state saved", map[string]interface{}{
		"last_mode": state.LastMode,
	})
	return nil
}

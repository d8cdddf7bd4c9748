package tui

import "time"

// Outcome is how the picker ended
type Outcome int

const (
	// OutcomeCancelled means the user quit without choosing
	OutcomeCancelled Outcome = iota
	// OutcomeChosen means a mode was selected
	OutcomeChosen
)

// UIState represents the persisted picker state
type UIState struct {
	LastMode string    `json:"last_mode"`
	Updated  time.Time `json:"updated"`
}

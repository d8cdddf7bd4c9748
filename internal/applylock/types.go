package applylock

import (
	"fmt"
	"time"
)

// LockInfo describes the invocation holding the apply lock
type LockInfo struct {
	PID     int       `json:"pid"`
	Mode    string    `json:"mode"`
	SinceTS time.Time `json:"since_ts"`
}

// HeldError is returned by Acquire while another invocation holds a fresh lock
type HeldError struct {
	Holder LockInfo
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("process %d is applying powermode %s (started %s ago)",
		e.Holder.PID, e.Holder.Mode, time.Since(e.Holder.SinceTS).Round(time.Second))
}

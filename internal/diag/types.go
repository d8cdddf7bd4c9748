package diag

import (
	"fmt"
)

// Severity tells whether a Diagnostic is recoverable
type Severity int

const (
	// SeverityWarning marks a recoverable condition. The document or mode was repaired and the
	// pipeline continues.
	SeverityWarning Severity = iota + 1
	// SeverityFatal marks a condition that leaves the current operation without a usable result.
	SeverityFatal
)

// String returns the printed form of the severity ("warning" or "error")
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityFatal:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Valid reports whether s is one of the known severities
func (s Severity) Valid() bool {
	return s == SeverityWarning || s == SeverityFatal
}

// MarshalText encodes the severity for the external plugin protocol
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes "warning" or "error"
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityFatal
	default:
		return fmt.Errorf("unknown severity %q", string(text))
	}
	return nil
}

// Diagnostic is a warning or fatal condition reported by powermodes or by a plugin.
// An empty Origin means powermodes itself; plugin diagnostics get the plugin name stamped
// before they are surfaced.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Origin   string   `json:"origin,omitempty"`
}

// Warning creates an unattributed warning
func Warning(message string) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Message: message}
}

// Warningf creates an unattributed warning from a format string
func Warningf(format string, args ...interface{}) Diagnostic {
	return Warning(fmt.Sprintf(format, args...))
}

// Fatal creates an unattributed fatal diagnostic
func Fatal(message string) Diagnostic {
	return Diagnostic{Severity: SeverityFatal, Message: message}
}

// Fatalf creates an unattributed fatal diagnostic from a format string
func Fatalf(format string, args ...interface{}) Diagnostic {
	return Fatal(fmt.Sprintf(format, args...))
}

// From returns a copy of d attributed to origin
func (d Diagnostic) From(origin string) Diagnostic {
	d.Origin = origin
	return d
}

// IsFatal reports whether d is a fatal diagnostic
func (d Diagnostic) IsFatal() bool {
	return d.Severity == SeverityFatal
}

// String renders d as "[origin ]severity: message"
func (d Diagnostic) String() string {
	return d.header() + " " + d.Message
}

func (d Diagnostic) header() string {
	if d.Origin != "" {
		return d.Origin + " " + d.Severity.String() + ":"
	}
	return d.Severity.String() + ":"
}

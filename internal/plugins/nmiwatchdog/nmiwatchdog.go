// Package nmiwatchdog enables or disables the kernel's NMI watchdog. Modes configure it with a
// boolean:
//
//	[powersave]
//	nmi-watchdog = false
package nmiwatchdog

import (
	"fmt"

	"powermodes/internal/diag"
	"powermodes/internal/fsutil"
	"powermodes/internal/logging"
	"powermodes/internal/modes"
	"powermodes/internal/plugin"
)

const (
	// Name is the plugin's key in modes files
	Name = "nmi-watchdog"
	// Version of the plugin
	Version = "1.0"
	// DefaultPath is the procfs switch of the watchdog
	DefaultPath = "/proc/sys/kernel/nmi_watchdog"
)

// Plugin controls the NMI watchdog through Path
type Plugin struct {
	Path   string
	logger *logging.Logger
}

// New creates the plugin for the running kernel
func New(logger *logging.Logger) *Plugin {
	return &Plugin{Path: DefaultPath, logger: logger}
}

// Name implements plugin.Plugin
func (p *Plugin) Name() string { return Name }

// Version implements plugin.Plugin
func (p *Plugin) Version() string { return Version }

// Judge accepts every mode configured with a boolean
func (p *Plugin) Judge(cfg modes.Config) (plugin.Judgement, error) {
	var j plugin.Judgement

	if _, d := modes.InAllModes(cfg, Name); d != nil {
		j.Diagnostics = append(j.Diagnostics, *d)
	}

	for mode, value := range modes.Iterate(cfg, Name) {
		if _, ok := value.(bool); !ok {
			j.Diagnostics = append(j.Diagnostics,
				diag.Warningf("config in powermode %s must be a boolean.", mode))
			continue
		}
		j.Accepted = append(j.Accepted, mode)
	}
	return j, nil
}

// Apply writes the switch
func (p *Plugin) Apply(value any) (plugin.Outcome, error) {
	enable, ok := value.(bool)
	if !ok {
		return plugin.Outcome{}, fmt.Errorf("expected a boolean, got %T", value)
	}

	contents, verb := "0\n", "disable"
	if enable {
		contents, verb = "1\n", "enable"
	}

	written, d := fsutil.WriteText(p.Path, contents,
		diag.Warningf("Failed to %s NMI watchdog.", verb), p.logger)

	var o plugin.Outcome
	o.Success = written
	if d != nil {
		o.Diagnostics = append(o.Diagnostics, *d)
	}
	return o, nil
}

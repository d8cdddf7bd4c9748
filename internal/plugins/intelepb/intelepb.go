// Package intelepb sets the Intel Performance and Energy Bias Hint of every CPU. Modes configure
// it with an integer from 0 (performance) to 15 (power saving) or a named preset.
package intelepb

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"powermodes/internal/diag"
	"powermodes/internal/fsutil"
	"powermodes/internal/logging"
	"powermodes/internal/modes"
	"powermodes/internal/plugin"
)

const (
	// Name is the plugin's key in modes files
	Name = "intel-epb"
	// Version of the plugin
	Version = "1.0"
	// DefaultCPURoot holds one cpuN directory per CPU
	DefaultCPURoot = "/sys/devices/system/cpu"

	maxBias = 15
)

type preset struct {
	name  string
	value int
}

// presets in the order they are listed to users
var presets = []preset{
	{"performance", 0},
	{"balance-performance", 4},
	{"normal", 6},
	{"default", 6},
	{"normal-powersave", 7},
	{"balance-power", 8},
	{"power", 15},
}

// Plugin writes power/energy_perf_bias below every CPU directory of CPURoot
type Plugin struct {
	CPURoot string
	logger  *logging.Logger
}

// New creates the plugin for the running system
func New(logger *logging.Logger) *Plugin {
	return &Plugin{CPURoot: DefaultCPURoot, logger: logger}
}

// Name implements plugin.Plugin
func (p *Plugin) Name() string { return Name }

// Version implements plugin.Plugin
func (p *Plugin) Version() string { return Version }

// Judge accepts integers between 0 and 15 and preset names. It also warns about CPUs without EPB
// support.
func (p *Plugin) Judge(cfg modes.Config) (plugin.Judgement, error) {
	var j plugin.Judgement

	_, listDiags := p.epbFiles(true)
	j.Diagnostics = append(j.Diagnostics, listDiags...)

	if _, d := modes.InAllModes(cfg, Name); d != nil {
		j.Diagnostics = append(j.Diagnostics, *d)
	}

	for mode, value := range modes.Iterate(cfg, Name) {
		if _, d := interpret(value, mode); d != nil {
			j.Diagnostics = append(j.Diagnostics, *d)
			continue
		}
		j.Accepted = append(j.Accepted, mode)
	}
	return j, nil
}

// Apply writes the bias to every CPU that supports it. It succeeds when at least one CPU was set.
func (p *Plugin) Apply(value any) (plugin.Outcome, error) {
	bias, d := interpret(value, "")
	if d != nil {
		return plugin.Outcome{}, fmt.Errorf("invalid value %v", value)
	}

	var o plugin.Outcome
	files, listDiags := p.epbFiles(false)
	o.Diagnostics = append(o.Diagnostics, listDiags...)

	contents := strconv.Itoa(bias) + "\n"
	for _, file := range files {
		cpu := filepath.Base(filepath.Dir(filepath.Dir(file)))
		written, d := fsutil.WriteText(file, contents,
			diag.Warningf("Failed to set Intel EPB state for %s.", cpu), p.logger)
		if d != nil {
			o.Diagnostics = append(o.Diagnostics, *d)
		}
		o.Success = o.Success || written
	}

	p.logger.Debug("intelepb.apply", "EPB written", map[string]interface{}{
		"bias":    bias,
		"cpus":    len(files),
		"success": o.Success,
	})
	return o, nil
}

// interpret maps a configured value to the bias to write
func interpret(value any, mode string) (int, *diag.Diagnostic) {
	switch v := value.(type) {
	case int64:
		if v >= 0 && v <= maxBias {
			return int(v), nil
		}
	case string:
		for _, p := range presets {
			if p.name == v {
				return p.value, nil
			}
		}
	}

	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = strconv.Quote(p.name)
	}
	d := diag.Warningf("%s, in powermode %s, must be configured with an integer between 0 and %d, "+
		"or one of the following strings: %s.", Name, mode, maxBias, strings.Join(names, ", "))
	return 0, &d
}

// cpus lists the cpuN directories of CPURoot in CPU number order
func (p *Plugin) cpus() ([]string, *diag.Diagnostic) {
	entries, err := os.ReadDir(p.CPURoot)
	if err != nil {
		d := diag.Warning("No CPUs detected.")
		return nil, &d
	}

	type cpu struct {
		name   string
		number int
	}
	var found []cpu
	for _, e := range entries {
		number, ok := cpuNumber(e.Name())
		if ok {
			found = append(found, cpu{e.Name(), number})
		}
	}
	if len(found) == 0 {
		d := diag.Warning("No CPUs detected.")
		return nil, &d
	}

	slices.SortFunc(found, func(a, b cpu) int { return a.number - b.number })
	names := make([]string, len(found))
	for i, c := range found {
		names[i] = c.name
	}
	return names, nil
}

func cpuNumber(name string) (int, bool) {
	digits, ok := strings.CutPrefix(name, "cpu")
	if !ok || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	return n, err == nil
}

// epbFiles returns the EPB files of the CPUs that have one. With reportPartial, CPUs lacking
// support are listed in a warning even when others have it.
func (p *Plugin) epbFiles(reportPartial bool) ([]string, []diag.Diagnostic) {
	cpus, d := p.cpus()
	if d != nil {
		return nil, []diag.Diagnostic{*d}
	}

	var existing []string
	var unsupported []string
	for _, cpu := range cpus {
		file := filepath.Join(p.CPURoot, cpu, "power", "energy_perf_bias")
		if fi, err := os.Stat(file); err == nil && fi.Mode().IsRegular() {
			existing = append(existing, file)
		} else {
			unsupported = append(unsupported, cpu)
		}
	}

	switch {
	case len(existing) == 0:
		return nil, []diag.Diagnostic{diag.Warning("EPB is not supported in this system.")}
	case len(unsupported) != 0 && reportPartial:
		return existing, []diag.Diagnostic{diag.Warningf("The following CPUs don't support EPB: %s",
			strings.Join(unsupported, ", "))}
	default:
		return existing, nil
	}
}

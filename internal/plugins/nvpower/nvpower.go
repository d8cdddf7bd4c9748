// Package nvpower sets the power management limit of NVIDIA GPUs through NVML. Modes configure it
// with a wattage applied to every GPU, or with a table selecting devices:
//
//	[powersave]
//	nvidia-power-limit = { watts = 120, devices = [0] }
package nvpower

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"powermodes/internal/diag"
	"powermodes/internal/gpu"
	"powermodes/internal/logging"
	"powermodes/internal/modes"
	"powermodes/internal/plugin"
)

const (
	// Name is the plugin's key in modes files
	Name = "nvidia-power-limit"
	// Version of the plugin
	Version = "1.0"
)

// Controller is the NVML access the plugin needs. *gpu.Controller implements it.
type Controller interface {
	Devices() ([]gpu.DeviceLimits, error)
	SetPowerLimit(index int, milliwatts uint32) error
}

// Setting is a parsed mode value. A nil Devices selects every GPU.
type Setting struct {
	Milliwatts uint32
	Devices    []int
}

// Plugin applies power limits through its controller
type Plugin struct {
	controller Controller
	logger     *logging.Logger
}

// New creates the plugin
func New(controller Controller, logger *logging.Logger) *Plugin {
	return &Plugin{controller: controller, logger: logger}
}

// Name implements plugin.Plugin
func (p *Plugin) Name() string { return Name }

// Version implements plugin.Plugin
func (p *Plugin) Version() string { return Version }

// Judge checks each mode's value and, when NVML can be queried, the devices' constraints
func (p *Plugin) Judge(cfg modes.Config) (plugin.Judgement, error) {
	var j plugin.Judgement

	if _, d := modes.InAllModes(cfg, Name); d != nil {
		j.Diagnostics = append(j.Diagnostics, *d)
	}

	devices, err := p.controller.Devices()
	if err != nil {
		j.Diagnostics = append(j.Diagnostics, diag.Warningf(
			"Unable to check power limits against the installed GPUs: %v.", err))
	}

	for mode, value := range modes.Iterate(cfg, Name) {
		s, d := parse(value, mode)
		if d != nil {
			j.Diagnostics = append(j.Diagnostics, d...)
			if !s.valid() {
				continue
			}
		}

		if err == nil {
			if problems := check(s, devices, mode); len(problems) != 0 {
				j.Diagnostics = append(j.Diagnostics, problems...)
				continue
			}
		}
		j.Accepted = append(j.Accepted, mode)
	}
	return j, nil
}

// Apply sets the limit on every selected GPU. It succeeds when at least one limit was set.
func (p *Plugin) Apply(value any) (plugin.Outcome, error) {
	s, _ := parse(value, "")
	if !s.valid() {
		return plugin.Outcome{}, fmt.Errorf("invalid power limit %v", value)
	}

	var o plugin.Outcome
	devices, err := p.controller.Devices()
	if err != nil {
		o.Diagnostics = append(o.Diagnostics, diag.Warningf("Failed to query NVIDIA GPUs: %v.", err))
		return o, nil
	}
	if len(devices) == 0 {
		o.Diagnostics = append(o.Diagnostics, diag.Warning("No NVIDIA GPU detected."))
		return o, nil
	}

	for _, index := range targets(s, devices) {
		limits, found := find(devices, index)
		if !found {
			o.Diagnostics = append(o.Diagnostics, diag.Warningf("GPU %d not found.", index))
			continue
		}
		if !limits.Allows(s.Milliwatts) {
			o.Diagnostics = append(o.Diagnostics, outOfRange(s, limits, ""))
			continue
		}
		if err := p.controller.SetPowerLimit(index, s.Milliwatts); err != nil {
			o.Diagnostics = append(o.Diagnostics,
				diag.Warningf("Failed to set the power limit of GPU %d: %v.", index, err))
			continue
		}
		o.Success = true
	}

	p.logger.Debug("nvpower.apply", "Power limits applied", map[string]interface{}{
		"milliwatts": s.Milliwatts,
		"success":    o.Success,
	})
	return o, nil
}

func (s Setting) valid() bool {
	return s.Milliwatts != 0
}

// parse reads an integer or a {watts, devices} table. Diagnostics may accompany a valid setting
// when only unknown keys were found.
func parse(value any, mode string) (Setting, []diag.Diagnostic) {
	invalid := func() (Setting, []diag.Diagnostic) {
		return Setting{}, []diag.Diagnostic{diag.Warningf("%s, in powermode %s, must be a positive "+
			"number of watts or a table with \"watts\" and an optional list of GPU indices in "+
			"\"devices\".", Name, mode)}
	}

	switch v := value.(type) {
	case int64:
		mw, ok := milliwatts(v)
		if !ok {
			return invalid()
		}
		return Setting{Milliwatts: mw}, nil

	case map[string]any:
		watts, ok := v["watts"].(int64)
		if !ok {
			return invalid()
		}
		mw, ok := milliwatts(watts)
		if !ok {
			return invalid()
		}
		s := Setting{Milliwatts: mw}

		if raw, present := v["devices"]; present {
			list, ok := raw.([]any)
			if !ok || len(list) == 0 {
				return invalid()
			}
			s.Devices = make([]int, 0, len(list))
			for _, element := range list {
				index, ok := element.(int64)
				if !ok || index < 0 || index > math.MaxInt32 {
					return invalid()
				}
				if !slices.Contains(s.Devices, int(index)) {
					s.Devices = append(s.Devices, int(index))
				}
			}
		}

		var unknown []string
		for key := range v {
			if key != "watts" && key != "devices" {
				unknown = append(unknown, key)
			}
		}
		if len(unknown) != 0 {
			slices.Sort(unknown)
			return s, []diag.Diagnostic{diag.Warningf("%s, in powermode %s, has the following "+
				"unknown properties: %s.", Name, mode, strings.Join(unknown, ", "))}
		}
		return s, nil
	}
	return invalid()
}

func milliwatts(watts int64) (uint32, bool) {
	if watts <= 0 || watts > math.MaxUint32/1000 {
		return 0, false
	}
	return uint32(watts * 1000), true
}

// check validates a setting against the installed GPUs
func check(s Setting, devices []gpu.DeviceLimits, mode string) []diag.Diagnostic {
	if len(devices) == 0 {
		return []diag.Diagnostic{diag.Warningf("%s, in powermode %s: no NVIDIA GPU detected.", Name, mode)}
	}

	var problems []diag.Diagnostic
	for _, index := range targets(s, devices) {
		limits, found := find(devices, index)
		if !found {
			problems = append(problems, diag.Warningf("%s, in powermode %s: GPU %d not found.", Name, mode, index))
			continue
		}
		if !limits.Allows(s.Milliwatts) {
			problems = append(problems, outOfRange(s, limits, mode))
		}
	}
	return problems
}

func outOfRange(s Setting, limits gpu.DeviceLimits, mode string) diag.Diagnostic {
	where := ""
	if mode != "" {
		where = fmt.Sprintf("%s, in powermode %s: ", Name, mode)
	}
	return diag.Warningf("%s%d W is outside the range of GPU %d (%s): %d W to %d W.", where,
		s.Milliwatts/1000, limits.Index, limits.Name, limits.MinMilliwatts/1000, limits.MaxMilliwatts/1000)
}

func targets(s Setting, devices []gpu.DeviceLimits) []int {
	if s.Devices != nil {
		return s.Devices
	}
	indices := make([]int, len(devices))
	for i, d := range devices {
		indices[i] = d.Index
	}
	return indices
}

func find(devices []gpu.DeviceLimits, index int) (gpu.DeviceLimits, bool) {
	for _, d := range devices {
		if d.Index == index {
			return d, true
		}
	}
	return gpu.DeviceLimits{}, false
}

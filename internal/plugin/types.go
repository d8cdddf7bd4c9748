// Package plugin defines what powermodes requires from a plugin, discovers the installed plugins
// and wraps every call into one so that a misbehaving plugin never takes the tool down with it.
package plugin

import (
	"errors"
	"maps"
	"slices"

	"powermodes/internal/diag"
	"powermodes/internal/modes"
)

// UnknownVersion is reported for plugins that do not declare a version
const UnknownVersion = "unknown"

// ErrMalformed marks a plugin reply that lacks a required part. The wrapper reports it as a
// malformed result rather than as a failed call.
var ErrMalformed = errors.New("malformed reply")

// Plugin is implemented by everything that can configure a part of the system.
//
// Judge receives the configuration filtered down to the plugin's own entries (every mode is
// present, possibly empty) and returns the modes whose entry it accepts. Apply receives the entry
// of one mode and applies it. Both should only report warnings: powermodes keeps going when a
// plugin fails. Returning an error is equivalent to a failed call.
type Plugin interface {
	Name() string
	Version() string
	Judge(cfg modes.Config) (Judgement, error)
	Apply(value any) (Outcome, error)
}

// Judgement is what a plugin's Judge returns
type Judgement struct {
	Accepted    []string          `json:"accepted"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty"`
}

// Outcome is what a plugin's Apply returns
type Outcome struct {
	Success     bool              `json:"success"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty"`
}

// Entry registers a plugin under an identifier. The identifier stands in for the plugin name in
// messages when the plugin does not report one.
type Entry struct {
	ID     string
	Plugin Plugin
}

// Descriptor is a discovered plugin. It never changes after discovery.
type Descriptor struct {
	ID      string
	Name    string
	Version string

	impl Plugin
}

// NewDescriptor wraps p under the given identity. It is meant for tests and for callers that
// build a plugin set without Discover.
func NewDescriptor(id, name, version string, p Plugin) *Descriptor {
	return &Descriptor{ID: id, Name: name, Version: version, impl: p}
}

// Loaded maps self-reported plugin names to their descriptors
type Loaded map[string]*Descriptor

// Names returns the plugin names in sorted order
func (l Loaded) Names() []string {
	return slices.Sorted(maps.Keys(l))
}

// Add registers d under its name
func (l Loaded) Add(d *Descriptor) {
	l[d.Name] = d
}

// Package modes holds power mode documents: loading them from disk, copying them safely, and the
// query helpers plugins use to read their own slice of a validated configuration.
package modes

import (
	"maps"
	"slices"
)

// Document is a parsed, not yet validated modes file: mode name -> anything the decoder produced.
// Nothing guarantees that a value is a table.
//
// Values are canonical: tables are map[string]any, arrays are []any, integers are int64 and
// floats are float64. Strings, booleans, time.Time and nil pass through.
type Document map[string]any

// Config is a validated modes file: mode name -> plugin name -> plugin value. Plugin values are
// opaque to powermodes and only meaningful to the plugin of the same name.
type Config map[string]map[string]any

// Names returns the mode names of d in sorted order
func (d Document) Names() []string {
	return slices.Sorted(maps.Keys(d))
}

// Names returns the mode names of c in sorted order
func (c Config) Names() []string {
	return slices.Sorted(maps.Keys(c))
}

// PluginNames returns the plugin names configured in mode, sorted
func (c Config) PluginNames(mode string) []string {
	return slices.Sorted(maps.Keys(c[mode]))
}

// Clone copies c deeply so that the copy shares no maps or slices with it
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for mode, plugins := range c {
		table := make(map[string]any, len(plugins))
		for name, value := range plugins {
			table[name] = DeepCopy(value)
		}
		out[mode] = table
	}
	return out
}

// Document returns a deep copy of c as an unvalidated document, e.g. to validate it again
func (c Config) Document() Document {
	doc := make(Document, len(c))
	for mode, plugins := range c {
		table := make(map[string]any, len(plugins))
		for name, value := range plugins {
			table[name] = DeepCopy(value)
		}
		doc[mode] = table
	}
	return doc
}

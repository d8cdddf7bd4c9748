package modes

import (
	"iter"
	"strings"

	"powermodes/internal/diag"
)

// Filter returns a deep copy of cfg that only keeps the entries of plugin. Every mode of cfg is
// present in the result, possibly empty, so a plugin can see which modes do not configure it.
func Filter(cfg Config, plugin string) Config {
	out := make(Config, len(cfg))
	for mode, plugins := range cfg {
		table := make(map[string]any, 1)
		if value, ok := plugins[plugin]; ok {
			table[plugin] = DeepCopy(value)
		}
		out[mode] = table
	}
	return out
}

// Iterate yields (mode, value) for every mode that configures plugin, in mode name order
func Iterate(cfg Config, plugin string) iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, mode := range cfg.Names() {
			value, ok := cfg[mode][plugin]
			if !ok {
				continue
			}
			if !yield(mode, value) {
				return
			}
		}
	}
}

// InAllModes reports whether every mode of cfg configures plugin. When some do not, the returned
// warning lists them.
func InAllModes(cfg Config, plugin string) (bool, *diag.Diagnostic) {
	var missing []string
	for _, mode := range cfg.Names() {
		if _, ok := cfg[mode][plugin]; !ok {
			missing = append(missing, mode)
		}
	}

	if len(missing) == 0 {
		return true, nil
	}

	d := diag.Warningf("Not all powermodes have a configuration for %s. That means that you may "+
		"get a partially configured system while hopping between modes. Here are the missing "+
		"powermodes: %s.", plugin, strings.Join(missing, ", "))
	return false, &d
}

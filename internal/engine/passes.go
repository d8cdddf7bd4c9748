package engine

import (
	"maps"
	"slices"
	"strings"

	"powermodes/internal/diag"
	"powermodes/internal/logging"
	"powermodes/internal/modes"
	"powermodes/internal/plugin"
)

// Every pass takes the configuration produced by the previous one and returns a new one. Mode
// tables are rebuilt, plugin values are shared between passes since no pass changes them.

// shapePass keeps the modes that are tables. The tables are deep copied so that nothing
// downstream can reach into the caller's document.
func shapePass(doc modes.Document) (modes.Config, diag.List) {
	var diags diag.List
	cfg := make(modes.Config, len(doc))

	for _, mode := range doc.Names() {
		table, ok := doc[mode].(map[string]any)
		if !ok {
			diags.Append(diag.Warningf("Config specified invalid powermode %q. Must be a table. "+
				"Ignoring it.", mode))
			continue
		}
		cfg[mode] = modes.DeepCopy(table).(map[string]any)
	}
	return cfg, diags
}

// emptyPass drops modes without plugins. cascade selects the message: whether the mode was
// empty in the file or became empty when invalid parts were removed.
func emptyPass(cfg modes.Config, cascade bool) (modes.Config, diag.List) {
	var diags diag.List
	out := make(modes.Config, len(cfg))

	for _, mode := range cfg.Names() {
		if len(cfg[mode]) != 0 {
			out[mode] = cfg[mode]
			continue
		}
		if cascade {
			diags.Append(diag.Warningf("Empty powermode %q, resulting from the removal of invalid "+
				"configuration parts. Ignoring it.", mode))
		} else {
			diags.Append(diag.Warningf("Config specified empty powermode %q. Ignoring it.", mode))
		}
	}
	return out, diags
}

// unknownPluginPass strips plugins that are not loaded, with one warning per plugin listing every
// mode it appeared in. It also returns the loaded plugins the configuration references.
func unknownPluginPass(cfg modes.Config, loaded plugin.Loaded) (modes.Config, []string, diag.List) {
	var diags diag.List
	known := make(map[string]struct{})
	unknown := make(map[string][]string)

	out := make(modes.Config, len(cfg))
	for _, mode := range cfg.Names() {
		table := make(map[string]any, len(cfg[mode]))
		for name, value := range cfg[mode] {
			if _, ok := loaded[name]; ok {
				known[name] = struct{}{}
				table[name] = value
				continue
			}
			unknown[name] = append(unknown[name], mode)
		}
		out[mode] = table
	}

	for _, name := range slices.Sorted(maps.Keys(unknown)) {
		diags.Append(diag.Warningf("Unknown plugin %s will be ignored in the following powermodes: %s",
			name, strings.Join(unknown[name], ", ")))
	}
	return out, slices.Sorted(maps.Keys(known)), diags
}

// judgePass asks every referenced plugin to judge its entries and strips the entries it did not
// accept, with one warning per plugin attributed to it. Faults of one plugin only cost that
// plugin's entries.
func judgePass(cfg modes.Config, known []string, loaded plugin.Loaded, logger *logging.Logger) (modes.Config, diag.List) {
	var diags diag.List

	for _, name := range known {
		result := loaded[name].Judge(cfg)
		diags.Append(result.Diagnostics...)
		logger.Debug("engine.validate.judge", "Plugin judged its configuration", map[string]interface{}{
			"plugin":   name,
			"status":   result.Status.String(),
			"accepted": result.Accepted,
		})

		var rejected []string
		for _, mode := range cfg.Names() {
			if _, ok := cfg[mode][name]; ok && !result.Accepts(mode) {
				rejected = append(rejected, mode)
			}
		}
		if len(rejected) == 0 {
			continue
		}

		diags.Append(diag.Warningf("Removing plugin %s from the following powermodes: %s. "+
			"Plugin's judge method failed.", name, strings.Join(rejected, ", ")).From(name))
		cfg = withoutPlugin(cfg, name, rejected)
	}
	return cfg, diags
}

// withoutPlugin returns cfg with the named plugin removed from the given modes
func withoutPlugin(cfg modes.Config, name string, from []string) modes.Config {
	out := make(modes.Config, len(cfg))
	for mode, table := range cfg {
		if !slices.Contains(from, mode) {
			out[mode] = table
			continue
		}
		stripped := make(map[string]any, len(table))
		for key, value := range table {
			if key != name {
				stripped[key] = value
			}
		}
		out[mode] = stripped
	}
	return out
}

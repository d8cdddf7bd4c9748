package engine

import (
	"powermodes/internal/diag"
	"powermodes/internal/modes"
)

// ApplyMode applies mode from a validated configuration. Every plugin of the mode is applied even
// when others fail: the mode counts as applied when at least one plugin succeeded, and failures
// are reported as warnings. It fails when the mode does not exist or when every plugin failed.
func (e *Engine) ApplyMode(mode string, cfg modes.Config) (bool, diag.List) {
	plugins, ok := cfg[mode]
	if !ok {
		e.logger.Warn("engine.apply.unknown_mode", "Mode not in configuration", map[string]interface{}{
			"mode": mode,
		})
		return false, diag.List{diag.Fatalf("Powermode %s not in configuration file", mode)}
	}

	var diags diag.List
	anySucceeded := false

	for _, name := range cfg.PluginNames(mode) {
		desc, loaded := e.plugins[name]
		if !loaded {
			diags.Append(diag.Warning("Plugin is not loaded. You may have ended up with a "+
				"partially configured system.").From(name))
			continue
		}

		result := desc.Apply(plugins[name])
		diags.Append(result.Diagnostics...)

		e.logger.Info("engine.apply.plugin", "Plugin applied", map[string]interface{}{
			"mode":    mode,
			"plugin":  name,
			"status":  result.Status.String(),
			"success": result.Success,
		})

		if !result.Success {
			diags.Append(diag.Warning("apply reported failure. You may have ended up with a "+
				"partially configured system.").From(name))
			continue
		}
		anySucceeded = true
	}

	if !anySucceeded {
		diags.Append(diag.Fatalf("All plugins failed to apply mode %s", mode))
		return false, diags
	}
	return true, diags
}

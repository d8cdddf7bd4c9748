// Package engine validates power mode documents against the loaded plugins and applies modes.
//
// Validation repairs what it can: every invalid part of a document is removed with a warning and
// the rest carries on. It only fails when nothing usable is left.
package engine

import (
	"powermodes/internal/diag"
	"powermodes/internal/logging"
	"powermodes/internal/modes"
	"powermodes/internal/plugin"
)

// Engine validates and applies power modes with a fixed set of plugins
type Engine struct {
	plugins plugin.Loaded
	logger  *logging.Logger
}

// New creates an engine over the given plugins. logger may be nil.
func New(plugins plugin.Loaded, logger *logging.Logger) *Engine {
	if plugins == nil {
		plugins = plugin.Loaded{}
	}
	return &Engine{plugins: plugins, logger: logger}
}

// Plugins returns the plugins the engine works with
func (e *Engine) Plugins() plugin.Loaded {
	return e.plugins
}

// Validate turns a parsed document into a validated configuration. The checks run in order:
//
//   - modes that are not tables are removed;
//   - empty modes are removed;
//   - plugins that are not loaded are removed;
//   - every referenced plugin judges its entries, and rejected entries are removed;
//   - modes left empty by the previous steps are removed.
//
// doc is not modified. The returned Config is nil, and the last diagnostic fatal, when no mode
// survives.
func (e *Engine) Validate(doc modes.Document) (modes.Config, diag.List) {
	var diags diag.List

	cfg, passDiags := shapePass(doc)
	diags.Append(passDiags...)
	e.logPass("shape", cfg, passDiags)

	cfg, passDiags = emptyPass(cfg, false)
	diags.Append(passDiags...)
	e.logPass("empty", cfg, passDiags)

	cfg, known, passDiags := unknownPluginPass(cfg, e.plugins)
	diags.Append(passDiags...)
	e.logPass("unknown_plugins", cfg, passDiags)

	cfg, passDiags = judgePass(cfg, known, e.plugins, e.logger)
	diags.Append(passDiags...)
	e.logPass("judge", cfg, passDiags)

	cfg, passDiags = emptyPass(cfg, true)
	diags.Append(passDiags...)
	e.logPass("cascade_empty", cfg, passDiags)

	if len(cfg) == 0 {
		diags.Append(diag.Fatal("Empty configuration (this may be the result of the removal of " +
			"invalid config parts)."))
		e.logger.Warn("engine.validate.empty", "No usable powermode left", map[string]interface{}{
			"diagnostics": len(diags),
		})
		return nil, diags
	}

	e.logger.Info("engine.validate.done", "Configuration validated", map[string]interface{}{
		"modes":    cfg.Names(),
		"warnings": diags.Warnings(),
	})
	return cfg, diags
}

func (e *Engine) logPass(pass string, cfg modes.Config, diags diag.List) {
	e.logger.Debug("engine.validate.pass", "Validation pass finished", map[string]interface{}{
		"pass":     pass,
		"modes":    len(cfg),
		"warnings": len(diags),
	})
}

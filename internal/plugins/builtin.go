// Package plugins lists the plugins compiled into powermodes
package plugins

import (
	"powermodes/internal/gpu"
	"powermodes/internal/logging"
	"powermodes/internal/plugin"
	"powermodes/internal/plugins/command"
	"powermodes/internal/plugins/intelepb"
	"powermodes/internal/plugins/nmiwatchdog"
	"powermodes/internal/plugins/nvpower"
)

// Builtin returns the built-in plugins, identified by their package names
func Builtin(logger *logging.Logger) []plugin.Entry {
	return []plugin.Entry{
		{ID: "command", Plugin: command.New(logger)},
		{ID: "intelepb", Plugin: intelepb.New(logger)},
		{ID: "nmiwatchdog", Plugin: nmiwatchdog.New(logger)},
		{ID: "nvpower", Plugin: nvpower.New(gpu.NewController(logger), logger)},
	}
}

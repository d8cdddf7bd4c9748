package config

import "powermodes/internal/configdir"

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		ModesFile:            "",
		PluginDir:            configdir.Path("plugins"),
		RequireRoot:          true,
		Color:                "auto",
		PluginTimeoutSeconds: 30,
		Logging: LoggingConfig{
			Level:  "error",
			Format: "text",
		},
	}
}

package config

// Config represents the powermodes tool settings. Modes themselves live in the modes file.
type Config struct {
	ModesFile            string        `yaml:"modes_file"`
	PluginDir            string        `yaml:"plugin_dir"`
	RequireRoot          bool          `yaml:"require_root"`
	Color                string        `yaml:"color"`
	PluginTimeoutSeconds int           `yaml:"plugin_timeout_seconds"`
	Logging              LoggingConfig `yaml:"logging"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File receives the log instead of stderr when set
	File string `yaml:"file"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}

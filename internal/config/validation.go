package config

import (
	"fmt"
	"slices"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateColor()...)
	errors = append(errors, c.validatePluginTimeout()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateColor() []ValidationError {
	validModes := []string{"auto", "always", "never"}
	if slices.Contains(validModes, c.Color) {
		return nil
	}

	return []ValidationError{{
		Path:    "color",
		Message: fmt.Sprintf("must be one of %v, got '%s'", validModes, c.Color),
	}}
}

func (c *Config) validatePluginTimeout() []ValidationError {
	if c.PluginTimeoutSeconds >= 1 && c.PluginTimeoutSeconds <= 3600 {
		return nil
	}

	return []ValidationError{{
		Path:    "plugin_timeout_seconds",
		Message: fmt.Sprintf("must be between 1 and 3600, got %d", c.PluginTimeoutSeconds),
	}}
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.Logging.Level) {
		errors = append(errors, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validLevels, c.Logging.Level),
		})
	}

	validFormats := []string{"json", "text"}
	if !slices.Contains(validFormats, c.Logging.Format) {
		errors = append(errors, ValidationError{
			Path:    "logging.format",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validFormats, c.Logging.Format),
		})
	}

	return errors
}
